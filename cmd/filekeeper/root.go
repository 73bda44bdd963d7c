package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/config"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "filekeeper",
		Short: "Organize files safely with reversible operations",
		Long: `Filekeeper scans directories, finds duplicate files, and organizes
files into category folders. Every destructive operation is recorded in a
tamper-evident manifest so it can be undone.

Examples:
  filekeeper scan ~/Downloads            # List files under a directory
  filekeeper dupes ~/Downloads           # Find duplicate files
  filekeeper dupes --delete ~/Downloads  # Delete redundant copies
  filekeeper organize ~/Downloads        # Sort files into category folders
  filekeeper undo                        # Reverse the most recent operation
  filekeeper history                     # View recorded operations`,
		PersistentPreRunE: setupLogging,
		SilenceUsage:      true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/filekeeper/config.yaml)")
	rootCmd.PersistentFlags().StringP("mode", "m", "", "path validation mode (strict, sandboxed, unrestricted)")
	rootCmd.PersistentFlags().StringSlice("allow", nil, "allowed root for sandboxed mode (can be specified multiple times)")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty", "output format (pretty, plain, json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("validation.mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("validation.allowed_roots", rootCmd.PersistentFlags().Lookup("allow"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "filekeeper"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "filekeeper"))
		}
	}

	viper.SetEnvPrefix("FILEKEEPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Set defaults from config package
	viper.SetDefault("validation.mode", config.DefaultMode)
	viper.SetDefault("scan.max_depth", config.DefaultMaxDepth)
	viper.SetDefault("scan.max_files", config.DefaultMaxFiles)
	viper.SetDefault("scan.exclude", config.DefaultExclusions)
	viper.SetDefault("hash.max_file_size", config.DefaultMaxFileSize)
	viper.SetDefault("hash.concurrency", config.DefaultHashConcurrency)
	viper.SetDefault("strategy", config.DefaultStrategy)
	viper.SetDefault("on_conflict", config.DefaultOnConflict)
	viper.SetDefault("manifest.retention_days", config.DefaultRetentionDays)
	viper.SetDefault("logging.level", "info")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// setupLogging initializes the logging system before any command runs.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg := logging.DefaultConfig()
	cfg.Level = viper.GetString("logging.level")
	if path := viper.GetString("logging.path"); path != "" {
		cfg.Path = path
	}
	if getVerbose() {
		cfg.Level = "debug"
		cfg.ConsoleLevel = "debug"
	}
	return logging.Init(cfg)
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
