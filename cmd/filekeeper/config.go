package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage filekeeper configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/filekeeper/config.yaml (if set)
  2. ~/.config/filekeeper/config.yaml

Environment variables can override config file settings using the
FILEKEEPER_ prefix:
  FILEKEEPER_VALIDATION_MODE=sandboxed
  FILEKEEPER_STRATEGY=best_location
  FILEKEEPER_SCAN_MAX_DEPTH=16`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("validation.mode:          %s\n", cfg.Validation.Mode)
	fmt.Printf("validation.allowed_roots: %v\n", cfg.Validation.AllowedRoots)
	fmt.Printf("scan.max_depth:           %d\n", cfg.Scan.MaxDepth)
	fmt.Printf("scan.max_files:           %d\n", cfg.Scan.MaxFiles)
	fmt.Printf("scan.include_hidden:      %t\n", cfg.Scan.IncludeHidden)
	fmt.Printf("scan.exclude:             %v\n", cfg.Scan.Exclude)
	fmt.Printf("hash.max_file_size:       %s\n", cfg.Hash.MaxFileSize)
	fmt.Printf("hash.concurrency:         %d\n", cfg.Hash.Concurrency)
	fmt.Printf("hash.cache_path:          %s\n", cfg.HashCacheDir())
	fmt.Printf("strategy:                 %s\n", cfg.Strategy)
	fmt.Printf("on_conflict:              %s\n", cfg.OnConflict)
	fmt.Printf("manifest.path:            %s\n", cfg.ManifestDir())
	fmt.Printf("manifest.retention_days:  %d\n", cfg.Manifest.RetentionDays)
	fmt.Printf("logging.level:            %s\n", cfg.Logging.Level)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"FILEKEEPER_VALIDATION_MODE",
		"FILEKEEPER_VALIDATION_ALLOWED_ROOTS",
		"FILEKEEPER_SCAN_MAX_DEPTH",
		"FILEKEEPER_SCAN_MAX_FILES",
		"FILEKEEPER_SCAN_INCLUDE_HIDDEN",
		"FILEKEEPER_HASH_MAX_FILE_SIZE",
		"FILEKEEPER_HASH_CONCURRENCY",
		"FILEKEEPER_STRATEGY",
		"FILEKEEPER_ON_CONFLICT",
		"FILEKEEPER_MANIFEST_PATH",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'filekeeper config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
