package main

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/output"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/scanner"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory and list its files",
	Long: `Scan walks a directory tree and lists the files it contains, with
per-path errors reported rather than aborting the walk.

The scan stops cleanly when it reaches the configured depth or file-count
ceiling and marks the result as truncated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Int("max-depth", 0, "directory depth ceiling (0 uses config)")
	scanCmd.Flags().Int64("max-files", 0, "file count ceiling (0 uses config)")
	scanCmd.Flags().Bool("hidden", false, "include hidden files and directories")
	scanCmd.Flags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")

	_ = viper.BindPFlag("scan.include_hidden", scanCmd.Flags().Lookup("hidden"))

	rootCmd.AddCommand(scanCmd)
}

// scanTarget resolves the positional path argument, defaulting to the
// current directory, and runs a scan over it.
func scanTarget(cmd *cobra.Command, args []string) (*types.ScanResult, string, error) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	validator, err := buildValidator()
	if err != nil {
		return nil, "", err
	}

	root, err := validator.Validate(target)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(root.String())
	if err != nil {
		return nil, "", err
	}
	if !info.IsDir() {
		return nil, "", fmt.Errorf("%s is not a directory", root)
	}

	opts := scanner.Options{
		Root:          root,
		MaxDepth:      viper.GetInt("scan.max_depth"),
		MaxFiles:      viper.GetInt64("scan.max_files"),
		IncludeHidden: viper.GetBool("scan.include_hidden"),
		Exclude:       viper.GetStringSlice("scan.exclude"),
	}
	if v, _ := cmd.Flags().GetInt("max-depth"); v > 0 {
		opts.MaxDepth = v
	}
	if v, _ := cmd.Flags().GetInt64("max-files"); v > 0 {
		opts.MaxFiles = v
	}
	if patterns, _ := cmd.Flags().GetStringSlice("exclude"); len(patterns) > 0 {
		opts.Exclude = append(opts.Exclude, patterns...)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printVerbose("scanning %s", root)
	result, err := scanner.New(opts).Scan(ctx)
	if err != nil {
		return nil, "", err
	}
	return result, root.String(), nil
}

// runScan executes the scan command.
func runScan(cmd *cobra.Command, args []string) error {
	result, source, err := scanTarget(cmd, args)
	if err != nil {
		return err
	}

	formatter, err := getFormatter()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.FormatScan(&buf, output.NewScanReport(source, result)); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}
