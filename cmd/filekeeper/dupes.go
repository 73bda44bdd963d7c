package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/dupes"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/hashcache"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/output"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/watcher"
)

var dupesCmd = &cobra.Command{
	Use:   "dupes [path]",
	Short: "Find and optionally delete duplicate files",
	Long: `Dupes scans a directory for files with identical content and groups
them. Files are compared by size first, then by SHA-256 digest, so unique
sizes are never hashed.

Each group marks one member as the recommended keep under the selected
strategy. With --delete, every other member is removed; the deletion is
recorded in a manifest and each deleted file is backed up so the
operation can be undone.

With --watch, the command keeps running after the first report, watching
the tree for changes and refreshing the report as files change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDupes,
}

func init() {
	dupesCmd.Flags().StringP("strategy", "s", "", "which copy to keep (newest, oldest, best_location, best_name)")
	dupesCmd.Flags().String("min-size", "", "ignore files smaller than this (e.g. 1MB)")
	dupesCmd.Flags().Bool("delete", false, "delete redundant copies, keeping the recommended file")
	dupesCmd.Flags().BoolP("dry-run", "d", false, "report what would be deleted without touching anything")
	dupesCmd.Flags().Bool("watch", false, "keep running and refresh the report as the tree changes")

	_ = viper.BindPFlag("strategy", dupesCmd.Flags().Lookup("strategy"))

	rootCmd.AddCommand(dupesCmd)
}

// runDupes executes the dupes command.
func runDupes(cmd *cobra.Command, args []string) error {
	strategy, err := dupes.ParseStrategy(viper.GetString("strategy"))
	if err != nil {
		return err
	}

	var minSize int64
	if sizeStr, _ := cmd.Flags().GetString("min-size"); sizeStr != "" {
		if minSize, err = types.ParseSize(sizeStr); err != nil {
			return fmt.Errorf("invalid --min-size: %w", err)
		}
	}

	doDelete, _ := cmd.Flags().GetBool("delete")
	doWatch, _ := cmd.Flags().GetBool("watch")
	if doDelete && doWatch {
		return fmt.Errorf("--delete and --watch cannot be combined")
	}

	h, cache, cleanup, err := buildHasher()
	if err != nil {
		return err
	}
	defer cleanup()

	formatter, err := getFormatter()
	if err != nil {
		return err
	}

	finder := dupes.NewFinder(h)

	var source string
	find := func(ctx context.Context) ([]types.DuplicateGroup, error) {
		result, src, err := scanTarget(cmd, args)
		if err != nil {
			return nil, err
		}
		source = src

		files := result.Files
		if minSize > 0 {
			kept := files[:0]
			for _, f := range files {
				if f.Size >= minSize {
					kept = append(kept, f)
				}
			}
			files = kept
		}

		return finder.FindWithScoring(ctx, files, strategy)
	}

	report := func(groups []types.DuplicateGroup) error {
		var buf bytes.Buffer
		if err := formatter.FormatDupes(&buf, output.NewDupesReport(source, string(strategy), groups)); err != nil {
			return err
		}
		fmt.Print(buf.String())
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	groups, err := find(ctx)
	if err != nil {
		return err
	}

	if doDelete {
		return deleteDupes(cmd, source, groups)
	}
	if err := report(groups); err != nil {
		return err
	}
	if !doWatch {
		return nil
	}
	return watchDupes(ctx, source, cache, func() error {
		groups, err := find(ctx)
		if err != nil {
			return err
		}
		return report(groups)
	})
}

// watchDupes keeps the process alive watching source, invalidating cached
// digests as files change and re-running refresh after the tree settles.
func watchDupes(ctx context.Context, source string, cache *hashcache.Cache, refresh func() error) error {
	if cache == nil {
		return fmt.Errorf("--watch requires the digest cache, which could not be opened")
	}

	w, err := watcher.New(cache)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Watch(source); err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	go w.Run(ctx, func(path string, op fsnotify.Op) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	printInfo("Watching %s for changes (ctrl-c to stop)", source)

	// Debounce bursts of events so one save does not trigger several
	// rescans.
	settle := time.NewTimer(time.Hour)
	if !settle.Stop() {
		<-settle.C
	}
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			settle.Reset(500 * time.Millisecond)
		case <-settle.C:
			if err := refresh(); err != nil {
				printError("refresh failed: %v", err)
			}
		}
	}
}

// deleteDupes removes every group member except the recommended keep.
func deleteDupes(cmd *cobra.Command, source string, groups []types.DuplicateGroup) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var paths []string
	expected := make(map[string]int64)
	for _, g := range groups {
		for _, f := range g.Files {
			if f.Path == g.RecommendedKeep {
				continue
			}
			paths = append(paths, f.Path)
			expected[f.Path] = f.Size
		}
	}

	if len(paths) == 0 {
		printInfo("No duplicates found under %s", source)
		return nil
	}

	validator, err := buildValidator()
	if err != nil {
		return err
	}
	store, err := buildStore()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deleter := dupes.NewDeleter(validator, store)
	result, m, err := deleter.Delete(ctx, paths, dupes.DeleteOptions{
		ExpectedSizes: expected,
		DryRun:        dryRun,
	}, buildIntegrity())
	if err != nil {
		return err
	}

	verb := "Deleted"
	if dryRun {
		verb = "Would delete"
	}
	printInfo("%s %d of %d files, freeing %s", verb,
		len(result.Deleted), len(paths), types.FormatSize(result.BytesFreed))
	for _, failure := range result.Failed {
		printError("%s: %s", failure.Path, failure.Error)
	}
	if m != nil {
		printInfo("Undo with: filekeeper undo --id %s", m.ID)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d files could not be deleted", len(result.Failed))
	}
	return nil
}
