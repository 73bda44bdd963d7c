package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/integrity"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/output"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Reverse a recorded operation",
	Long: `Undo replays a recorded operation's actions in reverse: moved files
go back to their original locations and deleted files are restored from
their backups.

By default the most recent operation is undone; use --id to undo a
specific one (see 'filekeeper history' for IDs). The manifest's integrity
is verified first, and undo is refused if the manifest was modified or
was created on a different machine.`,
	Args: cobra.NoArgs,
	RunE: runUndo,
}

var undoID string

func init() {
	undoCmd.Flags().StringVar(&undoID, "id", "", "manifest ID to undo (default: most recent)")
	rootCmd.AddCommand(undoCmd)
}

// runUndo executes the undo command.
func runUndo(cmd *cobra.Command, args []string) error {
	store, err := buildStore()
	if err != nil {
		return err
	}

	var m *manifest.Manifest
	if undoID != "" {
		m, err = store.Get(undoID)
	} else {
		m, err = store.Latest()
	}
	if errors.Is(err, manifest.ErrNoManifests) || errors.Is(err, manifest.ErrNotFound) {
		printInfo("Nothing to undo.")
		return nil
	}
	if err != nil {
		return err
	}

	validator, err := buildValidator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := store.Undo(ctx, m, buildIntegrity(), validator)
	var tamper *integrity.TamperError
	if errors.As(err, &tamper) {
		printError("refusing to undo %s: %s", tamper.ManifestID, tamper.Reason)
		return err
	}
	if err != nil {
		return err
	}

	formatter, err := getFormatter()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.FormatUndo(&buf, output.NewUndoReport(m, result)); err != nil {
		return err
	}
	fmt.Print(buf.String())

	if len(result.Failed) > 0 {
		return fmt.Errorf("%d actions could not be reversed", len(result.Failed))
	}
	return nil
}
