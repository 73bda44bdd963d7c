package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	Long: `View the history of delete and organize operations.

Every destructive operation is recorded in a manifest that can be
undone with 'filekeeper undo --id <id>'.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a specific operation",
	Long:  `Display the recorded actions of a specific operation by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old manifests",
	Long: `Remove manifests older than the configured retention period, along
with their backed-up file content. The most recent manifest is always
kept so the latest operation stays undoable.`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyPruneCmd.Flags().Int("retention-days", 0, "override manifest.retention_days")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// runHistory lists recorded operations, newest first.
func runHistory(cmd *cobra.Command, args []string) error {
	store, err := buildStore()
	if err != nil {
		return err
	}

	manifests, err := store.List(historyLimit)
	if err != nil {
		return err
	}

	if len(manifests) == 0 {
		printInfo("No operations recorded.")
		return nil
	}

	formatter, err := getFormatter()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.FormatHistory(&buf, output.NewHistoryReport(manifests)); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}

// runHistoryPrune removes manifests past the retention period.
func runHistoryPrune(cmd *cobra.Command, args []string) error {
	days := viper.GetInt("manifest.retention_days")
	if v, _ := cmd.Flags().GetInt("retention-days"); v > 0 {
		days = v
	}
	if days <= 0 {
		return fmt.Errorf("retention must be positive, got %d days", days)
	}

	store, err := buildStore()
	if err != nil {
		return err
	}

	pruned, err := store.Prune(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}
	if pruned == 0 {
		printInfo("Nothing to prune.")
		return nil
	}
	printInfo("Pruned %d manifests older than %d days.", pruned, days)
	return nil
}

// runHistoryShow displays the actions of a single manifest.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := buildStore()
	if err != nil {
		return err
	}

	m, err := store.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", m.ID)
	fmt.Printf("Timestamp:   %s\n", m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Description: %s\n", m.Description)
	fmt.Printf("Actions:     %d\n", len(m.Actions))

	if err := buildIntegrity().Verify(m); err != nil {
		printError("integrity check failed: %v", err)
	} else {
		fmt.Println("Integrity:   ok")
	}

	if len(m.Actions) == 0 {
		return nil
	}

	fmt.Println(strings.Repeat("-", 60))
	for _, action := range m.Actions {
		fmt.Printf("%-7s  %s", action.Type, action.OriginalPath)
		if action.CurrentPath != "" {
			fmt.Printf(" -> %s", action.CurrentPath)
		}
		fmt.Println()
	}
	return nil
}
