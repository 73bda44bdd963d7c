package main

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/organizer"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/output"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

var organizeCmd = &cobra.Command{
	Use:   "organize [path]",
	Short: "Sort files into category folders",
	Long: `Organize plans a move for every file in a directory into a category
subfolder (Documents, Images, Audio, ...) chosen by extension, then
executes the plan. Hidden files are left alone.

Destination collisions are resolved by the --on-conflict policy. Executed
moves are recorded in a manifest so the whole operation can be undone.

With --dry-run the plan is printed and nothing is moved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOrganize,
}

func init() {
	organizeCmd.Flags().String("on-conflict", "", "collision policy (rename, skip, overwrite, overwrite_if_newer)")
	organizeCmd.Flags().BoolP("dry-run", "d", false, "show the plan without moving anything")

	_ = viper.BindPFlag("on_conflict", organizeCmd.Flags().Lookup("on-conflict"))

	rootCmd.AddCommand(organizeCmd)
}

// runOrganize executes the organize command.
func runOrganize(cmd *cobra.Command, args []string) error {
	policy, err := types.ParseConflictPolicy(viper.GetString("on_conflict"))
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	result, source, err := scanTarget(cmd, args)
	if err != nil {
		return err
	}

	validator, err := buildValidator()
	if err != nil {
		return err
	}
	root, err := validator.Validate(source)
	if err != nil {
		return err
	}
	store, err := buildStore()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	categorizer, err := buildCategorizer()
	if err != nil {
		return err
	}

	org := organizer.New(categorizer, validator, store)
	opts := organizer.Options{OnConflict: policy, DryRun: dryRun}

	plan, execResult, err := org.Organize(ctx, root, result.Files, opts, buildIntegrity())
	if err != nil {
		return err
	}

	formatter, err := getFormatter()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if dryRun {
		err = formatter.FormatPlan(&buf, output.NewPlanReport(source, plan, true))
	} else {
		err = formatter.FormatOrganize(&buf, output.NewOrganizeReport(source, execResult))
	}
	if err != nil {
		return err
	}
	fmt.Print(buf.String())

	if !dryRun && execResult.Statistics.Failed > 0 {
		return fmt.Errorf("%d files could not be moved", execResult.Statistics.Failed)
	}
	return nil
}
