package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/selfie/constants/lipgloss"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/utils"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove snapshots whose test no longer exists",
	Long: `The 'prune' command deletes snapshot files of test classes which are gone from the sources,
and removes snapshots of deleted test methods from the remaining files. Tests normally do this at the
end of a run, 'prune' does it without running them. Files which fail to parse are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		return handlePruneCommand(cmd, force, dryRun)
	},
}

func init() {
	pruneCmd.Flags().BoolP("force", "f", false, "Prune without confirmation")
	pruneCmd.Flags().BoolP("dry-run", "n", false, "Show what would be pruned and stop")

	rootCmd.AddCommand(pruneCmd)
}

type fileRewrite struct {
	Path   contracts.TypedPath
	Before []byte
	After  []byte
}

type prunePlan struct {
	Delete  []contracts.TypedPath
	Rewrite []fileRewrite
}

func (p prunePlan) IsEmpty() bool { return len(p.Delete) == 0 && len(p.Rewrite) == 0 }

func handlePruneCommand(cmd *cobra.Command, force bool, dryRun bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	if err := rootDependencies.Discovery.Err(); err != nil {
		// a source we could not read would make its snapshots look stale
		return fmt.Errorf("refusing to prune, test sources could not be read: %w", err)
	}

	reports, err := inspectSnapshots(rootDependencies.Layout, rootDependencies.Discovery)
	if err != nil {
		return err
	}
	plan, err := planPrune(rootDependencies.Layout.FS(), reports)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if plan.IsEmpty() {
		fmt.Fprintln(out, lipgloss.Green.Render("✓ Nothing to prune."))
		return nil
	}
	if err := printPlan(out, plan); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	if !force {
		ok, err := utils.ConfirmPromptWithContext(ctx, "Apply these changes?", bufio.NewReader(cmd.InOrStdin()), out)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, lipgloss.Yellow.Render("Prune cancelled."))
			return nil
		}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)
	spinnerInstance, _ := spinner.Start("Pruning snapshots...")
	err = applyPrune(rootDependencies.Layout.FS(), plan)
	spinnerInstance.Stop()
	fmt.Print("\r")
	if err != nil {
		return fmt.Errorf("error pruning snapshots: %w", err)
	}

	rootDependencies.Logger.Info("pruned snapshots", "deleted", len(plan.Delete), "rewritten", len(plan.Rewrite))
	fmt.Fprintln(out, lipgloss.Green.Render(fmt.Sprintf("✓ Deleted %d file(s) and rewrote %d file(s).", len(plan.Delete), len(plan.Rewrite))))
	return nil
}

// planPrune decides what happens to each file. A file left without snapshots is deleted.
func planPrune(fs contracts.IFileSystem, reports []fileReport) (prunePlan, error) {
	var plan prunePlan
	for _, report := range reports {
		switch {
		case report.ParseError != nil:
			continue
		case report.StaleFile:
			plan.Delete = append(plan.Delete, report.Path)
		case len(report.staleIdx) > 0:
			before, err := fs.FileReadBinary(report.Path)
			if err != nil {
				return prunePlan{}, err
			}
			report.file.RemoveAllIndices(report.staleIdx)
			if report.file.Snapshots().IsEmpty() {
				plan.Delete = append(plan.Delete, report.Path)
				continue
			}
			plan.Rewrite = append(plan.Rewrite, fileRewrite{Path: report.Path, Before: before, After: report.file.Bytes()})
		}
	}
	return plan, nil
}

func printPlan(w io.Writer, plan prunePlan) error {
	for _, path := range plan.Delete {
		fmt.Fprintln(w, lipgloss.Red.Render("delete "+path.String()))
	}
	for _, rewrite := range plan.Rewrite {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(rewrite.Before)),
			B:        difflib.SplitLines(string(rewrite.After)),
			FromFile: rewrite.Path.String(),
			ToFile:   rewrite.Path.String(),
			Context:  1,
		})
		if err != nil {
			return err
		}
		utils.RenderDiff(w, diff)
	}
	return nil
}

func applyPrune(fs contracts.IFileSystem, plan prunePlan) error {
	var errs []error
	for _, path := range plan.Delete {
		if err := fs.FileDelete(path); err != nil {
			errs = append(errs, err)
		}
	}
	for _, rewrite := range plan.Rewrite {
		if err := fs.FileWriteBinary(rewrite.Path, rewrite.After); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
