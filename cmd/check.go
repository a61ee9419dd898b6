package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/meysamhadeli/selfie/constants/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ErrSnapshotsNeedAttention makes `check --strict` fail on stale snapshots, not only broken files.
var ErrSnapshotsNeedAttention = errors.New("snapshot files need attention")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse every snapshot file and report broken or stale ones.",
	Long: `The 'check' command reads all snapshot files below the snapshot root and reports:
files which fail to parse, files whose test class no longer exists, and snapshots whose test method
is gone. It fails when a file is broken, and with --strict also when anything is stale.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}

		spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
			WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
			WithDelay(100).WithRemoveWhenDone(true)
		spinnerInstance, _ := spinner.Start("Reading snapshot files...")
		reports, err := inspectSnapshots(rootDependencies.Layout, rootDependencies.Discovery)
		spinnerInstance.Stop()
		fmt.Print("\r")
		if err != nil {
			return err
		}
		if err := rootDependencies.Discovery.Err(); err != nil {
			rootDependencies.Logger.Warn("some test sources could not be read", "error", err)
		}
		return printCheck(cmd.OutOrStdout(), reports, strict)
	},
}

func init() {
	checkCmd.Flags().Bool("strict", false, "Fail when snapshots are stale, not only when files are broken")
	rootCmd.AddCommand(checkCmd)
}

func printCheck(w io.Writer, reports []fileReport, strict bool) error {
	if len(reports) == 0 {
		fmt.Fprintln(w, lipgloss.Yellow.Render("No snapshot files found."))
		return nil
	}

	data := pterm.TableData{{"Class", "Snapshots", "Status"}}
	var broken []error
	stale := 0
	for _, report := range reports {
		status := report.status()
		switch status {
		case "broken":
			broken = append(broken, fmt.Errorf("%s: %w", report.Path, report.ParseError))
			status = lipgloss.Red.Render(status)
		case "ok":
			status = lipgloss.Green.Render(status)
		default:
			stale++
			status = lipgloss.Yellow.Render(status)
		}
		data = append(data, []string{report.ClassName, strconv.Itoa(report.Snapshots), status})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)

	for _, report := range reports {
		if len(report.StaleKeys) > 0 {
			fmt.Fprintf(w, "%s\n  %s\n", report.ClassName, strings.Join(report.StaleKeys, "\n  "))
		}
	}

	if len(broken) > 0 {
		return errors.Join(broken...)
	}
	if stale > 0 {
		fmt.Fprintln(w, lipgloss.Yellow.Render(fmt.Sprintf("%d file(s) have stale snapshots, run `selfie prune` to remove them.", stale)))
		if strict {
			return ErrSnapshotsNeedAttention
		}
		return nil
	}
	fmt.Fprintln(w, lipgloss.Green.Render("✓ All snapshot files are in use."))
	return nil
}
