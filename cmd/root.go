package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/meysamhadeli/selfie/config"
	"github.com/meysamhadeli/selfie/constants/lipgloss"
	"github.com/meysamhadeli/selfie/engine"
	"github.com/spf13/cobra"
)

// RootDependencies is what every subcommand needs to look at a project's snapshots.
type RootDependencies struct {
	Cwd       string
	Config    *config.Config
	Layout    *engine.Layout
	Discovery *engine.SourceDiscovery
	Logger    *slog.Logger
}

var rootCmd = &cobra.Command{
	Use:   "selfie",
	Short: "Inspect and maintain the snapshot files of a JVM project.",
	Long: `selfie works on the '.ss' snapshot files written by tests. It finds them in the
standard test folders of the project (src/test/java, src/test/kotlin, ...), checks that they parse,
shows their content, prunes snapshots whose test no longer exists, and renders inline literals.`,
	Run: func(cmd *cobra.Command, args []string) {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultConfig.Version)
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}

func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("error getting current directory: %w", err)
	}

	cfg, err := config.LoadConfigs(cmd.Root(), cwd)
	if err != nil {
		return nil, err
	}
	cfg.PrintWarnings(cmd.ErrOrStderr())

	logger, err := config.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	layout, err := cfg.NewLayout()
	if err != nil {
		return nil, err
	}
	if err := layout.CheckForSmuggledError(); err != nil {
		return nil, err
	}
	logger.Debug("resolved snapshot root", "root", layout.RootFolder().String(), "sourceRoots", len(layout.SourceRoots()))

	return &RootDependencies{
		Cwd:       cwd,
		Config:    cfg,
		Layout:    layout,
		Discovery: engine.NewSourceDiscovery(layout),
		Logger:    logger,
	}, nil
}
