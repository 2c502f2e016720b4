package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kcaldas/blockfit/internal/di"
	"github.com/kcaldas/blockfit/pkg/config"
	"github.com/kcaldas/blockfit/pkg/version"
)

// rootState carries the persistent flags and the application graph built
// from them before any subcommand runs.
type rootState struct {
	verbose    bool
	quiet      bool
	configPath string
	envFile    string

	app *di.App
}

func (s *rootState) App() *di.App {
	return s.app
}

// NewRootCommand builds the blockfit command tree.
func NewRootCommand() *cobra.Command {
	state := &rootState{}

	cmd := &cobra.Command{
		Use:           "blockfit",
		Short:         "Fit content blocks into a token budget",
		Long:          `blockfit scores content blocks, packs the best of them into a token budget and reassembles the result, optionally waiting on completion and validation conditions.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := state.resolveSettings()
			if err != nil {
				return err
			}
			state.app = di.InjectApp(settings, cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if state.app != nil {
				state.app.Close()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "verbose output (debug level)")
	cmd.PersistentFlags().BoolVarP(&state.quiet, "quiet", "q", false, "quiet output (errors only)")
	cmd.PersistentFlags().StringVar(&state.configPath, "config", "", "settings file (default "+config.DefaultSettingsFile+")")
	cmd.PersistentFlags().StringVar(&state.envFile, "env-file", ".env", "env file loaded before reading BLOCKFIT_* variables")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		newSelectCommand(state.App),
		newBatchCommand(state.App),
		newWatchCommand(state.App),
		newVersionCommand(),
	)
	return cmd
}

// resolveSettings layers defaults, the settings file, the env file, the
// environment and finally the log level flags.
func (s *rootState) resolveSettings() (config.Settings, error) {
	settings, err := config.LoadSettings(s.configPath, s.configPath == "")
	if err != nil {
		return settings, err
	}
	if err := config.LoadEnvFile(s.envFile); err != nil {
		return settings, err
	}
	settings = settings.ApplyEnv(config.NewConfigManager())

	switch {
	case s.verbose:
		settings.LogLevel = "debug"
	case s.quiet:
		settings.LogLevel = "error"
	}

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}
