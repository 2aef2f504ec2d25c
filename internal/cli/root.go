package cli

import (
	"path/filepath"

	"github.com/pathwaylabs/engage/internal/config"
	"github.com/pathwaylabs/engage/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engage",
		Short: "Engage is a client for the marketing personalization backend",
		Long:  "Engage drives a goal-clarification conversation against the personalization backend and tracks mission progress for the session.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log, err = logging.Open(level, filepath.Join(paths.Logs, "engage.log"))
			if err != nil {
				log = logging.New(nil, level)
				log.Warn().Err(err).Msg("log file unavailable, console only")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.engage/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newMissionsCmd())
	cmd.AddCommand(newTrackCmd())
	cmd.AddCommand(newResetCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
