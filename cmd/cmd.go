// Package cmd wires the slightbackup command line.
package cmd

import (
	"slightbackup/config"
	"slightbackup/logging"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
	cfg      *config.Config
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "slightbackup",
		Short:        "Export bookmarks, call logs, messages and the user dictionary into XML backups",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			if err := logging.ConfigureDefaultLogger(cfg.LogLevel); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides SLIGHTBACKUP_LOG_LEVEL")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newBackupsCmd(opts))
	return root
}
