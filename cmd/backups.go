package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"slightbackup/backup"

	"github.com/spf13/cobra"
)

func newBackupsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List the backups in the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := backup.NewStore(opts.cfg.BackupDir, 0)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCONTENT\tCREATED\tSIZE")
			for _, f := range store.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", f.Name, f.ContentName, f.CreatedAt.Format(time.RFC3339), f.Size)
			}
			return w.Flush()
		},
	}
}
