package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/opd-ai/letsshare/config"
	"github.com/opd-ai/letsshare/history"
	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List completed transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := history.ReadRecords(opts.HistoryPath)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transfers recorded yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tOPERATION\tPEER\tFILE\tSIZE")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.Time.Format(history.TimeLayout), r.Operation, r.Peer, r.FileName, r.Size)
			}
			return tw.Flush()
		},
	}
}
