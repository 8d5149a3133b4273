package main

import (
	"context"
	"fmt"
	"time"

	"github.com/opd-ai/letsshare/discovery"
	"github.com/spf13/cobra"
)

func newPeersCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List receivers waiting on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			peers, err := discovery.Browse(ctx)
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No receivers found.")
				return nil
			}
			for _, p := range peers {
				fmt.Fprintln(cmd.OutOrStdout(), p.String())
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "How long to listen for announcements")
	return cmd
}
