package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/opd-ai/letsshare/config"
	"github.com/opd-ai/letsshare/history"
	"github.com/opd-ai/letsshare/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSendCommand(opts *config.Options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "send <ip> <file>",
		Short: "Send a file to a waiting receiver",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				opts.Port = port
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSend(ctx, opts, args[0], args[1], cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "Receiver's TCP port")
	return cmd
}

func runSend(ctx context.Context, opts *config.Options, address, path string, out io.Writer) error {
	s := session.New(opts, session.WithHistory(history.NewFileSink(opts.HistoryPath)))
	defer s.Teardown()

	if err := s.DialPeer(ctx, address, opts.Port); err != nil {
		return err
	}
	if err := s.SendFile(path); err != nil {
		_ = s.Disconnect()
		return err
	}

	var g errgroup.Group
	g.Go(func() error { return renderEvents(s.Events(), out) })
	g.Go(func() error {
		_ = s.Wait()
		return nil
	})
	return g.Wait()
}
