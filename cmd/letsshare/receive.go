package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/opd-ai/letsshare/config"
	"github.com/opd-ai/letsshare/discovery"
	"github.com/opd-ai/letsshare/history"
	"github.com/opd-ai/letsshare/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newReceiveCommand(opts *config.Options) *cobra.Command {
	var port int
	var dir string

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Wait for one peer and receive its file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				opts.Port = port
			}
			if dir != "" {
				opts.DownloadDir = dir
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runReceive(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "TCP port to listen on")
	cmd.Flags().StringVar(&dir, "dir", "", "Download directory (default from config)")
	return cmd
}

func runReceive(ctx context.Context, opts *config.Options, out io.Writer) error {
	options := []session.Option{
		session.WithHistory(history.NewFileSink(opts.HistoryPath)),
		session.WithProvisioner(opts.Provisioner()),
	}
	if opts.Discovery {
		options = append(options, session.WithAnnouncer(discovery.NewService("")))
	}

	s := session.New(opts, options...)
	defer s.Teardown()

	if err := s.PrepareReceiver(opts.Port); err != nil {
		return err
	}
	if err := s.AcceptOnce(ctx); err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error { return renderEvents(s.Events(), out) })
	g.Go(func() error {
		// Failures reach the renderer as events
		_ = s.Wait()
		return nil
	})
	return g.Wait()
}
