// Package main provides the letsshare command-line interface: send one file
// to a peer on the local network, or wait to receive one.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/opd-ai/letsshare/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cliFlags holds the persistent flags shared by every command.
type cliFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &cliFlags{}
	opts := config.NewOptions()

	root := &cobra.Command{
		Use:           "letsshare",
		Short:         "Send a single file to a peer over TCP",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(flags.logLevel, flags.logFormat); err != nil {
				return err
			}
			loaded, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			*opts = *loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newReceiveCommand(opts),
		newSendCommand(opts),
		newHistoryCommand(opts),
		newPeersCommand(),
	)
	return root
}

// setupLogging configures the global logrus logger.
func setupLogging(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", format)
	}
	logrus.SetOutput(os.Stderr)
	return nil
}
