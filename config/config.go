// Package config holds LetsShare runtime options, their defaults and YAML
// loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opd-ai/letsshare/firewall"
	"github.com/opd-ai/letsshare/history"
	"github.com/opd-ai/letsshare/limits"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the TCP port receivers listen on and senders dial.
	DefaultPort = 5000

	// DefaultConnectTimeout bounds an outgoing connection attempt.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultIdleTimeout bounds every blocking read or write on an
	// established connection, and the handshake as a whole.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultPacingDelay is the sender's pause after each flush boundary.
	DefaultPacingDelay = time.Millisecond
)

// ErrInvalidOptions is wrapped by every Validate failure.
var ErrInvalidOptions = errors.New("invalid options")

// FirewallOptions configures rule provisioning around the receiver's port.
type FirewallOptions struct {
	Enabled        bool     `yaml:"enabled"`
	OpenCommands   []string `yaml:"open_commands"`
	RevokeCommands []string `yaml:"revoke_commands"`
}

// Options contains the configuration of a LetsShare endpoint.
type Options struct {
	Port              int             `yaml:"port"`
	ConnectTimeout    time.Duration   `yaml:"connect_timeout"`
	IdleTimeout       time.Duration   `yaml:"idle_timeout"`
	BufferSize        int             `yaml:"buffer_size"`
	PacingDelay       time.Duration   `yaml:"pacing_delay"`
	DownloadDir       string          `yaml:"download_dir"`
	HistoryPath       string          `yaml:"history_path"`
	SanitizeFileNames bool            `yaml:"sanitize_file_names"`
	Discovery         bool            `yaml:"discovery"`
	Firewall          FirewallOptions `yaml:"firewall"`
}

// NewOptions creates default options.
func NewOptions() *Options {
	return &Options{
		Port:              DefaultPort,
		ConnectTimeout:    DefaultConnectTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		BufferSize:        limits.ChunkSize,
		PacingDelay:       DefaultPacingDelay,
		DownloadDir:       defaultDownloadDir(),
		HistoryPath:       history.DefaultPath(),
		SanitizeFileNames: true,
		Discovery:         true,
		Firewall: FirewallOptions{
			Enabled:        true,
			OpenCommands:   firewall.DefaultOpenCommands(),
			RevokeCommands: firewall.DefaultRevokeCommands(),
		},
	}
}

// Load reads YAML options from path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Options, error) {
	opts := NewOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	opts.DownloadDir = expandHome(opts.DownloadDir)
	opts.HistoryPath = expandHome(opts.HistoryPath)

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Load",
		"path":         path,
		"port":         opts.Port,
		"download_dir": opts.DownloadDir,
	}).Debug("Loaded configuration")

	return opts, nil
}

// Validate rejects option values the session cannot run with.
func (o *Options) Validate() error {
	if err := limits.ValidatePort(o.Port); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: connect timeout must be positive", ErrInvalidOptions)
	}
	if o.IdleTimeout <= 0 {
		return fmt.Errorf("%w: idle timeout must be positive", ErrInvalidOptions)
	}
	if o.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be positive", ErrInvalidOptions)
	}
	if o.PacingDelay < 0 {
		return fmt.Errorf("%w: pacing delay cannot be negative", ErrInvalidOptions)
	}
	if o.DownloadDir == "" {
		return fmt.Errorf("%w: download directory cannot be empty", ErrInvalidOptions)
	}
	if o.HistoryPath == "" {
		return fmt.Errorf("%w: history path cannot be empty", ErrInvalidOptions)
	}
	for _, tmpl := range append(append([]string{}, o.Firewall.OpenCommands...), o.Firewall.RevokeCommands...) {
		if _, err := firewall.Expand(tmpl, o.Port); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
	}
	return nil
}

// Provisioner builds the firewall provisioner the options describe.
func (o *Options) Provisioner() firewall.Provisioner {
	if !o.Firewall.Enabled {
		return firewall.Noop{}
	}
	return firewall.New(o.Firewall.OpenCommands, o.Firewall.RevokeCommands)
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
