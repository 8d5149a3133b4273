package firewall

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"
)

// PortPlaceholder is replaced by the port number in command templates.
const PortPlaceholder = "{port}"

// DefaultCommandTimeout bounds each rule command.
const DefaultCommandTimeout = 10 * time.Second

// ErrEmptyCommand indicates a template that splits into no words.
var ErrEmptyCommand = errors.New("empty firewall command")

// Provisioner manages the rules that let a peer reach the receiver's port.
type Provisioner interface {
	OpenInboundOutbound(port int) error
	RevokeRules(port int) error
}

// Noop is a Provisioner that does nothing.
type Noop struct{}

func (Noop) OpenInboundOutbound(int) error { return nil }
func (Noop) RevokeRules(int) error         { return nil }

// Runner executes one command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner runs commands through os/exec.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CommandProvisioner runs shell-quoted command templates to add and remove
// rules. Templates may reference the port as {port}.
type CommandProvisioner struct {
	OpenCommands   []string
	RevokeCommands []string
	Timeout        time.Duration

	run Runner
}

// NewCommandProvisioner creates a provisioner for the given templates.
func NewCommandProvisioner(open, revoke []string) *CommandProvisioner {
	return &CommandProvisioner{
		OpenCommands:   open,
		RevokeCommands: revoke,
		Timeout:        DefaultCommandTimeout,
		run:            execRunner,
	}
}

// SetRunner replaces the command executor, for testing.
func (p *CommandProvisioner) SetRunner(r Runner) {
	p.run = r
}

// OpenInboundOutbound runs every open command. It stops at the first failure.
func (p *CommandProvisioner) OpenInboundOutbound(port int) error {
	return p.runAll("OpenInboundOutbound", p.OpenCommands, port, true)
}

// RevokeRules runs every revoke command, attempting all of them even when
// one fails, and returns the joined errors.
func (p *CommandProvisioner) RevokeRules(port int) error {
	return p.runAll("RevokeRules", p.RevokeCommands, port, false)
}

func (p *CommandProvisioner) runAll(op string, templates []string, port int, stopOnError bool) error {
	var errs []error
	for _, tmpl := range templates {
		if err := p.runOne(op, tmpl, port); err != nil {
			if stopOnError {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *CommandProvisioner) runOne(op, tmpl string, port int) error {
	words, err := Expand(tmpl, port)
	if err != nil {
		return err
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{
		"function": op,
		"port":     port,
		"command":  shellquote.Join(words...),
	})
	logger.Debug("Running firewall command")

	out, err := p.run(ctx, words[0], words[1:]...)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"output": strings.TrimSpace(string(out)),
		}).Warn("Firewall command failed")
		return fmt.Errorf("firewall %s: %s: %w", op, words[0], err)
	}
	return nil
}

// Expand substitutes the port into tmpl and splits it into words with shell
// quoting rules.
func Expand(tmpl string, port int) ([]string, error) {
	words, err := shellquote.Split(strings.ReplaceAll(tmpl, PortPlaceholder, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("parse firewall command %q: %w", tmpl, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCommand, tmpl)
	}
	return words, nil
}

// DefaultOpenCommands returns the platform's rule-adding templates. Only
// Windows has defaults; elsewhere rules must be configured.
func DefaultOpenCommands() []string {
	if runtime.GOOS != "windows" {
		return nil
	}
	return []string{
		`netsh advfirewall firewall add rule name="LetsShare Inbound" dir=in action=allow protocol=TCP localport={port}`,
		`netsh advfirewall firewall add rule name="LetsShare Outbound" dir=out action=allow protocol=TCP localport={port}`,
	}
}

// DefaultRevokeCommands returns the templates that undo DefaultOpenCommands.
func DefaultRevokeCommands() []string {
	if runtime.GOOS != "windows" {
		return nil
	}
	return []string{
		`netsh advfirewall firewall delete rule name="LetsShare Inbound"`,
		`netsh advfirewall firewall delete rule name="LetsShare Outbound"`,
	}
}

// New returns a CommandProvisioner when any templates are given and Noop
// otherwise.
func New(open, revoke []string) Provisioner {
	if len(open) == 0 && len(revoke) == 0 {
		return Noop{}
	}
	return NewCommandProvisioner(open, revoke)
}
