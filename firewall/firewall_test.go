package firewall

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	name string
	args []string
}

func recordingRunner(calls *[]recordedCall, failOn string) Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		if failOn != "" && len(args) > 0 && args[len(args)-1] == failOn {
			return []byte("access denied"), errors.New("exit status 1")
		}
		return nil, nil
	}
}

func TestExpand(t *testing.T) {
	words, err := Expand(`netsh advfirewall firewall add rule name="LetsShare Inbound" localport={port}`, 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{"netsh", "advfirewall", "firewall", "add", "rule", "name=LetsShare Inbound", "localport=5000"}, words)

	_, err = Expand("   ", 5000)
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = Expand(`echo "unterminated`, 5000)
	assert.Error(t, err)
}

func TestCommandProvisioner_Open(t *testing.T) {
	var calls []recordedCall
	p := NewCommandProvisioner([]string{"fw add in {port}", "fw add out {port}"}, nil)
	p.SetRunner(recordingRunner(&calls, ""))

	require.NoError(t, p.OpenInboundOutbound(6000))
	require.Len(t, calls, 2)
	assert.Equal(t, "fw", calls[0].name)
	assert.Equal(t, []string{"add", "in", "6000"}, calls[0].args)
	assert.Equal(t, []string{"add", "out", "6000"}, calls[1].args)
}

func TestCommandProvisioner_OpenStopsAtFirstFailure(t *testing.T) {
	var calls []recordedCall
	p := NewCommandProvisioner([]string{"fw add first", "fw add second"}, nil)
	p.SetRunner(recordingRunner(&calls, "first"))

	assert.Error(t, p.OpenInboundOutbound(5000))
	assert.Len(t, calls, 1)
}

func TestCommandProvisioner_RevokeRunsAll(t *testing.T) {
	var calls []recordedCall
	p := NewCommandProvisioner(nil, []string{"fw del first", "fw del second"})
	p.SetRunner(recordingRunner(&calls, "first"))

	err := p.RevokeRules(5000)
	assert.Error(t, err)
	assert.Len(t, calls, 2, "later rules are revoked even when one fails")
}

func TestNew(t *testing.T) {
	assert.IsType(t, Noop{}, New(nil, nil))
	assert.IsType(t, &CommandProvisioner{}, New([]string{"x"}, nil))

	var noop Noop
	assert.NoError(t, noop.OpenInboundOutbound(1))
	assert.NoError(t, noop.RevokeRules(1))
}

func TestDefaultCommands_Paired(t *testing.T) {
	assert.Equal(t, len(DefaultOpenCommands()), len(DefaultRevokeCommands()))
	for _, tmpl := range DefaultOpenCommands() {
		_, err := Expand(tmpl, 5000)
		assert.NoError(t, err)
	}
}
