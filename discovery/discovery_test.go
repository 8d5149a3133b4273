package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
)

func TestPeerFromEntry(t *testing.T) {
	entry := zeroconf.NewServiceEntry("desk", ServiceType, Domain)
	entry.HostName = "desk.local."
	entry.Port = 5000
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	entry.Text = []string{protocolVersionTXT}

	peer, ok := peerFromEntry(entry)
	assert.True(t, ok)
	assert.Equal(t, "desk", peer.Instance)
	assert.Equal(t, "192.168.1.20", peer.Address)
	assert.Equal(t, 5000, peer.Port)
	assert.Equal(t, "desk (192.168.1.20:5000)", peer.String())
}

func TestPeerFromEntry_SkipsIPv6Only(t *testing.T) {
	entry := zeroconf.NewServiceEntry("v6", ServiceType, Domain)
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	_, ok := peerFromEntry(entry)
	assert.False(t, ok)

	_, ok = peerFromEntry(nil)
	assert.False(t, ok)
}

func TestSortedPeers(t *testing.T) {
	peers := sortedPeers(map[string]Peer{
		"b": {Instance: "b"},
		"a": {Instance: "a"},
	})
	assert.Equal(t, []Peer{{Instance: "a"}, {Instance: "b"}}, peers)
}

func TestNewService_DefaultsToHostname(t *testing.T) {
	assert.NotEmpty(t, NewService("").Instance)
	assert.Equal(t, "named", NewService("named").Instance)
}
