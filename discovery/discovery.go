package discovery

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sort"

	"github.com/grandcat/zeroconf"
	"github.com/sirupsen/logrus"
)

const (
	// ServiceType is the DNS-SD service LetsShare receivers register.
	ServiceType = "_letsshare._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// protocolVersionTXT marks the wire protocol spoken by the announcer.
	protocolVersionTXT = "v=1"
)

// Peer is a receiver found on the local network.
type Peer struct {
	Instance string
	Host     string
	Address  string // first IPv4 address, dotted quad
	Port     int
	Text     []string
}

// String renders the peer as "instance (address:port)".
func (p Peer) String() string {
	return fmt.Sprintf("%s (%s)", p.Instance, net.JoinHostPort(p.Address, fmt.Sprint(p.Port)))
}

// Service announces this host as a receiver.
type Service struct {
	Instance string
}

// NewService creates an announcer. An empty instance name defaults to the
// host name.
func NewService(instance string) *Service {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "letsshare"
		}
		instance = host
	}
	return &Service{Instance: instance}
}

// announcement shuts the mDNS server down on Close.
type announcement struct {
	server *zeroconf.Server
}

func (a *announcement) Close() error {
	a.server.Shutdown()
	return nil
}

// Announce registers the receiver on port until the returned closer is
// closed. Extra TXT records are appended after the protocol version.
func (s *Service) Announce(port int, txt ...string) (io.Closer, error) {
	text := append([]string{protocolVersionTXT}, txt...)

	server, err := zeroconf.Register(s.Instance, ServiceType, Domain, port, text, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Announce",
			"instance": s.Instance,
			"port":     port,
			"error":    err.Error(),
		}).Warn("Failed to register mDNS service")
		return nil, fmt.Errorf("register %s: %w", ServiceType, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Announce",
		"instance": s.Instance,
		"port":     port,
	}).Info("Announcing receiver on local network")

	return &announcement{server: server}, nil
}

// Browse collects receivers until ctx is done. Callers should bound ctx with
// a timeout; Browse never returns earlier.
func Browse(ctx context.Context) ([]Peer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", ServiceType, err)
	}

	found := make(map[string]Peer)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return sortedPeers(found), nil
			}
			if peer, ok := peerFromEntry(entry); ok {
				found[peer.Instance] = peer
				logrus.WithFields(logrus.Fields{
					"function": "Browse",
					"peer":     peer.String(),
				}).Debug("Discovered receiver")
			}
		case <-ctx.Done():
			return sortedPeers(found), nil
		}
	}
}

// peerFromEntry converts a resolved entry. Entries without an IPv4 address
// are skipped since peers are dialled by dotted quad.
func peerFromEntry(entry *zeroconf.ServiceEntry) (Peer, bool) {
	if entry == nil || len(entry.AddrIPv4) == 0 {
		return Peer{}, false
	}
	return Peer{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Address:  entry.AddrIPv4[0].String(),
		Port:     entry.Port,
		Text:     entry.Text,
	}, true
}

func sortedPeers(found map[string]Peer) []Peer {
	peers := make([]Peer, 0, len(found))
	for _, p := range found {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Instance < peers[j].Instance })
	return peers
}
