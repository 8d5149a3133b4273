package session

import (
	"context"
	"io"
	"net"
	"strconv"
)

// PortProbe reports whether a TCP port can be bound right now.
type PortProbe interface {
	IsPortFree(port int) bool
}

// PortProbeFunc adapts a function to PortProbe.
type PortProbeFunc func(port int) bool

func (f PortProbeFunc) IsPortFree(port int) bool { return f(port) }

// TCPPortProbe binds the port on all interfaces and releases it at once.
type TCPPortProbe struct{}

func (TCPPortProbe) IsPortFree(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// Dialer opens outgoing connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Announcer advertises a waiting receiver until the returned closer is
// closed. *discovery.Service satisfies it.
type Announcer interface {
	Announce(port int, txt ...string) (io.Closer, error)
}
