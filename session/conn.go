package session

import (
	"net"
	"sync"
	"time"
)

// idleConn bounds every Read and Write by the idle timeout, measured from
// the start of the call. An explicit read deadline set through
// SetReadDeadline caps the idle bound until it is cleared with the zero time.
type idleConn struct {
	net.Conn
	idle time.Duration

	mu      sync.Mutex
	readCap time.Time
}

func newIdleConn(conn net.Conn, idle time.Duration) *idleConn {
	return &idleConn{Conn: conn, idle: idle}
}

func (c *idleConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.readCap = t
	c.mu.Unlock()
	return c.Conn.SetReadDeadline(t)
}

func (c *idleConn) Read(p []byte) (int, error) {
	if c.idle > 0 {
		deadline := time.Now().Add(c.idle)
		c.mu.Lock()
		if !c.readCap.IsZero() && c.readCap.Before(deadline) {
			deadline = c.readCap
		}
		c.mu.Unlock()
		if err := c.Conn.SetReadDeadline(deadline); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *idleConn) Write(p []byte) (int, error) {
	if c.idle > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.idle)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
