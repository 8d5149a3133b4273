//go:build !unix

package session

import "net"

// listenConfig returns the platform default; address reuse is only set
// explicitly on unix.
func listenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
