package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// HandshakeToken is the literal both peers exchange before any metadata is
// trusted.
const HandshakeToken = "sir"

// ErrHandshakeTimeout indicates the expected token did not arrive in time.
var ErrHandshakeTimeout = errors.New("handshake timeout")

// ReadDeadliner is implemented by connections that can bound a blocking read.
type ReadDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// SendHandshake writes the handshake token frame and flushes it.
func SendHandshake(w *bufio.Writer) error {
	if err := WriteText(w, HandshakeToken); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush handshake: %w", err)
	}
	return nil
}

// AwaitHandshake reads text frames from r until one equals HandshakeToken.
// Frames that do not match are discarded. The whole wait is bounded by
// timeout: the read deadline of conn is set to the overall deadline for the
// duration of the call and cleared on return, and the deadline is also
// checked between frames. conn may be nil when r enforces its own bound.
func AwaitHandshake(r io.Reader, conn ReadDeadliner, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if conn != nil && timeout > 0 {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return fmt.Errorf("set handshake deadline: %w", err)
		}
		defer conn.SetReadDeadline(time.Time{})
	}

	discarded := 0
	for {
		token, err := ReadText(r)
		if err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w after %v", ErrHandshakeTimeout, timeout)
			}
			return fmt.Errorf("read handshake: %w", err)
		}

		if token == HandshakeToken {
			if discarded > 0 {
				logrus.WithFields(logrus.Fields{
					"function":  "AwaitHandshake",
					"discarded": discarded,
				}).Info("Handshake accepted after discarding frames")
			}
			return nil
		}

		discarded++
		logrus.WithFields(logrus.Fields{
			"function":  "AwaitHandshake",
			"frame_len": len(token),
			"discarded": discarded,
		}).Warn("Discarding frame that does not match handshake token")

		if timeout > 0 && time.Now().After(deadline) {
			return fmt.Errorf("%w after %v", ErrHandshakeTimeout, timeout)
		}
	}
}

// isTimeout reports whether err was caused by an expired deadline.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
