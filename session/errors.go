package session

import (
	"errors"
	"fmt"

	"github.com/opd-ai/letsshare/file"
	"github.com/opd-ai/letsshare/protocol"
)

// Errors reported by the connection lifecycle. Streaming failures from the
// engine and the handshake are re-exported so callers can classify every
// terminal error against this package alone.
var (
	// ErrPortUnavailable indicates the receiver's port could not be bound.
	ErrPortUnavailable = errors.New("port unavailable")

	// ErrConnect indicates an outgoing connection could not be established.
	ErrConnect = errors.New("connection failed")

	// ErrInvalidAddress indicates a peer address that is empty or not a
	// dotted quad. It wraps ErrConnect.
	ErrInvalidAddress = fmt.Errorf("%w: invalid address", ErrConnect)

	// ErrConnectTimeout indicates the peer did not answer within the
	// connect timeout.
	ErrConnectTimeout = errors.New("connection timed out")

	// ErrAccept indicates the listening socket failed while waiting.
	ErrAccept = errors.New("accept failed")

	// ErrBusy indicates the session or its slot already has an active
	// connection.
	ErrBusy = errors.New("session busy")

	// ErrWrongState indicates an operation not valid in the current role or
	// status.
	ErrWrongState = errors.New("operation not valid in current state")

	// ErrSessionClosed indicates the session was torn down.
	ErrSessionClosed = errors.New("session closed")

	ErrHandshakeTimeout   = protocol.ErrHandshakeTimeout
	ErrIncompleteTransfer = file.ErrIncompleteTransfer
	ErrIO                 = file.ErrIO
	ErrCancelled          = file.ErrCancelled
)

// TransferError represents a lifecycle error with additional context.
type TransferError struct {
	Op   string // operation that caused the error
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *TransferError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("letsshare %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("letsshare %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// newTransferError creates a new TransferError
func newTransferError(op, addr string, err error) *TransferError {
	return &TransferError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
