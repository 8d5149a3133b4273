package file

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteTransfer indicates the byte count at end of stream differs
	// from the announced file size.
	ErrIncompleteTransfer = errors.New("incomplete file transfer")

	// ErrIO indicates a read or write fault on the file or the socket.
	ErrIO = errors.New("i/o failure")

	// ErrCancelled indicates the transfer was stopped by a disconnect.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrUnsafeFileName indicates a received name that would escape the
	// download directory.
	ErrUnsafeFileName = errors.New("unsafe file name")

	// ErrNotRegularFile indicates a send source that is a directory or device.
	ErrNotRegularFile = errors.New("not a regular file")
)

// ioError wraps err as an ErrIO fault for the named operation.
func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
