// Package limits provides centralized size and range limits for the LetsShare
// wire protocol. This ensures consistent validation across the codec, the
// transfer engine and the connection lifecycle.
package limits

import (
	"errors"
	"fmt"
)

const (
	// ChunkSize is the unit of every payload read and write (32 KiB).
	ChunkSize = 32768

	// FlushInterval is the cumulative byte boundary at which buffered writers
	// are flushed and the sender yields (1 MiB).
	FlushInterval = 1024 * 1024

	// MaxTextFrame is the largest text frame a 2-byte length prefix can carry.
	MaxTextFrame = 65535

	// MinPort is the lowest usable TCP port.
	MinPort = 1

	// MaxPort is the highest usable TCP port.
	MaxPort = 65535
)

var (
	// ErrTextTooLong indicates a text frame exceeds MaxTextFrame bytes
	ErrTextTooLong = errors.New("text frame too long")

	// ErrFileNameEmpty indicates an empty file name was provided
	ErrFileNameEmpty = errors.New("empty file name")

	// ErrNegativeFileSize indicates a file size below zero
	ErrNegativeFileSize = errors.New("negative file size")

	// ErrInvalidPort indicates a port outside MinPort..MaxPort
	ErrInvalidPort = errors.New("invalid port")
)

// ValidateText validates that s fits in a length-prefixed text frame.
func ValidateText(s string) error {
	if len(s) > MaxTextFrame {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrTextTooLong, len(s), MaxTextFrame)
	}
	return nil
}

// ValidateFileName validates a file name carried in the metadata frame.
// Returns an error with context if the name is empty or exceeds the frame limit.
func ValidateFileName(name string) error {
	if name == "" {
		return ErrFileNameEmpty
	}
	if len(name) > MaxTextFrame {
		return fmt.Errorf("%w: file name size %d exceeds limit %d", ErrTextTooLong, len(name), MaxTextFrame)
	}
	return nil
}

// ValidateFileSize validates a file size carried in the metadata frame.
func ValidateFileSize(size int64) error {
	if size < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeFileSize, size)
	}
	return nil
}

// ValidatePort checks that port is a usable TCP port number.
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("%w: %d not in range %d-%d", ErrInvalidPort, port, MinPort, MaxPort)
	}
	return nil
}
