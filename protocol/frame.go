package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/opd-ai/letsshare/limits"
)

// ErrInvalidText indicates a text frame whose bytes are not valid UTF-8.
var ErrInvalidText = errors.New("text frame is not valid UTF-8")

// Metadata is the file description sent once per transfer, after the
// handshake and before any payload byte.
type Metadata struct {
	FileSize int64
	FileName string
}

// Validate checks both fields against the protocol limits.
func (m Metadata) Validate() error {
	if err := limits.ValidateFileSize(m.FileSize); err != nil {
		return err
	}
	return limits.ValidateFileName(m.FileName)
}

// WriteText writes s as a text frame: a 2-byte big-endian length followed by
// the UTF-8 bytes.
func WriteText(w io.Writer, s string) error {
	if err := limits.ValidateText(s); err != nil {
		return err
	}

	frame := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(frame[:2], uint16(len(s)))
	copy(frame[2:], s)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write text frame: %w", err)
	}
	return nil
}

// ReadText reads one text frame written by WriteText.
func ReadText(r io.Reader) (string, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return "", err
	}

	n := binary.BigEndian.Uint16(prefix[:])
	if n == 0 {
		return "", nil
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", unexpectedEOF(err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidText
	}
	return string(data), nil
}

// WriteMetadata writes the file size and file name frames, in that order.
func WriteMetadata(w io.Writer, m Metadata) error {
	if err := m.Validate(); err != nil {
		return err
	}

	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(m.FileSize))
	if _, err := w.Write(size[:]); err != nil {
		return fmt.Errorf("write file size: %w", err)
	}

	return WriteText(w, m.FileName)
}

// ReadMetadata reads the frames written by WriteMetadata and validates them.
func ReadMetadata(r io.Reader) (Metadata, error) {
	var size [8]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return Metadata{}, fmt.Errorf("read file size: %w", err)
	}

	name, err := ReadText(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("read file name: %w", unexpectedEOF(err))
	}

	m := Metadata{
		FileSize: int64(binary.BigEndian.Uint64(size[:])),
		FileName: name,
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// unexpectedEOF converts a clean EOF in the middle of a frame into
// io.ErrUnexpectedEOF.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
