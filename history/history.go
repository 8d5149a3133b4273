package history

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Delimiter follows every field of a record line.
	Delimiter = "  "

	// TimeLayout is the timestamp format of the first field.
	TimeLayout = "2006-01-02 15:04:05"

	// fieldCount is the number of fields in a well-formed line.
	fieldCount = 5
)

// Operation is the direction of a recorded transfer.
type Operation string

const (
	OperationSend    Operation = "Send"
	OperationReceive Operation = "Receive"
)

// ErrMalformedRecord indicates a log line that does not parse as a Record.
var ErrMalformedRecord = errors.New("malformed history record")

// Record describes one completed transfer.
type Record struct {
	Time      time.Time
	Operation Operation
	Peer      string // remote host address
	FileName  string
	Size      string // human readable, as produced by file.FormatSize
}

// Line renders the record as a log line without the trailing newline.
func (r Record) Line() string {
	var b strings.Builder
	for _, field := range []string{
		r.Time.Format(TimeLayout),
		string(r.Operation),
		r.Peer,
		r.FileName,
		r.Size,
	} {
		b.WriteString(field)
		b.WriteString(Delimiter)
	}
	return b.String()
}

// ParseLine parses a line produced by Record.Line. Timestamps are read in the
// local time zone, matching how they were written.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(strings.TrimSuffix(line, Delimiter), Delimiter)
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("%w: %d fields", ErrMalformedRecord, len(fields))
	}

	ts, err := time.ParseInLocation(TimeLayout, fields[0], time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	op := Operation(fields[1])
	if op != OperationSend && op != OperationReceive {
		return Record{}, fmt.Errorf("%w: unknown operation %q", ErrMalformedRecord, fields[1])
	}

	return Record{
		Time:      ts,
		Operation: op,
		Peer:      fields[2],
		FileName:  fields[3],
		Size:      fields[4],
	}, nil
}

// Sink stores completed transfer records.
type Sink interface {
	AppendRecord(r Record) error
}

// FileSink appends records to a text file, creating parent directories on
// first use. It is safe for concurrent use.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the log file location.
func (s *FileSink) Path() string {
	return s.path
}

// AppendRecord writes r as one line at the end of the log.
func (s *FileSink) AppendRecord(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}

	_, writeErr := f.WriteString(r.Line() + "\n")
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to append history record: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close history file: %w", closeErr)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "AppendRecord",
		"path":      s.path,
		"operation": r.Operation,
		"file_name": r.FileName,
	}).Debug("Appended history record")

	return nil
}

// ReadRecords returns every well-formed record in the log at path, oldest
// first. A missing log yields no records. Malformed lines are skipped.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := ParseLine(line)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "ReadRecords",
				"path":     path,
				"line":     lineNo,
				"error":    err.Error(),
			}).Warn("Skipping malformed history line")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("failed to read history file: %w", err)
	}
	return records, nil
}

// DefaultPath returns Documents/LetsShare/logs.txt under the user's home
// directory, or a path relative to the working directory when the home
// directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("LetsShare", "logs.txt")
	}
	return filepath.Join(home, "Documents", "LetsShare", "logs.txt")
}
