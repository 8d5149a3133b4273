package file

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/letsshare/history"
	"github.com/opd-ai/letsshare/limits"
	"github.com/sirupsen/logrus"
)

// TransferDirection indicates whether a transfer is incoming or outgoing.
type TransferDirection uint8

const (
	// TransferDirectionIncoming represents a file being received.
	TransferDirectionIncoming TransferDirection = iota
	// TransferDirectionOutgoing represents a file being sent.
	TransferDirectionOutgoing
)

// String returns the operation name recorded in the transfer history.
func (d TransferDirection) String() string {
	if d == TransferDirectionOutgoing {
		return string(history.OperationSend)
	}
	return string(history.OperationReceive)
}

// TransferState represents the current state of a file transfer.
type TransferState uint8

const (
	// TransferStatePending indicates the transfer is waiting to start.
	TransferStatePending TransferState = iota
	// TransferStateRunning indicates the transfer is in progress.
	TransferStateRunning
	// TransferStateCompleted indicates the transfer has finished successfully.
	TransferStateCompleted
	// TransferStateCancelled indicates the transfer was cancelled.
	TransferStateCancelled
	// TransferStateError indicates the transfer failed due to an error.
	TransferStateError
)

func (s TransferState) String() string {
	switch s {
	case TransferStatePending:
		return "pending"
	case TransferStateRunning:
		return "running"
	case TransferStateCompleted:
		return "completed"
	case TransferStateCancelled:
		return "cancelled"
	case TransferStateError:
		return "error"
	default:
		return fmt.Sprintf("TransferState(%d)", uint8(s))
	}
}

// DefaultPacingDelay is how long the sender yields after each flush boundary.
const DefaultPacingDelay = time.Millisecond

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// defaultTimeProvider is the package-level default time provider.
var defaultTimeProvider TimeProvider = DefaultTimeProvider{}

// FlushWriter is a buffered writer the engine can flush at chunk boundaries.
// *bufio.Writer satisfies it.
type FlushWriter interface {
	io.Writer
	Flush() error
}

// Recorder receives one record per completed transfer.
type Recorder interface {
	AppendRecord(r history.Record) error
}

// Transfer represents one file streaming operation.
type Transfer struct {
	Direction TransferDirection
	FileName  string // name carried in the metadata frame
	FileSize  int64
	Path      string // local source or destination
	Peer      string // remote host, recorded in the history

	mu         sync.Mutex
	state      TransferState
	err        error
	fileHandle *os.File
	fileWriter *bufio.Writer
	tracker    *Tracker

	transferred atomic.Int64
	cancelled   atomic.Bool

	progressCallback func(Progress)
	completeCallback func(error)
	recorder         Recorder
	timeProvider     TimeProvider
	pacingDelay      time.Duration
	sleep            func(time.Duration)
}

// NewOutgoing creates a transfer that sends the regular file at path.
func NewOutgoing(path string) (*Transfer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}

	name := filepath.Base(path)
	if err := limits.ValidateFileName(name); err != nil {
		return nil, err
	}

	return newTransfer(TransferDirectionOutgoing, name, info.Size(), path), nil
}

// NewIncoming creates a transfer that writes a received file into dir. See
// DestinationPath for the meaning of sanitize.
func NewIncoming(dir, name string, size int64, sanitize bool) (*Transfer, error) {
	if err := limits.ValidateFileSize(size); err != nil {
		return nil, err
	}
	path, err := DestinationPath(dir, name, sanitize)
	if err != nil {
		return nil, err
	}
	return newTransfer(TransferDirectionIncoming, name, size, path), nil
}

func newTransfer(direction TransferDirection, name string, size int64, path string) *Transfer {
	logrus.WithFields(logrus.Fields{
		"function":  "newTransfer",
		"direction": direction,
		"file_name": name,
		"file_size": size,
		"path":      path,
	}).Debug("Creating file transfer")

	return &Transfer{
		Direction:    direction,
		FileName:     name,
		FileSize:     size,
		Path:         path,
		state:        TransferStatePending,
		timeProvider: defaultTimeProvider,
		pacingDelay:  DefaultPacingDelay,
		sleep:        time.Sleep,
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (t *Transfer) SetTimeProvider(tp TimeProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeProvider = tp
}

// SetPacingDelay changes how long the sender yields at each flush boundary.
// Zero disables pacing.
func (t *Transfer) SetPacingDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pacingDelay = d
}

// SetRecorder sets where the completion record is appended.
func (t *Transfer) SetRecorder(r Recorder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recorder = r
}

// OnProgress sets a callback invoked on the streaming goroutine after every
// chunk. It must not block.
func (t *Transfer) OnProgress(callback func(Progress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progressCallback = callback
}

// OnComplete sets a callback invoked once when the transfer finishes, with
// nil on success.
func (t *Transfer) OnComplete(callback func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completeCallback = callback
}

// Start opens the local file and starts the throughput clock. It must be
// called right before Send or Receive, after the handshake and metadata.
func (t *Transfer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TransferStatePending {
		return errors.New("transfer cannot be started in current state")
	}

	var err error
	if t.Direction == TransferDirectionOutgoing {
		t.fileHandle, err = os.Open(t.Path)
	} else {
		t.fileHandle, err = os.Create(t.Path)
		if err == nil {
			t.fileWriter = bufio.NewWriterSize(t.fileHandle, limits.ChunkSize)
		}
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Start",
			"direction": t.Direction,
			"path":      t.Path,
			"error":     err.Error(),
		}).Error("Failed to open file for transfer")
		t.err = ioError("open file", err)
		t.state = TransferStateError
		return t.err
	}

	t.tracker = NewTracker(t.FileSize, t.timeProvider)
	t.state = TransferStateRunning

	logrus.WithFields(logrus.Fields{
		"function":   "Start",
		"direction":  t.Direction,
		"file_name":  t.FileName,
		"file_size":  t.FileSize,
		"peer":       t.Peer,
		"start_time": t.tracker.Start(),
	}).Info("File transfer started")

	return nil
}

// Send streams the source file into w in ChunkSize pieces, flushing and
// yielding at every FlushInterval boundary, and checking for cancellation
// before each chunk.
func (t *Transfer) Send(w FlushWriter) error {
	if err := t.validateRunning(TransferDirectionOutgoing); err != nil {
		return err
	}

	// A source that grew since it was announced must not overrun the size
	src := io.LimitReader(t.fileHandle, t.FileSize)
	buf := make([]byte, limits.ChunkSize)

	for {
		if t.cancelled.Load() {
			return t.finish(ErrCancelled)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return t.finish(ioError("write chunk", err))
			}
			if err := t.advance(int64(n), w, true); err != nil {
				return t.finish(err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return t.finish(ioError("read source", readErr))
		}
	}

	if err := w.Flush(); err != nil {
		return t.finish(ioError("final flush", err))
	}
	return t.finish(t.verifySize("sent"))
}

// Receive copies exactly FileSize bytes from r into the destination file.
// The stream ending early fails with ErrIncompleteTransfer; the partial file
// is left on disk.
func (t *Transfer) Receive(r io.Reader) error {
	if err := t.validateRunning(TransferDirectionIncoming); err != nil {
		return err
	}

	buf := make([]byte, limits.ChunkSize)
	for t.transferred.Load() < t.FileSize {
		if t.cancelled.Load() {
			return t.finish(ErrCancelled)
		}

		want := t.FileSize - t.transferred.Load()
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}

		n, readErr := r.Read(buf[:want])
		if n > 0 {
			if _, err := t.fileWriter.Write(buf[:n]); err != nil {
				return t.finish(ioError("write file", err))
			}
			if err := t.advance(int64(n), t.fileWriter, false); err != nil {
				return t.finish(err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return t.finish(ioError("read payload", readErr))
		}
	}

	if err := t.fileWriter.Flush(); err != nil {
		return t.finish(ioError("flush file", err))
	}
	return t.finish(t.verifySize("received"))
}

// Cancel asks the streaming loop to stop before its next chunk. The owner is
// expected to also close the connection so a blocked read or write returns.
func (t *Transfer) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case TransferStateCompleted, TransferStateCancelled, TransferStateError:
		return errors.New("transfer already finished")
	}

	t.cancelled.Store(true)
	logrus.WithFields(logrus.Fields{
		"function":    "Cancel",
		"file_name":   t.FileName,
		"transferred": t.transferred.Load(),
	}).Info("File transfer cancellation requested")
	return nil
}

// Transferred returns the number of payload bytes moved so far.
func (t *Transfer) Transferred() int64 {
	return t.transferred.Load()
}

// State returns the current transfer state.
func (t *Transfer) State() TransferState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the error the transfer finished with, if any.
func (t *Transfer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// StartTime returns when payload streaming began, or the zero time before
// Start.
func (t *Transfer) StartTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracker == nil {
		return time.Time{}
	}
	return t.tracker.Start()
}

// validateRunning checks the transfer was started in the given direction.
func (t *Transfer) validateRunning(direction TransferDirection) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Direction != direction {
		return fmt.Errorf("cannot stream %s transfer as %s", t.Direction, direction)
	}
	if t.state != TransferStateRunning {
		return errors.New("transfer is not running")
	}
	return nil
}

// advance accounts for n streamed bytes, flushes w when a FlushInterval
// boundary is crossed, and publishes a progress snapshot.
func (t *Transfer) advance(n int64, w FlushWriter, pace bool) error {
	prev := t.transferred.Load()
	cur := t.transferred.Add(n)

	if prev/limits.FlushInterval != cur/limits.FlushInterval {
		if err := w.Flush(); err != nil {
			return ioError("flush", err)
		}
		if pace && t.pacingDelay > 0 {
			t.sleep(t.pacingDelay)
		}
	}

	t.reportProgress(cur)
	return nil
}

// reportProgress samples the tracker and hands the snapshot to the callback.
func (t *Transfer) reportProgress(transferred int64) {
	t.mu.Lock()
	callback := t.progressCallback
	tracker := t.tracker
	t.mu.Unlock()

	if callback != nil && tracker != nil {
		callback(tracker.Sample(transferred))
	}
}

// verifySize compares the streamed byte count with the announced size.
func (t *Transfer) verifySize(verb string) error {
	if got := t.transferred.Load(); got != t.FileSize {
		return fmt.Errorf("%w: %s %d of %d bytes", ErrIncompleteTransfer, verb, got, t.FileSize)
	}
	return nil
}

// finish closes the local file, records the outcome and invokes the
// completion callback exactly once.
func (t *Transfer) finish(err error) error {
	t.mu.Lock()
	if t.fileWriter != nil && err != nil {
		// Keep whatever arrived; the caller decides what to do with it
		_ = t.fileWriter.Flush()
	}
	if t.fileHandle != nil {
		if closeErr := t.fileHandle.Close(); closeErr != nil && err == nil {
			err = ioError("close file", closeErr)
		}
		t.fileHandle = nil
	}

	if err != nil && t.cancelled.Load() && !errors.Is(err, ErrCancelled) {
		err = fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	switch {
	case err == nil:
		t.state = TransferStateCompleted
	case errors.Is(err, ErrCancelled):
		t.state = TransferStateCancelled
	default:
		t.state = TransferStateError
	}
	t.err = err

	callback := t.completeCallback
	recorder := t.recorder
	now := t.timeProvider.Now()
	t.mu.Unlock()

	fields := logrus.Fields{
		"function":    "finish",
		"direction":   t.Direction,
		"file_name":   t.FileName,
		"file_size":   t.FileSize,
		"transferred": t.transferred.Load(),
		"peer":        t.Peer,
	}
	if err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Warn("File transfer failed")
	} else {
		logrus.WithFields(fields).Info("File transfer completed")
		if recorder != nil {
			if recErr := recorder.AppendRecord(t.record(now)); recErr != nil {
				logrus.WithFields(logrus.Fields{
					"function":  "finish",
					"file_name": t.FileName,
					"error":     recErr.Error(),
				}).Warn("Failed to append transfer record")
			}
		}
	}

	if callback != nil {
		callback(err)
	}
	return err
}

// record builds the history entry for a completed transfer.
func (t *Transfer) record(now time.Time) history.Record {
	return history.Record{
		Time:      now,
		Operation: history.Operation(t.Direction.String()),
		Peer:      t.Peer,
		FileName:  t.FileName,
		Size:      FormatSize(t.FileSize),
	}
}
