package file

import (
	"fmt"
	"time"
)

// Progress is an immutable snapshot of a running transfer.
type Progress struct {
	Transferred int64
	Total       int64
	Percentage  int
	Throughput  int64 // bytes per second
	Elapsed     time.Duration
}

// String renders the snapshot as a status line, e.g.
// "50% (5.00 MB/10.00 MB) - 2.00 MB/s".
func (p Progress) String() string {
	return fmt.Sprintf("%d%% (%s/%s) - %s/s",
		p.Percentage,
		FormatSize(p.Transferred),
		FormatSize(p.Total),
		FormatSize(p.Throughput))
}

// Percentage returns floor(transferred*100/total), clamped to 0..100.
// An unknown or empty total yields 0.
func Percentage(transferred, total int64) int {
	if total <= 0 || transferred <= 0 {
		return 0
	}
	pct := transferred * 100 / total
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// Throughput returns transferred*1000/elapsedMillis in bytes per second.
// It returns 0 while less than a millisecond has elapsed.
func Throughput(transferred int64, elapsed time.Duration) int64 {
	ms := elapsed.Milliseconds()
	if ms <= 0 || transferred <= 0 {
		return 0
	}
	return transferred * 1000 / ms
}

// Tracker derives progress snapshots from cumulative byte counts. It is
// independent of the transport and is only used from the worker that owns
// the transfer.
type Tracker struct {
	total        int64
	start        time.Time
	timeProvider TimeProvider
	lastPct      int
}

// NewTracker starts a tracker for a transfer of total bytes. The clock starts
// now, so it should be created when payload streaming begins.
func NewTracker(total int64, tp TimeProvider) *Tracker {
	if tp == nil {
		tp = defaultTimeProvider
	}
	return &Tracker{
		total:        total,
		start:        tp.Now(),
		timeProvider: tp,
	}
}

// Start returns the time streaming began.
func (t *Tracker) Start() time.Time {
	return t.start
}

// Sample returns the snapshot for the given cumulative byte count. The
// reported percentage never decreases between samples.
func (t *Tracker) Sample(transferred int64) Progress {
	elapsed := t.timeProvider.Since(t.start)

	pct := Percentage(transferred, t.total)
	if pct < t.lastPct {
		pct = t.lastPct
	}
	t.lastPct = pct

	return Progress{
		Transferred: transferred,
		Total:       t.total,
		Percentage:  pct,
		Throughput:  Throughput(transferred, elapsed),
		Elapsed:     elapsed,
	}
}
