// Package eventlog holds the in-memory, capture-ordered list of recorded
// input events.
package eventlog

import (
	"sync"

	"inputrepeater/internal/types"
)

// Log is an ordered sequence of records. It is appended to while a
// recording is active and frozen once the recording stops. The zero value is
// an empty, writable log.
type Log struct {
	mu      sync.Mutex
	records []types.Record
	frozen  bool
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Reset clears the log and makes it writable again.
func (l *Log) Reset() {
	l.mu.Lock()
	l.records = nil
	l.frozen = false
	l.mu.Unlock()
}

// Append adds r at the end of the log. It reports false and drops r when the
// log is frozen.
func (l *Log) Append(r types.Record) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frozen {
		return false
	}
	l.records = append(l.records, r)
	return true
}

// Freeze makes the log read-only until the next Reset.
func (l *Log) Freeze() {
	l.mu.Lock()
	l.frozen = true
	l.mu.Unlock()
}

// Frozen reports whether Append is currently refused.
func (l *Log) Frozen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frozen
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Snapshot returns a copy of the records in capture order.
func (l *Log) Snapshot() []types.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Record, len(l.records))
	copy(out, l.records)
	return out
}
