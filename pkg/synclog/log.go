// Package synclog implements the error log (C13): a bounded append-only
// stream of timestamped, severity-tagged entries that the orchestrator
// writes to as each folder pair progresses, plus a final per-pair summary
// entry. Rendering to a file or terminal is left to the caller; this
// package only exposes the entry stream and one TTY-aware writer, the same
// split the teacher draws between pkg/logging (the entry stream) and
// whatever ultimately sinks its Writer() output.
package synclog

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Severity classifies a log entry, following the teacher's Level type
// (pkg/logging/level.go) but trimmed to the four kinds the spec names
// rather than the teacher's six-level verbosity hierarchy.
type Severity uint8

const (
	// Info records routine progress (pair started, pair completed).
	Info Severity = iota
	// Warning records a recoverable pre-flight or mid-sync condition.
	Warning
	// Error records a failure scoped to a single item or operation.
	Error
	// FatalError records a failure that caused a folder pair to be skipped.
	FatalError
)

// String provides a human-readable representation of a severity, matching
// the capitalization the teacher's Level.String uses for its own levels.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case FatalError:
		return "fatal"
	default:
		return "unknown"
	}
}

// Entry is one record in the log.
type Entry struct {
	Timestamp time.Time
	Severity  Severity
	Text      string
}

// Log is a bounded append-only sequence of entries. It is safe for
// concurrent use; the core's single-threaded cooperative model (per the
// specification this core implements) means contention is only ever
// between the calling goroutine and an optional helper goroutine polling an
// unresponsive OS call.
type Log struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	dropped  uint64
}

// New constructs an empty Log. capacity bounds how many entries are
// retained; once exceeded, the oldest entries are discarded and the number
// dropped is tracked via Dropped. A capacity of 0 means unbounded.
func New(capacity int) *Log {
	return &Log{capacity: capacity}
}

// Append records one entry, stamped with the current time.
func (l *Log) Append(severity Severity, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{
		Timestamp: time.Now(),
		Severity:  severity,
		Text:      text,
	})

	if l.capacity > 0 && len(l.entries) > l.capacity {
		overflow := len(l.entries) - l.capacity
		l.entries = l.entries[overflow:]
		l.dropped += uint64(overflow)
	}
}

// Info appends an Info entry.
func (l *Log) Info(text string) { l.Append(Info, text) }

// Warning appends a Warning entry.
func (l *Log) Warning(text string) { l.Append(Warning, text) }

// Error appends an Error entry.
func (l *Log) Error(text string) { l.Append(Error, text) }

// Fatal appends a FatalError entry.
func (l *Log) Fatal(text string) { l.Append(FatalError, text) }

// Entries returns a snapshot copy of every retained entry, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]Entry, len(l.entries))
	copy(result, l.entries)
	return result
}

// Dropped reports how many entries have been discarded to stay within
// capacity.
func (l *Log) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// WriteTo renders every retained entry to w, one per line, colorizing the
// severity tag when useColor is true. A caller typically derives useColor
// from isatty.IsTerminal on the destination file descriptor.
func (l *Log) WriteTo(w io.Writer, useColor bool) error {
	for _, entry := range l.Entries() {
		tag := formatSeverity(entry.Severity, useColor)
		line := fmt.Sprintf("%s [%s] %s\n", entry.Timestamp.Format(time.RFC3339), tag, entry.Text)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatSeverity(severity Severity, useColor bool) string {
	text := severity.String()
	if !useColor {
		return text
	}
	switch severity {
	case Warning:
		return color.YellowString(text)
	case Error, FatalError:
		return color.RedString(text)
	default:
		return color.CyanString(text)
	}
}
