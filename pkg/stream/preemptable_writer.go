// Package stream provides a cancellation-aware io.Writer used by the file
// copy primitive (pkg/fsutil.CopyFile) to implement the engine's cooperative
// cancellation model: the core only observes an abort request between
// buffer-sized writes, never mid-write. CopyFile removes the partially
// written destination of a cancelled copy, so no torn file is left behind.
package stream

import (
	"errors"
	"io"
)

var (
	// ErrWritePreempted indicates that a write operation was preempted.
	ErrWritePreempted = errors.New("write preempted")
)

// preemptableWriter is an io.Writer implementation that checks for preemption
// every N writes.
type preemptableWriter struct {
	// writer is the underlying writer.
	writer io.Writer
	// cancelled is the channel that, when closed, indicates preemption.
	cancelled <-chan struct{}
	// checkInterval is the number of writes to allow between preemption checks.
	checkInterval uint
	// writeCount is the number of writes since the last preemption check.
	writeCount uint
}

// NewPreemptableWriter wraps an io.Writer and checks cancelled before every
// checkInterval'th write, returning ErrWritePreempted instead of performing
// the write once cancelled has been closed. A zero interval checks before
// every write, matching the per-buffer cancellation granularity the copy
// primitive needs.
func NewPreemptableWriter(writer io.Writer, cancelled <-chan struct{}, interval uint) io.Writer {
	return &preemptableWriter{
		writer:        writer,
		cancelled:     cancelled,
		checkInterval: interval,
	}
}

// Write implements io.Writer.Write.
func (w *preemptableWriter) Write(data []byte) (int, error) {
	// Handle preemption checking.
	if w.writeCount == w.checkInterval {
		select {
		case <-w.cancelled:
			return 0, ErrWritePreempted
		default:
		}
		w.writeCount = 0
	} else {
		w.writeCount++
	}

	// Perform the write.
	return w.writer.Write(data)
}
