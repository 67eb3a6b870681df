// Package progress defines the observer interface through which the scanner,
// classifier, and sync executor report progress, status, and errors back to
// whatever is driving the engine (a CLI, a GUI, or a test harness), and
// through which the engine observes cooperative cancellation requests.
//
// The interface is modeled on the teacher's synchronization endpoint
// callbacks and its pkg/logging leveled-output conventions, generalized per
// spec §4.10/§5: filesystem work never spawns goroutines of its own and only
// checks for cancellation at the suspension points an Observer exposes.
package progress

import "context"

// Phase identifies which stage of a folder-pair cycle is reporting progress.
type Phase uint8

const (
	// PhaseScan covers directory-tree traversal (C3).
	PhaseScan Phase = iota
	// PhaseCompareContent covers byte-wise content comparison (C5, ByContent
	// mode).
	PhaseCompareContent
	// PhaseSync covers application of sync operations (C10).
	PhaseSync
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseScan:
		return "scan"
	case PhaseCompareContent:
		return "compare"
	case PhaseSync:
		return "sync"
	default:
		return "unknown"
	}
}

// ErrorResolution is the caller's decision after being notified of a
// recoverable error, per spec §7's propagation policy.
type ErrorResolution uint8

const (
	// ResolutionAbort unwinds the current folder pair (or the whole run, for
	// fatal errors).
	ResolutionAbort ErrorResolution = iota
	// ResolutionRetry redoes the operation that failed.
	ResolutionRetry
	// ResolutionIgnore skips the operation, leaving the in-memory model
	// unchanged at that path.
	ResolutionIgnore
)

// Aborted is returned by RequestUIRefresh (and propagated from any operation
// that calls it) when the user has requested cancellation.
type Aborted struct{}

// Error implements the error interface.
func (Aborted) Error() string { return "synchronization aborted by caller" }

// Observer is implemented by whatever is driving the engine. All methods
// must be safe to call from the single goroutine that runs the orchestrator;
// the core never calls them concurrently, so implementations don't need
// their own locking unless they also serve some other concurrent consumer
// (e.g. a UI thread).
type Observer interface {
	// InitPhase announces the start of a phase along with the total amount
	// of work expected, if known (zero values mean "unknown in advance").
	InitPhase(phase Phase, totalObjects uint64, totalBytes uint64)

	// OnProcessed reports incremental progress within the current phase. It
	// is expected to be called roughly every 50-100ms during bulk copies,
	// not once per byte.
	OnProcessed(deltaObjects uint64, deltaBytes uint64)

	// UpdateTotal corrects previously announced totals mid-phase, used by
	// the sync executor when real byte counts diverge from pre-computed
	// estimates.
	UpdateTotal(deltaObjects int64, deltaBytes int64)

	// Status reports a short human-readable status line.
	Status(text string)

	// ReportInfo reports non-actionable informational text.
	ReportInfo(text string)

	// ReportWarning reports a dismissible warning. warnAgain indicates
	// whether the same class of warning should continue to be reported
	// for the remainder of the current folder pair; implementations may
	// ignore it.
	ReportWarning(text string, warnAgain *bool)

	// ReportError reports a recoverable error and blocks for a resolution.
	ReportError(text string) ErrorResolution

	// ReportFatalError reports an error that terminates the current folder
	// pair (but not necessarily the whole run).
	ReportFatalError(text string)

	// RequestUIRefresh is a cooperative cancellation checkpoint. It returns
	// Aborted if the user has requested cancellation.
	RequestUIRefresh(ctx context.Context) error
}

// checkContext is a small helper that Observer implementations can use to
// turn context cancellation into an Aborted error at a RequestUIRefresh
// checkpoint.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return Aborted{}
	default:
		return nil
	}
}
