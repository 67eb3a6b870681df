// Package syncexec implements the sync executor (C10): the three-pass
// state machine that turns a resolved []direction.SyncOperation list into
// filesystem effects, following the pass ordering, lazy parent-directory
// creation, and model-mutation contract fixed by the specification this
// core implements. There is no single teacher file this is grounded on
// directly (the teacher's synchronization/core/transition.go implements a
// continuous alpha/beta replication model, not a pass-based batch executor)
// but its building blocks — transactional copy, rename-with-fallback,
// symlink recreation, progress reporting — all come straight from
// pkg/fsutil and pkg/progress, which are themselves grounded on the
// teacher's pkg/filesystem and endpoint callback conventions.
package syncexec

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/pathsync/pathsync/pkg/deletion"
	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/progress"
	"github.com/pathsync/pathsync/pkg/relpath"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// twoStepSuffix marks the temporary name a move's source is given when it
// must be relocated out of the way before its parent directory is deleted
// or before another operation claims its name, matching the spec's
// `.ffs_tmp`-style reserved suffix.
const twoStepSuffix = ".synctmp"

// Roots holds the two base directories a folder pair synchronizes between.
type Roots struct {
	Left  string
	Right string
}

func (r Roots) absolute(side direction.Side, path relpath.Path) string {
	base := r.Left
	if side == direction.Right {
		base = r.Right
	}
	return filepath.Join(base, filepath.FromSlash(string(path)))
}

// Executor applies a resolved operation list against the filesystem.
type Executor struct {
	roots     Roots
	deletions map[direction.Side]*deletion.Handler
	observer  progress.Observer
	cancelled <-chan struct{}
}

// New constructs an Executor. cancelled, if non-nil, is forwarded to
// pkg/fsutil.CopyFile so that a long file copy can be interrupted between
// buffer-sized writes; it is typically closed when ctx.Done() fires.
func New(roots Roots, leftDeletion, rightDeletion *deletion.Handler, observer progress.Observer, cancelled <-chan struct{}) *Executor {
	return &Executor{
		roots: roots,
		deletions: map[direction.Side]*deletion.Handler{
			direction.Left:  leftDeletion,
			direction.Right: rightDeletion,
		},
		observer:  observer,
		cancelled: cancelled,
	}
}

// model tracks the in-memory trees the executor mutates as operations
// complete, so the caller can persist the result as the next ancestor
// snapshot without rescanning the filesystem.
type model struct {
	left, right *synctree.Entry
}

func (m *model) set(side direction.Side, path relpath.Path, value *synctree.Entry) {
	if side == direction.Left {
		m.left = synctree.Set(m.left, path, value)
	} else {
		m.right = synctree.Set(m.right, path, value)
	}
}

// Execute runs the three passes over operations and returns the mutated
// left and right trees. If the observer (when one is supplied) ever returns
// ResolutionAbort for a recoverable error, Execute returns progress.Aborted;
// if its RequestUIRefresh reports an error (such as a cancelled ctx) between
// passes, Execute returns that error. Either way the trees are returned as
// they stood after the last successfully applied operation. Without an
// observer, ctx is not consulted.
func (e *Executor) Execute(ctx context.Context, operations []direction.SyncOperation, leftTree, rightTree *synctree.Entry) (*synctree.Entry, *synctree.Entry, error) {
	if e.observer != nil {
		e.observer.InitPhase(progress.PhaseSync, uint64(len(operations)), 0)
	}

	m := &model{left: leftTree, right: rightTree}

	moves, deletes, rest := partition(operations)

	resolvedMoves, extraDeletes, err := e.runPass0(moves, deletes, rest, m)
	if err != nil {
		return m.left, m.right, err
	}
	deletes = append(deletes, extraDeletes...)

	if err := e.checkCancelled(ctx); err != nil {
		return m.left, m.right, err
	}
	if err := e.runPass1(deletes, m); err != nil {
		return m.left, m.right, err
	}

	pass2 := make([]direction.SyncOperation, 0, len(rest)+len(resolvedMoves))
	pass2 = append(pass2, rest...)
	pass2 = append(pass2, resolvedMoves...)
	sortByPath(pass2)

	if err := e.checkCancelled(ctx); err != nil {
		return m.left, m.right, err
	}
	if err := e.runPass2(pass2, m); err != nil {
		return m.left, m.right, err
	}

	return m.left, m.right, nil
}

// withRetry runs fn, consulting the observer (if any) on failure. It returns
// succeeded=true only if fn eventually returned nil; a non-nil err means the
// whole cycle must unwind (ResolutionAbort, or no observer to ask). An
// ignored failure reports succeeded=false, err=nil, leaving the in-memory
// model untouched at that path.
func (e *Executor) withRetry(description string, fn func() error) (succeeded bool, err error) {
	for {
		runErr := fn()
		if runErr == nil {
			return true, nil
		}
		if e.observer == nil {
			return false, errors.Wrap(runErr, description)
		}
		switch e.observer.ReportError(description + ": " + runErr.Error()) {
		case progress.ResolutionRetry:
			continue
		case progress.ResolutionIgnore:
			return false, nil
		default:
			return false, progress.Aborted{}
		}
	}
}

// partition splits operations into moves, deletes (including the
// delete-half of shrinking overwrites), and everything else, following the
// spec's three-pass grouping. Shrinking overwrites appear in both deletes
// (to free space first) and rest (to perform the actual copy in pass 2).
func partition(operations []direction.SyncOperation) (moves, deletes, rest []direction.SyncOperation) {
	for _, op := range operations {
		switch op.Kind {
		case direction.OpMove:
			moves = append(moves, op)
		case direction.OpDelete:
			deletes = append(deletes, op)
		case direction.OpOverwrite:
			if isShrinking(op) {
				deletes = append(deletes, op)
			}
			rest = append(rest, op)
		case direction.OpUnresolvedConflict:
			// No operation on unresolved conflicts; they're already
			// reflected in statistics by the caller.
		default:
			rest = append(rest, op)
		}
	}
	return moves, deletes, rest
}

func isShrinking(op direction.SyncOperation) bool {
	return op.Current != nil && op.Source != nil &&
		op.Current.Kind == synctree.EntryFile && op.Source.Kind == synctree.EntryFile &&
		op.Current.File.Size > op.Source.File.Size
}

func sortByPath(operations []direction.SyncOperation) {
	sort.SliceStable(operations, func(i, j int) bool {
		return pathOf(operations[i]) < pathOf(operations[j])
	})
}

func pathOf(op direction.SyncOperation) relpath.Path {
	if op.Kind == direction.OpMove {
		return op.ToPath
	}
	return op.Path
}

func (e *Executor) checkCancelled(ctx context.Context) error {
	if e.observer == nil {
		return nil
	}
	return e.observer.RequestUIRefresh(ctx)
}

func (e *Executor) handlerFor(side direction.Side) *deletion.Handler {
	return e.deletions[side]
}
