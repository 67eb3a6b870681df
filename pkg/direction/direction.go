// Package direction implements the direction resolver (C7): given the
// CompareLines produced by pkg/comparelines, a direction Policy, and
// (optionally) an ancestor tree from the state database, it decides which
// side of each differing path should be overwritten and synthesizes the
// concrete SyncOperations that the executor (C10) will apply.
//
// The automatic three-way resolution follows the shape of the teacher's
// reconciler in pkg/synchronization/core/reconcile.go (diff each side
// against a common ancestor, propagate the side that changed, conflict when
// both changed incompatibly), generalized from mutagen's continuous
// alpha/beta replication model to this engine's two named sides, Left and
// Right, and a per-cycle ancestor snapshot rather than a live baseline.
package direction

import (
	"github.com/pathsync/pathsync/pkg/comparelines"
	"github.com/pathsync/pathsync/pkg/relpath"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// Direction indicates which side, if any, should be overwritten to resolve
// a difference at a path.
type Direction uint8

const (
	// DirectionNone leaves both sides untouched (the difference is reported
	// but not acted on — typically a manual conflict).
	DirectionNone Direction = iota
	// DirectionLeftToRight overwrites the right side with the left side's
	// content.
	DirectionLeftToRight
	// DirectionRightToLeft overwrites the left side with the right side's
	// content.
	DirectionRightToLeft
	// DirectionAutomatic defers the decision to three-way resolution against
	// the ancestor tree; see Resolve.
	DirectionAutomatic
)

// Policy maps each non-equal ComparisonResult to a Direction. The zero
// Policy resolves nothing (every field defaults to DirectionNone), so
// callers are expected to start from one of the presets below and adjust as
// needed.
type Policy struct {
	LeftOnly   Direction
	RightOnly  Direction
	LeftNewer  Direction
	RightNewer Direction
	Different  Direction
	Conflict   Direction
}

// MirrorLeftToRight returns the policy for one-way mirroring of left onto
// right: right always ends up an exact copy of left.
func MirrorLeftToRight() Policy {
	return Policy{
		LeftOnly:   DirectionLeftToRight,
		RightOnly:  DirectionLeftToRight,
		LeftNewer:  DirectionLeftToRight,
		RightNewer: DirectionLeftToRight,
		Different:  DirectionLeftToRight,
		Conflict:   DirectionLeftToRight,
	}
}

// MirrorRightToLeft is the mirror image of MirrorLeftToRight.
func MirrorRightToLeft() Policy {
	return Policy{
		LeftOnly:   DirectionRightToLeft,
		RightOnly:  DirectionRightToLeft,
		LeftNewer:  DirectionRightToLeft,
		RightNewer: DirectionRightToLeft,
		Different:  DirectionRightToLeft,
		Conflict:   DirectionRightToLeft,
	}
}

// TwoWayUpdate propagates newer content onto the older side but leaves
// same-time differences and hash conflicts for manual resolution.
func TwoWayUpdate() Policy {
	return Policy{
		LeftOnly:   DirectionLeftToRight,
		RightOnly:  DirectionRightToLeft,
		LeftNewer:  DirectionLeftToRight,
		RightNewer: DirectionRightToLeft,
		Different:  DirectionNone,
		Conflict:   DirectionNone,
	}
}

// TwoWayAutomatic resolves every difference, newer-on-one-side lines
// included, against a stored ancestor: whichever side actually changed
// since the ancestor wins; changes on both sides produce an unresolved
// conflict.
func TwoWayAutomatic() Policy {
	return Policy{
		LeftOnly:   DirectionAutomatic,
		RightOnly:  DirectionAutomatic,
		LeftNewer:  DirectionAutomatic,
		RightNewer: DirectionAutomatic,
		Different:  DirectionAutomatic,
		Conflict:   DirectionAutomatic,
	}
}

func (p Policy) directionFor(result comparelines.ComparisonResult) Direction {
	switch result {
	case comparelines.LeftOnly:
		return p.LeftOnly
	case comparelines.RightOnly:
		return p.RightOnly
	case comparelines.LeftNewer:
		return p.LeftNewer
	case comparelines.RightNewer:
		return p.RightNewer
	case comparelines.Different:
		return p.Different
	case comparelines.Conflict:
		return p.Conflict
	default:
		return DirectionNone
	}
}

// OperationKind identifies the concrete action a SyncOperation performs.
type OperationKind uint8

const (
	// OpCreate copies a new entry onto the target side, where nothing
	// previously existed.
	OpCreate OperationKind = iota
	// OpDelete removes the target side's entry, where the source side no
	// longer has a counterpart.
	OpDelete
	// OpOverwrite replaces the target side's file content with the source's.
	OpOverwrite
	// OpCopyMeta updates only the target side's modification time to match
	// the source, used when content is known to be identical (by digest)
	// and only metadata drifted.
	OpCopyMeta
	// OpMove renames an entry on the target side from FromPath to ToPath
	// instead of deleting it at FromPath and recreating it at ToPath,
	// following move/rename detection by FileID.
	OpMove
	// OpUnresolvedConflict records a path direction resolution couldn't
	// settle; no mutation is performed.
	OpUnresolvedConflict
)

// String implements fmt.Stringer.
func (k OperationKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpOverwrite:
		return "overwrite"
	case OpCopyMeta:
		return "copy-meta"
	case OpMove:
		return "move"
	case OpUnresolvedConflict:
		return "unresolved-conflict"
	default:
		return "unknown"
	}
}

// Side identifies one of the two synchronization roots.
type Side uint8

const (
	// Left is the first folder in a pair.
	Left Side = iota
	// Right is the second folder in a pair.
	Right
)

// SyncOperation is one action the executor needs to perform to bring the
// two sides into agreement at a path.
type SyncOperation struct {
	Kind   OperationKind
	Target Side
	Path   relpath.Path
	Source *synctree.Entry

	// Current is the target side's existing entry at Path before this
	// operation runs, populated for OpDelete/OpOverwrite/OpCopyMeta so the
	// executor knows what kind of object it's removing or replacing without
	// re-statting the filesystem.
	Current *synctree.Entry

	// FromPath/ToPath are populated only for OpMove; Path is left at the
	// zero value in that case.
	FromPath relpath.Path
	ToPath   relpath.Path

	ConflictReason string
}

// Resolve walks lines and produces the operations needed to bring the two
// sides into agreement under policy, consulting ancestor for any path whose
// direction resolves to DirectionAutomatic. allowContentChangingMoves
// relaxes move detection (see detectMoves) to match same-named-content pairs
// even when size or modification time differ, per the folder pair's
// AllowContentChangingMoves setting.
func Resolve(lines []comparelines.CompareLine, policy Policy, ancestor *synctree.Entry, allowContentChangingMoves bool) []SyncOperation {
	operations := make([]SyncOperation, 0, len(lines))

	for _, line := range lines {
		if line.Result == comparelines.Equal {
			continue
		}

		direction := policy.directionFor(line.Result)
		if direction == DirectionAutomatic {
			direction = resolveAutomatic(line, ancestor)
		}

		op := synthesize(line, direction)
		if op != nil {
			operations = append(operations, *op)
		}
	}

	return detectMoves(operations, allowContentChangingMoves)
}

// resolveAutomatic implements three-way resolution: the side that diverged
// from the stored ancestor wins; divergence on both sides is a conflict.
// With a nil ancestor every path counts as new: a path present on one side
// only propagates to the other, and a path present on both sides is a
// conflict.
func resolveAutomatic(line comparelines.CompareLine, ancestor *synctree.Entry) Direction {
	base := synctree.Lookup(ancestor, line.Path)

	leftChanged := !entryEqual(base, line.Left)
	rightChanged := !entryEqual(base, line.Right)

	switch {
	case leftChanged && !rightChanged:
		return DirectionLeftToRight
	case rightChanged && !leftChanged:
		return DirectionRightToLeft
	default:
		// Both sides changed (or neither did, which shouldn't happen since
		// the line wasn't Equal), and there's no ancestor basis to prefer
		// one over the other.
		return DirectionNone
	}
}

func entryEqual(a, b *synctree.Entry) bool {
	return a.Equal(b, false)
}

func synthesize(line comparelines.CompareLine, direction Direction) *SyncOperation {
	switch direction {
	case DirectionNone:
		reason := line.ConflictReason
		if reason == "" {
			reason = "direction policy leaves this difference unresolved: " + line.Result.String()
		}
		return &SyncOperation{
			Kind:           OpUnresolvedConflict,
			Path:           line.Path,
			ConflictReason: reason,
		}
	case DirectionLeftToRight:
		return synthesizeOneWay(line.Path, Right, line.Left, line.Right)
	case DirectionRightToLeft:
		return synthesizeOneWay(line.Path, Left, line.Right, line.Left)
	default:
		return nil
	}
}

// synthesizeOneWay builds the operation that brings target's entry at path
// into agreement with source, where current is target's existing entry (if
// any).
func synthesizeOneWay(path relpath.Path, target Side, source, current *synctree.Entry) *SyncOperation {
	if source == nil {
		if current == nil {
			return nil
		}
		return &SyncOperation{Kind: OpDelete, Target: target, Path: path, Current: current}
	}
	if current == nil {
		return &SyncOperation{Kind: OpCreate, Target: target, Path: path, Source: source}
	}
	if source.Kind != current.Kind {
		return &SyncOperation{Kind: OpOverwrite, Target: target, Path: path, Source: source, Current: current}
	}
	if source.Kind == synctree.EntryFile && current.Kind == synctree.EntryFile &&
		source.File.Digest != nil && current.File.Digest != nil &&
		digestsEqual(source.File.Digest, current.File.Digest) &&
		source.File.ModificationTimeUTC != current.File.ModificationTimeUTC {
		return &SyncOperation{Kind: OpCopyMeta, Target: target, Path: path, Source: source, Current: current}
	}
	return &SyncOperation{Kind: OpOverwrite, Target: target, Path: path, Source: source, Current: current}
}

func digestsEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// detectMoves rewrites matching OpDelete/OpCreate pairs into a single
// OpMove when the created entry's FileID matches the FileID of the entry
// another op is about to delete on the same target side. This works
// directly off the current comparison's entries (SyncOperation.Source for
// an OpCreate, SyncOperation.Current for an OpDelete) rather than any stored
// ancestor, so a rename is detected on the very first synchronization of a
// folder pair, with no state database involved.
//
// Without allowContentChangingMoves, a candidate pair must also agree on
// size and modification time, guarding against a coincidental FileID reuse
// (an inode recycled by an unrelated new file after a real deletion) being
// misidentified as a move.
func detectMoves(operations []SyncOperation, allowContentChangingMoves bool) []SyncOperation {
	type deleteCandidate struct {
		index int
	}
	deletesByFileID := make(map[uint64][]deleteCandidate)

	for i, op := range operations {
		if op.Kind != OpDelete || op.Current == nil ||
			op.Current.Kind != synctree.EntryFile || op.Current.File.FileID == 0 {
			continue
		}
		deletesByFileID[op.Current.File.FileID] = append(deletesByFileID[op.Current.File.FileID], deleteCandidate{index: i})
	}

	consumed := make(map[int]bool)
	moves := make(map[int]SyncOperation)

	for i, op := range operations {
		if op.Kind != OpCreate || op.Source == nil || op.Source.Kind != synctree.EntryFile || op.Source.File.FileID == 0 {
			continue
		}

		candidates := deletesByFileID[op.Source.File.FileID]
		matched := -1
		for _, candidate := range candidates {
			if consumed[candidate.index] {
				continue
			}
			deleteOp := operations[candidate.index]
			if deleteOp.Target != op.Target {
				continue
			}
			if !allowContentChangingMoves {
				if deleteOp.Current.File.Size != op.Source.File.Size ||
					deleteOp.Current.File.ModificationTimeUTC != op.Source.File.ModificationTimeUTC {
					continue
				}
			}
			matched = candidate.index
			break
		}

		if matched == -1 {
			continue
		}

		consumed[matched] = true
		moves[i] = SyncOperation{
			Kind:     OpMove,
			Target:   op.Target,
			FromPath: operations[matched].Path,
			ToPath:   op.Path,
			Source:   op.Source,
		}
	}

	result := make([]SyncOperation, 0, len(operations))
	for i, op := range operations {
		if consumed[i] {
			continue
		}
		if move, ok := moves[i]; ok {
			op = move
		}
		result = append(result, op)
	}

	return result
}
