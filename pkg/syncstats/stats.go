// Package syncstats accumulates the counts, byte totals, and conflict list
// for a single folder-pair sync cycle (C8). The sortable conflict list
// follows the teacher's sortableProblemList pattern in
// pkg/synchronization/core/problem.go, and the running-counter shape
// follows the scanner's own bookkeeping fields in scan.go.
package syncstats

import (
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/relpath"
)

// Conflict records a single unresolved difference the direction resolver
// couldn't settle.
type Conflict struct {
	Path   relpath.Path
	Reason string
}

// sortableConflictList implements sort.Interface for Conflict slices,
// following the teacher's sortableProblemList.
type sortableConflictList []Conflict

func (l sortableConflictList) Len() int      { return len(l) }
func (l sortableConflictList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l sortableConflictList) Less(i, j int) bool {
	return relpath.Less(relpath.CaseSensitive, l[i].Path, l[j].Path)
}

// SortConflicts orders a conflict list by path, matching the teacher's
// SortProblems helper.
func SortConflicts(conflicts []Conflict) {
	sort.Sort(sortableConflictList(conflicts))
}

// Counts holds the running per-operation-kind tallies for a sync cycle.
type Counts struct {
	Creates     uint64
	Deletes     uint64
	Overwrites  uint64
	CopyMetas   uint64
	Moves       uint64
	Conflicts   uint64
	BytesToCopy uint64
}

// Snapshot is the final, read-only report for a completed (or aborted)
// folder-pair cycle, retaining the conflict list so the caller can surface
// it without re-walking the operation list.
type Snapshot struct {
	Counts
	ConflictList []Conflict
}

// Builder accumulates statistics as the executor processes operations.
type Builder struct {
	counts    Counts
	conflicts []Conflict
}

// Observe records one resolved operation's contribution to the statistics.
// bytesToCopy should be the file's size for creates/overwrites and zero
// otherwise; it is ignored for kinds that don't move file content.
func (b *Builder) Observe(op direction.SyncOperation, bytesToCopy uint64) {
	switch op.Kind {
	case direction.OpCreate:
		b.counts.Creates++
		b.counts.BytesToCopy += bytesToCopy
	case direction.OpDelete:
		b.counts.Deletes++
	case direction.OpOverwrite:
		b.counts.Overwrites++
		b.counts.BytesToCopy += bytesToCopy
	case direction.OpCopyMeta:
		b.counts.CopyMetas++
	case direction.OpMove:
		b.counts.Moves++
	case direction.OpUnresolvedConflict:
		b.counts.Conflicts++
		b.conflicts = append(b.conflicts, Conflict{Path: op.Path, Reason: op.ConflictReason})
	}
}

// Snapshot returns the accumulated statistics, with the conflict list sorted
// by path for stable, reproducible reporting.
func (b *Builder) Snapshot() Snapshot {
	conflicts := make([]Conflict, len(b.conflicts))
	copy(conflicts, b.conflicts)
	SortConflicts(conflicts)
	return Snapshot{Counts: b.counts, ConflictList: conflicts}
}

// Summary renders a short human-readable line describing the snapshot,
// following the teacher's pkg/logging preference for terse operator-facing
// text and using go-humanize for byte formatting.
func (s Snapshot) Summary() string {
	return humanize.Comma(int64(s.Creates+s.Overwrites+s.Moves)) + " items to sync, " +
		humanize.Bytes(s.BytesToCopy) + " to copy, " +
		humanize.Comma(int64(s.Conflicts)) + " unresolved conflicts"
}
