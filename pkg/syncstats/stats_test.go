package syncstats

import (
	"testing"

	"github.com/pathsync/pathsync/pkg/direction"
)

func TestBuilderAccumulatesCounts(t *testing.T) {
	var b Builder
	b.Observe(direction.SyncOperation{Kind: direction.OpCreate, Path: "a"}, 100)
	b.Observe(direction.SyncOperation{Kind: direction.OpOverwrite, Path: "b"}, 50)
	b.Observe(direction.SyncOperation{Kind: direction.OpDelete, Path: "c"})
	b.Observe(direction.SyncOperation{Kind: direction.OpMove, Path: "d"})
	b.Observe(direction.SyncOperation{Kind: direction.OpCopyMeta, Path: "e"})
	b.Observe(direction.SyncOperation{Kind: direction.OpUnresolvedConflict, Path: "f", ConflictReason: "both changed"})

	snap := b.Snapshot()
	if snap.Creates != 1 || snap.Overwrites != 1 || snap.Deletes != 1 || snap.Moves != 1 || snap.CopyMetas != 1 || snap.Conflicts != 1 {
		t.Fatalf("unexpected counts: %+v", snap.Counts)
	}
	if snap.BytesToCopy != 150 {
		t.Errorf("BytesToCopy = %d, expected 150", snap.BytesToCopy)
	}
	if len(snap.ConflictList) != 1 || snap.ConflictList[0].Path != "f" {
		t.Fatalf("unexpected conflict list: %+v", snap.ConflictList)
	}
}

func TestConflictListSortedByPath(t *testing.T) {
	var b Builder
	b.Observe(direction.SyncOperation{Kind: direction.OpUnresolvedConflict, Path: "z"})
	b.Observe(direction.SyncOperation{Kind: direction.OpUnresolvedConflict, Path: "a"})
	b.Observe(direction.SyncOperation{Kind: direction.OpUnresolvedConflict, Path: "m"})

	snap := b.Snapshot()
	if len(snap.ConflictList) != 3 {
		t.Fatalf("expected 3 conflicts, got %d", len(snap.ConflictList))
	}
	if snap.ConflictList[0].Path != "a" || snap.ConflictList[1].Path != "m" || snap.ConflictList[2].Path != "z" {
		t.Errorf("conflicts not sorted by path: %+v", snap.ConflictList)
	}
}

func TestSummaryDoesNotPanic(t *testing.T) {
	var b Builder
	b.Observe(direction.SyncOperation{Kind: direction.OpCreate, Path: "a"}, 2048)
	if s := b.Snapshot().Summary(); s == "" {
		t.Error("expected a non-empty summary")
	}
}
