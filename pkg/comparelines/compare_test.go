package comparelines

import (
	"testing"
	"time"

	"github.com/pathsync/pathsync/pkg/relpath"
	"github.com/pathsync/pathsync/pkg/synctree"
)

func lineFor(lines []CompareLine, path relpath.Path) (CompareLine, bool) {
	for _, line := range lines {
		if line.Path == path {
			return line, true
		}
	}
	return CompareLine{}, false
}

func TestCompareLeftOnly(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"a.txt": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 3, ModificationTimeUTC: 100}},
	}}
	lines := Compare(left, nil, relpath.CaseSensitive, ByTimeAndSize, 0)

	line, ok := lineFor(lines, "a.txt")
	if !ok {
		t.Fatal("expected a compare line for a.txt")
	}
	if line.Result != LeftOnly {
		t.Errorf("Result = %v, expected LeftOnly", line.Result)
	}
}

func TestCompareNewerDetection(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"f": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 5, ModificationTimeUTC: 200}},
	}}
	right := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"f": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 5, ModificationTimeUTC: 100}},
	}}

	lines := Compare(left, right, relpath.CaseSensitive, ByTimeAndSize, 0)
	line, ok := lineFor(lines, "f")
	if !ok {
		t.Fatal("expected a compare line for f")
	}
	if line.Result != LeftNewer {
		t.Errorf("Result = %v, expected LeftNewer", line.Result)
	}
}

func TestCompareDifferentSizeSameTime(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"f": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 5, ModificationTimeUTC: 100}},
	}}
	right := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"f": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 9, ModificationTimeUTC: 100}},
	}}

	lines := Compare(left, right, relpath.CaseSensitive, ByTimeAndSize, 0)
	line, _ := lineFor(lines, "f")
	if line.Result != Conflict {
		t.Errorf("Result = %v, expected Conflict", line.Result)
	}
}

func TestCompareByContentConflict(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"f": {Kind: synctree.EntryFile, File: synctree.FileMeta{
			Size: 5, ModificationTimeUTC: 100, Digest: []byte{1, 2, 3},
		}},
	}}
	right := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"f": {Kind: synctree.EntryFile, File: synctree.FileMeta{
			Size: 5, ModificationTimeUTC: 100, Digest: []byte{4, 5, 6},
		}},
	}}

	lines := Compare(left, right, relpath.CaseSensitive, ByContent, 0)
	line, _ := lineFor(lines, "f")
	if line.Result != Conflict {
		t.Errorf("Result = %v, expected Conflict", line.Result)
	}
	if line.ConflictReason == "" {
		t.Error("expected a non-empty conflict reason")
	}
}

func TestCompareEqualDirectoriesRecurse(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"sub": {Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
			"onlyLeft": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 1}},
		}},
	}}
	right := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"sub": {Kind: synctree.EntryDirectory},
	}}

	lines := Compare(left, right, relpath.CaseSensitive, ByTimeAndSize, 0)
	line, ok := lineFor(lines, relpath.Join("sub", "onlyLeft"))
	if !ok {
		t.Fatal("expected recursion into matching directories to surface the nested difference")
	}
	if line.Result != LeftOnly {
		t.Errorf("Result = %v, expected LeftOnly", line.Result)
	}
}

func TestCompareWithinToleranceIsEqual(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"a": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 10, ModificationTimeUTC: 1000}},
	}}
	right := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"a": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 10, ModificationTimeUTC: 999}},
	}}

	// Default tolerance (2s) absorbs a 1-second spread when sizes match.
	lines := Compare(left, right, relpath.CaseSensitive, ByTimeAndSize, 0)
	line, ok := lineFor(lines, "a")
	if !ok {
		t.Fatal("expected a compare line for a")
	}
	if line.Result != Equal {
		t.Errorf("Result = %v, expected Equal within default tolerance", line.Result)
	}
}

func TestCompareWithinToleranceDifferentSizeIsConflict(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"a": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 10, ModificationTimeUTC: 1000}},
	}}
	right := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"a": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 20, ModificationTimeUTC: 999}},
	}}

	lines := Compare(left, right, relpath.CaseSensitive, ByTimeAndSize, 0)
	line, _ := lineFor(lines, "a")
	if line.Result != Conflict {
		t.Errorf("Result = %v, expected Conflict for same-time-within-tolerance, different size", line.Result)
	}
}

func TestCompareOutsideExplicitToleranceIsOrdered(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"a": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 10, ModificationTimeUTC: 1000}},
	}}
	right := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"a": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 10, ModificationTimeUTC: 999}},
	}}

	// An explicit sub-second tolerance floors to zero whole seconds, so a
	// 1-second spread is ordered rather than treated as Equal.
	lines := Compare(left, right, relpath.CaseSensitive, ByTimeAndSize, time.Nanosecond)
	line, _ := lineFor(lines, "a")
	if line.Result != LeftNewer {
		t.Errorf("Result = %v, expected LeftNewer outside a sub-second tolerance", line.Result)
	}
}

func TestCompareCaseInsensitiveNameUnion(t *testing.T) {
	left := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"Foo": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 1, ModificationTimeUTC: 1}},
	}}
	right := &synctree.Entry{Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
		"foo": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 1, ModificationTimeUTC: 1}},
	}}

	lines := Compare(left, right, relpath.CaseInsensitive, ByTimeAndSize, 0)
	var matches int
	for _, line := range lines {
		if line.Path == "Foo" || line.Path == "foo" {
			matches++
			if line.Result != Equal {
				t.Errorf("Result = %v, expected Equal for case-folded match", line.Result)
			}
		}
	}
	if matches != 1 {
		t.Errorf("expected exactly one compare line for the case-folded pair, got %d", matches)
	}
}
