package synctree

import (
	"testing"

	"github.com/pathsync/pathsync/pkg/relpath"
)

func TestEntryEnsureValid(t *testing.T) {
	valid := &Entry{
		Kind: EntryDirectory,
		Contents: map[string]*Entry{
			"a.txt": {Kind: EntryFile, File: FileMeta{Size: 3}},
			"link":  {Kind: EntrySymlink, LinkTarget: "a.txt"},
		},
	}
	if err := valid.EnsureValid(); err != nil {
		t.Errorf("expected valid entry, got error: %v", err)
	}

	invalid := &Entry{Kind: EntryFile, Contents: map[string]*Entry{"x": nil}}
	if err := invalid.EnsureValid(); err == nil {
		t.Error("expected error for file entry with non-nil content map")
	}

	if err := (&Entry{Kind: EntrySymlink}).EnsureValid(); err == nil {
		t.Error("expected error for symbolic link with empty target")
	}

	if err := (*Entry)(nil).EnsureValid(); err != nil {
		t.Errorf("nil entry should be valid, got %v", err)
	}
}

func TestEntryEqual(t *testing.T) {
	a := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"f": {Kind: EntryFile, File: FileMeta{Size: 1, ModificationTimeUTC: 100}},
	}}
	b := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"f": {Kind: EntryFile, File: FileMeta{Size: 1, ModificationTimeUTC: 100}},
	}}
	if !a.Equal(b, true) {
		t.Error("structurally identical trees should compare equal")
	}

	c := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"f": {Kind: EntryFile, File: FileMeta{Size: 2, ModificationTimeUTC: 100}},
	}}
	if a.Equal(c, true) {
		t.Error("trees differing in file size should not compare equal")
	}
	if !a.Equal(c, false) {
		t.Error("shallow comparison should ignore content map differences")
	}

	if (*Entry)(nil).Equal(nil, true) != true {
		t.Error("two nil entries should compare equal")
	}
	if a.Equal(nil, true) {
		t.Error("non-nil entry should not equal nil entry")
	}
}

func TestEntryCopy(t *testing.T) {
	original := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"f": {Kind: EntryFile, File: FileMeta{Size: 1}},
	}}

	deep := original.Copy(CopyDeep)
	deep.Contents["f"].File.Size = 99
	if original.Contents["f"].File.Size != 1 {
		t.Error("deep copy should not share child entries with the original")
	}

	shallow := original.Copy(CopyShallow)
	if shallow.Contents["f"] != original.Contents["f"] {
		t.Error("shallow copy should reuse child pointers")
	}

	slim := original.Copy(CopySlim)
	if slim.Contents != nil {
		t.Error("slim copy should exclude the content map")
	}
}

func TestEntryCount(t *testing.T) {
	tree := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"a": {Kind: EntryFile},
		"b": {Kind: EntryDirectory, Contents: map[string]*Entry{
			"c": {Kind: EntryFile},
		}},
	}}
	if count := tree.Count(); count != 4 {
		t.Errorf("Count() = %d, expected 4", count)
	}
	if (*Entry)(nil).Count() != 0 {
		t.Error("nil entry should count as zero")
	}
}

func TestWalkOrdering(t *testing.T) {
	tree := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"b": {Kind: EntryFile},
		"a": {Kind: EntryDirectory, Contents: map[string]*Entry{
			"z": {Kind: EntryFile},
		}},
	}}

	var visited []string
	tree.Walk(relpath.Root, relpath.CaseSensitive, func(path relpath.Path, entry *Entry) {
		visited = append(visited, path.String())
	})

	expected := []string{"", "a", "a/z", "b"}
	if len(visited) != len(expected) {
		t.Fatalf("visited %v, expected %v", visited, expected)
	}
	for i := range expected {
		if visited[i] != expected[i] {
			t.Errorf("visited[%d] = %q, expected %q", i, visited[i], expected[i])
		}
	}
}

func TestLookup(t *testing.T) {
	tree := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"a": {Kind: EntryDirectory, Contents: map[string]*Entry{
			"b": {Kind: EntryFile, File: FileMeta{Size: 7}},
		}},
	}}

	found := Lookup(tree, relpath.Join("a", "b"))
	if found == nil || found.File.Size != 7 {
		t.Error("Lookup did not find nested entry")
	}
	if Lookup(tree, relpath.Join("a", "missing")) != nil {
		t.Error("Lookup should return nil for a missing entry")
	}
}
