package synctree

import (
	"testing"

	"github.com/pathsync/pathsync/pkg/relpath"
)

func TestSetInsertsNewFile(t *testing.T) {
	root := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"a.txt": {Kind: EntryFile, File: FileMeta{Size: 1}},
	}}
	updated := Set(root, "sub/b.txt", &Entry{Kind: EntryFile, File: FileMeta{Size: 2}})

	if _, ok := root.Contents["sub"]; ok {
		t.Fatal("original tree must not be mutated")
	}
	sub, ok := updated.Contents["sub"]
	if !ok || sub.Kind != EntryDirectory {
		t.Fatalf("expected a new sub directory, got %+v", updated.Contents)
	}
	b, ok := sub.Contents["b.txt"]
	if !ok || b.File.Size != 2 {
		t.Fatalf("expected b.txt with size 2, got %+v", sub.Contents)
	}
	if a, ok := updated.Contents["a.txt"]; !ok || a.File.Size != 1 {
		t.Error("expected a.txt to survive untouched")
	}
}

func TestSetRemovesEntry(t *testing.T) {
	root := &Entry{Kind: EntryDirectory, Contents: map[string]*Entry{
		"a.txt": {Kind: EntryFile, File: FileMeta{Size: 1}},
	}}
	updated := Set(root, "a.txt", nil)
	if _, ok := updated.Contents["a.txt"]; ok {
		t.Error("expected a.txt to be removed")
	}
	if _, ok := root.Contents["a.txt"]; !ok {
		t.Error("original tree must not be mutated")
	}
}

func TestSetOverwritesRoot(t *testing.T) {
	root := &Entry{Kind: EntryDirectory}
	replacement := &Entry{Kind: EntryFile, File: FileMeta{Size: 5}}
	updated := Set(root, relpath.Root, replacement)
	if updated != replacement {
		t.Errorf("expected Set at root to return the replacement verbatim")
	}
}
