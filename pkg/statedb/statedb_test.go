package statedb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/pathsync/pathsync/pkg/synctree"
)

func sampleTree() *synctree.Entry {
	return &synctree.Entry{
		Kind: synctree.EntryDirectory,
		Contents: map[string]*synctree.Entry{
			"a.txt": {Kind: synctree.EntryFile, File: synctree.FileMeta{Size: 10, ModificationTimeUTC: 100, Digest: []byte{1, 2, 3}}},
			"sub": {Kind: synctree.EntryDirectory, Contents: map[string]*synctree.Entry{
				"link": {Kind: synctree.EntrySymlink, LinkTarget: "../a.txt"},
			}},
		},
	}
}

func TestEncodeDecodeTreeRoundTrip(t *testing.T) {
	original := sampleTree()
	encoded, err := encodeTree(original)
	if err != nil {
		t.Fatalf("encodeTree failed: %v", err)
	}
	decoded, err := decodeTree(encoded)
	if err != nil {
		t.Fatalf("decodeTree failed: %v", err)
	}
	if !original.Equal(decoded, true) {
		t.Errorf("decoded tree does not match original: %+v vs %+v", original, decoded)
	}
}

func TestEncodeDecodeAbsentTree(t *testing.T) {
	encoded, err := encodeTree(nil)
	if err != nil {
		t.Fatalf("encodeTree(nil) failed: %v", err)
	}
	decoded, err := decodeTree(encoded)
	if err != nil {
		t.Fatalf("decodeTree failed: %v", err)
	}
	if decoded != nil {
		t.Errorf("expected a nil decoded entry, got %+v", decoded)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	db := New()
	partnerID := uuid.New()
	db.Partners[partnerID] = sampleTree()

	if err := Save(path, db); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.OwnID != db.OwnID {
		t.Errorf("OwnID = %v, expected %v", loaded.OwnID, db.OwnID)
	}
	tree, ok := loaded.Partners[partnerID]
	if !ok {
		t.Fatalf("expected partner %v to be present", partnerID)
	}
	if !tree.Equal(db.Partners[partnerID], true) {
		t.Errorf("loaded partner tree does not match saved tree")
	}
}

func TestLoadMissingFileReturnsFreshDatabase(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "does-not-exist.db"))
	if err != nil {
		t.Fatalf("Load of a missing file should not error, got: %v", err)
	}
	if len(db.Partners) != 0 {
		t.Errorf("expected an empty partner map, got %d entries", len(db.Partners))
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.db")
	if err := os.WriteFile(path, []byte("not-a-valid-header-at-all"), 0600); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error loading a file with an invalid magic")
	}
}
