package synctree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pathsync/pathsync/pkg/relpath"
)

func TestScanBasicTree(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("unable to seed file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatalf("unable to seed directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0644); err != nil {
		t.Fatalf("unable to seed nested file: %v", err)
	}

	scanner := &Scanner{Policy: relpath.CaseSensitive}
	tree, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if tree.Kind != EntryDirectory {
		t.Fatalf("scan root should be a directory entry")
	}

	a, ok := tree.Contents["a.txt"]
	if !ok || a.Kind != EntryFile || a.File.Size != 5 {
		t.Errorf("a.txt entry incorrect: %+v", a)
	}

	sub, ok := tree.Contents["sub"]
	if !ok || sub.Kind != EntryDirectory {
		t.Fatalf("sub entry missing or wrong kind")
	}
	b, ok := sub.Contents["b.txt"]
	if !ok || b.Kind != EntryFile || b.File.Size != 5 {
		t.Errorf("sub/b.txt entry incorrect: %+v", b)
	}
}

func TestScanSkipFilter(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("unable to seed file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "ignore.tmp"), []byte("x"), 0644); err != nil {
		t.Fatalf("unable to seed file: %v", err)
	}

	scanner := &Scanner{
		Policy: relpath.CaseSensitive,
		Skip:   NewGlobFilter([]string{"*.tmp"}),
	}
	tree, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if _, ok := tree.Contents["ignore.tmp"]; ok {
		t.Error("filtered file should not appear in the scanned tree")
	}
	if _, ok := tree.Contents["keep.txt"]; !ok {
		t.Error("unfiltered file should appear in the scanned tree")
	}
}

func TestScanSymlink(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("unable to seed file: %v", err)
	}
	linkPath := filepath.Join(root, "link")
	if err := os.Symlink("real.txt", linkPath); err != nil {
		t.Skipf("symbolic links unsupported on this platform: %v", err)
	}

	scanner := &Scanner{Policy: relpath.CaseSensitive}
	tree, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	link, ok := tree.Contents["link"]
	if !ok || link.Kind != EntrySymlink || link.LinkTarget != "real.txt" {
		t.Errorf("link entry incorrect: %+v", link)
	}
	if link.LinkTargetIsDir {
		t.Error("expected a link to a regular file to record LinkTargetIsDir = false")
	}
}

func TestScanSymlinkToDirectory(t *testing.T) {
	root := t.TempDir()
	targetDir := filepath.Join(root, "realdir")
	if err := os.Mkdir(targetDir, 0755); err != nil {
		t.Fatalf("unable to seed directory: %v", err)
	}
	linkPath := filepath.Join(root, "linkdir")
	if err := os.Symlink("realdir", linkPath); err != nil {
		t.Skipf("symbolic links unsupported on this platform: %v", err)
	}

	scanner := &Scanner{Policy: relpath.CaseSensitive}
	tree, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	link, ok := tree.Contents["linkdir"]
	if !ok || link.Kind != EntrySymlink {
		t.Fatalf("linkdir entry incorrect: %+v", link)
	}
	if !link.LinkTargetIsDir {
		t.Error("expected a link to a directory to record LinkTargetIsDir = true")
	}
}

func TestScanCancellation(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := &Scanner{Policy: relpath.CaseSensitive}
	if _, err := scanner.Scan(ctx, root); err != ErrScanCancelled {
		t.Errorf("expected ErrScanCancelled, got %v", err)
	}
}
