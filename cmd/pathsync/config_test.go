package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pathsync/pathsync/pkg/comparelines"
	"github.com/pathsync/pathsync/pkg/deletion"
	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/relpath"
)

const testConfigurationValid = `
pairs:
  - name: photos
    left: /tmp/left
    right: /tmp/right
    direction: two-way-automatic
    automatic: true
    caseSensitive: true
    compareContent: true
    skip:
      - "*.tmp"
  - left: /tmp/a
    right: /tmp/b
    direction: mirror-left-to-right
    rightDeletion:
      kind: recycle-bin
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pathsync.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unable to write configuration fixture: %v", err)
	}
	return path
}

func TestLoadFileConfigurationValid(t *testing.T) {
	path := writeConfig(t, testConfigurationValid)
	configuration, err := loadFileConfiguration(path)
	if err != nil {
		t.Fatalf("loadFileConfiguration failed: %v", err)
	}
	if len(configuration.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(configuration.Pairs))
	}

	first, err := configuration.Pairs[0].toFolderPair()
	if err != nil {
		t.Fatalf("toFolderPair failed: %v", err)
	}
	if first.Name != "photos" {
		t.Errorf("expected name %q, got %q", "photos", first.Name)
	}
	if !first.Automatic {
		t.Error("expected automatic to be true")
	}
	if first.CasePolicy != relpath.CaseSensitive {
		t.Error("expected case-sensitive policy")
	}
	if first.CompareMode != comparelines.ByContent {
		t.Error("expected content comparison mode")
	}
	if first.Skip == nil {
		t.Error("expected a skip filter to be built from the skip patterns")
	}

	second, err := configuration.Pairs[1].toFolderPair()
	if err != nil {
		t.Fatalf("toFolderPair failed: %v", err)
	}
	if second.Name == "" {
		t.Error("expected a derived display name when Name is unset")
	}
	if second.RightDeletionPolicy.Kind != deletion.RecycleBin {
		t.Error("expected right deletion policy to be RecycleBin")
	}
	if second.LeftDeletionPolicy.Kind != deletion.Permanent {
		t.Error("expected left deletion policy to default to Permanent")
	}
}

func TestLoadFileConfigurationMissingFile(t *testing.T) {
	if _, err := loadFileConfiguration(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected an error for a missing configuration file")
	}
}

func TestLoadFileConfigurationNoPairs(t *testing.T) {
	path := writeConfig(t, "pairs: []\n")
	if _, err := loadFileConfiguration(path); err == nil {
		t.Fatal("expected an error for a configuration file with no pairs")
	}
}

func TestToFolderPairRequiresBothRoots(t *testing.T) {
	pair := pairConfiguration{Left: "/tmp/only-left"}
	if _, err := pair.toFolderPair(); err == nil {
		t.Fatal("expected an error when right is missing")
	}
}

func TestToFolderPairRejectsUnknownDirection(t *testing.T) {
	pair := pairConfiguration{Left: "/tmp/a", Right: "/tmp/b", Direction: "sideways"}
	if _, err := pair.toFolderPair(); err == nil {
		t.Fatal("expected an error for an unknown direction")
	}
}

func TestToFolderPairVersioningRequiresFolder(t *testing.T) {
	pair := pairConfiguration{
		Left:         "/tmp/a",
		Right:        "/tmp/b",
		LeftDeletion: deletionConfig{Kind: "versioning"},
	}
	if _, err := pair.toFolderPair(); err == nil {
		t.Fatal("expected an error for a versioning policy with no folder")
	}
}

func TestDirectionPolicyKnownValues(t *testing.T) {
	cases := map[string]direction.Direction{
		"mirror-left-to-right": direction.DirectionLeftToRight,
		"mirror-right-to-left": direction.DirectionRightToLeft,
	}
	for name, expectedLeftOnly := range cases {
		policy, err := directionPolicy(name)
		if err != nil {
			t.Fatalf("directionPolicy(%q) failed: %v", name, err)
		}
		if policy.LeftOnly != expectedLeftOnly {
			t.Errorf("directionPolicy(%q).LeftOnly = %v, want %v", name, policy.LeftOnly, expectedLeftOnly)
		}
	}
}
