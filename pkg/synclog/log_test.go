package synclog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pathsync/pathsync/pkg/syncstats"
)

func TestLogAppendAndEntries(t *testing.T) {
	log := New(0)
	log.Info("pair started")
	log.Warning("low free space")
	log.Error("copy failed")
	log.Fatal("pair aborted")

	entries := log.Entries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	wantSeverities := []Severity{Info, Warning, Error, FatalError}
	for i, want := range wantSeverities {
		if entries[i].Severity != want {
			t.Errorf("entry %d: expected severity %v, got %v", i, want, entries[i].Severity)
		}
	}
}

func TestLogBoundedCapacityDropsOldest(t *testing.T) {
	log := New(2)
	log.Info("first")
	log.Info("second")
	log.Info("third")

	entries := log.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected capacity to bound entries at 2, got %d", len(entries))
	}
	if entries[0].Text != "second" || entries[1].Text != "third" {
		t.Errorf("expected the two most recent entries to survive, got %q and %q", entries[0].Text, entries[1].Text)
	}
	if log.Dropped() != 1 {
		t.Errorf("expected Dropped to report 1, got %d", log.Dropped())
	}
}

func TestLogWriteToWithoutColor(t *testing.T) {
	log := New(0)
	log.Warning("disk almost full")

	var buf bytes.Buffer
	if err := log.WriteTo(&buf, false); err != nil {
		t.Fatalf("WriteTo returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "warning") {
		t.Errorf("expected rendered line to contain severity text, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "disk almost full") {
		t.Errorf("expected rendered line to contain entry text, got %q", buf.String())
	}
}

func TestSummarize(t *testing.T) {
	snapshot := syncstats.Snapshot{
		Counts: syncstats.Counts{
			Creates:     3,
			Deletes:     1,
			Overwrites:  2,
			CopyMetas:   1,
			Moves:       1,
			Conflicts:   0,
			BytesToCopy: 2048,
		},
	}

	text := Summarize("photos", 1500*time.Millisecond, snapshot, "completed")
	if !strings.Contains(text, "photos") || !strings.Contains(text, "completed") {
		t.Errorf("expected summary to name the pair and status, got %q", text)
	}
	if !strings.Contains(text, "8 objects") {
		t.Errorf("expected summary to total all operation kinds, got %q", text)
	}
}
