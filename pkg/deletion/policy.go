// Package deletion implements the deletion handler (C9): one instance per
// (side, base root), abstracting permanent deletion, recycle-bin batching,
// and file versioning behind a single remove_file/remove_dir/remove_symlink
// interface, grounded on the teacher's filesystem.WriteFileAtomic
// temp-then-commit pattern (atomic.go) and its TemporaryNamePrefix staging
// convention (temporary.go), generalized from a single scratch file to a
// whole staging directory committed in one batch.
package deletion

import "time"

// Style selects how a policy's destination layout is derived, used only by
// Versioning.
type Style uint8

const (
	// Replace writes the versioned item at the same relative path every
	// time, overwriting whatever was versioned there before.
	Replace Style = iota
	// TimeStampFolder prefixes the relative path with a run timestamp.
	TimeStampFolder
	// TimeStampFile suffixes each file's name with a run timestamp,
	// grouping directories under a single timestamp instead.
	TimeStampFile
)

// Kind identifies which deletion policy a Handler implements.
type Kind uint8

const (
	// Permanent deletes items directly with no recovery path.
	Permanent Kind = iota
	// RecycleBin batches items into a staging directory and issues one
	// bulk recycle call at commit time.
	RecycleBin
	// Versioning moves items into a versioning folder instead of removing
	// them, preserving their relative path under one of the Style layouts.
	Versioning
)

// Policy configures a Handler. Folder and VersionStyle are only meaningful
// when Kind is Versioning.
type Policy struct {
	Kind         Kind
	Folder       string
	VersionStyle Style
}

// FreesSpace reports whether applying this policy actually releases space on
// the source volume: Permanent always does, RecycleBin generally does not
// (the recycle bin typically lives on the same volume), and Versioning does
// only when the versioning folder resides on a different volume than the
// item being removed. The pre-flight free-space check uses this to decide
// whether a deletion can be credited against a predicted space shortfall.
func (p Policy) FreesSpace(sourceVolumeSameAsVersioningFolder bool) bool {
	switch p.Kind {
	case Permanent:
		return true
	case Versioning:
		return !sourceVolumeSameAsVersioningFolder
	default: // RecycleBin
		return false
	}
}

// runTimestamp formats t the way versioned names expect: "YYYY-MM-DD
// HHMMSS", space separated per the layout the spec fixes for versioning
// folders.
func runTimestamp(t time.Time) string {
	return t.Format("2006-01-02 150405")
}
