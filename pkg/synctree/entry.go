// Package synctree implements the entry model used to represent one side of
// a synchronization root (C2) and the recursive scanner that builds it from
// disk (C3). The tree type and its EnsureValid/walk/Equal/Copy methods follow
// the teacher's pkg/synchronization/core/entry.go conventions, narrowed from
// its six entry kinds (directory, file, symlink, untracked, problematic,
// phantom-directory) down to the four the spec actually defines, since this
// core has no concept of unsynchronizable or reparse-point content to track.
package synctree

import (
	"bytes"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/pathsync/pathsync/pkg/relpath"
)

// EntryKind identifies the type of filesystem object an Entry represents.
type EntryKind uint8

const (
	// EntryAbsent represents the absence of content at a path. A nil *Entry
	// is always treated as EntryAbsent regardless of what its Kind field
	// says, so EntryAbsent itself is never actually stored.
	EntryAbsent EntryKind = iota
	// EntryDirectory represents a directory.
	EntryDirectory
	// EntryFile represents a regular file.
	EntryFile
	// EntrySymlink represents a symbolic link.
	EntrySymlink
)

// MarshalText implements encoding.TextMarshaler.
func (k EntryKind) MarshalText() ([]byte, error) {
	var result string
	switch k {
	case EntryAbsent:
		result = "absent"
	case EntryDirectory:
		result = "directory"
	case EntryFile:
		result = "file"
	case EntrySymlink:
		result = "symlink"
	default:
		return nil, errors.New("invalid entry kind")
	}
	return []byte(result), nil
}

// String implements fmt.Stringer.
func (k EntryKind) String() string {
	text, err := k.MarshalText()
	if err != nil {
		return "unknown"
	}
	return string(text)
}

// FileMeta carries the metadata the classifier compares for regular files,
// matching the spec's size/mtime_utc_seconds/file_id fields.
type FileMeta struct {
	// Size is the file's length in bytes.
	Size uint64
	// ModificationTimeUTC is the file's modification time, in whole seconds
	// since the Unix epoch, truncated to the resolution the least capable
	// side's filesystem supports.
	ModificationTimeUTC int64
	// FileID is an opaque, platform-specific identifier (e.g. inode number)
	// used only for move/rename detection; it carries no meaning across
	// filesystems and must never be persisted or compared across sides.
	FileID uint64
	// Digest is an optional content hash, populated only when a scan runs
	// with content hashing enabled (the classifier's ByContent mode). It is
	// nil otherwise, in which case ByContent falls back to a by-time-and-size
	// comparison for that entry.
	Digest []byte
}

// equal compares two FileMeta values field by field, except FileID, which
// is never compared across sides; FileMeta can't use == directly once it
// carries a slice field.
func (m FileMeta) equal(other FileMeta) bool {
	return m.Size == other.Size &&
		m.ModificationTimeUTC == other.ModificationTimeUTC &&
		bytes.Equal(m.Digest, other.Digest)
}

// Entry is a node in the tree describing one side of a synchronization root.
// A nil *Entry represents EntryAbsent. Entries are treated as immutable by
// convention: mutation happens by building new trees with Copy, following
// the teacher's Entry.Copy pattern in entry.go.
type Entry struct {
	Kind EntryKind

	// File fields (valid only when Kind == EntryFile).
	File FileMeta

	// Symlink fields (valid only when Kind == EntrySymlink).
	LinkTarget string
	// LinkTargetIsDir records whether the symlink's target resolved to a
	// directory at scan time, captured once up front since the target may no
	// longer exist (or may have changed kind) by the time a later stage
	// needs to stage or version the link.
	LinkTargetIsDir bool

	// Directory fields (valid only when Kind == EntryDirectory).
	Contents map[string]*Entry
}

// EnsureValid checks that the entry hierarchy respects the invariants implied
// by its Kind values, following the teacher's EnsureValid in entry.go.
func (e *Entry) EnsureValid() error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case EntryDirectory:
		if e.LinkTarget != "" {
			return errors.New("non-empty symbolic link target on directory entry")
		}
		for name, child := range e.Contents {
			if name == "" {
				return errors.New("empty content name")
			} else if name == "." || name == ".." {
				return errors.New("dot or dot-dot content name")
			} else if strings.IndexByte(name, '/') != -1 {
				return errors.New("content name contains path separator")
			} else if child == nil {
				return errors.New("nil content entry")
			} else if err := child.EnsureValid(); err != nil {
				return err
			}
		}
	case EntryFile:
		if e.Contents != nil {
			return errors.New("non-nil content map on file entry")
		} else if e.LinkTarget != "" {
			return errors.New("non-empty symbolic link target on file entry")
		}
	case EntrySymlink:
		if e.Contents != nil {
			return errors.New("non-nil content map on symbolic link entry")
		} else if e.LinkTarget == "" {
			return errors.New("empty symbolic link target")
		}
	default:
		return errors.New("invalid entry kind")
	}
	return nil
}

// Count returns the number of entries in the hierarchy rooted at e,
// including e itself (an absent entry counts as zero).
func (e *Entry) Count() uint64 {
	if e == nil {
		return 0
	}
	result := uint64(1)
	for _, child := range e.Contents {
		result += child.Count()
	}
	return result
}

// Equal reports whether two entry hierarchies are equivalent. If deep is
// false, only top-level properties are compared and directory contents are
// ignored, matching the teacher's Entry.Equal shallow/deep split.
func (e *Entry) Equal(other *Entry, deep bool) bool {
	if e == other {
		return true
	} else if e == nil || other == nil {
		return false
	}
	if e.Kind != other.Kind {
		return false
	}
	switch e.Kind {
	case EntryFile:
		if !e.File.equal(other.File) {
			return false
		}
	case EntrySymlink:
		if e.LinkTarget != other.LinkTarget || e.LinkTargetIsDir != other.LinkTargetIsDir {
			return false
		}
	}
	if !deep {
		return true
	}
	if len(e.Contents) != len(other.Contents) {
		return false
	}
	for name, child := range e.Contents {
		otherChild, ok := other.Contents[name]
		if !ok || !child.Equal(otherChild, true) {
			return false
		}
	}
	return true
}

// CopyBehavior selects how deeply Copy duplicates a hierarchy, matching the
// teacher's EntryCopyBehavior enum.
type CopyBehavior uint8

const (
	// CopyDeep duplicates the entire hierarchy.
	CopyDeep CopyBehavior = iota
	// CopyShallow duplicates only the top level, reusing child pointers.
	CopyShallow
	// CopySlim duplicates only the top level and excludes the content map
	// entirely (useful for converting a directory entry into a placeholder
	// before overwriting its contents).
	CopySlim
)

// Copy creates a copy of the entry hierarchy according to behavior.
func (e *Entry) Copy(behavior CopyBehavior) *Entry {
	if e == nil {
		return nil
	}
	result := &Entry{
		Kind:            e.Kind,
		File:            e.File,
		LinkTarget:      e.LinkTarget,
		LinkTargetIsDir: e.LinkTargetIsDir,
	}
	if behavior == CopySlim || len(e.Contents) == 0 {
		return result
	}
	result.Contents = make(map[string]*Entry, len(e.Contents))
	if behavior == CopyDeep {
		for name, child := range e.Contents {
			result.Contents[name] = child.Copy(CopyDeep)
		}
	} else {
		for name, child := range e.Contents {
			result.Contents[name] = child
		}
	}
	return result
}

// entryVisitor is invoked once per entry during a walk, receiving the
// relative path at which the entry was found.
type entryVisitor func(path relpath.Path, entry *Entry)

// Walk traverses the hierarchy rooted at e in depth-first, lexicographic
// order (parents before children), following the teacher's Entry.walk.
func (e *Entry) Walk(root relpath.Path, policy relpath.CasePolicy, visitor entryVisitor) {
	e.walk(root, policy, visitor)
}

func (e *Entry) walk(path relpath.Path, policy relpath.CasePolicy, visitor entryVisitor) {
	visitor(path, e)
	if e == nil {
		return
	}
	names := make([]string, 0, len(e.Contents))
	for name := range e.Contents {
		names = append(names, name)
	}
	sortNames(names, policy)
	for _, name := range names {
		e.Contents[name].walk(relpath.Join(path, name), policy, visitor)
	}
}

// sortNames orders names according to policy so that walks are deterministic
// regardless of map iteration order.
func sortNames(names []string, policy relpath.CasePolicy) {
	sort.Slice(names, func(i, j int) bool {
		return relpath.Less(policy, relpath.Path(names[i]), relpath.Path(names[j]))
	})
}

// Lookup returns the entry at the given path within the hierarchy rooted at
// e, or nil if no such entry exists.
func Lookup(root *Entry, path relpath.Path) *Entry {
	current := root
	for _, component := range path.Components() {
		if current == nil || current.Kind != EntryDirectory {
			return nil
		}
		current = current.Contents[component]
	}
	return current
}
