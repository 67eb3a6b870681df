// Package comparelines implements the matcher and classifier (C4/C5): given
// two already-scanned Entry trees, it produces one CompareLine per distinct
// path across both sides and classifies the relationship between the two
// sides at that path. The recursive union-of-children walk follows the
// teacher's differ in pkg/synchronization/core/diff.go, generalized from
// producing a one-sided change list into producing a two-sided comparison
// result per spec §4.4/§4.5.
package comparelines

import (
	"sort"
	"time"

	"github.com/pathsync/pathsync/pkg/relpath"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// ComparisonResult classifies the relationship between the left and right
// entries at a single path.
type ComparisonResult uint8

const (
	// Equal indicates both sides are absent, or both sides are equivalent
	// under the active classification mode.
	Equal ComparisonResult = iota
	// LeftOnly indicates content exists on the left side but not the right.
	LeftOnly
	// RightOnly indicates content exists on the right side but not the left.
	RightOnly
	// LeftNewer indicates both sides have content of the same kind, and the
	// left side's modification time is strictly newer.
	LeftNewer
	// RightNewer indicates both sides have content of the same kind, and the
	// right side's modification time is strictly newer.
	RightNewer
	// Different indicates both sides have content but it can't be ordered by
	// time: the entry kinds themselves differ (e.g. a file on one side and a
	// directory on the other), or two symbolic links point at different
	// targets. Two files are never Different; a size or digest mismatch
	// within tolerance is a Conflict.
	Different
	// Conflict indicates a classification that direction policy can't
	// safely resolve without more context (see ConflictReason).
	Conflict
)

// String implements fmt.Stringer.
func (r ComparisonResult) String() string {
	switch r {
	case Equal:
		return "equal"
	case LeftOnly:
		return "left-only"
	case RightOnly:
		return "right-only"
	case LeftNewer:
		return "left-newer"
	case RightNewer:
		return "right-newer"
	case Different:
		return "different"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Mode selects how two file entries with differing metadata are compared.
type Mode uint8

const (
	// ByTimeAndSize classifies files using modification time and size alone,
	// never reading file content. This is the default and matches the
	// teacher's standard (non-content-hash) comparison path.
	ByTimeAndSize Mode = iota
	// ByContent additionally consults the entries' content digests (if
	// present, see synctree.Scanner.HashContent) when sizes match and mtimes
	// fall within tolerance: differing digests there make the line a
	// Conflict. Files whose mtimes lie outside tolerance are still ordered by
	// time, whatever their digests.
	ByContent
)

// CompareLine is one row of the comparison between two synchronization
// roots at a single path.
type CompareLine struct {
	Path           relpath.Path
	Left           *synctree.Entry
	Right          *synctree.Entry
	Result         ComparisonResult
	ConflictReason string
}

// DefaultModificationTimeTolerance is the mtime epsilon applied when a
// folder pair doesn't configure one explicitly, absorbing the whole-second
// rounding FAT and some NTFS drivers apply to modification times.
const DefaultModificationTimeTolerance = 2 * time.Second

// Compare walks the union of left and right's trees and returns one
// CompareLine per distinct path, in lexicographic (parent-before-child)
// order under policy. tolerance bounds how far apart two mtimes may be and
// still be considered the same instant; a zero tolerance is replaced with
// DefaultModificationTimeTolerance.
func Compare(left, right *synctree.Entry, policy relpath.CasePolicy, mode Mode, tolerance time.Duration) []CompareLine {
	if tolerance == 0 {
		tolerance = DefaultModificationTimeTolerance
	}
	c := &comparer{policy: policy, mode: mode, toleranceSeconds: int64(tolerance / time.Second)}
	c.walk(relpath.Root, left, right)
	return c.lines
}

type comparer struct {
	policy           relpath.CasePolicy
	mode             Mode
	toleranceSeconds int64
	lines            []CompareLine
}

func (c *comparer) walk(path relpath.Path, left, right *synctree.Entry) {
	result, reason := classify(left, right, c.mode, c.toleranceSeconds)
	c.lines = append(c.lines, CompareLine{
		Path:           path,
		Left:           left,
		Right:          right,
		Result:         result,
		ConflictReason: reason,
	})

	// Only directories (on either side) can have children worth descending
	// into; a LeftOnly/RightOnly/Different classification at a directory
	// still means we should recurse, since the other side's tree might be a
	// directory too with its own independent contents (e.g. one side has an
	// extra file the other lacks, which only shows up a level down).
	leftIsDir := left != nil && left.Kind == synctree.EntryDirectory
	rightIsDir := right != nil && right.Kind == synctree.EntryDirectory
	if !leftIsDir && !rightIsDir {
		return
	}

	var leftContents, rightContents map[string]*synctree.Entry
	if leftIsDir {
		leftContents = left.Contents
	}
	if rightIsDir {
		rightContents = right.Contents
	}

	leftByFold := indexByFold(leftContents, c.policy)
	rightByFold := indexByFold(rightContents, c.policy)

	for _, name := range unionNames(leftContents, rightContents, c.policy) {
		key := relpath.Fold(c.policy, name)
		c.walk(relpath.Join(path, name), leftByFold[key], rightByFold[key])
	}
}

// indexByFold builds a lookup from a content map keyed by each name's folded
// form under policy, so that a canonical union name picked from one side can
// retrieve its counterpart on the other side even when the two differ in
// case under a case-insensitive policy.
func indexByFold(contents map[string]*synctree.Entry, policy relpath.CasePolicy) map[string]*synctree.Entry {
	if len(contents) == 0 {
		return nil
	}
	result := make(map[string]*synctree.Entry, len(contents))
	for name, entry := range contents {
		result[relpath.Fold(policy, name)] = entry
	}
	return result
}

// unionNames returns the sorted union of keys across both content maps,
// matching names case-policy-aware so that e.g. "Foo" on one side and "foo"
// on the other are treated as the same entry under a case-insensitive
// policy, following the teacher's nameUnion helper in diff.go generalized
// with an explicit policy.
func unionNames(a, b map[string]*synctree.Entry, policy relpath.CasePolicy) []string {
	seen := make(map[string]bool, len(a)+len(b))
	names := make([]string, 0, len(a)+len(b))
	add := func(name string) {
		key := relpath.Fold(policy, name)
		if seen[key] {
			return
		}
		seen[key] = true
		names = append(names, name)
	}
	for name := range a {
		add(name)
	}
	for name := range b {
		add(name)
	}
	sort.Slice(names, func(i, j int) bool {
		return relpath.Less(policy, relpath.Path(names[i]), relpath.Path(names[j]))
	})
	return names
}

func classify(left, right *synctree.Entry, mode Mode, toleranceSeconds int64) (ComparisonResult, string) {
	if left == nil && right == nil {
		return Equal, ""
	}
	if left == nil {
		return RightOnly, ""
	}
	if right == nil {
		return LeftOnly, ""
	}
	if left.Kind != right.Kind {
		return Different, ""
	}

	switch left.Kind {
	case synctree.EntryDirectory:
		return Equal, ""
	case synctree.EntrySymlink:
		if left.LinkTarget == right.LinkTarget {
			return Equal, ""
		}
		return Different, ""
	case synctree.EntryFile:
		return classifyFiles(left.File, right.File, mode, toleranceSeconds)
	default:
		return Conflict, "unrecognized entry kind"
	}
}

// classifyFiles implements the ByTimeAndSize classification rule: mtimes
// within toleranceSeconds of each other are treated as the same instant, so
// that a size match there is Equal and a size mismatch there is a Conflict
// rather than an orderable difference. Outside tolerance, whichever side is
// numerically larger wins as the newer side.
func classifyFiles(left, right synctree.FileMeta, mode Mode, toleranceSeconds int64) (ComparisonResult, string) {
	delta := left.ModificationTimeUTC - right.ModificationTimeUTC
	if delta < 0 {
		delta = -delta
	}
	withinTolerance := delta <= toleranceSeconds

	if withinTolerance {
		if left.Size != right.Size {
			return Conflict, "same time, different size"
		}
		if mode == ByContent && left.Digest != nil && right.Digest != nil {
			if !bytesEqual(left.Digest, right.Digest) {
				return Conflict, "identical size and modification time but differing content digest"
			}
		}
		return Equal, ""
	}
	if left.ModificationTimeUTC > right.ModificationTimeUTC {
		return LeftNewer, ""
	}
	return RightNewer, ""
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
