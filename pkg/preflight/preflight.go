// Package preflight implements the pre-flight checks (C12): a battery of
// warnings and fatal guards the orchestrator runs for each folder pair
// after direction resolution and before the sync executor touches the
// filesystem. There is no direct teacher equivalent — mutagen's continuous
// replication model never pauses to ask "does this batch look safe?" the
// way a one-shot/scheduled sync does — so these checks are built fresh,
// following the teacher's convention of returning named, inspectable
// results rather than formatted strings the caller has to parse back
// apart (c.f. Entry.EnsureValid's named error sentinels in
// pkg/synctree/entry.go).
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pathsync/pathsync/pkg/deletion"
	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/fsutil"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// Severity distinguishes a dismissible warning from a check that must skip
// the folder pair entirely.
type Severity uint8

const (
	// SeverityWarning is reported via the observer's ReportWarning and does
	// not prevent the pair from syncing.
	SeverityWarning Severity = iota
	// SeverityFatal is reported via ReportFatalError; the orchestrator must
	// skip this pair's sync executor invocation.
	SeverityFatal
)

// Result is one finding from a single check.
type Result struct {
	Severity Severity
	Check    string
	Message  string
}

// Fatal reports whether this result should abort the pair.
func (r Result) Fatal() bool {
	return r.Severity == SeverityFatal
}

// HasFatal reports whether any result in results is fatal.
func HasFatal(results []Result) bool {
	for _, r := range results {
		if r.Fatal() {
			return true
		}
	}
	return false
}

// Pair carries the minimal per-folder-pair configuration the checks need.
// It deliberately doesn't depend on pkg/orchestrator's own folder-pair type
// so this package has no import cycle back to its caller.
type Pair struct {
	Name        string
	LeftRoot    string
	RightRoot   string
	LeftPolicy  deletion.Policy
	RightPolicy deletion.Policy
}

func (p Pair) rootFor(side direction.Side) string {
	if side == direction.Left {
		return p.LeftRoot
	}
	return p.RightRoot
}

func (p Pair) policyFor(side direction.Side) deletion.Policy {
	if side == direction.Left {
		return p.LeftPolicy
	}
	return p.RightPolicy
}

func otherSide(side direction.Side) direction.Side {
	if side == direction.Left {
		return direction.Right
	}
	return direction.Left
}

// Run evaluates every check for pairs[index] against its already-resolved
// operations. recycleBin is consulted for check 4; a nil value defaults to
// deletion.DefaultRecycleBinProvider().
func Run(index int, pairs []Pair, operations []direction.SyncOperation, recycleBin deletion.RecycleBinProvider) []Result {
	if recycleBin == nil {
		recycleBin = deletion.DefaultRecycleBinProvider()
	}
	pair := pairs[index]

	var results []Result
	results = append(results, checkSourceMissingWithDeletions(pair, operations)...)
	results = append(results, checkSignificantDifference(operations)...)
	results = append(results, checkInsufficientFreeSpace(pair, operations)...)
	results = append(results, checkRecycleBinUnavailable(pair, recycleBin)...)
	results = append(results, checkOverlappingPairs(index, pairs)...)
	results = append(results, checkMandatoryFields(pair, operations)...)
	results = append(results, checkVersioningFolderInsideRoot(pair)...)
	return results
}

// checkSourceMissingWithDeletions is spec §4.11 check 1: if a side's root
// is absent on disk yet every scheduled operation against the opposite
// side is a plain delete, the "deletions" are really just an artifact of
// the source having vanished (an unmounted share, a disconnected drive)
// and must not be allowed to wipe out the other side.
func checkSourceMissingWithDeletions(pair Pair, operations []direction.SyncOperation) []Result {
	var results []Result
	for _, missingSide := range []direction.Side{direction.Left, direction.Right} {
		if pathExists(pair.rootFor(missingSide)) {
			continue
		}
		target := otherSide(missingSide)
		sawDelete, sawOther := false, false
		for _, op := range operations {
			if op.Target != target {
				continue
			}
			switch op.Kind {
			case direction.OpDelete:
				sawDelete = true
			case direction.OpUnresolvedConflict:
			default:
				sawOther = true
			}
		}
		if sawDelete && !sawOther {
			results = append(results, Result{
				Severity: SeverityFatal,
				Check:    "source-missing-with-deletions",
				Message:  fmt.Sprintf("%s root is missing and every pending change is a deletion; skipping to avoid wiping the other side", sideName(missingSide)),
			})
		}
	}
	return results
}

// checkSignificantDifference is spec §4.11 check 2.
func checkSignificantDifference(operations []direction.SyncOperation) []Result {
	total := len(operations)
	if total < 10 {
		return nil
	}
	var createOrDelete int
	for _, op := range operations {
		if op.Kind == direction.OpCreate || op.Kind == direction.OpDelete {
			createOrDelete++
		}
	}
	if float64(createOrDelete) < 0.5*float64(total) {
		return nil
	}
	return []Result{{
		Severity: SeverityWarning,
		Check:    "significant-difference",
		Message:  fmt.Sprintf("%d of %d entries are creates or deletes; double-check that neither root was moved or emptied by mistake", createOrDelete, total),
	}}
}

// checkInsufficientFreeSpace is spec §4.11 check 3: the net bytes a side
// will gain (new/growing content minus what deletions free, per
// Policy.FreesSpace called as if the versioning folder were on another
// volume, so Versioning deletions are always credited) must not exceed its
// free space.
func checkInsufficientFreeSpace(pair Pair, operations []direction.SyncOperation) []Result {
	var results []Result
	for _, side := range []direction.Side{direction.Left, direction.Right} {
		root := pair.rootFor(side)
		if root == "" {
			continue
		}
		netBytes := netBytesFor(side, pair.policyFor(side), operations)
		if netBytes <= 0 {
			continue
		}
		free, err := freeSpace(root)
		if err != nil {
			continue
		}
		if uint64(netBytes) > free {
			results = append(results, Result{
				Severity: SeverityWarning,
				Check:    "insufficient-free-space",
				Message: fmt.Sprintf("%s needs roughly %s more but only %s is free",
					sideName(side), humanize.Bytes(uint64(netBytes)), humanize.Bytes(free)),
			})
		}
	}
	return results
}

func netBytesFor(side direction.Side, policy deletion.Policy, operations []direction.SyncOperation) int64 {
	var net int64
	for _, op := range operations {
		if op.Target != side {
			continue
		}
		switch op.Kind {
		case direction.OpCreate:
			net += int64(fileSize(op.Source))
		case direction.OpOverwrite:
			net += int64(fileSize(op.Source)) - int64(fileSize(op.Current))
		case direction.OpDelete:
			if policy.FreesSpace(false) {
				net -= int64(fileSize(op.Current))
			}
		}
	}
	return net
}

// checkRecycleBinUnavailable is spec §4.11 check 4.
func checkRecycleBinUnavailable(pair Pair, recycleBin deletion.RecycleBinProvider) []Result {
	var results []Result
	for _, side := range []direction.Side{direction.Left, direction.Right} {
		policy := pair.policyFor(side)
		if policy.Kind == deletion.RecycleBin && !recycleBin.Available() {
			results = append(results, Result{
				Severity: SeverityWarning,
				Check:    "recycle-bin-unavailable",
				Message:  fmt.Sprintf("%s has no recycle bin available on this platform; deletions will be permanent", sideName(side)),
			})
		}
	}
	return results
}

// checkOverlappingPairs is spec §4.11 check 5: warn if this pair's roots
// overlap (one contains or equals the other) with any other configured
// pair's roots, since two pairs touching the same subtree concurrently
// can race.
func checkOverlappingPairs(index int, pairs []Pair) []Result {
	var results []Result
	pair := pairs[index]
	for otherIndex, other := range pairs {
		if otherIndex == index {
			continue
		}
		for _, a := range []string{pair.LeftRoot, pair.RightRoot} {
			for _, b := range []string{other.LeftRoot, other.RightRoot} {
				if a == "" || b == "" {
					continue
				}
				if pathsOverlap(a, b) {
					results = append(results, Result{
						Severity: SeverityWarning,
						Check:    "overlapping-folder-pairs",
						Message:  fmt.Sprintf("%q overlaps with a root used by folder pair %q; running both may race", a, pairNameOrIndex(other, otherIndex)),
					})
				}
			}
		}
	}
	return results
}

func pairNameOrIndex(pair Pair, index int) string {
	if pair.Name != "" {
		return pair.Name
	}
	return fmt.Sprintf("#%d", index)
}

// checkMandatoryFields is spec §4.11 check 6.
func checkMandatoryFields(pair Pair, operations []direction.SyncOperation) []Result {
	var results []Result
	for _, side := range []direction.Side{direction.Left, direction.Right} {
		if pair.rootFor(side) != "" {
			continue
		}
		for _, op := range operations {
			if op.Target == side && op.Kind != direction.OpUnresolvedConflict {
				results = append(results, Result{
					Severity: SeverityFatal,
					Check:    "mandatory-field-empty",
					Message:  fmt.Sprintf("%s target path is empty but writes are scheduled against it", sideName(side)),
				})
				break
			}
		}
	}
	for _, side := range []direction.Side{direction.Left, direction.Right} {
		policy := pair.policyFor(side)
		if policy.Kind == deletion.Versioning && policy.Folder == "" {
			results = append(results, Result{
				Severity: SeverityFatal,
				Check:    "mandatory-field-empty",
				Message:  fmt.Sprintf("%s uses the Versioning deletion policy but has no versioning folder configured", sideName(side)),
			})
		}
	}
	return results
}

// checkVersioningFolderInsideRoot is the supplemented check from Open
// Question #3: a versioning folder nested inside either synchronization
// root would have its own output rescanned (and potentially versioned
// again) on the very next cycle.
func checkVersioningFolderInsideRoot(pair Pair) []Result {
	var results []Result
	for _, side := range []direction.Side{direction.Left, direction.Right} {
		policy := pair.policyFor(side)
		if policy.Kind != deletion.Versioning || policy.Folder == "" {
			continue
		}
		for _, rootSide := range []direction.Side{direction.Left, direction.Right} {
			root := pair.rootFor(rootSide)
			if root == "" {
				continue
			}
			if pathsOverlap(policy.Folder, root) {
				results = append(results, Result{
					Severity: SeverityFatal,
					Check:    "versioning-folder-inside-root",
					Message:  fmt.Sprintf("%s's versioning folder %q lies inside the %s synchronization root", sideName(side), policy.Folder, sideName(rootSide)),
				})
			}
		}
	}
	return results
}

func fileSize(e *synctree.Entry) uint64 {
	if e == nil || e.Kind != synctree.EntryFile {
		return 0
	}
	return e.File.Size
}

func pathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func freeSpace(path string) (uint64, error) {
	return fsutil.CachedFreeSpace(path)
}

func pathsOverlap(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	aSep, bSep := a+string(filepath.Separator), b+string(filepath.Separator)
	return strings.HasPrefix(bSep, aSep) || strings.HasPrefix(aSep, bSep)
}

func sideName(side direction.Side) string {
	if side == direction.Left {
		return "left"
	}
	return "right"
}
