package synctree

import (
	"context"
	"crypto/sha256"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/pathsync/pathsync/pkg/fsutil"
	"github.com/pathsync/pathsync/pkg/progress"
	"github.com/pathsync/pathsync/pkg/relpath"
)

// ErrScanCancelled indicates that a scan was aborted via the supplied
// context, mirroring the teacher's ErrScanCancelled in scan.go. A
// cancellation reported by the Observer is returned as the Observer's own
// error. Either error is wrapped when it arises below the scan root.
var ErrScanCancelled = errors.New("scan cancelled")

// Filter decides whether a path (relative to the scan root) should be
// excluded from the resulting tree. It is evaluated against both files and
// directories; returning true for a directory skips its entire subtree.
type Filter func(path relpath.Path, isDir bool) bool

// NewGlobFilter builds a Filter out of doublestar glob patterns, following
// the "skip patterns" configuration knob described in the spec's folder-pair
// options. Patterns are matched against the root-relative, forward-slash
// path; a leaf-only pattern (no slash) matches the leaf name at any depth.
func NewGlobFilter(patterns []string) Filter {
	compiled := make([]string, len(patterns))
	copy(compiled, patterns)
	return func(path relpath.Path, isDir bool) bool {
		full := path.String()
		leaf := path.Leaf()
		for _, pattern := range compiled {
			if matched, _ := doublestar.Match(pattern, full); matched {
				return true
			}
			if !strings.Contains(pattern, "/") {
				if matched, _ := doublestar.Match(pattern, leaf); matched {
					return true
				}
			}
		}
		return false
	}
}

// Scanner recursively builds an Entry hierarchy from a directory on disk.
// Fields mirror the configuration the teacher's scanner carries (a device-ID
// boundary guard, a Unicode recomposition flag, and a cancellation
// checkpoint), narrowed to what this core's spec actually calls for.
type Scanner struct {
	// Policy records the root's case policy. Scan does not consult it:
	// names are collected into an unordered map, and case folding identity
	// is a Matcher concern (C4), not a scan concern.
	Policy relpath.CasePolicy
	// RecomposeUnicode applies NFC normalization to decomposed file names,
	// following the teacher's handling of HFS+'s NFD-on-disk behavior.
	RecomposeUnicode bool
	// Skip excludes matching paths from the resulting tree entirely. A nil
	// Skip excludes nothing.
	Skip Filter
	// Observer receives progress and cancellation checkpoints. A nil
	// Observer disables both.
	Observer progress.Observer
	// HashContent computes a SHA-256 digest for every regular file
	// encountered, enabling the classifier's ByContent comparison mode. It
	// is disabled by default since it requires reading every file in full.
	HashContent bool

	rootDevice uint64
}

// Scan walks the directory tree rooted at rootPath and returns the
// corresponding Entry hierarchy. rootPath must exist and be a directory; to
// scan a root that may itself be absent, stat it first and treat ENOENT as
// an empty synchronization root per spec §4.1.
func (s *Scanner) Scan(ctx context.Context, rootPath string) (*Entry, error) {
	info, err := fsutil.Lstat(rootPath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to stat scan root")
	}
	if !info.IsDir() {
		return nil, errors.New("scan root is not a directory")
	}
	s.rootDevice = fsutil.VolumeID(info)

	if s.Observer != nil {
		s.Observer.InitPhase(progress.PhaseScan, 0, 0)
	}

	return s.scanDirectory(ctx, rootPath, relpath.Root)
}

func (s *Scanner) checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrScanCancelled
	default:
	}
	if s.Observer != nil {
		if err := s.Observer.RequestUIRefresh(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) scanDirectory(ctx context.Context, absolutePath string, relativePath relpath.Path) (*Entry, error) {
	if err := s.checkCancelled(ctx); err != nil {
		return nil, err
	}

	children, err := fsutil.ReadDirEntries(absolutePath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read directory %q", relativePath)
	}

	contents := make(map[string]*Entry, len(children))
	for _, child := range children {
		if strings.HasPrefix(child.Name, fsutil.TemporaryNamePrefix) {
			continue
		}

		name := child.Name
		if s.RecomposeUnicode {
			name = norm.NFC.String(name)
		}

		childRelative := relpath.Join(relativePath, name)
		childAbsolute := absolutePath + string(os.PathSeparator) + child.Name

		if s.Skip != nil && s.Skip(childRelative, child.IsDir) {
			continue
		}

		var entry *Entry
		var scanErr error
		switch {
		case child.IsLink:
			entry, scanErr = s.scanSymlink(childAbsolute)
		case child.IsDir:
			entry, scanErr = s.scanSubdirectory(ctx, childAbsolute, childRelative)
		default:
			entry, scanErr = s.scanFile(childAbsolute)
		}
		if scanErr != nil {
			return nil, errors.Wrapf(scanErr, "unable to scan %q", childRelative)
		}
		if entry == nil {
			continue
		}
		contents[name] = entry

		if s.Observer != nil {
			s.Observer.OnProcessed(1, 0)
		}
	}

	if len(contents) == 0 {
		contents = nil
	}
	return &Entry{Kind: EntryDirectory, Contents: contents}, nil
}

func (s *Scanner) scanSubdirectory(ctx context.Context, absolutePath string, relativePath relpath.Path) (*Entry, error) {
	info, err := fsutil.Lstat(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if fsutil.VolumeID(info) != s.rootDevice {
		return nil, errors.New("scan crossed filesystem boundary")
	}
	return s.scanDirectory(ctx, absolutePath, relativePath)
}

func (s *Scanner) scanFile(absolutePath string) (*Entry, error) {
	info, err := fsutil.Lstat(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	meta := FileMeta{
		Size:                uint64(info.Size()),
		ModificationTimeUTC: info.ModTime().UTC().Unix(),
		FileID:              fsutil.FileID(info),
	}
	if s.HashContent {
		digest, err := hashFile(absolutePath)
		if err != nil {
			return nil, err
		}
		meta.Digest = digest
	}
	return &Entry{Kind: EntryFile, File: meta}, nil
}

// hashFile computes the SHA-256 digest of a file's contents, following the
// teacher's scanner use of a streaming hash.Hash writer rather than reading
// the whole file into memory.
func hashFile(absolutePath string) ([]byte, error) {
	file, err := os.Open(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	digest := sha256.New()
	buffer := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(digest, file, buffer); err != nil {
		return nil, err
	}
	return digest.Sum(nil), nil
}

// scanSymlink records a symbolic link's target without following it for
// traversal purposes; the scanner never descends through symlinks, so
// cyclic or self-referential links can't send it into unbounded recursion.
// It does, however, resolve the target once to record whether it is a
// directory or a file, since later stages (deletion staging, versioning)
// need that kind without re-resolving a link that may have gone dangling by
// the time they run. A dangling or otherwise unresolvable target is
// recorded as a file link, the more common case.
func (s *Scanner) scanSymlink(absolutePath string) (*Entry, error) {
	target, err := fsutil.ReadLink(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	targetIsDir := false
	if info, statErr := os.Stat(absolutePath); statErr == nil {
		targetIsDir = info.IsDir()
	}
	return &Entry{Kind: EntrySymlink, LinkTarget: target, LinkTargetIsDir: targetIsDir}, nil
}
