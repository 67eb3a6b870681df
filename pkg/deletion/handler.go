package deletion

import (
	"path/filepath"
	"time"

	"github.com/eknkc/basex"
	"github.com/pkg/errors"

	"github.com/pathsync/pathsync/pkg/fsutil"
	"github.com/pathsync/pathsync/pkg/random"
	"github.com/pathsync/pathsync/pkg/relpath"
)

var errRecycleUnavailable = errors.New("recycle bin is not available on this platform")

// stagingNameAlphabet matches the teacher's Base62Alphabet
// (pkg/encoding/base62.go), reused here via the basex encoding it wraps so
// that staging directory names are short, filesystem-safe, and effectively
// collision-free without needing a UUID's 36 characters.
const stagingNameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var stagingEncoding = func() *basex.Encoding {
	encoding, err := basex.NewEncoding(stagingNameAlphabet)
	if err != nil {
		panic("unable to initialize deletion staging name encoder")
	}
	return encoding
}()

// ItemKind identifies what remove_symlink is being asked to remove, since a
// symlink's target kind (file vs. directory, on platforms that distinguish
// the two) can affect how it must be staged or versioned.
type ItemKind uint8

const (
	// LinkToFile is a symbolic link whose target is (or was) a file.
	LinkToFile ItemKind = iota
	// LinkToDirectory is a symbolic link whose target is (or was) a
	// directory.
	LinkToDirectory
)

// ProgressFunc reports bytes actually moved or removed for a single item,
// which may diverge from an estimate supplied up front (e.g. because a
// cross-volume versioning copy had to read the whole file).
type ProgressFunc func(actualBytes uint64)

// Handler implements one (side, base root)'s deletion policy. It is
// constructed once per folder pair per side, fed every delete the resolved
// operations require, and flushed with Commit once all of them have been
// issued.
type Handler struct {
	baseRoot      string
	policy        Policy
	recycleBin    RecycleBinProvider
	runTimestamp  string
	stagingDir    string
	fellBackToPermanent bool
}

// NewHandler constructs a deletion handler rooted at baseRoot. If policy is
// RecycleBin but provider reports it unavailable, the handler silently
// degrades to Permanent deletion and FellBackToPermanent reports true.
func NewHandler(baseRoot string, policy Policy, provider RecycleBinProvider) *Handler {
	if provider == nil {
		provider = DefaultRecycleBinProvider()
	}
	h := &Handler{
		baseRoot:     baseRoot,
		policy:       policy,
		recycleBin:   provider,
		runTimestamp: runTimestamp(time.Now()),
	}
	if policy.Kind == RecycleBin && !provider.Available() {
		h.policy = Policy{Kind: Permanent}
		h.fellBackToPermanent = true
	}
	return h
}

// FellBackToPermanent reports whether this handler was asked for RecycleBin
// but silently degraded to Permanent because the provider was unavailable.
func (h *Handler) FellBackToPermanent() bool {
	return h.fellBackToPermanent
}

// RemoveFile removes a single file at relPath according to the handler's
// policy, invoking onProgress with the number of bytes actually moved once
// the operation completes (expectedBytes for Permanent).
func (h *Handler) RemoveFile(relPath relpath.Path, expectedBytes uint64, onProgress ProgressFunc) error {
	return h.remove(relPath, false, expectedBytes, onProgress)
}

// RemoveSymlink removes a single symbolic link at relPath. kind is not
// consulted: every policy removes the link the same way whatever its target
// kind.
func (h *Handler) RemoveSymlink(relPath relpath.Path, kind ItemKind, onProgress ProgressFunc) error {
	return h.remove(relPath, false, 0, onProgress)
}

// RemoveDir removes a directory at relPath, recursively. Permanent deletion
// removes the whole tree in one call and invokes onProgress once with
// expectedBytes; it does not report progress per removed descendant.
// RecycleBin and Versioning move the directory as a single unit and report
// its aggregate size once.
func (h *Handler) RemoveDir(relPath relpath.Path, expectedBytes uint64, onProgress ProgressFunc) error {
	return h.remove(relPath, true, expectedBytes, onProgress)
}

func (h *Handler) remove(relPath relpath.Path, isDir bool, expectedBytes uint64, onProgress ProgressFunc) error {
	sourcePath := filepath.Join(h.baseRoot, filepath.FromSlash(string(relPath)))

	switch h.policy.Kind {
	case Permanent:
		return h.removePermanent(sourcePath, isDir, expectedBytes, onProgress)
	case RecycleBin:
		return h.stageForRecycle(sourcePath, relPath, expectedBytes, onProgress)
	case Versioning:
		return h.moveToVersioningFolder(sourcePath, relPath, isDir, expectedBytes, onProgress)
	default:
		return errors.Errorf("unknown deletion policy kind %v", h.policy.Kind)
	}
}

func (h *Handler) removePermanent(sourcePath string, isDir bool, expectedBytes uint64, onProgress ProgressFunc) error {
	var err error
	if isDir {
		err = fsutil.RemoveDirRecursive(sourcePath)
	} else {
		err = fsutil.RemoveFile(sourcePath)
	}
	if err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(expectedBytes)
	}
	return nil
}

// stageForRecycle moves sourcePath into the handler's staging directory,
// creating the staging directory under a short random name on first use. If
// staging fails (e.g. the item is on a different volume than baseRoot, so
// the rename can't succeed), the item is recycled individually instead,
// matching the spec's documented fallback.
func (h *Handler) stageForRecycle(sourcePath string, relPath relpath.Path, expectedBytes uint64, onProgress ProgressFunc) error {
	if err := h.ensureStagingDir(); err != nil {
		if err := h.recycleBin.Recycle(sourcePath); err != nil {
			return errors.Wrap(err, "unable to recycle item individually after staging failure")
		}
		if onProgress != nil {
			onProgress(expectedBytes)
		}
		return nil
	}

	destination := filepath.Join(h.stagingDir, filepath.FromSlash(string(relPath)))
	if err := fsutil.MakeDir(filepath.Dir(destination)); err != nil {
		return errors.Wrap(err, "unable to create staging subdirectory")
	}
	if err := fsutil.Rename(sourcePath, destination); err != nil {
		if err := h.recycleBin.Recycle(sourcePath); err != nil {
			return errors.Wrap(err, "unable to recycle item individually after staging rename failure")
		}
	}
	if onProgress != nil {
		onProgress(expectedBytes)
	}
	return nil
}

func (h *Handler) ensureStagingDir() error {
	if h.stagingDir != "" {
		return nil
	}
	name, err := randomStagingName()
	if err != nil {
		return err
	}
	dir := filepath.Join(h.baseRoot, fsutil.TemporaryNamePrefix+"recycle-"+name)
	if err := fsutil.MakeDir(dir); err != nil {
		return err
	}
	h.stagingDir = dir
	return nil
}

func randomStagingName() (string, error) {
	raw, err := random.New(16)
	if err != nil {
		return "", errors.Wrap(err, "unable to generate staging directory name")
	}
	return stagingEncoding.Encode(raw), nil
}

// moveToVersioningFolder relocates the item into the configured versioning
// folder under the policy's Style layout, falling back to a copy-then-delete
// when the rename crosses a volume boundary.
func (h *Handler) moveToVersioningFolder(sourcePath string, relPath relpath.Path, isDir bool, expectedBytes uint64, onProgress ProgressFunc) error {
	destination := h.versionedDestination(relPath)
	if err := fsutil.MakeDir(filepath.Dir(destination)); err != nil {
		return errors.Wrap(err, "unable to create versioning destination directory")
	}

	err := fsutil.Rename(sourcePath, destination)
	if err == nil {
		if onProgress != nil {
			onProgress(expectedBytes)
		}
		return nil
	}
	if _, crossVolume := err.(*fsutil.CrossVolume); !crossVolume {
		return errors.Wrap(err, "unable to move item into versioning folder")
	}

	// Cross-volume: fall back to copy-then-delete, reporting the actual
	// number of bytes moved rather than the pre-comparison estimate.
	actual, copyErr := fsutil.CopyRecursive(sourcePath, destination)
	if copyErr != nil {
		return errors.Wrap(copyErr, "unable to copy item into versioning folder")
	}
	var removeErr error
	if isDir {
		removeErr = fsutil.RemoveDirRecursive(sourcePath)
	} else {
		removeErr = fsutil.RemoveFile(sourcePath)
	}
	if removeErr != nil {
		return errors.Wrap(removeErr, "unable to remove source after versioning copy")
	}
	if onProgress != nil {
		onProgress(actual)
	}
	return nil
}

// versionedDestination computes the path at which relPath's content lands
// inside the versioning folder, per the three Style layouts fixed by the
// specification.
func (h *Handler) versionedDestination(relPath relpath.Path) string {
	slashPath := filepath.FromSlash(string(relPath))
	switch h.policy.VersionStyle {
	case TimeStampFolder:
		return filepath.Join(h.policy.Folder, h.runTimestamp, slashPath)
	case TimeStampFile:
		dir := filepath.Dir(slashPath)
		ext := filepath.Ext(slashPath)
		stem := relPath.Leaf()
		stem = stem[:len(stem)-len(ext)]
		name := stem + " " + h.runTimestamp + ext
		if dir == "." {
			return filepath.Join(h.policy.Folder, name)
		}
		return filepath.Join(h.policy.Folder, dir, name)
	default: // Replace
		return filepath.Join(h.policy.Folder, slashPath)
	}
}

// Commit flushes any batched recycle-bin staging, issuing one bulk recycle
// call for everything accumulated since construction. It is a no-op for
// Permanent and Versioning, which apply their effect immediately per item.
func (h *Handler) Commit() error {
	if h.policy.Kind != RecycleBin || h.stagingDir == "" {
		return nil
	}
	staged := h.stagingDir
	h.stagingDir = ""
	return h.recycleBin.Recycle(staged)
}
