package syncexec

import (
	"github.com/pkg/errors"

	"github.com/pathsync/pathsync/pkg/deletion"
	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/relpath"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// runPass1 removes everything this cycle is getting rid of: every OpDelete,
// plus the old content of every "shrinking" OpOverwrite (where the source
// file is smaller than what it's replacing), so that policy-driven salvage
// (recycle bin, versioning) sees the old bytes before anything new lands at
// the same path. Deletes are processed in path order so that a directory's
// removal is attempted before its descendants'; once a directory has
// actually been removed, its descendants' own (redundant) delete entries —
// produced because the comparer always recurses into a changed directory's
// children — are recognized as already satisfied and skipped.
func (e *Executor) runPass1(deletes []direction.SyncOperation, m *model) error {
	sortByPath(deletes)

	var removedDirs []relpath.Path
	for _, op := range deletes {
		if subsumedByRemovedDir(op.Path, removedDirs) {
			if op.Kind == direction.OpDelete {
				m.set(op.Target, op.Path, nil)
			}
			continue
		}

		handler := e.handlerFor(op.Target)
		switch op.Kind {
		case direction.OpDelete:
			ok, err := e.withRetry("delete "+op.Path.String(), func() error {
				return e.removeCurrent(op, handler)
			})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			m.set(op.Target, op.Path, nil)
			if op.Current != nil && op.Current.Kind == synctree.EntryDirectory {
				removedDirs = append(removedDirs, op.Path)
			}
		case direction.OpOverwrite:
			ok, err := e.withRetry("remove previous content of "+op.Path.String(), func() error {
				return e.removeCurrent(op, handler)
			})
			if err != nil {
				return err
			}
			if !ok {
				// Salvage of the old content failed and the user chose to
				// ignore it; the overwrite itself still runs in pass 2
				// against whatever remains at the path.
				continue
			}
		}
	}
	return nil
}

func subsumedByRemovedDir(path relpath.Path, removedDirs []relpath.Path) bool {
	for _, dir := range removedDirs {
		if isStrictDescendant(dir, path) {
			return true
		}
	}
	return false
}

// removeCurrent dispatches to the appropriate deletion.Handler method based
// on what kind of object op.Current describes.
func (e *Executor) removeCurrent(op direction.SyncOperation, handler *deletion.Handler) error {
	if op.Current == nil {
		return errors.Errorf("no existing entry recorded at %q to remove", op.Path)
	}
	progress := e.deletionProgress()
	switch op.Current.Kind {
	case synctree.EntryDirectory:
		return handler.RemoveDir(op.Path, estimatedBytes(op.Current), progress)
	case synctree.EntryFile:
		return handler.RemoveFile(op.Path, estimatedBytes(op.Current), progress)
	case synctree.EntrySymlink:
		return handler.RemoveSymlink(op.Path, symlinkItemKind(op.Current), progress)
	default:
		return errors.Errorf("unsupported entry kind %v for removal at %q", op.Current.Kind, op.Path)
	}
}

// symlinkItemKind reports whether a symlink entry's recorded target kind
// should be staged/versioned as a directory link or a file link.
func symlinkItemKind(e *synctree.Entry) deletion.ItemKind {
	if e != nil && e.LinkTargetIsDir {
		return deletion.LinkToDirectory
	}
	return deletion.LinkToFile
}

func estimatedBytes(e *synctree.Entry) uint64 {
	if e != nil && e.Kind == synctree.EntryFile {
		return e.File.Size
	}
	return 0
}

func (e *Executor) deletionProgress() deletion.ProgressFunc {
	if e.observer == nil {
		return nil
	}
	return func(actual uint64) {
		e.observer.OnProcessed(1, actual)
	}
}
