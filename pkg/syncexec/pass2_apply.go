package syncexec

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/fsutil"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// runPass2 applies everything left: creates, the copy half of overwrites
// (whose old content pass 1 already cleared out), metadata-only updates,
// and moves (both untouched and two-step-staged). Parent directories are
// created lazily and idempotently via fsutil.MakeDir, which already no-ops
// on an existing directory and fails clearly if some other file occupies
// the name; a failed parent naturally fails every operation under it in
// turn, each reported through the observer independently rather than
// aborting the whole pass.
func (e *Executor) runPass2(operations []direction.SyncOperation, m *model) error {
	for _, op := range operations {
		switch op.Kind {
		case direction.OpCreate:
			ok, err := e.withRetry("create "+op.Path.String(), func() error {
				return e.create(op)
			})
			if err != nil {
				return err
			}
			if ok {
				m.set(op.Target, op.Path, op.Source)
				e.reportObject()
			}
		case direction.OpOverwrite:
			ok, err := e.withRetry("overwrite "+op.Path.String(), func() error {
				return e.overwrite(op)
			})
			if err != nil {
				return err
			}
			if ok {
				m.set(op.Target, op.Path, op.Source)
				e.reportObject()
			}
		case direction.OpCopyMeta:
			ok, err := e.withRetry("update metadata of "+op.Path.String(), func() error {
				return e.copyMeta(op)
			})
			if err != nil {
				return err
			}
			if ok {
				m.set(op.Target, op.Path, op.Source)
				e.reportObject()
			}
		case direction.OpMove:
			ok, err := e.withRetry("move to "+op.ToPath.String(), func() error {
				return e.move(op)
			})
			if err != nil {
				return err
			}
			if ok {
				m.set(op.Target, op.FromPath, nil)
				m.set(op.Target, op.ToPath, op.Source)
				e.reportObject()
			}
		}
	}
	return nil
}

func (e *Executor) reportObject() {
	if e.observer != nil {
		e.observer.OnProcessed(1, 0)
	}
}

func (e *Executor) create(op direction.SyncOperation) error {
	targetAbs := e.roots.absolute(op.Target, op.Path)
	if err := fsutil.MakeDir(filepath.Dir(targetAbs)); err != nil {
		return errors.Wrap(err, "unable to create parent directory")
	}

	sourceAbs := e.roots.absolute(otherSide(op.Target), op.Path)
	switch op.Source.Kind {
	case synctree.EntryDirectory:
		return fsutil.MakeDir(targetAbs)
	case synctree.EntryFile:
		return e.copyFilePreservingPermissions(sourceAbs, targetAbs)
	case synctree.EntrySymlink:
		return fsutil.CopySymlink(sourceAbs, targetAbs)
	default:
		return errors.Errorf("unsupported entry kind %v for create", op.Source.Kind)
	}
}

func (e *Executor) overwrite(op direction.SyncOperation) error {
	if !isShrinking(op) {
		if err := e.removeCurrent(op, e.handlerFor(op.Target)); err != nil {
			return errors.Wrap(err, "unable to remove previous content")
		}
	}

	targetAbs := e.roots.absolute(op.Target, op.Path)
	sourceAbs := e.roots.absolute(otherSide(op.Target), op.Path)
	switch op.Source.Kind {
	case synctree.EntryDirectory:
		return fsutil.MakeDir(targetAbs)
	case synctree.EntryFile:
		return e.copyFilePreservingPermissions(sourceAbs, targetAbs)
	case synctree.EntrySymlink:
		return fsutil.CopySymlink(sourceAbs, targetAbs)
	default:
		return errors.Errorf("unsupported entry kind %v for overwrite", op.Source.Kind)
	}
}

// copyFilePreservingPermissions copies sourcePath's content and permission
// bits to targetPath, matching the spec's copy_file(copy_permissions=true)
// contract.
func (e *Executor) copyFilePreservingPermissions(sourcePath, targetPath string) error {
	info, err := fsutil.Lstat(sourcePath)
	if err != nil {
		return err
	}
	return fsutil.CopyFile(sourcePath, targetPath, info.Mode().Perm(), e.cancelled, e.copyProgress())
}

func (e *Executor) copyMeta(op direction.SyncOperation) error {
	targetAbs := e.roots.absolute(op.Target, op.Path)
	return fsutil.SetModificationTime(targetAbs, op.Source.File.ModificationTimeUTC)
}

func (e *Executor) move(op direction.SyncOperation) error {
	fromAbs := e.roots.absolute(op.Target, op.FromPath)
	toAbs := e.roots.absolute(op.Target, op.ToPath)

	if err := fsutil.MakeDir(filepath.Dir(toAbs)); err != nil {
		return errors.Wrap(err, "unable to create parent directory")
	}

	err := fsutil.Rename(fromAbs, toAbs)
	if err == nil {
		return nil
	}
	if _, crossVolume := err.(*fsutil.CrossVolume); !crossVolume {
		return err
	}

	if _, copyErr := fsutil.CopyRecursive(fromAbs, toAbs); copyErr != nil {
		return errors.Wrap(copyErr, "unable to copy item across volumes during move")
	}
	if op.Source != nil && op.Source.Kind == synctree.EntryDirectory {
		return fsutil.RemoveDirRecursive(fromAbs)
	}
	return fsutil.RemoveFile(fromAbs)
}

func (e *Executor) copyProgress() fsutil.ProgressFunc {
	if e.observer == nil {
		return nil
	}
	return func(delta uint64) {
		e.observer.OnProcessed(0, delta)
	}
}

func otherSide(side direction.Side) direction.Side {
	if side == direction.Left {
		return direction.Right
	}
	return direction.Left
}
