package syncexec

import (
	"encoding/hex"

	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/fsutil"
	"github.com/pathsync/pathsync/pkg/random"
	"github.com/pathsync/pathsync/pkg/relpath"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// runPass0 resolves every OpMove into either a direct move (safe to run in
// pass 2 unchanged) or a two-step move whose FromPath has already been
// relocated to a unique temporary name, so that pass 2 never has to race a
// move against the deletion or creation of whatever currently sits at its
// source path. Moves that can't be staged at all (e.g. the rename itself
// fails) degrade to an ordinary create-at-destination plus delete-at-source
// pair, folded into resolved and extraDeletes respectively.
func (e *Executor) runPass0(moves, deletes, rest []direction.SyncOperation, m *model) (resolved []direction.SyncOperation, extraDeletes []direction.SyncOperation, err error) {
	if len(moves) == 0 {
		return nil, nil, nil
	}

	deletePaths := make(map[direction.Side][]relpath.Path)
	for _, op := range deletes {
		if op.Kind == direction.OpDelete {
			deletePaths[op.Target] = append(deletePaths[op.Target], op.Path)
		}
	}

	claimed := make(map[direction.Side]map[relpath.Path]bool)
	claim := func(side direction.Side, path relpath.Path) {
		if claimed[side] == nil {
			claimed[side] = make(map[relpath.Path]bool)
		}
		claimed[side][path] = true
	}
	for _, op := range rest {
		claim(op.Target, op.Path)
	}
	for _, op := range moves {
		claim(op.Target, op.ToPath)
	}

	for _, op := range moves {
		if !needsTwoStep(op, deletePaths[op.Target], claimed[op.Target]) {
			resolved = append(resolved, op)
			continue
		}

		tempPath, stageErr := e.stageMove(op)
		if stageErr != nil {
			// Can't get the source out of the way; fall back to an
			// ordinary copy at the destination and a separate delete of
			// the (untouched) source.
			resolved = append(resolved, direction.SyncOperation{
				Kind:   direction.OpCreate,
				Target: op.Target,
				Path:   op.ToPath,
				Source: op.Source,
			})
			extraDeletes = append(extraDeletes, direction.SyncOperation{
				Kind:    direction.OpDelete,
				Target:  op.Target,
				Path:    op.FromPath,
				Current: lookupCurrent(m, op.Target, op.FromPath),
			})
			continue
		}

		resolved = append(resolved, direction.SyncOperation{
			Kind:     direction.OpMove,
			Target:   op.Target,
			FromPath: tempPath,
			ToPath:   op.ToPath,
			Source:   op.Source,
		})
	}

	return resolved, extraDeletes, nil
}

// needsTwoStep reports whether op's FromPath must be relocated before pass 2
// runs: either because it (or a directory containing it) is itself being
// deleted this cycle, or because some other operation is about to claim
// that exact path for something new.
func needsTwoStep(op direction.SyncOperation, deletePaths []relpath.Path, claimed map[relpath.Path]bool) bool {
	for _, d := range deletePaths {
		if isPrefixOrEqual(d, op.FromPath) {
			return true
		}
	}
	return claimed[op.FromPath]
}

func (e *Executor) stageMove(op direction.SyncOperation) (relpath.Path, error) {
	raw, err := random.New(12)
	if err != nil {
		return relpath.Root, err
	}
	name := fsutil.TemporaryNamePrefix + "move-" + hex.EncodeToString(raw) + twoStepSuffix
	tempPath := relpath.Path(name)

	sourceAbs := e.roots.absolute(op.Target, op.FromPath)
	tempAbs := e.roots.absolute(op.Target, tempPath)
	if err := fsutil.Rename(sourceAbs, tempAbs); err != nil {
		return relpath.Root, err
	}
	return tempPath, nil
}

// lookupCurrent finds the entry at path in whichever side's model tree op
// targets, used when a fallback create+delete needs to know what kind of
// object it's removing at the source path.
func lookupCurrent(m *model, side direction.Side, path relpath.Path) *synctree.Entry {
	if side == direction.Left {
		return synctree.Lookup(m.left, path)
	}
	return synctree.Lookup(m.right, path)
}
