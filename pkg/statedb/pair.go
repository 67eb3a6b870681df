package statedb

import (
	"github.com/google/uuid"

	"github.com/pathsync/pathsync/pkg/synctree"
)

// Pair holds the two twin state database files for one folder pair, one
// stored under each synchronization root, matching spec §4.5's "two twin
// files" layout.
type Pair struct {
	Left  *Database
	Right *Database
}

// LoadPair reads both twin files. A missing file decodes as a fresh
// Database (see Load); LoadPair fails if an existing file cannot be read or
// decoded.
func LoadPair(leftPath, rightPath string) (*Pair, error) {
	left, err := Load(leftPath)
	if err != nil {
		return nil, err
	}
	right, err := Load(rightPath)
	if err != nil {
		return nil, err
	}
	return &Pair{Left: left, Right: right}, nil
}

// MatchedAncestor returns the ancestor tree to feed into automatic
// direction resolution, and whether the two twin files actually reference
// each other. Per spec §4.5, a match requires the left file to reference
// the right file's UUID as a partner and vice versa; anything else (first
// run, a file replaced out from under its partner, one side pointing at a
// stale identity) is a DbMismatch, for which MatchedAncestor returns a nil
// ancestor instead of trusting a one-sided or absent history.
func (p *Pair) MatchedAncestor() (ancestor *synctree.Entry, matched bool) {
	leftSnapshot, leftKnowsRight := p.Left.Partners[p.Right.OwnID]
	rightSnapshot, rightKnowsLeft := p.Right.Partners[p.Left.OwnID]
	if !leftKnowsRight || !rightKnowsLeft {
		return nil, false
	}

	// Both sides recorded the same post-sync tree the last time they
	// synchronized successfully; prefer the left copy, falling back to the
	// right if the left's happens to be nil (possible when a nil tree was
	// recorded for the partner).
	if leftSnapshot != nil {
		return leftSnapshot, true
	}
	return rightSnapshot, true
}

// RecordSuccessfulSync updates both twin databases after a successful
// synchronization: each side's Partners map is pointed at the other side's
// UUID, recording resultTree (the state both roots now share) as their
// common ancestor for the next cycle.
func (p *Pair) RecordSuccessfulSync(resultTree *synctree.Entry) {
	if p.Left.Partners == nil {
		p.Left.Partners = make(map[uuid.UUID]*synctree.Entry)
	}
	if p.Right.Partners == nil {
		p.Right.Partners = make(map[uuid.UUID]*synctree.Entry)
	}
	p.Left.Partners[p.Right.OwnID] = resultTree
	p.Right.Partners[p.Left.OwnID] = resultTree
}

// Save writes both twin files atomically (via Save's underlying
// fsutil.WriteFileAtomic), left first.
func (p *Pair) Save(leftPath, rightPath string) error {
	if err := Save(leftPath, p.Left); err != nil {
		return err
	}
	return Save(rightPath, p.Right)
}
