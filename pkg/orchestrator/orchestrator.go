// Package orchestrator implements the top-level orchestrator (C14): the
// ten-step flow spec §4.13 describes, wiring the scanner (C3), matcher/
// classifier (C4/C5), direction resolver (C7), statistics (C8), pre-flight
// checks (C12), deletion handling (C9), sync executor (C10), state
// database (C6), and error log (C13) together over a list of folder pairs.
// There is no single teacher file this is grounded on directly — mutagen's
// top-level loop (cmd/mutagen, pkg/synchronization/manager.go) drives a
// long-lived daemon reconciling continuously, not a discrete run-to-
// completion batch over a fixed pair list — but the per-pair sequencing,
// continue-on-error semantics, and the observer/log wiring follow the
// teacher's session lifecycle conventions throughout.
package orchestrator

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/pathsync/pathsync/pkg/comparelines"
	"github.com/pathsync/pathsync/pkg/deletion"
	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/fsutil"
	"github.com/pathsync/pathsync/pkg/preflight"
	"github.com/pathsync/pathsync/pkg/progress"
	"github.com/pathsync/pathsync/pkg/relpath"
	"github.com/pathsync/pathsync/pkg/statedb"
	"github.com/pathsync/pathsync/pkg/synclog"
	"github.com/pathsync/pathsync/pkg/syncexec"
	"github.com/pathsync/pathsync/pkg/syncstats"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// stateFileName is the twin state database's fixed leaf name under each
// synchronization root, used unless a FolderPair overrides it.
const stateFileName = ".pathsync-state"

// FolderPair configures one synchronization between two directories.
type FolderPair struct {
	Name  string
	Left  string
	Right string

	DirectionPolicy           direction.Policy
	Automatic                 bool
	CasePolicy                relpath.CasePolicy
	CompareMode               comparelines.Mode
	AllowContentChangingMoves bool

	// ModificationTimeTolerance bounds how far apart two sides' modification
	// times may be and still compare Equal. Zero falls back to
	// comparelines.DefaultModificationTimeTolerance.
	ModificationTimeTolerance time.Duration

	LeftDeletionPolicy  deletion.Policy
	RightDeletionPolicy deletion.Policy

	Skip synctree.Filter

	// LeftStatePath/RightStatePath override the default
	// "<root>/.pathsync-state" location for the twin state database files.
	LeftStatePath  string
	RightStatePath string
}

func (p FolderPair) leftStatePath() string {
	if p.LeftStatePath != "" {
		return p.LeftStatePath
	}
	return filepath.Join(p.Left, stateFileName)
}

func (p FolderPair) rightStatePath() string {
	if p.RightStatePath != "" {
		return p.RightStatePath
	}
	return filepath.Join(p.Right, stateFileName)
}

func (p FolderPair) preflightPair() preflight.Pair {
	return preflight.Pair{
		Name:        p.Name,
		LeftRoot:    p.Left,
		RightRoot:   p.Right,
		LeftPolicy:  p.LeftDeletionPolicy,
		RightPolicy: p.RightDeletionPolicy,
	}
}

// Result reports the outcome of synchronizing one folder pair.
type Result struct {
	Pair      FolderPair
	Snapshot  syncstats.Snapshot
	Preflight []preflight.Result
	Skipped   bool
	Err       error
	LeftTree  *synctree.Entry
	RightTree *synctree.Entry
	Elapsed   time.Duration
}

// Orchestrator drives a fixed list of folder pairs to completion, continuing
// to the next pair when one fails unless the failure was a user-requested
// abort (progress.Aborted), per spec §4.13's closing paragraph.
type Orchestrator struct {
	Pairs      []FolderPair
	Observer   progress.Observer
	Log        *synclog.Log
	RecycleBin deletion.RecycleBinProvider
	Cancelled  <-chan struct{}
}

// Run executes every configured pair in order and returns one Result each,
// even for pairs that were skipped or aborted.
func (o *Orchestrator) Run(ctx context.Context) ([]Result, error) {
	preflightPairs := make([]preflight.Pair, len(o.Pairs))
	for i, pair := range o.Pairs {
		preflightPairs[i] = pair.preflightPair()
	}

	results := make([]Result, 0, len(o.Pairs))
	for index, pair := range o.Pairs {
		result := o.runPair(ctx, index, pair, preflightPairs)
		results = append(results, result)

		if _, aborted := errors.Cause(result.Err).(progress.Aborted); aborted {
			return results, result.Err
		}
	}
	return results, nil
}

func (o *Orchestrator) runPair(ctx context.Context, index int, pair FolderPair, preflightPairs []preflight.Pair) Result {
	start := time.Now()
	result := Result{Pair: pair}

	if o.Log != nil {
		o.Log.Info(pair.Name + ": starting")
	}

	// Step 2: ensure target-side base directories exist, but only when the
	// opposite side is actually present; a root that vanished after an
	// earlier comparison is an abort, not a silent re-create.
	if err := o.ensureRoots(pair); err != nil {
		result.Err = err
		result.Skipped = true
		o.logFatal(pair, err)
		result.Elapsed = time.Since(start)
		return result
	}

	// Step 3: scan, match, classify, resolve direction.
	leftTree, rightTree, ancestor, err := o.scanAndLoadAncestor(ctx, pair)
	if err != nil {
		result.Err = err
		result.Skipped = true
		o.logFatal(pair, err)
		result.Elapsed = time.Since(start)
		return result
	}

	lines := comparelines.Compare(leftTree, rightTree, pair.CasePolicy, pair.CompareMode, pair.ModificationTimeTolerance)
	operations := direction.Resolve(lines, pair.DirectionPolicy, ancestor, pair.AllowContentChangingMoves)

	// Step 4: statistics.
	var builder syncstats.Builder
	for _, op := range operations {
		builder.Observe(op, bytesToCopy(op))
	}
	snapshot := builder.Snapshot()
	result.Snapshot = snapshot

	if o.Observer != nil {
		o.Observer.InitPhase(progress.PhaseSync, snapshot.Creates+snapshot.Deletes+snapshot.Overwrites+snapshot.CopyMetas+snapshot.Moves, snapshot.BytesToCopy)
	}

	// Step 5: pre-flight checks.
	checks := preflight.Run(index, preflightPairs, operations, o.RecycleBin)
	result.Preflight = checks
	for _, check := range checks {
		o.logPreflight(pair, check)
	}
	if preflight.HasFatal(checks) {
		result.Skipped = true
		result.Err = errors.New("pre-flight checks failed")
		result.Elapsed = time.Since(start)
		return result
	}

	// Step 6: construct deletion handlers.
	leftHandler := deletion.NewHandler(pair.Left, pair.LeftDeletionPolicy, o.RecycleBin)
	rightHandler := deletion.NewHandler(pair.Right, pair.RightDeletionPolicy, o.RecycleBin)

	// Step 7: invoke the sync executor.
	executor := syncexec.New(syncexec.Roots{Left: pair.Left, Right: pair.Right}, leftHandler, rightHandler, o.Observer, o.Cancelled)
	newLeftTree, newRightTree, execErr := executor.Execute(ctx, operations, leftTree, rightTree)
	result.LeftTree, result.RightTree = newLeftTree, newRightTree

	// Step 8: flush deletion handlers regardless of executor outcome, so
	// anything already staged gets committed or cleaned up.
	if err := leftHandler.Commit(); err != nil && execErr == nil {
		execErr = err
	}
	if err := rightHandler.Commit(); err != nil && execErr == nil {
		execErr = err
	}

	if execErr != nil {
		result.Err = execErr
		o.logFatal(pair, execErr)
		result.Elapsed = time.Since(start)
		return result
	}

	// Step 9: persist the updated state DB, automatic mode only.
	if pair.Automatic {
		if err := o.persistState(pair, newLeftTree); err != nil && o.Log != nil {
			o.Log.Warning(pair.Name + ": unable to persist state database: " + err.Error())
		}
	}

	// Step 10: summary log entry.
	result.Elapsed = time.Since(start)
	if o.Log != nil {
		status := "completed"
		if snapshot.Conflicts > 0 {
			status = "completed with conflicts"
		}
		o.Log.Info(synclog.Summarize(pair.Name, result.Elapsed, snapshot, status))
	}

	return result
}

func (o *Orchestrator) ensureRoots(pair FolderPair) error {
	leftExists := pathExists(pair.Left)
	rightExists := pathExists(pair.Right)

	if !leftExists && !rightExists {
		return errors.Errorf("%s: neither root exists", pair.Name)
	}
	if !leftExists {
		if err := fsutil.MakeDir(pair.Left); err != nil {
			return errors.Wrapf(err, "%s: unable to create left root", pair.Name)
		}
	}
	if !rightExists {
		if err := fsutil.MakeDir(pair.Right); err != nil {
			return errors.Wrapf(err, "%s: unable to create right root", pair.Name)
		}
	}
	return nil
}

func (o *Orchestrator) scanAndLoadAncestor(ctx context.Context, pair FolderPair) (*synctree.Entry, *synctree.Entry, *synctree.Entry, error) {
	leftScanner := &synctree.Scanner{
		Policy:      pair.CasePolicy,
		Skip:        combineSkip(pair.Skip, skipStateFile(pair.Left, pair.leftStatePath())),
		Observer:    o.Observer,
		HashContent: pair.CompareMode == comparelines.ByContent,
	}
	leftTree, err := leftScanner.Scan(ctx, pair.Left)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "%s: unable to scan left root", pair.Name)
	}

	rightScanner := &synctree.Scanner{
		Policy:      pair.CasePolicy,
		Skip:        combineSkip(pair.Skip, skipStateFile(pair.Right, pair.rightStatePath())),
		Observer:    o.Observer,
		HashContent: pair.CompareMode == comparelines.ByContent,
	}
	rightTree, err := rightScanner.Scan(ctx, pair.Right)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "%s: unable to scan right root", pair.Name)
	}

	var ancestor *synctree.Entry
	if pair.Automatic {
		dbPair, err := statedb.LoadPair(pair.leftStatePath(), pair.rightStatePath())
		if err != nil {
			if o.Log != nil {
				o.Log.Warning(pair.Name + ": state database unreadable, resolving without an ancestor: " + err.Error())
			}
		} else if tree, ok := dbPair.MatchedAncestor(); ok {
			ancestor = tree
		} else if o.Log != nil {
			o.Log.Warning(pair.Name + ": state database mismatch, resolving without an ancestor")
		}
	}

	return leftTree, rightTree, ancestor, nil
}

func (o *Orchestrator) persistState(pair FolderPair, resultTree *synctree.Entry) error {
	dbPair, err := statedb.LoadPair(pair.leftStatePath(), pair.rightStatePath())
	if err != nil {
		return err
	}
	dbPair.RecordSuccessfulSync(resultTree)
	return dbPair.Save(pair.leftStatePath(), pair.rightStatePath())
}

func (o *Orchestrator) logFatal(pair FolderPair, err error) {
	if o.Log != nil {
		o.Log.Fatal(pair.Name + ": " + err.Error())
	}
	if o.Observer != nil {
		o.Observer.ReportFatalError(pair.Name + ": " + err.Error())
	}
}

func (o *Orchestrator) logPreflight(pair FolderPair, check preflight.Result) {
	if check.Severity == preflight.SeverityFatal {
		o.logFatal(pair, errors.New(check.Message))
		return
	}
	if o.Log != nil {
		o.Log.Warning(pair.Name + ": " + check.Message)
	}
	if o.Observer != nil {
		warnAgain := false
		o.Observer.ReportWarning(check.Message, &warnAgain)
	}
}

func bytesToCopy(op direction.SyncOperation) uint64 {
	switch op.Kind {
	case direction.OpCreate, direction.OpOverwrite:
		if op.Source != nil && op.Source.Kind == synctree.EntryFile {
			return op.Source.File.Size
		}
	}
	return 0
}

func pathExists(path string) bool {
	_, err := fsutil.Lstat(path)
	return err == nil
}

// skipStateFile excludes the twin state database file from the scan when it
// lives directly under root (the default placement); a custom state path
// outside root needs no exclusion since the scanner will never see it.
func skipStateFile(root, statePath string) synctree.Filter {
	if filepath.Dir(statePath) != filepath.Clean(root) {
		return nil
	}
	leaf := filepath.Base(statePath)
	return func(path relpath.Path, isDir bool) bool {
		return !isDir && path.String() == leaf
	}
}

// combineSkip ORs two Filters together, tolerating either being nil.
func combineSkip(a, b synctree.Filter) synctree.Filter {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(path relpath.Path, isDir bool) bool {
		return a(path, isDir) || b(path, isDir)
	}
}
