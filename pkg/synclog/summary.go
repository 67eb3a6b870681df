package synclog

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/pathsync/pathsync/pkg/syncstats"
)

// Summarize renders the final per-pair entry spec §4.12 requires: elapsed
// time, objects touched, bytes copied, and a final status string. The
// orchestrator appends the result to the log via Info for pairs that
// complete, with or without conflicts; a pair that fails gets a Fatal entry
// with its error instead of a summary.
func Summarize(pairName string, elapsed time.Duration, snapshot syncstats.Snapshot, status string) string {
	objects := snapshot.Creates + snapshot.Deletes + snapshot.Overwrites + snapshot.CopyMetas + snapshot.Moves

	return fmt.Sprintf(
		"%s: %s in %s — %d objects (%d created, %d deleted, %d overwritten, %d moved, %d metadata-only), %s copied, %d conflicts",
		pairName,
		status,
		elapsed.Round(time.Millisecond),
		objects,
		snapshot.Creates,
		snapshot.Deletes,
		snapshot.Overwrites,
		snapshot.Moves,
		snapshot.CopyMetas,
		humanize.Bytes(snapshot.BytesToCopy),
		snapshot.Conflicts,
	)
}

// UseColorForFile reports whether a Log should colorize output destined for
// f, following the teacher's isatty-gated color convention (color is only
// ever turned on for an interactive terminal, never for a redirected file
// or pipe).
func UseColorForFile(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
