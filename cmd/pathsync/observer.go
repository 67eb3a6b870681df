package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/pathsync/pathsync/pkg/progress"
)

// statusLineFormat truncates and pads printed status to a fixed width so
// each update fully overwrites the previous one, following the teacher's
// cmd.StatusLinePrinter (cmd/output_posix.go).
const statusLineFormat = "\r%-80.80s"

// consoleObserver renders progress.Observer callbacks to a single
// overwriting status line plus a scroll of warning/error lines, the way the
// teacher's StatusLinePrinter drives session monitoring output. It never
// blocks on user input: ReportError always resolves to ResolutionIgnore, the
// appropriate default for a non-interactive batch run.
type consoleObserver struct {
	nonEmpty bool
}

func newConsoleObserver() *consoleObserver {
	return &consoleObserver{}
}

func (o *consoleObserver) printStatus(message string) {
	fmt.Fprintf(color.Output, statusLineFormat, message)
	o.nonEmpty = true
}

func (o *consoleObserver) breakLine() {
	if o.nonEmpty {
		fmt.Fprintln(color.Output)
		o.nonEmpty = false
	}
}

func (o *consoleObserver) InitPhase(phase progress.Phase, totalObjects uint64, totalBytes uint64) {
	o.printStatus(fmt.Sprintf("%s starting (%d objects)", phase, totalObjects))
}

func (o *consoleObserver) OnProcessed(deltaObjects uint64, deltaBytes uint64) {
	o.printStatus("working...")
}

func (o *consoleObserver) UpdateTotal(deltaObjects int64, deltaBytes int64) {}

func (o *consoleObserver) Status(text string) {
	o.printStatus(text)
}

func (o *consoleObserver) ReportInfo(text string) {
	o.breakLine()
	fmt.Println(text)
}

func (o *consoleObserver) ReportWarning(text string, warnAgain *bool) {
	o.breakLine()
	warn(text)
}

func (o *consoleObserver) ReportError(text string) progress.ErrorResolution {
	o.breakLine()
	fmt.Fprintln(color.Error, color.RedString("Error:"), text)
	return progress.ResolutionIgnore
}

func (o *consoleObserver) ReportFatalError(text string) {
	o.breakLine()
	fmt.Fprintln(color.Error, color.RedString("Fatal:"), text)
}

func (o *consoleObserver) RequestUIRefresh(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return progress.Aborted{}
	default:
		return nil
	}
}
