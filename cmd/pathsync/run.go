package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pathsync/pathsync/pkg/orchestrator"
	"github.com/pathsync/pathsync/pkg/synclog"
)

var runConfiguration struct {
	// config is the path to a YAML file defining one or more folder pairs.
	config string
	// left and right define a single ad hoc folder pair when no config file
	// is given, for quick one-off invocations.
	left      string
	right     string
	direction string
	automatic bool
	// logFile, if set, receives the full entry log in addition to the
	// console summary.
	logFile string
}

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one or more folder pair synchronizations to completion",
	RunE:  runMain,
}

func init() {
	flags := runCommand.Flags()
	flags.StringVarP(&runConfiguration.config, "config", "c", "", "Path to a YAML folder pair configuration file")
	flags.StringVar(&runConfiguration.left, "left", "", "Left root for an ad hoc folder pair (ignored if --config is set)")
	flags.StringVar(&runConfiguration.right, "right", "", "Right root for an ad hoc folder pair (ignored if --config is set)")
	flags.StringVar(&runConfiguration.direction, "direction", "mirror-left-to-right",
		"Direction policy for an ad hoc folder pair (mirror-left-to-right|mirror-right-to-left|two-way-update|two-way-automatic)")
	flags.BoolVar(&runConfiguration.automatic, "automatic", false, "Persist state and enable three-way automatic resolution for an ad hoc folder pair")
	flags.StringVar(&runConfiguration.logFile, "log-file", "", "Write the full synchronization log to this path")

	// Set up flag normalization. This is only required to handle aliases.
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "dir" {
			name = "direction"
		}
		return pflag.NormalizedName(name)
	})
}

func runMain(command *cobra.Command, arguments []string) error {
	pairs, err := resolveFolderPairs()
	if err != nil {
		return err
	}

	log := synclog.New(10000)
	o := &orchestrator.Orchestrator{
		Pairs:    pairs,
		Observer: newConsoleObserver(),
		Log:      log,
	}

	results, err := o.Run(context.Background())
	if runConfiguration.logFile != "" {
		if writeErr := writeLogFile(log, runConfiguration.logFile); writeErr != nil {
			warn(fmt.Sprintf("unable to write log file: %v", writeErr))
		}
	}
	if err != nil {
		return err
	}

	exitCode := 0
	for _, result := range results {
		printResult(result)
		if result.Err != nil || result.Snapshot.Conflicts > 0 {
			exitCode = 1
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func resolveFolderPairs() ([]orchestrator.FolderPair, error) {
	if runConfiguration.config != "" {
		configuration, err := loadFileConfiguration(runConfiguration.config)
		if err != nil {
			return nil, err
		}
		pairs := make([]orchestrator.FolderPair, 0, len(configuration.Pairs))
		for _, pairConfig := range configuration.Pairs {
			pair, err := pairConfig.toFolderPair()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair)
		}
		return pairs, nil
	}

	if runConfiguration.left == "" || runConfiguration.right == "" {
		return nil, fmt.Errorf("either --config or both --left and --right must be specified")
	}
	policy, err := directionPolicy(runConfiguration.direction)
	if err != nil {
		return nil, err
	}
	pair := pairConfiguration{
		Left:      runConfiguration.left,
		Right:     runConfiguration.right,
		Automatic: runConfiguration.automatic,
	}
	folderPair, err := pair.toFolderPair()
	if err != nil {
		return nil, err
	}
	folderPair.DirectionPolicy = policy
	return []orchestrator.FolderPair{folderPair}, nil
}

func printResult(result orchestrator.Result) {
	if result.Skipped {
		fmt.Fprintln(color.Error, color.RedString("Skipped:"), result.Pair.Name, "-", result.Err)
		return
	}
	status := "completed"
	if result.Snapshot.Conflicts > 0 {
		status = "completed with conflicts"
	}
	fmt.Println(synclog.Summarize(result.Pair.Name, result.Elapsed, result.Snapshot, status))
}

func writeLogFile(log *synclog.Log, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return log.WriteTo(file, false)
}
