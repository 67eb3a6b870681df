package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pathsync/pathsync/pkg/comparelines"
	"github.com/pathsync/pathsync/pkg/deletion"
	"github.com/pathsync/pathsync/pkg/direction"
	"github.com/pathsync/pathsync/pkg/orchestrator"
	"github.com/pathsync/pathsync/pkg/relpath"
	"github.com/pathsync/pathsync/pkg/synctree"
)

// fileConfiguration is the YAML-decoded shape of a pathsync configuration
// file: one or more folder pairs, each with its own direction policy,
// comparison mode, and per-side deletion handling. It mirrors the teacher's
// pattern of a plain YAML-tagged struct (pkg/configuration/global) rather
// than a hand-rolled parser.
type fileConfiguration struct {
	Pairs []pairConfiguration `yaml:"pairs"`
}

type pairConfiguration struct {
	Name                      string   `yaml:"name"`
	Left                      string   `yaml:"left"`
	Right                     string   `yaml:"right"`
	Direction                 string   `yaml:"direction"`
	Automatic                 bool     `yaml:"automatic"`
	CaseSensitive             bool     `yaml:"caseSensitive"`
	CompareContent            bool     `yaml:"compareContent"`
	AllowContentChangingMoves bool     `yaml:"allowContentChangingMoves"`
	Skip                      []string `yaml:"skip"`

	// ModificationTimeToleranceSeconds bounds how far apart two sides'
	// modification times may be and still compare Equal. Zero uses
	// comparelines.DefaultModificationTimeTolerance.
	ModificationTimeToleranceSeconds int `yaml:"modificationTimeToleranceSeconds"`

	LeftDeletion   deletionConfig `yaml:"leftDeletion"`
	RightDeletion  deletionConfig `yaml:"rightDeletion"`
	LeftStatePath  string         `yaml:"leftStatePath"`
	RightStatePath string         `yaml:"rightStatePath"`
}

type deletionConfig struct {
	Kind         string `yaml:"kind"`
	Folder       string `yaml:"folder"`
	VersionStyle string `yaml:"versionStyle"`
}

// loadFileConfiguration reads and decodes a YAML configuration file. A
// missing file is treated as a validation error by the caller, not silently
// tolerated, since (unlike the teacher's global defaults file) there is no
// sensible configuration with zero folder pairs.
func loadFileConfiguration(path string) (*fileConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read configuration file")
	}

	configuration := &fileConfiguration{}
	if err := yaml.Unmarshal(data, configuration); err != nil {
		return nil, errors.Wrap(err, "unable to parse configuration file")
	}
	if len(configuration.Pairs) == 0 {
		return nil, errors.New("configuration file defines no folder pairs")
	}

	return configuration, nil
}

// toFolderPair converts a decoded pairConfiguration into the orchestrator's
// FolderPair, validating and resolving the string-keyed enum fields the way
// the teacher's configuration.go translates TOML mode strings into internal
// enumerations before constructing a session.Configuration.
func (p pairConfiguration) toFolderPair() (orchestrator.FolderPair, error) {
	if p.Left == "" || p.Right == "" {
		return orchestrator.FolderPair{}, errors.Errorf("folder pair %q: both left and right roots are required", p.displayName())
	}

	policy, err := directionPolicy(p.Direction)
	if err != nil {
		return orchestrator.FolderPair{}, errors.Wrapf(err, "folder pair %q", p.displayName())
	}

	leftPolicy, err := p.LeftDeletion.toPolicy()
	if err != nil {
		return orchestrator.FolderPair{}, errors.Wrapf(err, "folder pair %q: left deletion policy", p.displayName())
	}
	rightPolicy, err := p.RightDeletion.toPolicy()
	if err != nil {
		return orchestrator.FolderPair{}, errors.Wrapf(err, "folder pair %q: right deletion policy", p.displayName())
	}

	casePolicy := relpath.CaseInsensitive
	if p.CaseSensitive {
		casePolicy = relpath.CaseSensitive
	}

	compareMode := comparelines.ByTimeAndSize
	if p.CompareContent {
		compareMode = comparelines.ByContent
	}

	var skip synctree.Filter
	if len(p.Skip) > 0 {
		skip = synctree.NewGlobFilter(p.Skip)
	}

	return orchestrator.FolderPair{
		Name:                      p.displayName(),
		Left:                      p.Left,
		Right:                     p.Right,
		DirectionPolicy:           policy,
		Automatic:                 p.Automatic,
		CasePolicy:                casePolicy,
		CompareMode:               compareMode,
		AllowContentChangingMoves: p.AllowContentChangingMoves,
		ModificationTimeTolerance: time.Duration(p.ModificationTimeToleranceSeconds) * time.Second,
		LeftDeletionPolicy:        leftPolicy,
		RightDeletionPolicy:       rightPolicy,
		Skip:                      skip,
		LeftStatePath:             p.LeftStatePath,
		RightStatePath:            p.RightStatePath,
	}, nil
}

func (p pairConfiguration) displayName() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("%s <-> %s", p.Left, p.Right)
}

func directionPolicy(name string) (direction.Policy, error) {
	switch name {
	case "", "mirror-left-to-right":
		return direction.MirrorLeftToRight(), nil
	case "mirror-right-to-left":
		return direction.MirrorRightToLeft(), nil
	case "two-way-update":
		return direction.TwoWayUpdate(), nil
	case "two-way-automatic":
		return direction.TwoWayAutomatic(), nil
	default:
		return direction.Policy{}, errors.Errorf(
			"unknown direction %q (expected one of: mirror-left-to-right, mirror-right-to-left, two-way-update, two-way-automatic)",
			name,
		)
	}
}

func (d deletionConfig) toPolicy() (deletion.Policy, error) {
	switch d.Kind {
	case "", "permanent":
		return deletion.Policy{Kind: deletion.Permanent}, nil
	case "recycle-bin":
		return deletion.Policy{Kind: deletion.RecycleBin}, nil
	case "versioning":
		if d.Folder == "" {
			return deletion.Policy{}, errors.New("versioning deletion policy requires a folder")
		}
		style, err := versionStyle(d.VersionStyle)
		if err != nil {
			return deletion.Policy{}, err
		}
		return deletion.Policy{Kind: deletion.Versioning, Folder: d.Folder, VersionStyle: style}, nil
	default:
		return deletion.Policy{}, errors.Errorf(
			"unknown deletion kind %q (expected one of: permanent, recycle-bin, versioning)", d.Kind,
		)
	}
}

func versionStyle(name string) (deletion.Style, error) {
	switch name {
	case "", "replace":
		return deletion.Replace, nil
	case "timestamp-folder":
		return deletion.TimeStampFolder, nil
	case "timestamp-file":
		return deletion.TimeStampFile, nil
	default:
		return 0, errors.Errorf(
			"unknown version style %q (expected one of: replace, timestamp-folder, timestamp-file)", name,
		)
	}
}
