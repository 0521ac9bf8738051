// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package git

import (
	"fmt"

	"github.com/mikesep/stagehand/internal/command"
)

// PushPlan is the minimal set of index changes needed before committing.
type PushPlan struct {
	ToStage []string
	ToReset []string
	Message string
}

// Plan compares what the user wants staged (desired) with what git last
// reported (lastKnown). Only paths whose staged state actually changes
// are staged or reset. If nothing is staged afterwards and nothing
// changed, it returns ErrNothingChanged.
func Plan(lastKnown, desired Records, message string) (PushPlan, error) {
	trackedInGit := map[string]bool{}
	notTrackedInGit := map[string]bool{}
	for _, f := range lastKnown {
		if f.Tracked {
			trackedInGit[f.Path] = true
		} else {
			notTrackedInGit[f.Path] = true
		}
	}

	plan := PushPlan{Message: message}
	seen := map[string]bool{}

	for _, f := range desired {
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true

		switch {
		case f.Tracked && !trackedInGit[f.Path]:
			plan.ToStage = append(plan.ToStage, f.Path)
		case !f.Tracked && !notTrackedInGit[f.Path]:
			plan.ToReset = append(plan.ToReset, f.Path)
		}
	}

	if len(trackedInGit) == 0 && len(plan.ToStage) == 0 && len(plan.ToReset) == 0 {
		return PushPlan{}, ErrNothingChanged
	}

	return plan, nil
}

// Lines renders the plan as shell lines for the given git binary, quoted
// for the shell dialect that will run them.
func (p PushPlan) Lines(gitBin string, dialect command.Dialect) []string {
	var lines []string

	for _, path := range p.ToStage {
		lines = append(lines, fmt.Sprintf("%s add %s", gitBin, dialect.Arg(path)))
	}
	for _, path := range p.ToReset {
		lines = append(lines, fmt.Sprintf("%s reset %s", gitBin, dialect.Arg(path)))
	}

	lines = append(lines,
		fmt.Sprintf("%s commit -m %s", gitBin, dialect.Message(p.Message)),
		gitBin+" push",
	)

	return lines
}
