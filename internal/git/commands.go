// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

// Package git builds the git commands stagehand runs and makes sense of
// what they print.
package git

import (
	"github.com/mikesep/stagehand/internal/command"
)

// Commands builds folder commands that call the Git binary.
type Commands struct {
	Git     string
	Dialect command.Dialect
}

func (c Commands) git() string {
	if c.Git == "" {
		return "git"
	}
	return c.Git
}

// Status queries the working tree; the result value is Records.
func (c Commands) Status(path string) (*command.Command, error) {
	return command.NewFolder(path, command.KindStatus,
		[]string{c.git() + " status"}, mapStatus)
}

// Push stages, resets, commits and pushes as one command. The result
// value is nil on success.
func (c Commands) Push(path string, plan PushPlan) (*command.Command, error) {
	return command.NewFolder(path, command.KindPush, plan.Lines(c.git(), c.Dialect), mapPush)
}

// Remotes lists the configured remotes; the result value is Remotes.
func (c Commands) Remotes(path string) (*command.Command, error) {
	return command.NewFolder(path, command.KindRemotes,
		[]string{c.git() + " remote --verbose"}, mapRemotes)
}

func mapPush(stdout, stderr string) command.Result {
	if stderr != "" {
		return command.Result{Err: &command.CommandFailedError{Stderr: stderr}}
	}
	return command.Result{}
}
