// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mikesep/stagehand/internal/command"
	"github.com/mikesep/stagehand/internal/git"
)

var (
	ErrEmptyMessage   = errors.New("empty commit message")
	ErrNoPathSelected = fmt.Errorf("no repository selected: %w", git.ErrNotARepository)
)

type ErrorKind string

const (
	NotARepository ErrorKind = "not-a-repository"
	CommandFailed  ErrorKind = "command-failed"
	NothingChanged ErrorKind = "nothing-changed"
	InvalidPath    ErrorKind = "invalid-path"
	EmptyMessage   ErrorKind = "empty-message"
	Unknown        ErrorKind = "unknown"
)

// Classify maps any error the session reports to its kind.
func Classify(err error) ErrorKind {
	var failed *command.CommandFailedError

	switch {
	case errors.Is(err, git.ErrNotARepository):
		return NotARepository
	case errors.Is(err, git.ErrNothingChanged):
		return NothingChanged
	case errors.Is(err, command.ErrInvalidPath):
		return InvalidPath
	case errors.Is(err, ErrEmptyMessage):
		return EmptyMessage
	case errors.As(err, &failed):
		return CommandFailed
	default:
		return Unknown
	}
}

// Message is what a user should be shown for err.
func Message(err error) string {
	switch Classify(err) {
	case NotARepository:
		return "Provide a correct git repository folder"
	case NothingChanged, EmptyMessage:
		return "nothing to commit"
	case InvalidPath:
		return err.Error()
	case CommandFailed:
		var failed *command.CommandFailedError
		errors.As(err, &failed)
		return strings.TrimSpace(failed.Stderr)
	default:
		return err.Error()
	}
}
