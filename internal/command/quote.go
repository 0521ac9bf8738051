// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package command

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Dialect is the quoting convention of the shell that runs commands.
type Dialect int

const (
	POSIX Dialect = iota
	Cmd
)

func (d Dialect) String() string {
	if d == Cmd {
		return "cmd"
	}
	return "posix"
}

// DialectFor picks the dialect from a shell invocation like ["cmd", "/C"].
func DialectFor(shell []string) Dialect {
	if len(shell) == 0 {
		return POSIX
	}

	name := strings.ToLower(filepath.Base(strings.ReplaceAll(shell[0], `\`, "/")))
	if strings.TrimSuffix(name, ".exe") == "cmd" {
		return Cmd
	}
	return POSIX
}

var plainWord = regexp.MustCompile(`^[A-Za-z0-9_./:@%+=,-]+$`)

// Arg quotes a single argument such as a file path. Words that need no
// quoting are left alone.
func (d Dialect) Arg(s string) string {
	if d == Cmd {
		if strings.ContainsAny(s, " \t") {
			return `"` + s + `"`
		}
		return s
	}

	if plainWord.MatchString(s) {
		return s
	}
	return shellQuote(s)
}

// Message quotes free text. cmd has no escape for `"` inside a quoted
// argument, so double quotes become single quotes there.
func (d Dialect) Message(s string) string {
	if d == Cmd {
		return `"` + strings.ReplaceAll(s, `"`, "'") + `"`
	}
	return shellQuote(s)
}

// single quotes keep $, backticks and \ literal
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
