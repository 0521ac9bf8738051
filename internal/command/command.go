// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

// Package command describes units of work for the executor: one shell
// invocation made of chained lines plus a mapper that turns the captured
// output into a domain value or an error.
package command

import (
	"fmt"
	"strings"
	"sync"
)

// Separator chains lines so the shell stops at the first failing one.
const Separator = " && "

type Kind int

const (
	KindPlain Kind = iota
	KindStatus
	KindPush
	KindRemotes
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindPush:
		return "push"
	case KindRemotes:
		return "remotes"
	default:
		return "plain"
	}
}

// Result holds either a value or an error, never both.
type Result struct {
	Value interface{}
	Err   error
}

// Mapper turns decoded stdout and stderr into a Result.
type Mapper func(stdout, stderr string) Result

// CommandFailedError carries the raw stderr of a command whose mapper
// did not recognize the failure.
type CommandFailedError struct {
	Stderr string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command failed: %s", strings.TrimSpace(e.Stderr))
}

// PassThrough returns stdout when stderr is empty.
func PassThrough(stdout, stderr string) Result {
	if stderr != "" {
		return Result{Err: &CommandFailedError{Stderr: stderr}}
	}
	return Result{Value: stdout}
}

type Command struct {
	kind   Kind
	lines  []string
	mapper Mapper

	mu     sync.Mutex
	result *Result
}

// New builds a command from lines. A nil mapper means PassThrough.
func New(kind Kind, lines []string, mapper Mapper) *Command {
	if mapper == nil {
		mapper = PassThrough
	}

	return &Command{
		kind:   kind,
		lines:  splitLines(lines),
		mapper: mapper,
	}
}

func (c *Command) Kind() Kind {
	return c.kind
}

// Lines returns a copy of the shell lines in execution order.
func (c *Command) Lines() []string {
	return append([]string(nil), c.lines...)
}

// Text is what gets handed to the shell.
func (c *Command) Text() string {
	return strings.Join(c.lines, Separator)
}

// SetOutput maps the captured output and stores the result. Only the
// first call has an effect; it reports whether the result was stored.
func (c *Command) SetOutput(stdout, stderr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result != nil {
		return false
	}

	r := c.mapper(stdout, stderr)
	c.result = &r
	return true
}

// Result returns the mapped result and whether execution has completed.
func (c *Command) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

func (c *Command) String() string {
	return fmt.Sprintf("%s: %s", c.kind, c.Text())
}

func splitLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		out = append(out, strings.Split(l, Separator)...)
	}
	return out
}
