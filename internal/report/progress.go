// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mikesep/stagehand/internal/session"
)

type repoEventType string

const (
	repoFailed  repoEventType = "FAIL"
	repoChanged repoEventType = "chg "
	repoClean   repoEventType = "ok  "
)

type repoEvent struct {
	Type    repoEventType
	Name    string
	Message string
}

// NewProgress returns a reporter for one status query per repository. Repo
// names are shown relative to root.
func NewProgress(w io.Writer, ansi bool, root string, repos []string) Reporter {
	names := make(map[string]string, len(repos))
	maxNameLen := 0
	for _, repo := range repos {
		name, err := filepath.Rel(root, repo)
		if err != nil {
			name = repo
		}
		names[repo] = name
		if len(name) > maxNameLen {
			maxNameLen = len(name)
		}
	}

	var next progressPrinter
	if ansi {
		next = newANSIProgress(w, len(repos), maxNameLen)
	} else {
		next = newPlainProgress(w, len(repos), maxNameLen)
	}

	return newSerializingReporter(&progressReporter{names: names, next: next})
}

type progressPrinter interface {
	handleRepoEvent(repoEvent)
	Done(note string)
	NumFailed() int
}

type progressReporter struct {
	names map[string]string
	next  progressPrinter
}

func (r *progressReporter) HandleEvent(event session.Event) {
	name, ok := r.names[event.Path]
	if !ok {
		name = event.Path
	}

	switch event.Type {
	case session.FilesUpdated:
		if len(event.Files) == 0 {
			r.next.handleRepoEvent(repoEvent{Type: repoClean, Name: name, Message: "clean"})
		} else {
			r.next.handleRepoEvent(repoEvent{Type: repoChanged, Name: name, Message: Summary(event.Files)})
		}
	case session.ErrorOccurred:
		r.next.handleRepoEvent(repoEvent{Type: repoFailed, Name: name, Message: session.Message(event.Err)})
	}
}

func (r *progressReporter) Done(note string) { r.next.Done(note) }

func (r *progressReporter) NumFailed() int { return r.next.NumFailed() }

//------------------------------------------------------------------------------

func newANSIProgress(w io.Writer, totalItems int, maxNameLen int) *ansiProgress {
	r := &ansiProgress{
		output:   w,
		total:    totalItems,
		countLen: len(strconv.Itoa(totalItems)),
		nameLen:  maxNameLen,
	}

	r.printProgressLine()
	fmt.Fprintf(r.output, "\n") // leave space for event line

	return r
}

type ansiProgress struct {
	output   io.Writer
	total    int
	countLen int
	nameLen  int

	done    int
	failed  []repoEvent
	changed []repoEvent
	clean   int
}

func (r *ansiProgress) handleRepoEvent(event repoEvent) {
	r.done++

	fmt.Fprintf(r.output, "\x1b[2F") // up two lines
	r.printProgressLine()

	switch event.Type {
	case repoFailed:
		r.failed = append(r.failed, event)
	case repoChanged:
		r.changed = append(r.changed, event)
	case repoClean:
		r.clean++
	}

	fmt.Fprintf(r.output, "%s %-*s %s", event.Type, r.nameLen, event.Name, event.Message)
	fmt.Fprintf(r.output, "\x1b[0K\n") // from cursor until the end of the line, then \n
}

func (r *ansiProgress) Done(note string) {
	fmt.Fprintf(r.output, "\x1b[1F") // up one line to overwrite the last repo event
	fmt.Fprintf(r.output, "\x1b[0K") // clear the line

	writeTally(r.output, note, tally{
		failed:  len(r.failed),
		changed: len(r.changed),
		clean:   r.clean,
		total:   r.total,
	})

	for _, e := range append(r.failed, r.changed...) {
		fmt.Fprintf(r.output, "  %s %-*s %s\n", e.Type, r.nameLen, e.Name, e.Message)
	}
}

func (r *ansiProgress) NumFailed() int {
	return len(r.failed)
}

func (r *ansiProgress) printProgressLine() {
	const barLen = 60

	filled := 0
	if r.total > 0 {
		filled = barLen * r.done / r.total
	}

	fmt.Fprintf(r.output,
		"%*d/%d [%-*s]",
		r.countLen, r.done, r.total,
		barLen,
		strings.Repeat("=", filled),
	)

	fmt.Fprintf(r.output, "\x1b[0K\n") // clear from cursor to the end of the line, then \n
}

//------------------------------------------------------------------------------

func newPlainProgress(w io.Writer, totalItems int, maxNameLen int) *plainProgress {
	return &plainProgress{
		output:   w,
		countLen: len(strconv.Itoa(totalItems)),
		nameLen:  maxNameLen,
		tally:    tally{total: totalItems},
	}
}

type plainProgress struct {
	output   io.Writer
	countLen int
	nameLen  int

	done int
	tally
}

func (r *plainProgress) handleRepoEvent(event repoEvent) {
	r.done++

	switch event.Type {
	case repoFailed:
		r.failed++
	case repoChanged:
		r.changed++
	case repoClean:
		r.clean++
	default:
		panic(fmt.Sprintf("unexpected repo event: %#v", event))
	}

	fmt.Fprintf(r.output,
		"[%*d/%d] %s %-*s %s\n",
		r.countLen, r.done, r.total,
		event.Type, r.nameLen, event.Name, event.Message,
	)
}

func (r *plainProgress) Done(note string) {
	writeTally(r.output, note, r.tally)
}

func (r *plainProgress) NumFailed() int {
	return r.failed
}

//------------------------------------------------------------------------------

// tally counts repositories by outcome for the closing summary.
type tally struct {
	failed  int
	changed int
	clean   int
	total   int
}

func writeTally(w io.Writer, note string, t tally) {
	if note != "" {
		fmt.Fprintf(w, "%s\n", note)
	}

	fmt.Fprintf(w, "Done! %d failed, %d changed, %d clean, %d total\n",
		t.failed, t.changed, t.clean, t.total)
}
