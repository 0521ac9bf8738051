// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

// Package report prints session events for a person at a terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mikesep/stagehand/internal/git"
	"github.com/mikesep/stagehand/internal/session"
)

type Reporter interface {
	HandleEvent(session.Event)
	Done(note string)
	NumFailed() int
}

// New returns a reporter safe to subscribe to a session: events are printed
// on a goroutine of their own, in the order they arrive. With ansi set, the
// file table is redrawn in place instead of printed again.
func New(w io.Writer, ansi bool) Reporter {
	if ansi {
		return newSerializingReporter(newANSIReporter(w))
	}
	return newSerializingReporter(newPlainReporter(w))
}

//------------------------------------------------------------------------------

type serializingReporter struct {
	q    chan<- session.Event
	done <-chan struct{}

	next Reporter
}

func newSerializingReporter(next Reporter) *serializingReporter {
	q := make(chan session.Event)
	done := make(chan struct{})

	go func() {
		for e := range q {
			next.HandleEvent(e)
		}
		close(done)
	}()

	return &serializingReporter{q: q, done: done, next: next}
}

func (r *serializingReporter) HandleEvent(event session.Event) {
	r.q <- event
}

func (r *serializingReporter) Done(note string) {
	close(r.q)
	<-r.done
	r.next.Done(note)
}

func (r *serializingReporter) NumFailed() int {
	return r.next.NumFailed()
}

//------------------------------------------------------------------------------

func newANSIReporter(w io.Writer) *ansiReporter {
	return &ansiReporter{output: w}
}

// ansiReporter keeps one block on screen: the latest file table followed by
// the latest notice.
type ansiReporter struct {
	output io.Writer

	path   string
	files  git.Records
	notice string
	drawn  int
	failed int
}

func (r *ansiReporter) HandleEvent(event session.Event) {
	switch event.Type {
	case session.FilesUpdated:
		r.path = event.Path
		r.files = event.Files
		r.notice = ""
	case session.ErrorOccurred:
		r.failed++
		r.notice = errorLine(event.Err)
	case session.Pushed:
		r.notice = fmt.Sprintf("pushed %s", event.Path)
	case session.Aborted:
		r.path = ""
		r.files = nil
		r.notice = "aborted"
	case session.RemotesListed:
		r.redraw()
		writeRemotes(r.output, event.Remotes)
		r.drawn = 0 // remotes stay on screen
		return
	}

	r.redraw()
}

func (r *ansiReporter) redraw() {
	if r.drawn > 0 {
		fmt.Fprintf(r.output, "\x1b[%dF", r.drawn) // up to the start of the block
		fmt.Fprintf(r.output, "\x1b[0J")           // clear to the end of the screen
	}

	var b strings.Builder
	if r.path != "" {
		writeFiles(&b, r.path, r.files)
	}
	if r.notice != "" {
		fmt.Fprintf(&b, "%s\n", r.notice)
	}

	r.drawn = strings.Count(b.String(), "\n")
	fmt.Fprint(r.output, b.String())
}

func (r *ansiReporter) Done(note string) {
	if note != "" {
		fmt.Fprintf(r.output, "%s\n", note)
	}
}

func (r *ansiReporter) NumFailed() int {
	return r.failed
}

//------------------------------------------------------------------------------

func newPlainReporter(w io.Writer) *plainReporter {
	return &plainReporter{output: w}
}

type plainReporter struct {
	output io.Writer
	failed int
}

func (r *plainReporter) HandleEvent(event session.Event) {
	switch event.Type {
	case session.FilesUpdated:
		writeFiles(r.output, event.Path, event.Files)
	case session.ErrorOccurred:
		r.failed++
		fmt.Fprintf(r.output, "%s\n", errorLine(event.Err))
	case session.Pushed:
		fmt.Fprintf(r.output, "pushed %s\n", event.Path)
	case session.Aborted:
		fmt.Fprintf(r.output, "aborted\n")
	case session.RemotesListed:
		writeRemotes(r.output, event.Remotes)
	default:
		panic(fmt.Sprintf("unexpected session event: %#v", event))
	}
}

func (r *plainReporter) Done(note string) {
	if note != "" {
		fmt.Fprintf(r.output, "%s\n", note)
	}
}

func (r *plainReporter) NumFailed() int {
	return r.failed
}

//------------------------------------------------------------------------------

func errorLine(err error) string {
	return fmt.Sprintf("FAIL %s: %s", session.Classify(err), session.Message(err))
}

func writeFiles(w io.Writer, path string, files git.Records) {
	if len(files) == 0 {
		fmt.Fprintf(w, "%s: nothing to commit, working tree clean\n", path)
		return
	}

	fmt.Fprintf(w, "%s: %s\n", path, Summary(files))
	for _, f := range files {
		mark := " "
		if f.Tracked {
			mark = "S"
		}
		fmt.Fprintf(w, "  [%s] %-8s  %s\n", mark, f.Status, f.Path)
	}
}

func writeRemotes(w io.Writer, remotes git.Remotes) {
	if len(remotes) == 0 {
		fmt.Fprintf(w, "no remotes\n")
		return
	}

	nameLen := 0
	for name := range remotes {
		if len(name) > nameLen {
			nameLen = len(name)
		}
	}

	for _, name := range remotes.Names() {
		urls := remotes[name]
		fmt.Fprintf(w, "%-*s  %s (fetch)\n", nameLen, name, urls.FetchURL)
		if urls.PushURL != urls.FetchURL {
			fmt.Fprintf(w, "%-*s  %s (push)\n", nameLen, "", urls.PushURL)
		}
		if comparable, err := git.ComparableURL(urls.FetchURL); err == nil {
			fmt.Fprintf(w, "%-*s  = %s\n", nameLen, "", comparable)
		}
	}
}

// Summary counts staged and unstaged files.
func Summary(files git.Records) string {
	if len(files) == 0 {
		return "clean"
	}

	staged := 0
	for _, f := range files {
		if f.Tracked {
			staged++
		}
	}
	return fmt.Sprintf("%d staged, %d unstaged", staged, len(files)-staged)
}
