// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/mikesep/stagehand/internal/config"
	"github.com/mikesep/stagehand/internal/executor"
	"github.com/mikesep/stagehand/internal/logging"
	"github.com/mikesep/stagehand/internal/report"
	"github.com/mikesep/stagehand/internal/session"
)

var errAborted = errors.New("aborted")

// app is what every command needs: config, logger, one executor.
type app struct {
	cfg      config.Config
	ctx      context.Context
	cancel   context.CancelFunc
	closeLog func()

	exec *executor.Executor
}

func newApp(rootOpts *rootOptions) (*app, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(rootOpts.ConfigPath, workDir)
	if err != nil {
		return nil, err
	}
	if rootOpts.LogFile != "" {
		cfg.LogFile = rootOpts.LogFile
	}

	_, closeLog, err := logging.New(rootOpts.logLevel(cfg), cfg.LogFile)
	if err != nil {
		return nil, err
	}

	runner, err := cfg.Runner()
	if err != nil {
		closeLog()
		return nil, err
	}

	log := logging.Component("executor").With().
		Str("shell", strings.Join(cfg.Shell, " ")).
		Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)

	return &app{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		closeLog: closeLog,
		exec:     executor.New(runner, executor.WithLogger(log)),
	}, nil
}

func (a *app) close() {
	a.exec.Stop()
	a.cancel()
	a.closeLog()
}

func (rootOpts *rootOptions) logLevel(cfg config.Config) string {
	switch len(rootOpts.Verbose) {
	case 0:
		return cfg.LogLevel
	case 1:
		return "debug"
	default:
		return "trace"
	}
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// pathArg returns the single optional PATH argument, made absolute.
func pathArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return os.Getwd()
	case 1:
		return filepath.Abs(args[0])
	default:
		return "", fmt.Errorf("expected at most one path, got %d", len(args))
	}
}

//------------------------------------------------------------------------------

// sessionRun drives one session from a command: events go to the reporter
// and to the command waiting on them.
type sessionRun struct {
	*app
	sess  *session.Session
	out   report.Reporter
	inbox *inbox
}

// startSession creates the session. Only events of the listed types (and
// errors) are printed; none listed means all.
func (a *app) startSession(show ...session.EventType) *sessionRun {
	r := &sessionRun{
		app:   a,
		sess:  session.New(a.exec, a.cfg.Commands()),
		out:   report.New(os.Stdout, stdoutIsTerminal()),
		inbox: newInbox(),
	}

	r.sess.Subscribe(session.HandlerFunc(func(e session.Event) {
		if len(show) == 0 || e.Type == session.ErrorOccurred || containsType(show, e.Type) {
			r.out.HandleEvent(e)
		}
	}))
	r.sess.Subscribe(r.inbox)

	return r
}

func containsType(types []session.EventType, t session.EventType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// wait returns the next event of type want. A reported error ends the wait;
// a bad repository also drops whatever is still queued.
func (r *sessionRun) wait(want session.EventType) (session.Event, error) {
	for {
		e, ok := r.inbox.pop()
		if !ok {
			select {
			case <-r.ctx.Done():
				r.sess.Abort()
				return session.Event{}, errAborted
			case <-r.inbox.wake:
			}
			continue
		}

		switch e.Type {
		case want:
			return e, nil
		case session.ErrorOccurred:
			if session.Classify(e.Err) == session.NotARepository {
				r.sess.Abort()
			}
			return e, errReported
		case session.Aborted:
			return e, errAborted
		}
	}
}

// check turns an error a session call already published into errReported.
func (r *sessionRun) check(err error) error {
	if err == nil {
		return nil
	}
	if session.Classify(err) == session.NotARepository {
		r.sess.Abort()
	}
	return errReported
}

func (r *sessionRun) close(note string) {
	r.app.close()
	r.out.Done(note)
}

//------------------------------------------------------------------------------

// inbox never blocks the publisher: session errors are published on the
// goroutine that made the call, which is often the one waiting.
type inbox struct {
	mu     sync.Mutex
	events []session.Event
	wake   chan struct{}
}

func newInbox() *inbox {
	return &inbox{wake: make(chan struct{}, 1)}
}

func (b *inbox) HandleEvent(e session.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *inbox) pop() (session.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		return session.Event{}, false
	}
	e := b.events[0]
	b.events = b.events[1:]
	return e, true
}
