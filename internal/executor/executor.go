// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

// Package executor runs commands one at a time, in submission order, on a
// single background goroutine.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mikesep/stagehand/internal/command"
	"github.com/mikesep/stagehand/internal/logging"
)

// Listener receives executor notifications. CommandExecuted is called on
// the worker goroutine; Aborted on the goroutine that called Abort.
type Listener interface {
	CommandExecuted(*command.Command)
	Aborted()
}

// ListenerFuncs adapts plain funcs to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnExecuted func(*command.Command)
	OnAborted  func()
}

func (l ListenerFuncs) CommandExecuted(c *command.Command) {
	if l.OnExecuted != nil {
		l.OnExecuted(c)
	}
}

func (l ListenerFuncs) Aborted() {
	if l.OnAborted != nil {
		l.OnAborted()
	}
}

type Option func(*Executor)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) {
		e.log = l
	}
}

type Executor struct {
	runner Runner
	log    zerolog.Logger

	mu        sync.Mutex
	pending   []*command.Command
	listeners []Listener
	stopped   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New starts the worker. Callers must Stop the executor when done.
func New(runner Runner, opts ...Option) *Executor {
	e := &Executor{
		runner: runner,
		log:    logging.Component("executor"),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	go e.work()

	return e
}

func (e *Executor) Subscribe(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Execute queues c and returns immediately.
func (e *Executor) Execute(c *command.Command) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		e.log.Debug().Stringer("command", c).Msg("executor stopped, dropping command")
		return
	}
	e.pending = append(e.pending, c)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Pending is the number of queued commands that have not started.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Abort drops every queued command that has not started yet. A command
// that is already running finishes and is reported as usual.
func (e *Executor) Abort() {
	e.mu.Lock()
	dropped := len(e.pending)
	e.pending = nil
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	e.log.Debug().Int("dropped", dropped).Msg("aborted")

	for _, l := range listeners {
		l.Aborted()
	}
}

// Stop waits for the running command, if any, and ends the worker.
// Queued commands are not run. Stop must not be called from a Listener:
// CommandExecuted runs on the worker, which Stop waits for.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.stopped {
		e.stopped = true
		close(e.stop)
	}
	e.mu.Unlock()

	<-e.done
}

func (e *Executor) work() {
	defer close(e.done)

	for {
		c, ok := e.next()
		if !ok {
			return
		}
		e.run(c)
	}
}

func (e *Executor) next() (*command.Command, bool) {
	for {
		e.mu.Lock()
		if e.stopped {
			e.mu.Unlock()
			return nil, false
		}
		if len(e.pending) > 0 {
			c := e.pending[0]
			e.pending[0] = nil
			e.pending = e.pending[1:]
			e.mu.Unlock()
			return c, true
		}
		e.mu.Unlock()

		select {
		case <-e.wake:
		case <-e.stop:
		}
	}
}

func (e *Executor) run(c *command.Command) {
	start := time.Now()
	e.log.Debug().Stringer("kind", c.Kind()).Str("text", c.Text()).Msg("executing")

	stdout, stderr := e.runner.Run(context.Background(), c.Text())
	c.SetOutput(stdout, stderr)

	e.log.Debug().
		Stringer("kind", c.Kind()).
		Dur("took", time.Since(start)).
		Bool("stderr", stderr != "").
		Msg("executed")

	e.mu.Lock()
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	for _, l := range listeners {
		l.CommandExecuted(c)
	}
}

// must hold e.mu
func (e *Executor) snapshotListeners() []Listener {
	return append([]Listener(nil), e.listeners...)
}
