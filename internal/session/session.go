// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

// Package session keeps track of the selected repository and the files git
// last reported for it, and turns user requests into queued git commands.
package session

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mikesep/stagehand/internal/command"
	"github.com/mikesep/stagehand/internal/executor"
	"github.com/mikesep/stagehand/internal/git"
	"github.com/mikesep/stagehand/internal/logging"
)

type EventType string

const (
	FilesUpdated  EventType = "files"
	ErrorOccurred EventType = "error"
	Pushed        EventType = "pushed"
	Aborted       EventType = "aborted"
	RemotesListed EventType = "remotes"
)

type Event struct {
	Type    EventType
	Path    string
	Files   git.Records // FilesUpdated
	Remotes git.Remotes // RemotesListed
	Err     error       // ErrorOccurred
}

type Handler interface {
	HandleEvent(Event)
}

type HandlerFunc func(Event)

func (f HandlerFunc) HandleEvent(e Event) { f(e) }

// Queue is the part of the executor a session needs.
type Queue interface {
	Execute(*command.Command)
	Abort()
	Subscribe(executor.Listener)
}

type Session struct {
	queue    Queue
	commands git.Commands
	log      zerolog.Logger

	mu         sync.Mutex
	path       string
	lastFiles  git.Records
	generation uint64
	issued     map[*command.Command]issuedCommand
	handlers   []Handler
}

type issuedCommand struct {
	generation uint64
	path       string
}

func New(queue Queue, commands git.Commands) *Session {
	s := &Session{
		queue:    queue,
		commands: commands,
		log:      logging.Component("session"),
		issued:   map[*command.Command]issuedCommand{},
	}
	queue.Subscribe(s)
	return s
}

func (s *Session) Subscribe(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Path is the selected repository, or "" when none is selected.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Files returns a copy of the files from the last successful status query.
func (s *Session) Files() git.Records {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFiles.Clone()
}

// SetPath selects a repository and queries its status. An unusable path
// leaves no repository selected.
func (s *Session) SetPath(path string) error {
	c, err := s.commands.Status(path)
	if err != nil {
		s.mu.Lock()
		s.path = ""
		s.lastFiles = nil
		s.mu.Unlock()
		return s.fail(path, err)
	}

	s.mu.Lock()
	if s.path != path {
		s.lastFiles = nil
	}
	s.path = path
	s.mu.Unlock()

	s.log.Debug().Str("path", path).Msg("path selected")
	s.enqueue(path, c)
	return nil
}

// Refresh queries the status of the selected repository again.
func (s *Session) Refresh() error {
	path := s.Path()
	if path == "" {
		return s.fail(path, ErrNoPathSelected)
	}

	c, err := s.commands.Status(path)
	if err != nil {
		return s.fail(path, err)
	}

	s.enqueue(path, c)
	return nil
}

// Push stages and unstages files so the index matches desired, then
// commits and pushes. The plan is made against the files from the last
// status query, the same ones the user chose from.
func (s *Session) Push(desired git.Records, message string) error {
	s.mu.Lock()
	path := s.path
	last := s.lastFiles.Clone()
	s.mu.Unlock()

	if strings.TrimSpace(message) == "" {
		return s.fail(path, ErrEmptyMessage)
	}

	plan, err := git.Plan(last, desired, message)
	if err != nil {
		return s.fail(path, err)
	}

	if path == "" {
		return s.fail(path, ErrNoPathSelected)
	}

	c, err := s.commands.Push(path, plan)
	if err != nil {
		return s.fail(path, err)
	}

	s.log.Info().
		Str("path", path).
		Strs("stage", plan.ToStage).
		Strs("reset", plan.ToReset).
		Msg("pushing")

	s.enqueue(path, c)
	return nil
}

// Remotes lists the remotes of the selected repository.
func (s *Session) Remotes() error {
	path := s.Path()
	if path == "" {
		return s.fail(path, ErrNoPathSelected)
	}

	c, err := s.commands.Remotes(path)
	if err != nil {
		return s.fail(path, err)
	}

	s.enqueue(path, c)
	return nil
}

// Abort forgets the selected repository and drops queued commands.
// Results of commands that were already running are ignored.
func (s *Session) Abort() {
	s.mu.Lock()
	s.path = ""
	s.lastFiles = nil
	s.generation++
	s.issued = map[*command.Command]issuedCommand{}
	s.mu.Unlock()

	s.queue.Abort()
}

// CommandExecuted handles results of commands this session queued.
func (s *Session) CommandExecuted(c *command.Command) {
	s.mu.Lock()
	issued, ok := s.issued[c]
	delete(s.issued, c)
	current := ok && issued.generation == s.generation
	s.mu.Unlock()

	if !ok {
		return
	}
	if !current {
		s.log.Debug().Stringer("command", c).Msg("ignoring result from before abort")
		return
	}

	result, _ := c.Result()
	if result.Err != nil {
		s.log.Debug().Err(result.Err).Stringer("kind", c.Kind()).Msg("command failed")
		s.publish(Event{Type: ErrorOccurred, Path: issued.path, Err: result.Err})
		return
	}

	switch c.Kind() {
	case command.KindStatus:
		files, _ := result.Value.(git.Records)

		s.mu.Lock()
		stale := issued.path != s.path
		if !stale {
			s.lastFiles = files.Clone()
		}
		s.mu.Unlock()

		if stale {
			s.log.Debug().Str("path", issued.path).Msg("ignoring status of previously selected path")
			return
		}

		s.publish(Event{Type: FilesUpdated, Path: issued.path, Files: files.Clone()})

	case command.KindPush:
		s.publish(Event{Type: Pushed, Path: issued.path})
		if err := s.Refresh(); err != nil {
			s.log.Debug().Err(err).Msg("refresh after push")
		}

	case command.KindRemotes:
		remotes, _ := result.Value.(git.Remotes)
		s.publish(Event{Type: RemotesListed, Path: issued.path, Remotes: remotes})
	}
}

// Aborted re-publishes the executor's abort.
func (s *Session) Aborted() {
	s.publish(Event{Type: Aborted})
}

func (s *Session) enqueue(path string, c *command.Command) {
	s.mu.Lock()
	s.issued[c] = issuedCommand{generation: s.generation, path: path}
	s.mu.Unlock()

	s.queue.Execute(c)
}

func (s *Session) fail(path string, err error) error {
	s.log.Debug().Err(err).Str("kind", string(Classify(err))).Msg("rejected")
	s.publish(Event{Type: ErrorOccurred, Path: path, Err: err})
	return err
}

func (s *Session) publish(e Event) {
	s.mu.Lock()
	handlers := append([]Handler(nil), s.handlers...)
	s.mu.Unlock()

	for _, h := range handlers {
		h.HandleEvent(e)
	}
}
