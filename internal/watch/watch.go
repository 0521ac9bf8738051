// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

// Package watch calls back when files in a repository change, so the status
// shown to the user can follow edits made outside the tool.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/mikesep/stagehand/internal/git"
	"github.com/mikesep/stagehand/internal/logging"
)

const DefaultDebounce = 600 * time.Millisecond

var ErrNotARepository = errors.New("not a git work tree")

type Watcher struct {
	repo     string
	debounce time.Duration
	refresh  func()
	log      zerolog.Logger

	fs    *fsnotify.Watcher
	roots []string

	mu    sync.Mutex
	paths map[string]struct{}

	// git status rewrites .git/index to refresh stat data, so index events
	// right after a refresh are its own echo
	settleUntil time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// New returns a watcher for the work tree at repo. refresh runs on the
// watcher's goroutine, at most once per debounce window.
func New(repo string, debounce time.Duration, refresh func()) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		repo:     repo,
		debounce: debounce,
		refresh:  refresh,
		log:      logging.Component("watch"),
		paths:    map[string]struct{}{},
	}
}

// Start registers the watches and runs until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	if !git.IsRepoRoot(w.repo) {
		return ErrNotARepository
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fs = fsw
	w.done = make(chan struct{})

	gitDir := filepath.Join(w.repo, ".git")
	w.roots = []string{
		w.repo,
		filepath.Join(gitDir, "refs"),
	}

	// index and HEAD live directly in .git; objects and logs are noise
	w.addWatchDir(gitDir)
	for _, root := range w.roots {
		w.addWatchTree(root)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	return nil
}

// Close stops the watcher and waits for a running refresh to return.
func (w *Watcher) Close() error {
	if w.fs == nil {
		return nil
	}

	select {
	case <-w.done:
	default:
		close(w.done)
	}

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) || w.echo(event, time.Now()) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.maybeWatchNewDir(event.Name)
			}
			if fire == nil {
				fire = time.After(w.debounce)
			}

		case <-fire:
			fire = nil
			w.log.Debug().Str("repo", w.repo).Msg("change detected")
			w.refresh()
			w.settleUntil = time.Now().Add(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Debug().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	gitDir := filepath.Join(w.repo, ".git")
	if filepath.Dir(event.Name) == gitDir {
		switch filepath.Base(event.Name) {
		case "index", "HEAD":
			return true
		default:
			// lock files and scratch files git writes next to index
			return false
		}
	}

	return !strings.HasSuffix(event.Name, ".lock")
}

// echo reports whether event is the index rewrite a refresh just caused.
func (w *Watcher) echo(event fsnotify.Event, now time.Time) bool {
	if event.Name != filepath.Join(w.repo, ".git", "index") {
		return false
	}
	return now.Before(w.settleUntil)
}

func (w *Watcher) isUnderRoot(path string) bool {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) maybeWatchNewDir(path string) {
	if !w.isUnderRoot(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	w.addWatchTree(path)
}

func (w *Watcher) addWatchDir(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; ok {
		return
	}
	if err := w.fs.Add(path); err != nil {
		w.log.Debug().Err(err).Str("dir", path).Msg("watch add failed")
		return
	}
	w.paths[path] = struct{}{}
}

func (w *Watcher) addWatchTree(root string) {
	gitDir := filepath.Join(w.repo, ".git")

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path == gitDir {
			return filepath.SkipDir
		}
		if path != root && d.Name() == ".git" {
			// nested repository
			return filepath.SkipDir
		}
		w.addWatchDir(path)
		return nil
	})
}
