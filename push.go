// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mikesep/stagehand/internal/git"
	"github.com/mikesep/stagehand/internal/session"
)

var errUnknownFile = errors.New("not among the changed files")

type pushOptions struct {
	rootOpts *rootOptions

	Message string   `short:"m" long:"message" required:"true" value-name:"MSG" description:"commit message"`
	All     bool     `short:"a" long:"all" description:"stage every changed file not matched by the config's exclude globs"`
	Stage   []string `short:"s" long:"stage" value-name:"FILE" description:"stage FILE (repeatable)"`
	Unstage []string `short:"u" long:"unstage" value-name:"FILE" description:"unstage FILE (repeatable)"`
}

func (opts *pushOptions) Execute(args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}

	a, err := newApp(opts.rootOpts)
	if err != nil {
		return err
	}

	r := a.startSession(session.FilesUpdated, session.Pushed)
	defer r.close("")

	// plan against a fresh status, the same files the selection is made from
	if err := r.check(r.sess.SetPath(path)); err != nil {
		return err
	}
	if _, err := r.wait(session.FilesUpdated); err != nil {
		return err
	}

	desired, err := selectFiles(r.sess.Files(), opts.selection(a.cfg.Excludes))
	if err != nil {
		return err
	}

	if err := r.check(r.sess.Push(desired, opts.Message)); err != nil {
		return err
	}
	if _, err := r.wait(session.Pushed); err != nil {
		return err
	}

	_, err = r.wait(session.FilesUpdated)
	return err
}

type selection struct {
	all      bool
	excludes func(string) bool
	stage    []string
	unstage  []string
}

func (opts *pushOptions) selection(excludes func(string) bool) selection {
	return selection{
		all:      opts.All,
		excludes: excludes,
		stage:    opts.Stage,
		unstage:  opts.Unstage,
	}
}

// selectFiles starts from the staged state git reported and applies the
// user's choices in order: --all, then --stage, then --unstage.
func selectFiles(files git.Records, sel selection) (git.Records, error) {
	desired := files.Clone()

	index := make(map[string]int, len(desired))
	for i, f := range desired {
		index[f.Path] = i
	}

	if sel.all {
		for i := range desired {
			if sel.excludes == nil || !sel.excludes(desired[i].Path) {
				desired[i].Tracked = true
			}
		}
	}

	for _, set := range []struct {
		paths   []string
		tracked bool
	}{
		{sel.stage, true},
		{sel.unstage, false},
	} {
		for _, p := range set.paths {
			i, ok := index[filepath.ToSlash(filepath.Clean(p))]
			if !ok {
				return nil, fmt.Errorf("%q: %w", p, errUnknownFile)
			}
			desired[i].Tracked = set.tracked
		}
	}

	return desired, nil
}
