// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package main

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mikesep/stagehand/internal/session"
	"github.com/mikesep/stagehand/internal/watch"
)

type watchOptions struct {
	rootOpts *rootOptions
}

func (opts *watchOptions) Execute(args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}

	a, err := newApp(opts.rootOpts)
	if err != nil {
		return err
	}

	r := a.startSession()
	defer r.close("")

	if err := r.check(r.sess.SetPath(path)); err != nil {
		return err
	}
	if _, err := r.wait(session.FilesUpdated); err != nil {
		return err
	}

	w := watch.New(path, a.cfg.WatchDebounce, func() {
		if err := r.sess.Refresh(); err != nil {
			log.Debug().Err(err).Msg("refresh")
		}
	})
	if err := w.Start(r.ctx); err != nil {
		return err
	}
	defer w.Close()

	// runs until interrupted; command failures are shown and watching goes on
	for {
		e, err := r.wait(session.Aborted)
		switch {
		case err == nil, errors.Is(err, errAborted):
			return nil
		case session.Classify(e.Err) == session.NotARepository:
			return err
		}
	}
}
