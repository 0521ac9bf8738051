// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/mikesep/stagehand/internal/session"
)

type statusOptions struct {
	rootOpts *rootOptions
}

func (opts *statusOptions) Execute(args []string) error {
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

	_, err = r.wait(session.FilesUpdated)
	return err
}
