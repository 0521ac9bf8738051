// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/mikesep/stagehand/internal/session"
)

type remotesOptions struct {
	rootOpts *rootOptions
}

func (opts *remotesOptions) Execute(args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}

	a, err := newApp(opts.rootOpts)
	if err != nil {
		return err
	}

	r := a.startSession(session.RemotesListed)
	defer r.close("")

	// selecting the path also checks it is a repository
	if err := r.check(r.sess.SetPath(path)); err != nil {
		return err
	}
	if _, err := r.wait(session.FilesUpdated); err != nil {
		return err
	}

	if err := r.check(r.sess.Remotes()); err != nil {
		return err
	}

	_, err = r.wait(session.RemotesListed)
	return err
}
