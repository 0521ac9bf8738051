// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

/*
stagehand status  [PATH]
stagehand push    -m MSG [-a] [-s FILE]... [-u FILE]... [PATH]
stagehand watch   [PATH]
stagehand remotes [PATH]
stagehand list    [DIR]

config: stagehand.yaml, found by walking up from the working directory
*/

type rootOptions struct {
	Status  statusOptions  `command:"status" description:"show staged and unstaged files"`
	Push    pushOptions    `command:"push" description:"stage the chosen files, commit and push"`
	Watch   watchOptions   `command:"watch" description:"show status and refresh it when files change"`
	Remotes remotesOptions `command:"remotes" description:"list remotes"`
	List    listOptions    `command:"list" alias:"ls" description:"show a status summary of every repository under a directory"`

	ConfigPath string `long:"config" env:"STAGEHAND_CONFIG" value-name:"FILE" description:"path to config (default: stagehand.yaml in this or a parent dir)"`
	Verbose    []bool `short:"v" long:"verbose" description:"log more (repeat for even more)"`
	LogFile    string `long:"log-file" value-name:"FILE" description:"write logs to FILE instead of stderr"`
}

// errReported is returned by commands whose failure was already shown.
var errReported = errors.New("failed")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts rootOptions
	opts.Status.rootOpts = &opts
	opts.Push.rootOpts = &opts
	opts.Watch.rootOpts = &opts
	opts.Remotes.rootOpts = &opts
	opts.List.rootOpts = &opts

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(args)
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) {
			if flagErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, flagErr.Message)
				return 0
			}
		}
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}

	return 0
}
