// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/mikesep/stagehand/internal/command"
	"github.com/mikesep/stagehand/internal/executor"
	"github.com/mikesep/stagehand/internal/git"
	"github.com/mikesep/stagehand/internal/report"
	"github.com/mikesep/stagehand/internal/session"
)

type listOptions struct {
	rootOpts *rootOptions
}

func (opts *listOptions) Execute(args []string) error {
	root, err := pathArg(args)
	if err != nil {
		return err
	}

	repos, err := git.FindReposInDir(root)
	if err != nil {
		return err
	}

	if len(repos) == 0 {
		fmt.Printf("No repositories under %s.\n", root)
		return nil
	}

	a, err := newApp(opts.rootOpts)
	if err != nil {
		return err
	}

	output := report.NewProgress(os.Stdout, stdoutIsTerminal(), root, repos)

	note := ""
	if err := queueStatuses(a, repos, output); err != nil {
		note = "Interrupted."
	}

	a.close()
	output.Done(note)

	if c := output.NumFailed(); c > 0 {
		return fmt.Errorf("%d of %d repositories failed: %w", c, len(repos), errReported)
	}
	return nil
}

// queueStatuses queues one status query per repo on the app's executor and
// reports each result as it arrives, in queue order.
func queueStatuses(a *app, repos []string, output session.Handler) error {
	commands := a.cfg.Commands()

	var mu sync.Mutex
	pathOf := make(map[*command.Command]string, len(repos))
	remaining := len(repos)
	allDone := make(chan struct{})

	a.exec.Subscribe(executor.ListenerFuncs{
		OnExecuted: func(c *command.Command) {
			mu.Lock()
			path, ok := pathOf[c]
			mu.Unlock()
			if !ok {
				return
			}

			output.HandleEvent(statusEvent(path, c))

			mu.Lock()
			remaining--
			if remaining == 0 {
				close(allDone)
			}
			mu.Unlock()
		},
	})

	for _, repo := range repos {
		c, err := commands.Status(repo)
		if err != nil {
			// repos come from a filesystem walk, so they are absolute
			output.HandleEvent(session.Event{Type: session.ErrorOccurred, Path: repo, Err: err})
			mu.Lock()
			remaining--
			mu.Unlock()
			continue
		}

		mu.Lock()
		pathOf[c] = repo
		mu.Unlock()
		a.exec.Execute(c)
	}

	mu.Lock()
	if remaining == 0 {
		mu.Unlock()
		return nil
	}
	mu.Unlock()

	select {
	case <-allDone:
		return nil
	case <-a.ctx.Done():
		a.exec.Abort()
		return a.ctx.Err()
	}
}

func statusEvent(path string, c *command.Command) session.Event {
	result, _ := c.Result()
	if result.Err != nil {
		return session.Event{Type: session.ErrorOccurred, Path: path, Err: result.Err}
	}

	files, _ := result.Value.(git.Records)
	return session.Event{Type: session.FilesUpdated, Path: path, Files: files}
}
