// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package git

import (
	"bufio"
	"fmt"
	"path"
	"sort"
	"strings"

	giturls "github.com/whilp/git-urls"

	"github.com/mikesep/stagehand/internal/command"
)

type Remotes map[string]*RemoteURLs // name -> URLs

type RemoteURLs struct {
	FetchURL string
	PushURL  string
}

// Names returns the remote names sorted.
func (rr Remotes) Names() []string {
	names := make([]string, 0, len(rr))
	for name := range rr {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseRemotes reads `git remote --verbose` output.
func ParseRemotes(out string) (Remotes, error) {
	remotes := Remotes{}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text()) // name\tURL (type)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected remote line %q", scanner.Text())
		}
		name, url, urlType := fields[0], fields[1], strings.Trim(fields[2], "()")

		r, ok := remotes[name]
		if !ok {
			r = &RemoteURLs{}
			remotes[name] = r
		}

		switch urlType {
		case "fetch":
			r.FetchURL = url
		case "push":
			r.PushURL = url
		default:
			return nil, fmt.Errorf("unexpected url type %q in line %q", urlType, scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return remotes, nil
}

// ComparableURL reduces any git URL form to host/owner/repo, so that
// git@host:o/r.git and https://host/o/r compare equal.
func ComparableURL(rawURL string) (string, error) {
	u, err := giturls.Parse(rawURL)
	if err != nil {
		return "", err
	}

	return path.Join(u.Host, strings.TrimSuffix(u.Path, ".git")), nil
}

func mapRemotes(stdout, stderr string) command.Result {
	if stderr != "" {
		if strings.Contains(stderr, NotARepositoryMarker) {
			return command.Result{Err: ErrNotARepository}
		}
		return command.Result{Err: &command.CommandFailedError{Stderr: stderr}}
	}

	remotes, err := ParseRemotes(stdout)
	if err != nil {
		return command.Result{Err: err}
	}
	return command.Result{Value: remotes}
}
