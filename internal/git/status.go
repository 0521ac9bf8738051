// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package git

import (
	"errors"
	"regexp"
	"strings"

	"github.com/mikesep/stagehand/internal/command"
)

var (
	ErrNotARepository = errors.New("not a git repository")
	ErrNothingChanged = errors.New("nothing changed")
)

// Lines of English `git status` output that delimit its sections.
const (
	NotARepositoryMarker = "fatal: Not a git repository (or any of the parent directories): .git"
	NotStagedMarker      = `(use "git checkout -- <file>..." to discard changes in working directory)`
	NoCommitYetMarker    = `(use "git add <file>..." to include in what will be committed)`
	StagedMarker         = `(use "git reset HEAD <file>..." to unstage)`
)

var fileLine = regexp.MustCompile(`^\t(modified:|new\sfile:|deleted:|renamed:)?\s*(.+)$`)

type FileStatus int

const (
	StatusNew FileStatus = iota
	StatusModified
	StatusDeleted
	StatusRenamed
)

func (s FileStatus) String() string {
	switch s {
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	default:
		return "new"
	}
}

func parseFileStatus(prefix string) FileStatus {
	switch prefix {
	case "modified:":
		return StatusModified
	case "deleted:":
		return StatusDeleted
	case "renamed:":
		return StatusRenamed
	default: // "new file:" or no prefix at all
		return StatusNew
	}
}

// FileRecord is one changed file. Tracked means it is staged.
type FileRecord struct {
	Tracked bool
	Status  FileStatus
	Path    string
}

type Records []FileRecord

// Clone returns an independent copy; nil stays nil.
func (rr Records) Clone() Records {
	if rr == nil {
		return nil
	}
	return append(Records(nil), rr...)
}

type statusState int

const (
	beforeAll statusState = iota
	notTracked
	tracked
)

// ParseStatus turns the output of `git status` into file records, in the
// order git printed them. Lines outside the recognized sections and lines
// that don't look like files are skipped, so a clean tree (or output in
// another language) gives no records and no error.
func ParseStatus(stdout, stderr string) (Records, error) {
	if stderr != "" {
		if strings.Contains(stderr, NotARepositoryMarker) {
			return nil, ErrNotARepository
		}
		return nil, &command.CommandFailedError{Stderr: stderr}
	}

	records := Records{}
	state := beforeAll

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSuffix(line, "\r")

		switch state {
		case beforeAll:
			switch {
			case strings.Contains(line, StagedMarker):
				state = tracked
			case strings.Contains(line, NotStagedMarker),
				strings.Contains(line, NoCommitYetMarker):
				state = notTracked
			}

		case notTracked:
			if strings.Contains(line, StagedMarker) {
				state = tracked
				continue
			}
			records = appendIfFile(records, false, line)

		case tracked:
			if strings.Contains(line, NotStagedMarker) {
				state = notTracked
				continue
			}
			records = appendIfFile(records, true, line)
		}
	}

	return records, nil
}

func appendIfFile(records Records, isTracked bool, line string) Records {
	m := fileLine.FindStringSubmatch(line)
	if m == nil {
		return records
	}

	return append(records, FileRecord{
		Tracked: isTracked,
		Status:  parseFileStatus(m[1]),
		Path:    m[2],
	})
}

func mapStatus(stdout, stderr string) command.Result {
	records, err := ParseStatus(stdout, stderr)
	if err != nil {
		return command.Result{Err: err}
	}
	return command.Result{Value: records}
}
