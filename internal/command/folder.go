// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package command

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidPath = errors.New("not a usable folder path")

var drivePath = regexp.MustCompile(`^(\w:)([/\\].*)$`)

// FolderPrefix returns the lines that move the shell into path.
//
// A drive path like `C:\repo` selects the drive first and then changes
// directory: `C:`, `cd \repo`. An absolute slash path only changes
// directory. Anything else is ErrInvalidPath.
func FolderPrefix(path string) ([]string, error) {
	if m := drivePath.FindStringSubmatch(path); m != nil {
		return []string{m[1], "cd " + m[2]}, nil
	}

	if strings.HasPrefix(path, "/") {
		return []string{"cd " + shellQuote(path)}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
}

// NewFolder is New with the folder prefix for path in front of lines.
func NewFolder(path string, kind Kind, lines []string, mapper Mapper) (*Command, error) {
	prefix, err := FolderPrefix(path)
	if err != nil {
		return nil, err
	}

	c := New(kind, lines, mapper)
	c.lines = append(prefix, c.lines...)
	return c, nil
}
