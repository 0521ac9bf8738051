// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package git

import (
	"os"
	"path/filepath"
)

// FindReposInDir walks root breadth first and returns the directories that
// contain a .git entry, without descending into them.
func FindReposInDir(root string) ([]string, error) {
	var repos []string

	if IsRepoRoot(root) {
		return []string{root}, nil
	}

	dirQueue := []string{root}

	for len(dirQueue) > 0 {
		dirPath := dirQueue[0]
		dirQueue = dirQueue[1:]

		entries, err := os.ReadDir(dirPath)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if !entry.IsDir() || entry.Name() == ".git" {
				continue
			}

			entryPath := filepath.Join(dirPath, entry.Name())
			if IsRepoRoot(entryPath) {
				repos = append(repos, entryPath)
			} else {
				dirQueue = append(dirQueue, entryPath)
			}
		}
	}

	return repos, nil
}

// IsRepoRoot reports whether dir has a .git directory or file (worktrees
// and submodules use a file).
func IsRepoRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
