// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package config

import (
	"path"
	"path/filepath"
)

// Excludes reports whether a repository-relative path matches any Exclude
// glob, either as a whole or by its base name.
func (cfg Config) Excludes(p string) bool {
	if len(cfg.Exclude) == 0 {
		return false
	}

	p = filepath.ToSlash(p)
	return matchesAnyFilter(p, cfg.Exclude) || matchesAnyFilter(path.Base(p), cfg.Exclude)
}

// Patterns were checked by validateConfig, so Match cannot fail here.
func matchesAnyFilter(word string, filters []string) bool {
	for _, filter := range filters {
		if matched, _ := path.Match(filter, word); matched {
			return true
		}
	}

	return false
}
