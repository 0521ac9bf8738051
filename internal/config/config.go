// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"github.com/mikesep/stagehand/internal/command"
	"github.com/mikesep/stagehand/internal/executor"
	"github.com/mikesep/stagehand/internal/git"
)

const File = "stagehand.yaml"

var ErrNoConfigFileFound = fmt.Errorf("no %s found", File)

type Config struct {
	Git            string        `yaml:"git,omitempty"`
	Shell          []string      `yaml:"shell,omitempty"`
	Encoding       string        `yaml:"encoding,omitempty"`
	CommandTimeout time.Duration `yaml:"commandTimeout,omitempty"`

	LogLevel string `yaml:"logLevel,omitempty"`
	LogFile  string `yaml:"logFile,omitempty"`

	// Exclude lists globs of paths `push --all` never stages.
	Exclude       []string      `yaml:"exclude,omitempty"`
	WatchDebounce time.Duration `yaml:"watchDebounce,omitempty"`
}

func Default() Config {
	return Config{
		Git:           "git",
		Shell:         executor.DefaultShell(),
		Encoding:      executor.DefaultEncoding(),
		LogLevel:      "warn",
		WatchDebounce: 600 * time.Millisecond,
	}
}

// Load reads path, or the config file found above workDir when path is
// empty. Without any config file the defaults are used.
func Load(path, workDir string) (Config, error) {
	if path == "" {
		found, err := findConfigFile(workDir)
		if errors.Is(err, ErrNoConfigFileFound) {
			return Default(), nil
		}
		if err != nil {
			return Config{}, err
		}
		path = found
	}

	return parseFile(path)
}

func parseFile(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are errors.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decoding error: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// workDir should be absolute
func findConfigFile(workDir string) (string, error) {
	if workDir == "" {
		panic("empty workDir")
	}
	if !filepath.IsAbs(workDir) {
		panic(fmt.Sprintf("workDir should be absolute, got %q", workDir))
	}

	curDir := workDir

	for {
		path := filepath.Join(curDir, File)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}

		if !os.IsNotExist(err) {
			return "", fmt.Errorf("unexpected error type: %T %w", err, err)
		}

		if filepath.Dir(curDir) == curDir {
			return "", ErrNoConfigFileFound
		}

		curDir = filepath.Dir(curDir)
	}
}

//------------------------------------------------------------------------------

func validateConfig(cfg Config) error {
	if cfg.Git == "" {
		return fmt.Errorf("git must not be empty")
	}
	if len(cfg.Shell) == 0 || cfg.Shell[0] == "" {
		return fmt.Errorf("shell must name a program")
	}
	if _, err := executor.LookupEncoding(cfg.Encoding); err != nil {
		return err
	}
	if cfg.CommandTimeout < 0 {
		return fmt.Errorf("commandTimeout must not be negative, got %s", cfg.CommandTimeout)
	}
	if cfg.WatchDebounce < 0 {
		return fmt.Errorf("watchDebounce must not be negative, got %s", cfg.WatchDebounce)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	for _, pattern := range cfg.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Runner builds the shell runner described by the config.
func (cfg Config) Runner() (*executor.ShellRunner, error) {
	enc, err := executor.LookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	return &executor.ShellRunner{
		Shell:    cfg.Shell,
		Encoding: enc,
		Timeout:  cfg.CommandTimeout,
	}, nil
}

// Commands builds git commands quoted for the configured shell.
func (cfg Config) Commands() git.Commands {
	return git.Commands{
		Git:     cfg.Git,
		Dialect: command.DialectFor(cfg.Shell),
	}
}
