// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Runner runs one script through a shell and returns both captured
// streams, decoded. It never decides whether the script succeeded.
type Runner interface {
	Run(ctx context.Context, script string) (stdout, stderr string)
}

// DefaultShell is the shell invocation prefix for this platform.
func DefaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// DefaultEncoding is the console code page git output is decoded with.
func DefaultEncoding() string {
	if runtime.GOOS == "windows" {
		return "cp866"
	}
	return "utf-8"
}

var encodingAliases = map[string]encoding.Encoding{
	"cp437":  charmap.CodePage437,
	"cp850":  charmap.CodePage850,
	"cp866":  charmap.CodePage866,
	"cp1251": charmap.Windows1251,
	"cp1252": charmap.Windows1252,
	"utf-8":  unicode.UTF8,
	"utf8":   unicode.UTF8,
}

var errUnknownEncoding = errors.New("unknown encoding")

// LookupEncoding resolves a code page name like "cp866" or any IANA name.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if enc, ok := encodingAliases[strings.ToLower(name)]; ok {
		return enc, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", errUnknownEncoding, name)
	}
	return enc, nil
}

// waitDelay bounds how long a timed-out script's children may keep the
// output pipes open after the shell is killed.
const waitDelay = 500 * time.Millisecond

// ShellRunner runs scripts with a real shell.
type ShellRunner struct {
	Shell    []string
	Encoding encoding.Encoding
	// Timeout kills a script that runs longer. Zero waits forever.
	Timeout time.Duration
}

func (r *ShellRunner) Run(ctx context.Context, script string) (string, string) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	shell := r.Shell
	if len(shell) == 0 {
		shell = DefaultShell()
	}

	args := append(append([]string(nil), shell[1:]...), script)
	cmd := exec.CommandContext(ctx, shell[0], args...)
	cmd.Stdin = strings.NewReader("")
	if r.Timeout > 0 {
		cmd.WaitDelay = waitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	errText := r.decode(stderr.Bytes())
	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		errText += fmt.Sprintf("\ncommand timed out after %s", r.Timeout)
	default:
		// The shell reports failures of the chained lines on stderr.
		// Only failing to run the shell at all is surfaced here.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			errText += err.Error()
		}
	}

	return r.decode(stdout.Bytes()), errText
}

func (r *ShellRunner) decode(b []byte) string {
	if r.Encoding == nil {
		return string(b)
	}

	out, err := r.Encoding.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
