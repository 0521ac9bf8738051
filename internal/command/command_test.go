// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package command_test

import (
	"errors"
	"testing"

	"github.com/bloomberg/go-testgroup"

	"github.com/mikesep/stagehand/internal/command"
)

func Test_Command(t *testing.T) {
	testgroup.RunInParallel(t, &CommandTests{})
}

type CommandTests struct{}

func (*CommandTests) Joins_lines_with_separator(t *testgroup.T) {
	c := command.New(command.KindPlain, []string{"git add a", "git commit -m \"x\""}, nil)

	t.Equal(`git add a && git commit -m "x"`, c.Text())
	t.Equal([]string{"git add a", `git commit -m "x"`}, c.Lines())
}

func (*CommandTests) Splits_pre_chained_text(t *testgroup.T) {
	c := command.New(command.KindPlain, []string{"git status && git log"}, nil)

	t.Equal([]string{"git status", "git log"}, c.Lines())
}

func (*CommandTests) Result_is_absent_until_set(t *testgroup.T) {
	c := command.New(command.KindPlain, []string{"echo"}, nil)

	_, done := c.Result()
	t.False(done)

	t.True(c.SetOutput("out", ""))

	r, done := c.Result()
	t.True(done)
	t.Equal("out", r.Value)
	t.NoError(r.Err)
}

func (*CommandTests) Result_is_set_once(t *testgroup.T) {
	c := command.New(command.KindPlain, []string{"echo"}, nil)

	t.True(c.SetOutput("first", ""))
	t.False(c.SetOutput("second", "boom"))

	r, _ := c.Result()
	t.Equal("first", r.Value)
}

func (*CommandTests) PassThrough_fails_on_stderr(t *testgroup.T) {
	r := command.PassThrough("ignored", "fatal: nope\n")

	t.Nil(r.Value)

	var failed *command.CommandFailedError
	t.Require.True(errors.As(r.Err, &failed))
	t.Equal("fatal: nope\n", failed.Stderr)
	t.Equal("command failed: fatal: nope", failed.Error())
}

func (*CommandTests) Custom_mapper_is_used(t *testgroup.T) {
	c := command.New(command.KindStatus, []string{"git status"}, func(stdout, stderr string) command.Result {
		return command.Result{Value: len(stdout)}
	})

	c.SetOutput("abc", "")
	r, _ := c.Result()
	t.Equal(3, r.Value)
	t.Equal(command.KindStatus, c.Kind())
}

//------------------------------------------------------------------------------

func Test_Folder(t *testing.T) {
	testgroup.RunInParallel(t, &FolderTests{})
}

type FolderTests struct{}

func (*FolderTests) Drive_path(t *testgroup.T) {
	c, err := command.NewFolder(`C:\repo`, command.KindPlain, []string{"status"}, nil)
	t.Require.NoError(err)

	t.Equal([]string{"C:", `cd \repo`, "status"}, c.Lines())
}

func (*FolderTests) Drive_path_with_forward_slashes(t *testgroup.T) {
	lines, err := command.FolderPrefix("D:/work/repo")
	t.Require.NoError(err)

	t.Equal([]string{"D:", "cd /work/repo"}, lines)
}

func (*FolderTests) Absolute_slash_path(t *testgroup.T) {
	lines, err := command.FolderPrefix("/home/me/it's here")
	t.Require.NoError(err)

	t.Equal([]string{`cd '/home/me/it'\''s here'`}, lines)
}

func (*FolderTests) Invalid_paths(t *testgroup.T) {
	for _, p := range []string{"relative/path", "", "C:", `repo\sub`} {
		c, err := command.NewFolder(p, command.KindPlain, []string{"status"}, nil)
		t.Nil(c)
		t.ErrorIs(err, command.ErrInvalidPath, "path %q", p)
	}
}

func (*FolderTests) Prefix_is_not_split(t *testgroup.T) {
	c, err := command.NewFolder("/a && b", command.KindPlain, []string{"git status && git log"}, nil)
	t.Require.NoError(err)

	t.Equal([]string{"cd '/a && b'", "git status", "git log"}, c.Lines())
}

//------------------------------------------------------------------------------

func Test_Dialect(t *testing.T) {
	testgroup.RunInParallel(t, &DialectTests{})
}

type DialectTests struct{}

func (*DialectTests) For_shell(t *testgroup.T) {
	t.Equal(command.Cmd, command.DialectFor([]string{"cmd", "/C"}))
	t.Equal(command.Cmd, command.DialectFor([]string{`C:\Windows\System32\CMD.EXE`, "/C"}))
	t.Equal(command.POSIX, command.DialectFor([]string{"sh", "-c"}))
	t.Equal(command.POSIX, command.DialectFor([]string{"/bin/bash", "-c"}))
	t.Equal(command.POSIX, command.DialectFor(nil))
}

func (*DialectTests) POSIX_args(t *testgroup.T) {
	for in, want := range map[string]string{
		"a.go":          "a.go",
		"dir/b-1_x.txt": "dir/b-1_x.txt",
		"with space":    "'with space'",
		"it's.txt":      `'it'\''s.txt'`,
		"$HOME":         "'$HOME'",
		"`x`":           "'`x`'",
		`back\slash`:    `'back\slash'`,
		"semi;colon":    "'semi;colon'",
		"":              "''",
	} {
		t.Equal(want, command.POSIX.Arg(in), "arg %q", in)
	}
}

func (*DialectTests) POSIX_message(t *testgroup.T) {
	t.Equal(`'say "hi" $USER'`, command.POSIX.Message(`say "hi" $USER`))
	t.Equal(`'don'\''t'`, command.POSIX.Message("don't"))
}

func (*DialectTests) Cmd(t *testgroup.T) {
	t.Equal("a.go", command.Cmd.Arg("a.go"))
	t.Equal(`"with space"`, command.Cmd.Arg("with space"))
	t.Equal(`"say 'hi'"`, command.Cmd.Message(`say "hi"`))
}
