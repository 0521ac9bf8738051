// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package executor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bloomberg/go-testgroup"

	"github.com/mikesep/stagehand/internal/command"
	"github.com/mikesep/stagehand/internal/executor"
)

// fakeRunner records scripts and can hold or slow down chosen ones.
type fakeRunner struct {
	mu      sync.Mutex
	scripts []string

	started chan string
	gates   map[string]chan struct{}
	delays  map[string]time.Duration
	stderr  map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		started: make(chan string, 16),
		gates:   map[string]chan struct{}{},
		delays:  map[string]time.Duration{},
		stderr:  map[string]string{},
	}
}

func (r *fakeRunner) Run(ctx context.Context, script string) (string, string) {
	r.mu.Lock()
	r.scripts = append(r.scripts, script)
	gate := r.gates[script]
	delay := r.delays[script]
	stderr := r.stderr[script]
	r.mu.Unlock()

	r.started <- script

	if gate != nil {
		<-gate
	}
	time.Sleep(delay)

	return "out:" + script, stderr
}

func (r *fakeRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scripts...)
}

type recorder struct {
	executed chan *command.Command
	aborted  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		executed: make(chan *command.Command, 16),
		aborted:  make(chan struct{}, 4),
	}
}

func (r *recorder) CommandExecuted(c *command.Command) { r.executed <- c }
func (r *recorder) Aborted()                           { r.aborted <- struct{}{} }

func (r *recorder) next(t *testgroup.T) *command.Command {
	select {
	case c := <-r.executed:
		return c
	case <-time.After(5 * time.Second):
		t.Require.FailNow("timed out waiting for an executed command")
		return nil
	}
}

func plain(text string) *command.Command {
	return command.New(command.KindPlain, []string{text}, nil)
}

//------------------------------------------------------------------------------

func Test_Executor(t *testing.T) {
	testgroup.RunInParallel(t, &ExecutorTests{})
}

type ExecutorTests struct{}

func (*ExecutorTests) Runs_and_maps_result(t *testgroup.T) {
	runner := newFakeRunner()
	runner.stderr["bad"] = "fatal: bad"

	e := executor.New(runner)
	defer e.Stop()

	rec := newRecorder()
	e.Subscribe(rec)

	good, bad := plain("good"), plain("bad")
	e.Execute(good)
	e.Execute(bad)

	t.Same(good, rec.next(t))
	r, done := good.Result()
	t.True(done)
	t.Equal("out:good", r.Value)

	t.Same(bad, rec.next(t))
	r, _ = bad.Result()
	var failed *command.CommandFailedError
	t.ErrorAs(r.Err, &failed)
}

func (*ExecutorTests) FIFO_regardless_of_duration(t *testgroup.T) {
	runner := newFakeRunner()
	runner.delays["x"] = 150 * time.Millisecond
	runner.delays["y"] = 10 * time.Millisecond
	runner.delays["z"] = 50 * time.Millisecond

	e := executor.New(runner)
	defer e.Stop()

	rec := newRecorder()
	e.Subscribe(rec)

	x, y, z := plain("x"), plain("y"), plain("z")
	e.Execute(x)
	e.Execute(y)
	e.Execute(z)

	t.Same(x, rec.next(t))
	t.Same(y, rec.next(t))
	t.Same(z, rec.next(t))
	t.Equal([]string{"x", "y", "z"}, runner.ran())
}

func (*ExecutorTests) Abort_drops_only_pending(t *testgroup.T) {
	runner := newFakeRunner()
	release := make(chan struct{})
	runner.gates["x"] = release

	e := executor.New(runner)
	rec := newRecorder()
	e.Subscribe(rec)

	x, y, z := plain("x"), plain("y"), plain("z")
	e.Execute(x)
	t.Equal("x", <-runner.started)

	e.Execute(y)
	e.Execute(z)
	t.Equal(2, e.Pending())

	e.Abort()
	t.Equal(0, e.Pending())
	close(release)

	t.Same(x, rec.next(t))

	select {
	case <-rec.aborted:
	case <-time.After(time.Second):
		t.Require.FailNow("aborted was not reported")
	}

	// A command queued after the abort still runs, and proves y and z
	// were skipped rather than delayed.
	after := plain("after")
	e.Execute(after)
	t.Same(after, rec.next(t))

	e.Stop()

	t.Equal([]string{"x", "after"}, runner.ran())
	_, done := y.Result()
	t.False(done)
	_, done = z.Result()
	t.False(done)
}

func (*ExecutorTests) Stop_waits_for_running_command(t *testgroup.T) {
	runner := newFakeRunner()
	release := make(chan struct{})
	runner.gates["slow"] = release

	e := executor.New(runner)

	slow, queued := plain("slow"), plain("queued")
	e.Execute(slow)
	<-runner.started
	e.Execute(queued)

	stopped := make(chan struct{})
	go func() {
		e.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Require.FailNow("Stop returned while a command was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped

	_, done := slow.Result()
	t.True(done)
	_, done = queued.Result()
	t.False(done)
}

func (*ExecutorTests) Listener_hands_Stop_to_another_goroutine(t *testgroup.T) {
	runner := newFakeRunner()
	e := executor.New(runner)

	stopped := make(chan struct{})
	e.Subscribe(executor.ListenerFuncs{OnExecuted: func(*command.Command) {
		// the worker is the caller here, so Stop has to run elsewhere
		go func() {
			e.Stop()
			close(stopped)
		}()
	}})

	first := plain("first")
	e.Execute(first)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Require.FailNow("Stop did not return")
	}

	_, done := first.Result()
	t.True(done)
	e.Execute(plain("late"))
	t.Equal(0, e.Pending())
}

func (*ExecutorTests) Execute_after_stop_is_ignored(t *testgroup.T) {
	runner := newFakeRunner()
	e := executor.New(runner)
	e.Stop()
	e.Stop()

	e.Execute(plain("late"))

	t.Equal(0, e.Pending())
	t.Empty(runner.ran())
}

func (*ExecutorTests) ListenerFuncs_skip_nil(t *testgroup.T) {
	var l executor.Listener = executor.ListenerFuncs{}
	t.NotPanics(func() {
		l.CommandExecuted(plain("x"))
		l.Aborted()
	})
}

//------------------------------------------------------------------------------

func Test_LookupEncoding(t *testing.T) {
	testgroup.RunInParallel(t, &EncodingTests{})
}

type EncodingTests struct{}

func (*EncodingTests) Decodes_cp866(t *testgroup.T) {
	enc, err := executor.LookupEncoding("CP866")
	t.Require.NoError(err)

	// "Привет" in code page 866
	out, err := enc.NewDecoder().Bytes([]byte{0x8f, 0xe0, 0xa8, 0xa2, 0xa5, 0xe2})
	t.Require.NoError(err)
	t.Equal("Привет", string(out))
}

func (*EncodingTests) IANA_names(t *testgroup.T) {
	_, err := executor.LookupEncoding("windows-1251")
	t.NoError(err)
}

func (*EncodingTests) Unknown(t *testgroup.T) {
	_, err := executor.LookupEncoding("klingon")
	t.Require.Error(err)
}
