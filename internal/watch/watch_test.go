// SPDX-FileCopyrightText: 2021 Michael Seplowitz
// SPDX-License-Identifier: MIT

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bloomberg/go-testgroup"
	"github.com/fsnotify/fsnotify"
)

func Test_Watcher(t *testing.T) {
	testgroup.RunSerially(t, &watcherTests{})
}

type watcherTests struct{}

func fakeRepo(t *testgroup.T) string {
	dir := t.TempDir()
	t.Require.NoError(os.MkdirAll(filepath.Join(dir, ".git", "refs", "heads"), 0o755))
	t.Require.NoError(os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	return dir
}

func startWatcher(t *testgroup.T, repo string, debounce time.Duration) (*Watcher, *int32) {
	var count int32
	w := New(repo, debounce, func() { atomic.AddInt32(&count, 1) })
	t.Require.NoError(w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Close() })
	return w, &count
}

func (grp *watcherTests) Work_tree_write_refreshes(t *testgroup.T) {
	repo := fakeRepo(t)
	_, count := startWatcher(t, repo, 20*time.Millisecond)

	t.Require.NoError(os.WriteFile(filepath.Join(repo, "a.txt"), []byte("a"), 0o644))

	t.Eventually(func() bool { return atomic.LoadInt32(count) >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func (grp *watcherTests) Burst_is_debounced(t *testgroup.T) {
	repo := fakeRepo(t)
	_, count := startWatcher(t, repo, 300*time.Millisecond)

	for _, name := range []string{"a", "b", "c", "d"} {
		t.Require.NoError(os.WriteFile(filepath.Join(repo, name), []byte(name), 0o644))
	}

	t.Eventually(func() bool { return atomic.LoadInt32(count) >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	t.Equal(int32(1), atomic.LoadInt32(count))
}

func (grp *watcherTests) New_subdirectory_is_watched(t *testgroup.T) {
	repo := fakeRepo(t)
	_, count := startWatcher(t, repo, 20*time.Millisecond)

	sub := filepath.Join(repo, "sub")
	t.Require.NoError(os.Mkdir(sub, 0o755))
	t.Eventually(func() bool { return atomic.LoadInt32(count) >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := atomic.LoadInt32(count)
	t.Require.NoError(os.WriteFile(filepath.Join(sub, "x.txt"), []byte("x"), 0o644))
	t.Eventually(func() bool { return atomic.LoadInt32(count) > before }, 2*time.Second, 10*time.Millisecond)
}

func (grp *watcherTests) Index_rewrite_by_refresh_does_not_loop(t *testgroup.T) {
	repo := fakeRepo(t)
	index := filepath.Join(repo, ".git", "index")

	var count int32
	w := New(repo, 100*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
		// what git status does to refresh stat data
		_ = os.WriteFile(index, []byte("refreshed"), 0o644)
	})
	t.Require.NoError(w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Close() })

	t.Require.NoError(os.WriteFile(filepath.Join(repo, "a.txt"), []byte("a"), 0o644))

	t.Eventually(func() bool { return atomic.LoadInt32(&count) >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	t.Equal(int32(1), atomic.LoadInt32(&count))
}

func (grp *watcherTests) Not_a_repository(t *testgroup.T) {
	w := New(t.TempDir(), 0, func() {})
	t.ErrorIs(w.Start(context.Background()), ErrNotARepository)
	t.NoError(w.Close())
}

func (grp *watcherTests) Close_is_idempotent(t *testgroup.T) {
	w, _ := startWatcher(t, fakeRepo(t), 0)
	t.NoError(w.Close())
	t.NotPanics(func() { _ = w.Close() })
}

//------------------------------------------------------------------------------

func Test_relevant(t *testing.T) {
	testgroup.RunInParallel(t, &relevantTests{})
}

type relevantTests struct{}

func (grp *relevantTests) Git_dir(t *testgroup.T) {
	w := New("/repo", 0, func() {})

	t.True(w.relevant(fsnotify.Event{Name: "/repo/.git/index", Op: fsnotify.Write}))
	t.True(w.relevant(fsnotify.Event{Name: "/repo/.git/HEAD", Op: fsnotify.Rename}))
	t.False(w.relevant(fsnotify.Event{Name: "/repo/.git/index.lock", Op: fsnotify.Create}))
	t.False(w.relevant(fsnotify.Event{Name: "/repo/.git/COMMIT_EDITMSG", Op: fsnotify.Write}))
	t.True(w.relevant(fsnotify.Event{Name: "/repo/.git/refs/heads/main", Op: fsnotify.Write}))
}

func (grp *relevantTests) Index_echo_window(t *testgroup.T) {
	w := New("/repo", time.Second, func() {})
	now := time.Now()
	w.settleUntil = now.Add(500 * time.Millisecond)

	index := fsnotify.Event{Name: filepath.Join("/repo", ".git", "index"), Op: fsnotify.Write}
	t.True(w.echo(index, now))
	t.False(w.echo(index, now.Add(time.Second)))

	file := fsnotify.Event{Name: filepath.Join("/repo", "main.go"), Op: fsnotify.Write}
	t.False(w.echo(file, now))
}

func (grp *relevantTests) Work_tree(t *testgroup.T) {
	w := New("/repo", 0, func() {})

	t.True(w.relevant(fsnotify.Event{Name: "/repo/main.go", Op: fsnotify.Write}))
	t.True(w.relevant(fsnotify.Event{Name: "/repo/dir/x", Op: fsnotify.Remove}))
	t.False(w.relevant(fsnotify.Event{Name: "/repo/main.go", Op: fsnotify.Chmod}))
}
