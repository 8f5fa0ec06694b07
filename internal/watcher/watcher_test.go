package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumebuilder/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = errors.NewLogger(slog.LevelError)

func touch(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func waitForCall(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestFileWatcherInvokesCallbackOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "suggest.md")
	touch(t, file, "v1", time.Now().Add(-time.Hour))

	calls := make(chan struct{}, 4)
	w := New("prompts", []string{file}, 20*time.Millisecond, func() { calls <- struct{}{} }, testLogger)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	touch(t, file, "v2", time.Now())
	waitForCall(t, calls)
}

func TestFileWatcherDetectsAtomicRename(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cert.pem")
	touch(t, file, "old", time.Now().Add(-time.Hour))

	calls := make(chan struct{}, 4)
	w := New("tls", []string{file}, 20*time.Millisecond, func() { calls <- struct{}{} }, testLogger)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	tmp := filepath.Join(dir, "cert.pem.tmp")
	touch(t, tmp, "new", time.Now())
	require.NoError(t, os.Rename(tmp, file))
	waitForCall(t, calls)
}

func TestFileWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "score.md")
	touch(t, file, "v1", time.Now().Add(-time.Hour))

	calls := make(chan struct{}, 4)
	w := New("prompts", []string{file}, 20*time.Millisecond, func() { calls <- struct{}{} }, testLogger)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	touch(t, filepath.Join(dir, "other.md"), "noise", time.Now())

	select {
	case <-calls:
		t.Fatal("callback should not fire for unrelated files")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileWatcherLifecycle(t *testing.T) {
	file := filepath.Join(t.TempDir(), "key.pem")
	touch(t, file, "key", time.Now())

	w := New("tls", []string{file, "", file}, 0, func() {}, testLogger)
	assert.Equal(t, []string{file}, w.Files())
	assert.False(t, w.IsRunning())

	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(), "second start should fail")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop(), "stopping twice is a no-op")

	require.NoError(t, w.Start(), "watcher can be restarted")
	require.NoError(t, w.Stop())
}

func TestFileWatcherRequiresFiles(t *testing.T) {
	w := New("empty", nil, 0, func() {}, testLogger)
	assert.Error(t, w.Start())
}
