package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by the watch goroutine while the test reads it
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Contains(s string) bool {
	return strings.Contains(b.String(), s)
}

func startWatch(t *testing.T, dir string, args ...string) (context.CancelFunc, <-chan int, *lockedBuffer, *lockedBuffer) {
	t.Helper()
	t.Setenv("FNSYNC_CONFIG", "")
	t.Setenv("FNSYNC_SOURCE", "")
	t.Setenv("FNSYNC_DEST", "")
	t.Setenv("FNSYNC_TRACE", "")

	configPath := filepath.Join(dir, "fnsync.yaml")
	writeFile(t, configPath, "prettyLogs: false\nwatch:\n  debounce: 50ms\n")

	ctx, cancel := context.WithCancel(context.Background())
	stdout, stderr := &lockedBuffer{}, &lockedBuffer{}
	done := make(chan int, 1)
	go func() {
		done <- Run(ctx, append([]string{"--cwd", dir, "--config", configPath, "watch"}, args...), stdout, stderr)
	}()
	t.Cleanup(cancel)
	return cancel, done, stdout, stderr
}

func waitExit(t *testing.T, done <-chan int) int {
	t.Helper()
	select {
	case code := <-done:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
		return -1
	}
}

func TestWatchRecoversFromFailedResync(t *testing.T) {
	dir := newProject(t)
	source := filepath.Join(dir, "netlify/functions/hello.js")
	destRoot := filepath.Join(dir, "dist/netlify/functions")

	cancel, done, stdout, stderr := startWatch(t, dir)

	require.Eventually(t, func() bool { return stdout.Contains("Watching") }, 5*time.Second, 20*time.Millisecond, stdout.String()+stderr.String())
	assert.FileExists(t, filepath.Join(destRoot, "utils/helper.js"))

	// A file where the destination directory should be makes the next sync fail.
	require.NoError(t, os.RemoveAll(destRoot))
	writeFile(t, destRoot, "blocker")
	writeFile(t, source, "v2")

	require.Eventually(t, func() bool { return stderr.Contains("sync failed") }, 5*time.Second, 20*time.Millisecond, stderr.String())
	assert.True(t, stdout.Contains("Sync failed, waiting for the next change"))

	require.NoError(t, os.Remove(destRoot))
	writeFile(t, source, "v3")

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(destRoot, "hello.js"))
		return err == nil && string(data) == "v3"
	}, 5*time.Second, 20*time.Millisecond, stderr.String())
	assert.FileExists(t, filepath.Join(destRoot, "utils/helper.js"))

	cancel()
	assert.Equal(t, 0, waitExit(t, done))
}

func TestWatchInitialSyncFailureIsFatal(t *testing.T) {
	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "dist"), "blocker")

	_, done, stdout, _ := startWatch(t, dir)

	assert.Equal(t, 1, waitExit(t, done))
	assert.True(t, stdout.Contains("fnsync failed"))
	assert.False(t, stdout.Contains("Watching"))
}

func TestWatchPublishRequiresBucket(t *testing.T) {
	dir := newProject(t)

	_, done, stdout, _ := startWatch(t, dir, "--publish")

	assert.Equal(t, 1, waitExit(t, done))
	assert.True(t, stdout.Contains("publish.bucket"))
	// The publisher is built before the first sync.
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
}
