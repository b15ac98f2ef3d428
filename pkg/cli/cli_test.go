package cli

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("FNSYNC_CONFIG", "")
	t.Setenv("FNSYNC_SOURCE", "")
	t.Setenv("FNSYNC_DEST", "")
	t.Setenv("FNSYNC_TRACE", "")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "netlify/functions/hello.js"), "export default () => 'hi'")
	writeFile(t, filepath.Join(dir, "netlify/functions/utils/helper.js"), "export const h = 1")
	return dir
}

func TestSyncCommand(t *testing.T) {
	dir := newProject(t)

	code, stdout, stderr := runCLI(t, "--cwd", dir, "sync")
	require.Equal(t, 0, code, stdout+stderr)

	hello, err := os.ReadFile(filepath.Join(dir, "dist/netlify/functions/hello.js"))
	require.NoError(t, err)
	assert.Equal(t, "export default () => 'hi'", string(hello))
	helper, err := os.ReadFile(filepath.Join(dir, "dist/netlify/functions/utils/helper.js"))
	require.NoError(t, err)
	assert.Equal(t, "export const h = 1", string(helper))

	assert.Contains(t, stdout, "Functions synced")
	assert.Contains(t, stderr, "copying functions")
	assert.Contains(t, stderr, "copying utils")
}

func TestRootDefaultsToSync(t *testing.T) {
	dir := newProject(t)

	code, _, _ := runCLI(t, "--cwd", dir)
	require.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(dir, "dist/netlify/functions/hello.js"))
}

func TestSyncJSONOutput(t *testing.T) {
	dir := newProject(t)

	code, stdout, _ := runCLI(t, "--cwd", dir, "--json", "sync")
	require.Equal(t, 0, code)

	var report types.SyncReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 2, report.Files)
	assert.True(t, report.UtilsCopied)
}

func TestSyncFailureExitsNonZero(t *testing.T) {
	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "dist"), "a file where a directory should be")

	code, stdout, stderr := runCLI(t, "--cwd", dir, "sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "fnsync failed")
	assert.Contains(t, stdout, filepath.Join(dir, "dist/netlify/functions"))
	assert.Contains(t, stderr, "fnsync failed")
}

func TestSyncMissingSource(t *testing.T) {
	dir := t.TempDir()

	code, stdout, _ := runCLI(t, "--cwd", dir, "sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "does not exist")
}

func TestSyncFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "api/a.js"), "a")
	writeFile(t, filepath.Join(dir, "api/lib/b.js"), "b")
	writeFile(t, filepath.Join(dir, "fnsync.yaml"), "sync:\n  sourceDir: api\n  destDir: build/wrong\n")

	code, stdout, stderr := runCLI(t, "--cwd", dir, "--config", "fnsync.yaml", "--dest", "build/api", "--utils", "lib", "sync")
	require.Equal(t, 0, code, stdout+stderr)

	assert.FileExists(t, filepath.Join(dir, "build/api/a.js"))
	assert.FileExists(t, filepath.Join(dir, "build/api/lib/b.js"))
	assert.NoDirExists(t, filepath.Join(dir, "build/wrong"))
}

func TestInvalidConfigExitsNonZero(t *testing.T) {
	dir := newProject(t)

	code, stdout, stderr := runCLI(t, "--cwd", dir, "--utils", "a/b", "sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Invalid configuration")
	assert.Contains(t, stderr, "fnsync failed")
}

func TestConfigLoadFailureLogsToStderr(t *testing.T) {
	dir := newProject(t)

	code, _, stderr := runCLI(t, "--cwd", dir, "--config", "missing.yaml", "sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "fnsync failed")
	assert.Contains(t, stderr, "missing.yaml")
}

func TestSyncWithTrace(t *testing.T) {
	dir := newProject(t)

	code, _, stderr := runCLI(t, "--cwd", dir, "--trace", "sync")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "trace summary")
}

func TestBundleCommand(t *testing.T) {
	dir := newProject(t)

	code, stdout, stderr := runCLI(t, "--cwd", dir, "bundle", "--output", "out/fn.tar.gz")
	require.Equal(t, 0, code, stdout+stderr)
	assert.Contains(t, stdout, "Bundle written")

	f, err := os.Open(filepath.Join(dir, "out/fn.tar.gz"))
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gr)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	assert.Contains(t, names, "hello.js")
	assert.Contains(t, names, "utils/helper.js")
}

func TestPublishRequiresBucket(t *testing.T) {
	dir := newProject(t)

	code, stdout, _ := runCLI(t, "--cwd", dir, "publish")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "publish.bucket")
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "--cwd", t.TempDir(), "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, Version)
}
