package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigManagerDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	cm, err := NewConfigManager[types.AppConfig]()
	require.NoError(t, err)
	cfg, err := cm.Unmarshal()
	require.NoError(t, err)

	assert.Equal(t, types.DefaultSourceDir, cfg.Sync.SourceDir)
	assert.Equal(t, types.DefaultDestDir, cfg.Sync.DestDir)
	assert.Equal(t, types.DefaultUtilsName, cfg.Sync.UtilsName)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 8, cfg.Publish.Concurrency)
	assert.True(t, cfg.PrettyLogs)
	assert.NoError(t, cfg.Validate())
}

func TestConfigManagerLayersFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(envFile, []byte("sync:\n  sourceDir: api\nwatch:\n  debounce: 1s\n"), 0644))
	jsonFile := filepath.Join(dir, "override.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"sync": {"destDir": "out/api"}, "trace": true}`), 0644))

	t.Setenv(ConfigPathEnvVar, envFile)
	cm, err := NewConfigManager[types.AppConfig]()
	require.NoError(t, err)
	require.NoError(t, cm.LoadFile(jsonFile))

	cfg, err := cm.Unmarshal()
	require.NoError(t, err)
	assert.Equal(t, "api", cfg.Sync.SourceDir)
	assert.Equal(t, "out/api", cfg.Sync.DestDir)
	assert.Equal(t, types.DefaultUtilsName, cfg.Sync.UtilsName)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.True(t, cfg.Trace)
}

func TestConfigManagerWeakTyping(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	path := filepath.Join(t.TempDir(), "publish.yaml")
	require.NoError(t, os.WriteFile(path, []byte("publish:\n  bucket: artifacts\n  concurrency: \"2\"\n"), 0644))

	cm, err := NewConfigManager[types.AppConfig]()
	require.NoError(t, err)
	require.NoError(t, cm.LoadFile(path))

	cfg, err := cm.Unmarshal()
	require.NoError(t, err)
	assert.Equal(t, "artifacts", cfg.Publish.Bucket)
	assert.Equal(t, 2, cfg.Publish.Concurrency)
	assert.True(t, cfg.Publish.IsConfigured())
}

func TestConfigManagerDecodeError(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watch:\n  debounce: soon\n"), 0644))

	cm, err := NewConfigManager[types.AppConfig]()
	require.NoError(t, err)
	require.NoError(t, cm.LoadFile(path))

	_, err = cm.Unmarshal()
	assert.Error(t, err)
}

func TestConfigManagerMissingFile(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := NewConfigManager[types.AppConfig]()
	assert.Error(t, err)
}
