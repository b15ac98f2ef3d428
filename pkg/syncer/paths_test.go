package syncer

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	cwd := filepath.FromSlash("/work/site")

	tests := []struct {
		name     string
		cfg      types.SyncConfig
		expected types.SyncPaths
	}{
		{
			name: "default layout",
			cfg:  types.SyncConfig{},
			expected: types.SyncPaths{
				SourceRoot:  filepath.FromSlash("/work/site/netlify/functions"),
				DestRoot:    filepath.FromSlash("/work/site/dist/netlify/functions"),
				SourceUtils: filepath.FromSlash("/work/site/netlify/functions/utils"),
				DestUtils:   filepath.FromSlash("/work/site/dist/netlify/functions/utils"),
			},
		},
		{
			name: "custom relative dirs and utils name",
			cfg:  types.SyncConfig{SourceDir: "api", DestDir: "out/api", UtilsName: "lib"},
			expected: types.SyncPaths{
				SourceRoot:  filepath.FromSlash("/work/site/api"),
				DestRoot:    filepath.FromSlash("/work/site/out/api"),
				SourceUtils: filepath.FromSlash("/work/site/api/lib"),
				DestUtils:   filepath.FromSlash("/work/site/out/api/lib"),
			},
		},
		{
			name: "absolute destination",
			cfg:  types.SyncConfig{DestDir: filepath.FromSlash("/tmp/build/fn/")},
			expected: types.SyncPaths{
				SourceRoot:  filepath.FromSlash("/work/site/netlify/functions"),
				DestRoot:    filepath.FromSlash("/tmp/build/fn"),
				SourceUtils: filepath.FromSlash("/work/site/netlify/functions/utils"),
				DestUtils:   filepath.FromSlash("/tmp/build/fn/utils"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePaths(cwd, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolvePathsRejects(t *testing.T) {
	cwd := filepath.FromSlash("/work/site")

	tests := []struct {
		name string
		cfg  types.SyncConfig
	}{
		{name: "utils with separator", cfg: types.SyncConfig{UtilsName: "a/b"}},
		{name: "utils dot dot", cfg: types.SyncConfig{UtilsName: ".."}},
		{name: "dest equals source", cfg: types.SyncConfig{SourceDir: "fn", DestDir: "fn/"}},
		{name: "dest inside source", cfg: types.SyncConfig{SourceDir: "fn", DestDir: "fn/dist"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolvePaths(cwd, tt.cfg)
			var cfgErr *types.ConfigError
			assert.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestResolvePathsAllowsSiblingWithSharedPrefix(t *testing.T) {
	got, err := ResolvePaths(filepath.FromSlash("/w"), types.SyncConfig{SourceDir: "fn", DestDir: "fn-dist"})
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/w/fn-dist"), got.DestRoot)
}

func TestResolvePathsUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got, err := ResolvePaths("", types.SyncConfig{})
	require.NoError(t, err)

	wd, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(filepath.Dir(filepath.Dir(got.SourceRoot)))
	require.NoError(t, err)
	assert.Equal(t, wd, gotRoot)
}
