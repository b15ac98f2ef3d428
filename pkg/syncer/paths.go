package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hnguyen160596/fnsync/pkg/types"
)

// ResolvePaths computes the source, destination and utils directories for a run.
// Relative directories in cfg are joined onto cwd; an empty cwd means the
// process working directory. Empty fields fall back to the default layout.
func ResolvePaths(cwd string, cfg types.SyncConfig) (types.SyncPaths, error) {
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return types.SyncPaths{}, fmt.Errorf("get working directory: %w", err)
		}
		cwd = wd
	}

	sourceDir := orDefault(cfg.SourceDir, types.DefaultSourceDir)
	destDir := orDefault(cfg.DestDir, types.DefaultDestDir)
	utilsName := orDefault(cfg.UtilsName, types.DefaultUtilsName)

	if err := types.ValidateUtilsName(utilsName); err != nil {
		return types.SyncPaths{}, err
	}

	sourceRoot := absJoin(cwd, sourceDir)
	destRoot := absJoin(cwd, destDir)

	if sourceRoot == destRoot {
		return types.SyncPaths{}, &types.ConfigError{
			Field:  "sync.destDir",
			Reason: fmt.Sprintf("destination %s is the source directory", destRoot),
		}
	}
	if isWithin(sourceRoot, destRoot) {
		return types.SyncPaths{}, &types.ConfigError{
			Field:  "sync.destDir",
			Reason: fmt.Sprintf("destination %s is inside source %s", destRoot, sourceRoot),
		}
	}

	return types.SyncPaths{
		SourceRoot:  sourceRoot,
		DestRoot:    destRoot,
		SourceUtils: filepath.Join(sourceRoot, utilsName),
		DestUtils:   filepath.Join(destRoot, utilsName),
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func absJoin(base, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// isWithin reports whether child is strictly below parent
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
