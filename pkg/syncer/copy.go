package syncer

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/rs/zerolog"
)

const defaultDirMode os.FileMode = 0755

// CopyStats counts what a copy wrote. The destination root itself is not counted.
type CopyStats struct {
	Files    int
	Dirs     int
	Symlinks int
	Bytes    int64
}

func (s *CopyStats) add(o CopyStats) {
	s.Files += o.Files
	s.Dirs += o.Dirs
	s.Symlinks += o.Symlinks
	s.Bytes += o.Bytes
}

// copier mirrors one tree into another. Files and symlinks are overwritten,
// extra destination entries are left in place.
type copier struct {
	logger zerolog.Logger
	trace  *Trace
	stats  CopyStats
}

// copyTree copies src to dst. When skip is non-empty, that exact path under
// src is left out of the walk.
func (c *copier) copyTree(ctx context.Context, src, dst, skip string) error {
	base, err := filepath.EvalSymlinks(src)
	if err != nil {
		return &types.FsOpError{Op: "stat", Path: src, Err: err}
	}
	if skip != "" {
		skip = filepath.Join(base, filepath.Base(skip))
	}

	return filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &types.FsOpError{Op: "walk", Path: path, Err: walkErr}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if skip != "" && path == skip {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return &types.FsOpError{Op: "walk", Path: path, Err: err}
		}
		out := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return &types.FsOpError{Op: "stat", Path: path, Err: err}
			}
			if err := c.mkdir(out, info.Mode().Perm()); err != nil {
				return err
			}
			if rel != "." {
				c.stats.Dirs++
			}
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			return c.copySymlink(path, out)
		case d.Type().IsRegular():
			return c.copyFile(path, out)
		default:
			c.logger.Warn().Str("path", path).Str("type", d.Type().String()).Msg("skipping special file")
			return nil
		}
	})
}

func (c *copier) mkdir(path string, perm os.FileMode) error {
	// The owner must be able to fill the directory even when the source is read-only.
	perm |= 0700
	err := c.trace.Do("mkdir", path, func() error {
		return os.MkdirAll(path, perm)
	})
	if err != nil {
		return &types.FsOpError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

func (c *copier) copyFile(src, dst string) error {
	var written int64
	err := c.trace.Do("copy", dst, func() error {
		n, err := copyFileContents(src, dst)
		written = n
		return err
	})
	if err != nil {
		return &types.FsOpError{Op: "copy", Path: dst, Err: err}
	}

	c.stats.Files++
	c.stats.Bytes += written
	c.logger.Debug().Str("src", src).Str("dst", dst).Int64("bytes", written).Msg("copied file")
	return nil
}

func copyFileContents(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	// Replace rather than write through: the old file may be read-only or a link.
	if err := removeStale(dst); err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	if err := out.Close(); err != nil {
		return n, err
	}

	// An overwritten file keeps its old mode otherwise.
	return n, os.Chmod(dst, info.Mode().Perm())
}

func (c *copier) copySymlink(src, dst string) error {
	err := c.trace.Do("symlink", dst, func() error {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if existing, err := os.Readlink(dst); err == nil && existing == target {
			return nil
		}
		if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return os.Symlink(target, dst)
	})
	if err != nil {
		return &types.FsOpError{Op: "symlink", Path: dst, Err: err}
	}

	c.stats.Symlinks++
	return nil
}

// removeStale removes a non-directory entry at path. Directories are left
// for OpenFile to reject.
func removeStale(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
