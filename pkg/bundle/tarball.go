// Package bundle packs a synchronized functions tree into a gzip tarball.
package bundle

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hnguyen160596/fnsync/pkg/types"
)

var epoch = time.Unix(0, 0)

// WriteTarball writes the tree under root to w as a gzip-compressed tar stream.
//
// Entries are written in lexical order with slash-separated paths relative to
// root. Modification times are zeroed, so the same tree always produces the
// same bytes. Directories, regular files and symlinks are archived; other
// file types are skipped.
func WriteTarball(ctx context.Context, root string, w io.Writer) (*types.BundleReport, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &types.FsOpError{Op: "stat", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle root %s is not a directory", root)
	}

	gw := gzip.NewWriter(w)
	gw.ModTime = time.Time{}
	tw := tar.NewWriter(gw)

	report := &types.BundleReport{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &types.FsOpError{Op: "walk", Path: path, Err: walkErr}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return &types.FsOpError{Op: "stat", Path: path, Err: err}
		}

		var link string
		switch {
		case info.IsDir():
			name += "/"
			report.Dirs++
		case info.Mode()&fs.ModeSymlink != 0:
			if link, err = os.Readlink(path); err != nil {
				return &types.FsOpError{Op: "readlink", Path: path, Err: err}
			}
			report.Symlinks++
		case info.Mode().IsRegular():
			report.Files++
			report.Bytes += info.Size()
		default:
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("tar header %s: %w", path, err)
		}
		hdr.Name = name
		hdr.ModTime = epoch
		hdr.AccessTime = time.Time{}
		hdr.ChangeTime = time.Time{}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyInto(tw, path)
	})
	if err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}
	return report, nil
}

func copyInto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &types.FsOpError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return &types.FsOpError{Op: "read", Path: path, Err: err}
	}
	return nil
}

// WriteTarballFile writes the tarball to dest through a temp file in the
// same directory, so dest is either the previous bundle or the complete new one.
func WriteTarballFile(ctx context.Context, root, dest string) (*types.BundleReport, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &types.FsOpError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return nil, &types.FsOpError{Op: "create", Path: dir, Err: err}
	}
	defer os.Remove(tmp.Name())

	report, err := WriteTarball(ctx, root, tmp)
	if err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, &types.FsOpError{Op: "write", Path: tmp.Name(), Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return nil, &types.FsOpError{Op: "chmod", Path: tmp.Name(), Err: err}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, &types.FsOpError{Op: "rename", Path: dest, Err: err}
	}

	report.Path = dest
	return report, nil
}
