// Package publish uploads a synchronized functions tree to object storage.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 8
	defaultCacheSize   = 4096
)

// Uploader is the storage side of a publish. *clients.StorageClient implements it.
type Uploader interface {
	UploadObject(ctx context.Context, key string, body io.Reader, contentType string) error
	Bucket() string
}

// Publisher uploads every file under a root directory. It remembers the digest
// of each key it uploaded, so a long-lived Publisher (watch mode) only sends
// files whose content changed.
type Publisher struct {
	uploader    Uploader
	prefix      string
	concurrency int
	digests     *lru.Cache[string, string]
	logger      zerolog.Logger
}

func NewPublisher(uploader Uploader, cfg types.PublishConfig) (*Publisher, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	digests, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create digest cache: %w", err)
	}

	return &Publisher{
		uploader:    uploader,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		concurrency: concurrency,
		digests:     digests,
		logger:      log.Logger,
	}, nil
}

func (p *Publisher) SetLogger(logger zerolog.Logger) {
	p.logger = logger
}

type upload struct {
	path string
	key  string
	size int64
}

// Publish uploads root. The first failing upload cancels the rest and is returned.
func (p *Publisher) Publish(ctx context.Context, root string) (*types.PublishReport, error) {
	start := time.Now()

	uploads, err := p.collect(root)
	if err != nil {
		return nil, err
	}

	var uploaded, skipped atomic.Int64
	var bytes atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, u := range uploads {
		g.Go(func() error {
			sent, err := p.uploadFile(gctx, u)
			if err != nil {
				return err
			}
			if sent {
				uploaded.Add(1)
				bytes.Add(u.size)
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &types.PublishReport{
		Bucket:   p.uploader.Bucket(),
		Prefix:   p.prefix,
		Uploaded: int(uploaded.Load()),
		Skipped:  int(skipped.Load()),
		Bytes:    bytes.Load(),
		Duration: time.Since(start),
	}

	p.logger.Info().
		Str("bucket", report.Bucket).
		Str("prefix", report.Prefix).
		Int("uploaded", report.Uploaded).
		Int("skipped", report.Skipped).
		Dur("dur", report.Duration).
		Msg("publish complete")

	return report, nil
}

func (p *Publisher) collect(root string) ([]upload, error) {
	var uploads []upload
	err := filepath.WalkDir(root, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return &types.FsOpError{Op: "walk", Path: fp, Err: err}
		}
		// Symlinks are not uploaded; object stores have no equivalent.
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return &types.FsOpError{Op: "stat", Path: fp, Err: err}
		}
		rel, err := filepath.Rel(root, fp)
		if err != nil {
			return err
		}
		uploads = append(uploads, upload{path: fp, key: p.Key(rel), size: info.Size()})
		return nil
	})
	return uploads, err
}

// Key maps a root-relative file path to its object key
func (p *Publisher) Key(rel string) string {
	rel = filepath.ToSlash(rel)
	if p.prefix == "" {
		return rel
	}
	return path.Join(p.prefix, rel)
}

func (p *Publisher) uploadFile(ctx context.Context, u upload) (bool, error) {
	digest, err := fileDigest(u.path)
	if err != nil {
		return false, &types.FsOpError{Op: "read", Path: u.path, Err: err}
	}
	if prev, ok := p.digests.Get(u.key); ok && prev == digest {
		p.logger.Debug().Str("key", u.key).Msg("unchanged, skipping upload")
		return false, nil
	}

	f, err := os.Open(u.path)
	if err != nil {
		return false, &types.FsOpError{Op: "open", Path: u.path, Err: err}
	}
	defer f.Close()

	if err := p.uploader.UploadObject(ctx, u.key, f, mime.TypeByExtension(filepath.Ext(u.path))); err != nil {
		return false, fmt.Errorf("publish %s: %w", u.key, err)
	}

	p.digests.Add(u.key, digest)
	p.logger.Debug().Str("key", u.key).Int64("bytes", u.size).Msg("uploaded")
	return true, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
