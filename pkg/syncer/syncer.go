// Package syncer mirrors a serverless-functions source tree into its build
// output directory. The utils subdirectory is left out of the bulk copy and
// copied on its own afterwards.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/hnguyen160596/fnsync/pkg/common"
	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Synchronizer struct {
	paths  types.SyncPaths
	logger zerolog.Logger
	trace  *Trace
}

type Option func(*Synchronizer)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// WithTrace records every filesystem call the run makes
func WithTrace(t *Trace) Option {
	return func(s *Synchronizer) {
		s.trace = t
	}
}

func New(paths types.SyncPaths, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		paths:  paths,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) Paths() types.SyncPaths { return s.paths }
func (s *Synchronizer) Trace() *Trace          { return s.trace }

// Run performs one full sync: check the source, create the destination
// directories, copy the functions, then copy utils. The first error stops
// the run; files already written are left in place.
func (s *Synchronizer) Run(ctx context.Context) (*types.SyncReport, error) {
	start := time.Now()
	runID := common.NewRunID()
	logger := s.logger.With().Str("run_id", runID).Logger()

	if err := s.CheckSource(); err != nil {
		return nil, err
	}

	logger.Info().Str("dst", s.paths.DestRoot).Str("utils", s.paths.DestUtils).Msg("creating destination directories")
	if err := s.EnsureDirs(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info().Str("src", s.paths.SourceRoot).Str("dst", s.paths.DestRoot).Msg("copying functions")
	functions, err := s.CopyFunctions(ctx)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info().Str("src", s.paths.SourceUtils).Str("dst", s.paths.DestUtils).Msg("copying utils")
	utils, copied, err := s.CopyUtils(ctx)
	if err != nil {
		return nil, err
	}

	var total CopyStats
	total.add(functions)
	total.add(utils)

	report := &types.SyncReport{
		RunID:       runID,
		SourceRoot:  s.paths.SourceRoot,
		DestRoot:    s.paths.DestRoot,
		Files:       total.Files,
		Dirs:        total.Dirs,
		Symlinks:    total.Symlinks,
		Bytes:       total.Bytes,
		UtilsCopied: copied,
		Duration:    time.Since(start),
	}

	logger.Info().
		Int("files", report.Files).
		Int("dirs", report.Dirs).
		Int64("bytes", report.Bytes).
		Bool("utils", report.UtilsCopied).
		Dur("dur", report.Duration).
		Msg("sync complete")

	return report, nil
}

// CheckSource verifies the source root exists and is a directory
func (s *Synchronizer) CheckSource() error {
	info, err := os.Stat(s.paths.SourceRoot)
	if errors.Is(err, fs.ErrNotExist) {
		return &types.SourceNotFoundError{Path: s.paths.SourceRoot}
	}
	if err != nil {
		return &types.FsOpError{Op: "stat", Path: s.paths.SourceRoot, Err: err}
	}
	if !info.IsDir() {
		return &types.FsOpError{Op: "stat", Path: s.paths.SourceRoot, Err: syscall.ENOTDIR}
	}
	return nil
}

// EnsureDirs creates the destination root and the destination utils directory
func (s *Synchronizer) EnsureDirs() error {
	c := s.newCopier()
	if err := c.mkdir(s.paths.DestRoot, defaultDirMode); err != nil {
		return err
	}
	return c.mkdir(s.paths.DestUtils, defaultDirMode)
}

// CopyFunctions copies the source root into the destination root, leaving out utils
func (s *Synchronizer) CopyFunctions(ctx context.Context) (CopyStats, error) {
	c := s.newCopier()
	if err := c.copyTree(ctx, s.paths.SourceRoot, s.paths.DestRoot, s.paths.SourceUtils); err != nil {
		return c.stats, fmt.Errorf("copy functions: %w", err)
	}
	return c.stats, nil
}

// CopyUtils copies the utils subdirectory when the source has one.
// A symlinked utils is followed and its contents copied.
// The bool result reports whether anything was there to copy.
func (s *Synchronizer) CopyUtils(ctx context.Context) (CopyStats, bool, error) {
	c := s.newCopier()

	info, err := os.Stat(s.paths.SourceUtils)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info().Str("path", s.paths.SourceUtils).Msg("no utils directory, skipping")
		return c.stats, false, nil
	} else if err != nil {
		return c.stats, false, &types.FsOpError{Op: "stat", Path: s.paths.SourceUtils, Err: err}
	}

	if info.IsDir() {
		err = c.copyTree(ctx, s.paths.SourceUtils, s.paths.DestUtils, "")
	} else {
		// DestUtils is always a directory by now, so this fails with EISDIR.
		err = c.copyFile(s.paths.SourceUtils, s.paths.DestUtils)
	}
	if err != nil {
		return c.stats, true, fmt.Errorf("copy utils: %w", err)
	}
	return c.stats, true, nil
}

func (s *Synchronizer) newCopier() *copier {
	return &copier{logger: s.logger, trace: s.trace}
}
