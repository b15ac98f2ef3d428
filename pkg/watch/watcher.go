// Package watch re-runs a callback when anything under a directory tree changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hnguyen160596/fnsync/pkg/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is used when a Watcher is created with a non-positive delay
const DefaultDebounce = 300 * time.Millisecond

// changeKey is the debouncer key; every change in the tree triggers the same sync.
const changeKey = "tree"

// Event is a single filesystem change seen by the watcher
type Event struct {
	Path string
	Op   string
}

// Watcher watches root and every directory below it. Bursts of events are
// coalesced and delivered to onChange as one batch. onChange never runs
// concurrently with itself.
type Watcher struct {
	root     string
	onChange func(ctx context.Context, events []Event)
	logger   zerolog.Logger

	debouncer *common.Debouncer
	fsw       *fsnotify.Watcher

	mu      sync.Mutex
	pending []Event

	runMu sync.Mutex
}

func New(root string, debounce time.Duration, onChange func(ctx context.Context, events []Event)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:      root,
		onChange:  onChange,
		logger:    log.Logger,
		debouncer: common.NewDebouncer(debounce),
		fsw:       fsw,
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// SetLogger replaces the default global logger
func (w *Watcher) SetLogger(logger zerolog.Logger) {
	w.logger = logger
}

// Run blocks until ctx is canceled or the underlying watcher fails
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.debouncer.Stop()

	w.logger.Info().Str("root", w.root).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Lost events; a full re-sync covers whatever was missed.
				w.logger.Warn().Err(err).Msg("watch event overflow")
				w.enqueue(ctx, Event{Path: w.root, Op: "overflow"})
				continue
			}
			return fmt.Errorf("watch %s: %w", w.root, err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
			}
		}
	}

	w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("change detected")
	w.enqueue(ctx, Event{Path: event.Name, Op: event.Op.String()})
}

func (w *Watcher) enqueue(ctx context.Context, event Event) {
	w.mu.Lock()
	w.pending = append(w.pending, event)
	w.mu.Unlock()

	w.debouncer.Call(changeKey, func() {
		w.flush(ctx)
	})
}

func (w *Watcher) flush(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.mu.Lock()
	events := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(events) == 0 || ctx.Err() != nil {
		return
	}
	w.onChange(ctx, events)
}

// addTree registers dir and all of its subdirectories
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
