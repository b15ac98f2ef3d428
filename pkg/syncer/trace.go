package syncer

import (
	"sort"
	"sync"
	"time"

	"github.com/hnguyen160596/fnsync/pkg/common"
	"github.com/rs/zerolog"
)

// Trace is an opt-in recorder for the filesystem calls a sync makes.
// It is handed to a Synchronizer explicitly; a nil *Trace records nothing.
//
// Enable from the environment with:
//
//	FNSYNC_TRACE=1
//
// Optional:
//
//	FNSYNC_TRACE_SLOW_MS=50   (default: 50ms; 0 disables slow-op logging)
type Trace struct {
	slowThreshold time.Duration
	logger        zerolog.Logger

	mu  sync.Mutex
	ops map[string]*OpStats
}

// OpStats aggregates the calls recorded for one operation
type OpStats struct {
	Count uint64        `json:"count"`
	Errs  uint64        `json:"errors"`
	Total time.Duration `json:"total"`
	Max   time.Duration `json:"max"`
}

// Avg returns the mean call duration
func (s OpStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

func NewTrace(slowThreshold time.Duration, logger zerolog.Logger) *Trace {
	if slowThreshold < 0 {
		slowThreshold = 0
	}
	return &Trace{
		slowThreshold: slowThreshold,
		logger:        logger,
		ops:           make(map[string]*OpStats),
	}
}

// NewTraceFromEnv returns a trace when FNSYNC_TRACE is set, otherwise nil
func NewTraceFromEnv(logger zerolog.Logger) *Trace {
	if !common.EnvBool("FNSYNC_TRACE") {
		return nil
	}
	return NewTrace(SlowThresholdFromEnv(), logger)
}

// SlowThresholdFromEnv reads FNSYNC_TRACE_SLOW_MS
func SlowThresholdFromEnv() time.Duration {
	slowMs := common.EnvInt("FNSYNC_TRACE_SLOW_MS", 50)
	if slowMs <= 0 {
		return 0
	}
	return time.Duration(slowMs) * time.Millisecond
}

// Do runs fn and records it under op
func (t *Trace) Do(op, path string, fn func() error) error {
	if t == nil {
		return fn()
	}
	start := time.Now()
	err := fn()
	t.Record(op, path, time.Since(start), err)
	return err
}

func (t *Trace) Record(op, path string, dur time.Duration, err error) {
	if t == nil {
		return
	}

	t.mu.Lock()
	s, ok := t.ops[op]
	if !ok {
		s = &OpStats{}
		t.ops[op] = s
	}
	s.Count++
	if err != nil {
		s.Errs++
	}
	s.Total += dur
	if dur > s.Max {
		s.Max = dur
	}
	t.mu.Unlock()

	t.logger.Debug().Str("op", op).Str("path", path).Dur("dur", dur).Err(err).Msg("trace")
	if t.slowThreshold > 0 && dur >= t.slowThreshold {
		t.logger.Info().Str("op", op).Str("path", path).Dur("dur", dur).Err(err).Msg("slow filesystem op")
	}
}

// Summary returns a copy of the per-op stats
func (t *Trace) Summary() map[string]OpStats {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]OpStats, len(t.ops))
	for op, s := range t.ops {
		out[op] = *s
	}
	return out
}

// Reset clears recorded stats so a trace can be reused across watch runs
func (t *Trace) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.ops = make(map[string]*OpStats)
	t.mu.Unlock()
}

// Log writes one line per recorded op in name order
func (t *Trace) Log() {
	summary := t.Summary()
	ops := make([]string, 0, len(summary))
	for op := range summary {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		s := summary[op]
		t.logger.Info().
			Str("op", op).
			Uint64("count", s.Count).
			Uint64("errors", s.Errs).
			Dur("avg", s.Avg()).
			Dur("max", s.Max).
			Msg("trace summary")
	}
}
