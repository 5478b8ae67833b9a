// Package hooks provides ready-made core.Hook implementations for
// observing chain execution.
package hooks

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mvarner/imagechain/core"
)

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each named processor via slog.
type LoggingHook struct {
	log *slog.Logger
}

// NewLoggingHook creates a LoggingHook.  Pass nil to use slog.Default().
func NewLoggingHook(l *slog.Logger) *LoggingHook {
	if l == nil {
		l = slog.Default()
	}
	return &LoggingHook{log: l}
}

func (h *LoggingHook) BeforeProcessor(name string, img core.Image, pc *core.Context) {
	h.log.Debug("chain.processor.start",
		"processor", name,
		"format", string(pc.Save.Format),
		"width", img.Width(),
		"height", img.Height(),
	)
}

func (h *LoggingHook) AfterProcessor(name string, img core.Image, pc *core.Context, d time.Duration, err error) {
	if err != nil {
		h.log.Error("chain.processor.error",
			"processor", name,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.log.Debug("chain.processor.done",
		"processor", name,
		"duration_ms", d.Milliseconds(),
		"width", img.Width(),
		"height", img.Height(),
	)
}

// ── Timing hook ───────────────────────────────────────────────────────────────

// TimingHook accumulates per-processor durations.  Safe for concurrent use.
type TimingHook struct {
	mu        sync.Mutex
	durations map[string]time.Duration
	calls     map[string]int64
}

// NewTimingHook creates an empty TimingHook.
func NewTimingHook() *TimingHook {
	return &TimingHook{
		durations: make(map[string]time.Duration),
		calls:     make(map[string]int64),
	}
}

func (h *TimingHook) BeforeProcessor(string, core.Image, *core.Context) {}

func (h *TimingHook) AfterProcessor(name string, _ core.Image, _ *core.Context, d time.Duration, _ error) {
	h.mu.Lock()
	h.durations[name] += d
	h.calls[name]++
	h.mu.Unlock()
}

// Snapshot returns a copy of the accumulated timings.
func (h *TimingHook) Snapshot() (map[string]time.Duration, map[string]int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	durations := make(map[string]time.Duration, len(h.durations))
	calls := make(map[string]int64, len(h.calls))
	for k, v := range h.durations {
		durations[k] = v
	}
	for k, v := range h.calls {
		calls[k] = v
	}
	return durations, calls
}

// ── Recording hook ────────────────────────────────────────────────────────────

// RecordingHook appends "enter name" / "leave name" entries as the chain
// runs, exposing the onion execution order.
type RecordingHook struct {
	mu      sync.Mutex
	entries []string
}

// NewRecordingHook creates an empty RecordingHook.
func NewRecordingHook() *RecordingHook { return &RecordingHook{} }

func (h *RecordingHook) BeforeProcessor(name string, _ core.Image, _ *core.Context) {
	h.mu.Lock()
	h.entries = append(h.entries, "enter "+name)
	h.mu.Unlock()
}

func (h *RecordingHook) AfterProcessor(name string, _ core.Image, _ *core.Context, _ time.Duration, _ error) {
	h.mu.Lock()
	h.entries = append(h.entries, "leave "+name)
	h.mu.Unlock()
}

// Entries returns the recorded order.
func (h *RecordingHook) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
