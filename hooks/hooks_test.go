package hooks_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mvarner/imagechain/core"
	"github.com/mvarner/imagechain/hooks"
)

type stubImage struct{}

func (stubImage) Width() int  { return 10 }
func (stubImage) Height() int { return 10 }

func TestLoggingHook(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := hooks.NewLoggingHook(logger)
	pc := core.NewContext(core.PPOI{}, ".png")

	h.BeforeProcessor("thumbnail", stubImage{}, pc)
	h.AfterProcessor("thumbnail", stubImage{}, pc, time.Millisecond, nil)
	h.AfterProcessor("crop", stubImage{}, pc, time.Millisecond, errors.New("boom"))

	log := out.String()
	for _, want := range []string{"chain.processor.start", "chain.processor.done", "chain.processor.error", "thumbnail", "boom"} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q:\n%s", want, log)
		}
	}
}

func TestLoggingHook_NilLoggerDefaults(t *testing.T) {
	h := hooks.NewLoggingHook(nil)
	// Must not panic with the default logger.
	h.BeforeProcessor("x", stubImage{}, core.NewContext(core.PPOI{}, ".png"))
}

func TestTimingHook(t *testing.T) {
	h := hooks.NewTimingHook()
	pc := core.NewContext(core.PPOI{}, ".png")

	h.AfterProcessor("thumbnail", stubImage{}, pc, 10*time.Millisecond, nil)
	h.AfterProcessor("thumbnail", stubImage{}, pc, 5*time.Millisecond, nil)
	h.AfterProcessor("crop", stubImage{}, pc, time.Millisecond, nil)

	durations, calls := h.Snapshot()
	if durations["thumbnail"] != 15*time.Millisecond {
		t.Errorf("thumbnail duration: got %v, want 15ms", durations["thumbnail"])
	}
	if calls["thumbnail"] != 2 || calls["crop"] != 1 {
		t.Errorf("calls: got %v", calls)
	}

	// Snapshot is a copy.
	durations["thumbnail"] = 0
	again, _ := h.Snapshot()
	if again["thumbnail"] != 15*time.Millisecond {
		t.Error("snapshot shares state with the hook")
	}
}

func TestRecordingHook(t *testing.T) {
	h := hooks.NewRecordingHook()
	pc := core.NewContext(core.PPOI{}, ".png")

	h.BeforeProcessor("a", stubImage{}, pc)
	h.BeforeProcessor("b", stubImage{}, pc)
	h.AfterProcessor("b", stubImage{}, pc, 0, nil)
	h.AfterProcessor("a", stubImage{}, pc, 0, nil)

	want := []string{"enter a", "enter b", "leave b", "leave a"}
	got := h.Entries()
	if len(got) != len(want) {
		t.Fatalf("entries: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entries: got %v, want %v", got, want)
		}
	}
}
