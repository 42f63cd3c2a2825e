package dashboard

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LoadEvent describes the outcome of loading one dataset.
type LoadEvent struct {
	Timestamp time.Time
	Dataset   string
	Rows      int
	Duration  time.Duration
	Err       error
}

// Failed reports whether the dataset could not be loaded.
func (e LoadEvent) Failed() bool {
	return e.Err != nil
}

// EventHandler receives load events. Implementations must be safe for
// concurrent use; both datasets report from their own goroutine.
type EventHandler interface {
	HandleEvent(LoadEvent)
}

// LogEventHandler writes events to a slog.Logger.
type LogEventHandler struct {
	Logger *slog.Logger
}

func (h LogEventHandler) HandleEvent(e LoadEvent) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if e.Failed() {
		logger.Warn("dataset load failed",
			"dataset", e.Dataset,
			"duration", e.Duration,
			"error", e.Err,
		)
		return
	}
	logger.Debug("dataset loaded",
		"dataset", e.Dataset,
		"rows", e.Rows,
		"duration", e.Duration,
	)
}

// ConsoleEventHandler prints failures in colour for interactive use.
type ConsoleEventHandler struct {
	Out io.Writer
}

func (h ConsoleEventHandler) HandleEvent(e LoadEvent) {
	out := h.Out
	if out == nil {
		out = os.Stderr
	}

	if e.Failed() {
		color.New(color.FgHiRed).Fprintf(out, "[!] Error loading %s data: %v\n", e.Dataset, e.Err)
		return
	}
	color.New(color.FgHiGreen).Fprintf(out, "[+] Loaded %d %s rows in %s\n", e.Rows, e.Dataset, e.Duration.Round(time.Millisecond))
}

// RecordingEventHandler keeps every event it sees.
type RecordingEventHandler struct {
	mu     sync.Mutex
	Events []LoadEvent
}

func (h *RecordingEventHandler) HandleEvent(e LoadEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, e)
}

// SnapShot returns a copy of the recorded events.
func (h *RecordingEventHandler) SnapShot() []LoadEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LoadEvent, len(h.Events))
	copy(out, h.Events)
	return out
}

// MultiEventHandler fans events out to several handlers.
type MultiEventHandler struct {
	Handlers []EventHandler
}

func (m MultiEventHandler) HandleEvent(e LoadEvent) {
	for _, h := range m.Handlers {
		if h != nil {
			h.HandleEvent(e)
		}
	}
}
