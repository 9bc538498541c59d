package engine

import (
	"log/slog"
	"sync"

	"github.com/focuslab/focusguard/internal/engine"
)

// LogIndicator is the headless stand-in for a tracking indicator: it records
// open/close transitions to the log. Open while already open and Close while
// closed are no-ops.
type LogIndicator struct {
	mu        sync.Mutex
	sessionID string
	open      bool
}

func NewLogIndicator() engine.Indicator {
	return &LogIndicator{}
}

func (l *LogIndicator) Open(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		return
	}
	l.open = true
	l.sessionID = sessionID
	slog.Info("tracking indicator opened", "session_id", sessionID)
}

func (l *LogIndicator) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return
	}
	l.open = false
	slog.Info("tracking indicator closed", "session_id", l.sessionID)
	l.sessionID = ""
}
