package engine

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/focuslab/focusguard/internal/engine"
)

const (
	// Markers the engine prints on its own streams. stdout carries readiness,
	// stderr carries startup failure.
	ReadyMarker   = "ANALYSIS_ENGINE_READY"
	FailureMarker = "ANALYSIS_ENGINE_FAILED"
)

// engineProcess is one spawned engine. startupDone flips once, on whichever
// of the two markers arrives first.
type engineProcess struct {
	cmd         *exec.Cmd
	sessionID   string
	startupDone atomic.Bool
	exited      chan struct{}
}

// ProcessSupervisor spawns the engine binary and reconciles its asynchronous
// stream signals into ordered events. Event handlers are invoked one at a
// time, never concurrently.
type ProcessSupervisor struct {
	command     []string
	gracePeriod time.Duration
	indicator   engine.Indicator

	mu      sync.Mutex
	current *engineProcess

	handlerMu sync.Mutex
	handlers  []func(engine.Event)
}

// NewProcessSupervisor builds a supervisor around the engine command line.
// The session identifier and access token are appended as --session/--token
// arguments on each start.
func NewProcessSupervisor(command []string, gracePeriod time.Duration, indicator engine.Indicator) *ProcessSupervisor {
	return &ProcessSupervisor{
		command:     command,
		gracePeriod: gracePeriod,
		indicator:   indicator,
	}
}

func (s *ProcessSupervisor) RegisterEventHandler(fn func(engine.Event)) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.handlers = append(s.handlers, fn)
}

func (s *ProcessSupervisor) emit(ev engine.Event) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	for _, fn := range s.handlers {
		fn(ev)
	}
}

func (s *ProcessSupervisor) Start(sessionID, token string) error {
	if len(s.command) == 0 {
		return fmt.Errorf("no engine command configured")
	}

	s.mu.Lock()
	if prev := s.current; prev != nil {
		slog.Warn("engine already running; terminating it before restart", "session_id", prev.sessionID)
		s.current = nil
		s.terminate(prev)
		// Wait for the old process to die so its stopped event precedes the
		// new process's signals.
		s.mu.Unlock()
		<-prev.exited
		s.mu.Lock()
	}

	args := make([]string, 0, len(s.command)+3)
	args = append(args, s.command[1:]...)
	args = append(args, "--session", sessionID, "--token", token)
	cmd := exec.Command(s.command[0], args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to open engine stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to open engine stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to spawn engine: %w", err)
	}

	proc := &engineProcess{
		cmd:       cmd,
		sessionID: sessionID,
		exited:    make(chan struct{}),
	}
	s.current = proc
	s.mu.Unlock()

	slog.Info("engine spawned", "session_id", sessionID, "pid", cmd.Process.Pid)
	go s.watchStdout(proc, stdout)
	go s.watchStderr(proc, stderr)
	go s.waitForExit(proc)
	return nil
}

// maxLogLine bounds a single engine log line. The default bufio.Scanner
// token limit is 64KB; an oversized line would stop the scan and could
// swallow a marker printed after it.
const maxLogLine = 1024 * 1024

func newStreamScanner(stream io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	return scanner
}

func (s *ProcessSupervisor) watchStdout(proc *engineProcess, stream io.Reader) {
	scanner := newStreamScanner(stream)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, ReadyMarker) && proc.startupDone.CompareAndSwap(false, true) {
			slog.Info("engine ready", "session_id", proc.sessionID)
			s.indicator.Open(proc.sessionID)
			s.emit(engine.EventReady)
		}
	}
}

func (s *ProcessSupervisor) watchStderr(proc *engineProcess, stream io.Reader) {
	scanner := newStreamScanner(stream)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, FailureMarker) && proc.startupDone.CompareAndSwap(false, true) {
			slog.Error("engine reported startup failure", "session_id", proc.sessionID)
			s.emit(engine.EventFailed)
		}
	}
}

func (s *ProcessSupervisor) waitForExit(proc *engineProcess) {
	err := proc.cmd.Wait()

	s.mu.Lock()
	if s.current == proc {
		s.current = nil
	}
	s.mu.Unlock()

	slog.Info("engine exited", "session_id", proc.sessionID, "error", err)
	// The indicator must be gone before anyone observes the stopped event,
	// and exited only closes after the event so a restart that waits on it
	// never races its own signals past this one.
	s.indicator.Close()
	s.emit(engine.EventStopped)
	close(proc.exited)
}

// Stop requests termination and forgets the process handle immediately, so a
// subsequent Start can proceed without waiting for the process to die.
func (s *ProcessSupervisor) Stop() {
	s.mu.Lock()
	proc := s.current
	s.current = nil
	s.mu.Unlock()

	if proc == nil {
		slog.Warn("stop requested but no engine process is associated")
		return
	}
	s.terminate(proc)
}

// terminate asks nicely, then falls back to a forced kill of the whole
// process tree. A plain terminate signal does not reliably take down the
// engine's child processes on Windows.
func (s *ProcessSupervisor) terminate(proc *engineProcess) {
	pid := proc.cmd.Process.Pid
	if err := terminateGracefully(proc.cmd.Process); err != nil {
		slog.Debug("graceful terminate unavailable; forcing kill", "pid", pid, "error", err)
		killTree(pid)
		return
	}
	go func() {
		select {
		case <-proc.exited:
		case <-time.After(s.gracePeriod):
			slog.Warn("engine ignored terminate signal; killing process tree", "pid", pid)
			killTree(pid)
		}
	}()
}
