package engine

import (
	"log/slog"

	"github.com/shirou/gopsutil/v3/process"
)

// killTree force-kills pid and every descendant, children first. Descendants
// are enumerated before killing the parent so they cannot be reparented away
// mid-walk.
func killTree(pid int) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		// Already gone.
		return
	}
	children, err := proc.Children()
	if err == nil {
		for _, child := range children {
			killTree(int(child.Pid))
		}
	}
	if err := proc.Kill(); err != nil {
		slog.Debug("failed to kill engine process", "pid", pid, "error", err)
	}
}
