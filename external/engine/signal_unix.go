//go:build !windows

package engine

import (
	"os"
	"syscall"
)

func terminateGracefully(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
