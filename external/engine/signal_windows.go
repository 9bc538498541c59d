//go:build windows

package engine

import (
	"fmt"
	"os"
)

// Windows has no polite terminate signal for a console process tree, so the
// caller goes straight to the forced kill path.
func terminateGracefully(_ *os.Process) error {
	return fmt.Errorf("graceful terminate not supported on windows")
}
