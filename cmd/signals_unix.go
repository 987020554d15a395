//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// shutdownSignals returns the OS signals that end a long-running view.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
}
