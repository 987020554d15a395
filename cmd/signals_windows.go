//go:build windows

package cmd

import "os"

// shutdownSignals returns the OS signals that end a long-running view.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
