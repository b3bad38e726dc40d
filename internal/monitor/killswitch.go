package monitor

import (
	"fmt"
	"os"
)

// KillSwitch is the out-of-band emergency stop: the presence of a marker
// file halts the main loop independent of the risk gate's circuit breaker.
type KillSwitch struct {
	Path string
}

// Engaged reports whether the marker file exists.
func (k KillSwitch) Engaged() bool {
	if k.Path == "" {
		return false
	}
	_, err := os.Stat(k.Path)
	return err == nil
}

// Clear removes the marker file so a subsequent run starts clean.
func (k KillSwitch) Clear() error {
	if k.Path == "" {
		return nil
	}
	if err := os.Remove(k.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove kill switch file: %w", err)
	}
	return nil
}
