//go:build !linux

package clipboard

import (
	"fmt"

	"wayclipd/pkg/wlclipboard"
)

// Capture is unavailable outside Linux: the data-control protocol this
// package speaks is a wlroots compositor extension with no portable
// equivalent.
func Capture(stop <-chan struct{}) (<-chan wlclipboard.CaptureEvent, error) {
	return nil, fmt.Errorf("clipboard: Wayland data-control capture is only supported on Linux")
}

// Publish is unavailable outside Linux.
func Publish(mimeType string, data []byte) error {
	return fmt.Errorf("clipboard: Wayland data-control publish is only supported on Linux")
}

// RunSetupStage is unavailable outside Linux.
func RunSetupStage() error {
	return fmt.Errorf("clipboard: Wayland data-control publish is only supported on Linux")
}

// RunServeStage is unavailable outside Linux.
func RunServeStage(payloadPath string) error {
	return fmt.Errorf("clipboard: Wayland data-control publish is only supported on Linux")
}
