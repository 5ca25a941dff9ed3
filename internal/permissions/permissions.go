// Package permissions checks the OS permissions the desktop backend needs.
package permissions

import "errors"

// ErrScreenRecording is returned when the process may not read the screen.
// On macOS the user has to grant access and restart the host.
var ErrScreenRecording = errors.New("screen recording permission not granted")

// EnsureScreenRecording returns nil if the screen can be read. Otherwise it
// asks the OS to prompt the user and returns ErrScreenRecording.
func EnsureScreenRecording() error {
	if hasScreenRecording() {
		return nil
	}
	if requestScreenRecording() {
		return nil
	}
	return ErrScreenRecording
}
