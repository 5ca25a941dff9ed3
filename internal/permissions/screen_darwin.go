//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

int framecapPreflightScreenCapture() {
    return CGPreflightScreenCaptureAccess();
}

int framecapRequestScreenCapture() {
    return CGRequestScreenCaptureAccess();
}
*/
import "C"

func hasScreenRecording() bool {
	return C.framecapPreflightScreenCapture() != 0
}

// requestScreenRecording shows the system dialog when access has not been
// decided yet. A grant only takes effect after a restart.
func requestScreenRecording() bool {
	return C.framecapRequestScreenCapture() != 0
}
