//go:build !darwin

package permissions

// Other platforms gate screen reads on the display server, not per process.
func hasScreenRecording() bool { return true }

func requestScreenRecording() bool { return true }
