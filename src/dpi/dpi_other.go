//go:build !windows

package dpi

// X11 and macOS report physical pixels already.
const contextPerMonitorAwareV2 = 0

func setThreadContext(uintptr) (uintptr, bool) { return 0, true }

func enableProcessAwareness() {}
