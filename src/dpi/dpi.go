// Package dpi scopes the high-DPI execution context that screen-coordinate
// calls need to see physical pixels.
package dpi

import (
	"runtime"
	"sync"

	"finalshot/src/logutil"
)

// Enter locks the calling goroutine to its OS thread and switches that thread
// to per-monitor DPI awareness. The returned func restores the previous
// context and unlocks the thread; it must run on every exit path:
//
//	restore := dpi.Enter()
//	defer restore()
//
// A failing platform call is logged and the scope continues under the
// default context.
func Enter() (restore func()) {
	runtime.LockOSThread()
	prev, ok := setThreadContext(contextPerMonitorAwareV2)
	if !ok {
		logutil.WithComponent("dpi").Debug().Msg("per-monitor DPI context unavailable; using default")
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if ok {
				setThreadContext(prev)
			}
			runtime.UnlockOSThread()
		})
	}
}

// EnableProcessAwareness marks the whole process per-monitor DPI aware.
// Call it once before any window is created.
func EnableProcessAwareness() {
	enableProcessAwareness()
}
