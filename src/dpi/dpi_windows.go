//go:build windows

package dpi

import (
	"golang.org/x/sys/windows"

	"finalshot/src/logutil"
)

// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2 is the pseudo-handle -4.
const contextPerMonitorAwareV2 = ^uintptr(3)

var (
	user32                           = windows.NewLazySystemDLL("user32.dll")
	shcore                           = windows.NewLazySystemDLL("Shcore.dll")
	procSetThreadDpiAwarenessContext = user32.NewProc("SetThreadDpiAwarenessContext")
	procSetProcessDPIAware           = user32.NewProc("SetProcessDPIAware")
	procSetProcessDpiAwareness       = shcore.NewProc("SetProcessDpiAwareness")
)

// setThreadContext returns the previous context. Windows before 10 1607 lacks
// the call; ok is false then.
func setThreadContext(ctx uintptr) (prev uintptr, ok bool) {
	if err := procSetThreadDpiAwarenessContext.Find(); err != nil {
		return 0, false
	}
	ret, _, _ := procSetThreadDpiAwarenessContext.Call(ctx)
	if ret == 0 {
		return 0, false
	}
	return ret, true
}

func enableProcessAwareness() {
	log := logutil.WithComponent("dpi")
	const processPerMonitorDPIAware = 2
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := procSetProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			log.Debug().Msg("per-monitor DPI awareness enabled")
		} else {
			log.Warn().Uint64("hresult", uint64(ret)).Msg("SetProcessDpiAwareness failed")
		}
		return
	}
	if err := procSetProcessDPIAware.Find(); err == nil {
		if ret, _, _ := procSetProcessDPIAware.Call(); ret != 0 {
			log.Debug().Msg("system DPI awareness enabled (fallback)")
			return
		}
	}
	log.Warn().Msg("no DPI awareness API available")
}
