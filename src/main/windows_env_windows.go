//go:build windows

package main

import (
	"golang.org/x/sys/windows"

	"finalshot/src/logutil"
)

var procGetSystemMetrics = windows.NewLazySystemDLL("user32.dll").NewProc("GetSystemMetrics")

const (
	smCXScreen        = 0
	smCYScreen        = 1
	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
	smCMonitors       = 80
)

func systemMetric(index int) int {
	ret, _, _ := procGetSystemMetrics.Call(uintptr(index))
	return int(int32(ret))
}

// logMonitorConfiguration records what the OS reports next to what the
// capture layer enumerates; a mismatch usually means a DPI scaling issue.
func logMonitorConfiguration() {
	logutil.WithComponent("main").Info().
		Int("monitors", systemMetric(smCMonitors)).
		Int("virtual_x", systemMetric(smXVirtualScreen)).
		Int("virtual_y", systemMetric(smYVirtualScreen)).
		Int("virtual_w", systemMetric(smCXVirtualScreen)).
		Int("virtual_h", systemMetric(smCYVirtualScreen)).
		Int("primary_w", systemMetric(smCXScreen)).
		Int("primary_h", systemMetric(smCYScreen)).
		Msg("system monitor metrics")
	logDisplays()
}
