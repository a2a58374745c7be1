//go:build windows

package window

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"finalshot/src/screenshot"
)

const dwmwaExtendedFrameBounds = 9

var (
	procDwmGetWindowAttribute = windows.NewLazySystemDLL("dwmapi.dll").NewProc("DwmGetWindowAttribute")

	// EnumWindows callbacks are a scarce resource; one is shared and the
	// collected handles are guarded by enumMu.
	enumMu       sync.Mutex
	enumHandles  []windows.HWND
	enumCallback = syscall.NewCallback(func(h windows.HWND, _ uintptr) uintptr {
		enumHandles = append(enumHandles, h)
		return 1
	})
)

type system struct{}

// NewSystem returns a Lister over the live desktop.
func NewSystem() Lister { return system{} }

func (system) List() ([]Info, error) {
	enumMu.Lock()
	enumHandles = enumHandles[:0]
	err := windows.EnumWindows(enumCallback, nil)
	handles := append([]windows.HWND(nil), enumHandles...)
	enumMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}

	out := make([]Info, 0, len(handles))
	for _, h := range handles {
		if !windows.IsWindowVisible(h) {
			continue
		}
		title := windowText(h)
		if title == "" {
			continue
		}
		out = append(out, Info{ID: uint64(h), Title: title, Bounds: windowBounds(h)})
	}
	return out, nil
}

func windowText(h windows.HWND) string {
	buf := make([]uint16, 512)
	n, err := windows.GetWindowText(h, &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// windowBounds prefers the DWM frame, which excludes the invisible resize
// border that GetWindowRect includes on Windows 10 and later.
func windowBounds(h windows.HWND) screenshot.Region {
	var rc win.RECT
	if err := procDwmGetWindowAttribute.Find(); err == nil {
		hr, _, _ := procDwmGetWindowAttribute.Call(uintptr(h), dwmwaExtendedFrameBounds,
			uintptr(unsafe.Pointer(&rc)), unsafe.Sizeof(rc))
		if hr == 0 && rc.Right > rc.Left && rc.Bottom > rc.Top {
			return rectToRegion(rc)
		}
	}
	if !win.GetWindowRect(win.HWND(h), &rc) {
		return screenshot.Region{}
	}
	return rectToRegion(rc)
}

func rectToRegion(rc win.RECT) screenshot.Region {
	return screenshot.Region{
		X:      int(rc.Left),
		Y:      int(rc.Top),
		Width:  int(rc.Right - rc.Left),
		Height: int(rc.Bottom - rc.Top),
	}
}
