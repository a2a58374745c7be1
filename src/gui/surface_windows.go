//go:build windows

package gui

import (
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"finalshot/src/dpi"
	"finalshot/src/logutil"
	"finalshot/src/overlay"
	"finalshot/src/screenshot"
)

const (
	overlayClassName = "FinalShotOverlay"
	lwaAlpha         = 0x00000002
	psGeometric      = 0x00010000
	psDash           = 0x00000001
	psEndcapFlat     = 0x00000200
	bsSolid          = 0
)

var (
	user32DLL                      = windows.NewLazySystemDLL("user32.dll")
	gdi32DLL                       = windows.NewLazySystemDLL("gdi32.dll")
	dwmapiDLL                      = windows.NewLazySystemDLL("dwmapi.dll")
	procAllowSetForegroundWindow   = user32DLL.NewProc("AllowSetForegroundWindow")
	procSetLayeredWindowAttributes = user32DLL.NewProc("SetLayeredWindowAttributes")
	procExtCreatePen               = gdi32DLL.NewProc("ExtCreatePen")
	procRectangle                  = gdi32DLL.NewProc("Rectangle")
	procDwmFlush                   = dwmapiDLL.NewProc("DwmFlush")
)

// One window class and one callback serve every overlay; windows are routed
// to their surface through the registry.
var (
	registerOnce sync.Once
	registerErr  error
	registryMu   sync.Mutex
	registry     = map[win.HWND]*windowsSurface{}
)

type logBrush struct {
	Style uint32
	Color uint32
	Hatch uintptr
}

type windowsSurface struct {
	bounds screenshot.Region
	alpha  byte
	hwnd   win.HWND
	events chan overlay.Event
	done   chan struct{}

	mu       sync.Mutex
	outline  screenshot.Region
	dragging bool

	closeOnce sync.Once
}

func newSurface(opts Options) (overlay.Surface, error) {
	if opts.Bounds.Empty() {
		opts.Bounds = screenshot.Region{
			X:      int(win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)),
			Y:      int(win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)),
			Width:  int(win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)),
			Height: int(win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)),
		}
	}
	s := &windowsSurface{
		bounds: opts.Bounds,
		alpha:  byte(opts.Opacity * 255),
		events: make(chan overlay.Event, eventBuffer),
		done:   make(chan struct{}),
	}
	ready := make(chan error, 1)
	go s.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return s, nil
}

// loop owns the window: it is created, pumped and destroyed on one locked
// OS thread that stays per-monitor DPI aware for the window's lifetime.
func (s *windowsSurface) loop(ready chan<- error) {
	log := logutil.WithComponent("overlay-win")
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	restore := dpi.Enter()
	defer restore()
	defer close(s.done)
	defer close(s.events)

	registerOnce.Do(registerClass)
	if registerErr != nil {
		ready <- registerErr
		return
	}

	b := s.bounds
	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW|win.WS_EX_LAYERED,
		syscall.StringToUTF16Ptr(overlayClassName),
		syscall.StringToUTF16Ptr("FinalShot - drag to select, ESC cancels"),
		win.WS_POPUP,
		int32(b.X), int32(b.Y), int32(b.Width), int32(b.Height),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		ready <- fmt.Errorf("failed to create overlay window (error %d)", win.GetLastError())
		return
	}
	s.hwnd = hwnd
	registryMu.Lock()
	registry[hwnd] = s
	registryMu.Unlock()
	defer func() {
		registryMu.Lock()
		delete(registry, hwnd)
		registryMu.Unlock()
	}()

	procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, uintptr(s.alpha), lwaAlpha)
	log.Debug().Stringer("bounds", b).Msg("overlay window created")
	ready <- nil

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 || ret == -1 {
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	log.Debug().Msg("overlay message loop finished")
}

func registerClass() {
	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc:   syscall.NewCallback(wndProc),
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS)),
		LpszClassName: syscall.StringToUTF16Ptr(overlayClassName),
	}
	if win.RegisterClassEx(&wc) == 0 {
		registerErr = errors.New("failed to register overlay window class")
	}
}

func (s *windowsSurface) Show() error {
	win.ShowWindow(s.hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	win.SetForegroundWindow(s.hwnd)
	win.BringWindowToTop(s.hwnd)
	win.UpdateWindow(s.hwnd)
	return nil
}

func (s *windowsSurface) Hide() error {
	// ShowWindow on a foreign thread is a synchronous SendMessage.
	win.ShowWindow(s.hwnd, win.SW_HIDE)
	if err := procDwmFlush.Find(); err == nil {
		procDwmFlush.Call()
	}
	time.Sleep(hideSettle)
	return nil
}

func (s *windowsSurface) Redraw(outline screenshot.Region) {
	s.mu.Lock()
	s.outline = outline
	s.mu.Unlock()
	win.InvalidateRect(s.hwnd, nil, false)
}

func (s *windowsSurface) Close() error {
	s.closeOnce.Do(func() {
		win.PostMessage(s.hwnd, win.WM_CLOSE, 0, 0)
	})
	select {
	case <-s.done:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("overlay window did not close")
	}
}

func (s *windowsSurface) Origin() image.Point { return s.bounds.Origin() }

func (s *windowsSurface) Events() <-chan overlay.Event { return s.events }

func lookup(hwnd win.HWND) *windowsSurface {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[hwnd]
}

func pointFromLParam(lParam uintptr) image.Point {
	// Client coordinates are signed once the mouse is captured.
	return image.Pt(int(int16(win.LOWORD(uint32(lParam)))), int(int16(win.HIWORD(uint32(lParam)))))
}

func wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	s := lookup(hwnd)
	if s == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		s.mu.Lock()
		s.dragging = true
		s.mu.Unlock()
		send(s.events, overlay.Event{Kind: overlay.PointerDown, Pos: pointFromLParam(lParam)})
		return 0

	case win.WM_MOUSEMOVE:
		s.mu.Lock()
		dragging := s.dragging
		s.mu.Unlock()
		if dragging {
			send(s.events, overlay.Event{Kind: overlay.PointerMove, Pos: pointFromLParam(lParam)})
		}
		return 0

	case win.WM_LBUTTONUP:
		win.ReleaseCapture()
		s.mu.Lock()
		s.dragging = false
		s.mu.Unlock()
		send(s.events, overlay.Event{Kind: overlay.PointerUp, Pos: pointFromLParam(lParam)})
		return 0

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			send(s.events, overlay.Event{Kind: overlay.Cancel})
		}
		return 0

	case win.WM_ERASEBKGND:
		return 1

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		s.paint(hdc)
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_NCHITTEST:
		return uintptr(win.HTCLIENT)

	case win.WM_CLOSE:
		// Closing from outside the session counts as a cancel.
		send(s.events, overlay.Event{Kind: overlay.Cancel})
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func (s *windowsSurface) paint(hdc win.HDC) {
	var rc win.RECT
	win.GetClientRect(s.hwnd, &rc)

	oldPen := win.SelectObject(hdc, win.GetStockObject(win.NULL_PEN))
	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.BLACK_BRUSH))
	procRectangle.Call(uintptr(hdc), uintptr(rc.Left), uintptr(rc.Top), uintptr(rc.Right+1), uintptr(rc.Bottom+1))
	win.SelectObject(hdc, oldPen)
	win.SelectObject(hdc, oldBrush)

	s.mu.Lock()
	outline := s.outline
	s.mu.Unlock()
	if outline.Empty() {
		return
	}

	// COLORREF is 0x00BBGGRR.
	colorRef := uint32(outlineRGB>>16&0xff) | uint32(outlineRGB>>8&0xff)<<8 | uint32(outlineRGB&0xff)<<16
	lb := logBrush{Style: bsSolid, Color: colorRef}
	pen, _, _ := procExtCreatePen.Call(psGeometric|psDash|psEndcapFlat, outlineWidth, uintptr(unsafe.Pointer(&lb)), 0, 0)
	if pen == 0 {
		return
	}
	defer win.DeleteObject(win.HGDIOBJ(pen))

	oldPen = win.SelectObject(hdc, win.HGDIOBJ(pen))
	oldBrush = win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))
	procRectangle.Call(uintptr(hdc),
		uintptr(outline.X), uintptr(outline.Y),
		uintptr(outline.X+outline.Width), uintptr(outline.Y+outline.Height))
	win.SelectObject(hdc, oldPen)
	win.SelectObject(hdc, oldBrush)
}
