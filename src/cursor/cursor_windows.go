//go:build windows

package cursor

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const (
	cursorShowing = 0x00000001
	diNormal      = 0x0003
	smCxCursor    = 13
	smCyCursor    = 14
)

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procGetCursorInfo = user32.NewProc("GetCursorInfo")
	procGetIconInfo   = user32.NewProc("GetIconInfo")
	procDrawIconEx    = user32.NewProc("DrawIconEx")
	procGdiFlush      = windows.NewLazySystemDLL("gdi32.dll").NewProc("GdiFlush")
)

type cursorInfo struct {
	CbSize      uint32
	Flags       uint32
	HCursor     windows.Handle
	PtScreenPos win.POINT
}

type iconInfo struct {
	FIcon    int32
	XHotspot uint32
	YHotspot uint32
	HbmMask  windows.Handle
	HbmColor windows.Handle
}

type system struct{}

// NewSystem returns the live pointer source for this platform.
func NewSystem() Source { return system{} }

func (system) Pointer() (Pointer, error) {
	ci := cursorInfo{CbSize: uint32(unsafe.Sizeof(cursorInfo{}))}
	if ret, _, err := procGetCursorInfo.Call(uintptr(unsafe.Pointer(&ci))); ret == 0 {
		return Pointer{}, fmt.Errorf("GetCursorInfo: %w", err)
	}
	if ci.Flags&cursorShowing == 0 || ci.HCursor == 0 {
		return Pointer{}, nil
	}

	var ii iconInfo
	if ret, _, err := procGetIconInfo.Call(uintptr(ci.HCursor), uintptr(unsafe.Pointer(&ii))); ret == 0 {
		return Pointer{}, fmt.Errorf("GetIconInfo: %w", err)
	}
	if ii.HbmMask != 0 {
		win.DeleteObject(win.HGDIOBJ(ii.HbmMask))
	}
	if ii.HbmColor != 0 {
		win.DeleteObject(win.HGDIOBJ(ii.HbmColor))
	}

	w := int(win.GetSystemMetrics(smCxCursor))
	h := int(win.GetSystemMetrics(smCyCursor))
	if w <= 0 || h <= 0 {
		w, h = 32, 32
	}
	glyph, err := renderGlyph(ci.HCursor, w, h)
	if err != nil {
		return Pointer{}, err
	}
	return Pointer{
		Visible: true,
		Pos:     image.Pt(int(ci.PtScreenPos.X), int(ci.PtScreenPos.Y)),
		Hotspot: image.Pt(int(ii.XHotspot), int(ii.YHotspot)),
		Glyph:   glyph,
	}, nil
}

// renderGlyph draws the cursor over black and over white and recovers
// per-pixel alpha from the difference, which also handles monochrome
// cursors that only carry an AND/XOR mask.
func renderGlyph(h windows.Handle, width, height int) (*image.RGBA, error) {
	black, err := drawOnto(h, width, height, 0x00)
	if err != nil {
		return nil, err
	}
	white, err := drawOnto(h, width, height, 0xff)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i+3 < len(black); i += 4 {
		// DIB rows are BGRA.
		b0, g0, r0 := int(black[i]), int(black[i+1]), int(black[i+2])
		b1, g1, r1 := int(white[i]), int(white[i+1]), int(white[i+2])
		diff := ((r1 - r0) + (g1 - g0) + (b1 - b0)) / 3
		a := clamp(255 - diff)
		if a == 0 {
			continue
		}
		// Pixels over black are premultiplied colour already.
		img.Pix[i+0] = uint8(min(r0, a))
		img.Pix[i+1] = uint8(min(g0, a))
		img.Pix[i+2] = uint8(min(b0, a))
		img.Pix[i+3] = uint8(a)
	}
	return img, nil
}

func drawOnto(h windows.Handle, width, height int, fill byte) ([]byte, error) {
	screenDC := win.GetDC(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer win.ReleaseDC(0, screenDC)

	memDC := win.CreateCompatibleDC(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer win.DeleteDC(memDC)

	bi := win.BITMAPINFO{
		BmiHeader: win.BITMAPINFOHEADER{
			BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
			BiWidth:       int32(width),
			BiHeight:      -int32(height),
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: win.BI_RGB,
		},
	}
	var bits unsafe.Pointer
	bmp := win.CreateDIBSection(memDC, &bi.BmiHeader, win.DIB_RGB_COLORS, &bits, 0, 0)
	if bmp == 0 || bits == nil {
		return nil, fmt.Errorf("CreateDIBSection failed")
	}
	defer win.DeleteObject(win.HGDIOBJ(bmp))

	old := win.SelectObject(memDC, win.HGDIOBJ(bmp))
	defer win.SelectObject(memDC, old)

	n := width * height * 4
	buf := unsafe.Slice((*byte)(bits), n)
	for i := range buf {
		buf[i] = fill
	}
	procDrawIconEx.Call(uintptr(memDC), 0, 0, uintptr(h), uintptr(width), uintptr(height), 0, 0, diNormal)
	procGdiFlush.Call()

	out := make([]byte, n)
	copy(out, buf)
	return out, nil
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return v
}
