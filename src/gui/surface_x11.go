//go:build linux

package gui

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"finalshot/src/logutil"
	"finalshot/src/overlay"
	"finalshot/src/screenshot"
)

const (
	xcCrosshair = 34
	keysymEsc   = 0xff1b
)

type x11Surface struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	win    xproto.Window
	gc     xproto.Gcontext
	bounds screenshot.Region
	escape map[xproto.Keycode]bool
	events chan overlay.Event
	done   chan struct{}

	mu      sync.Mutex
	outline screenshot.Region
	closed  bool
}

func newSurface(opts Options) (overlay.Surface, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	if opts.Bounds.Empty() {
		opts.Bounds = screenshot.Region{Width: int(screen.WidthInPixels), Height: int(screen.HeightInPixels)}
	}

	s := &x11Surface{
		conn:   conn,
		screen: screen,
		bounds: opts.Bounds,
		events: make(chan overlay.Event, eventBuffer),
		done:   make(chan struct{}),
	}
	if err := s.create(opts); err != nil {
		conn.Close()
		return nil, err
	}
	s.escape = escapeKeycodes(conn, setup)
	go s.pump()
	return s, nil
}

func (s *x11Surface) create(opts Options) error {
	wid, err := xproto.NewWindowId(s.conn)
	if err != nil {
		return fmt.Errorf("allocate window id: %w", err)
	}
	s.win = wid

	b := s.bounds
	// Root coordinates are virtual-screen coordinates on X11.
	err = xproto.CreateWindowChecked(s.conn, s.screen.RootDepth, wid, s.screen.Root,
		int16(b.X), int16(b.Y), uint16(b.Width), uint16(b.Height), 0,
		xproto.WindowClassInputOutput, s.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask|xproto.CwCursor,
		[]uint32{
			s.screen.BlackPixel,
			1,
			xproto.EventMaskExposure | xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease |
				xproto.EventMaskPointerMotion | xproto.EventMaskKeyPress | xproto.EventMaskStructureNotify,
			uint32(s.crosshair()),
		}).Check()
	if err != nil {
		return fmt.Errorf("create overlay window: %w", err)
	}

	s.setOpacity(opts.Opacity)

	gc, err := xproto.NewGcontextId(s.conn)
	if err != nil {
		return fmt.Errorf("allocate gc: %w", err)
	}
	s.gc = gc
	err = xproto.CreateGCChecked(s.conn, gc, xproto.Drawable(wid),
		xproto.GcForeground|xproto.GcLineWidth|xproto.GcLineStyle,
		[]uint32{outlineRGB, outlineWidth, xproto.LineStyleOnOffDash}).Check()
	if err != nil {
		return fmt.Errorf("create gc: %w", err)
	}
	return nil
}

// crosshair builds the standard crosshair glyph from the core cursor font.
func (s *x11Surface) crosshair() xproto.Cursor {
	font, err := xproto.NewFontId(s.conn)
	if err != nil {
		return 0
	}
	if err := xproto.OpenFontChecked(s.conn, font, uint16(len("cursor")), "cursor").Check(); err != nil {
		return 0
	}
	defer xproto.CloseFont(s.conn, font)
	cur, err := xproto.NewCursorId(s.conn)
	if err != nil {
		return 0
	}
	err = xproto.CreateGlyphCursorChecked(s.conn, cur, font, font, xcCrosshair, xcCrosshair+1,
		0xffff, 0xffff, 0xffff, 0, 0, 0).Check()
	if err != nil {
		return 0
	}
	return cur
}

// setOpacity uses the compositor hint; without a compositing manager the
// overlay is opaque black.
func (s *x11Surface) setOpacity(opacity float64) {
	atom, err := xproto.InternAtom(s.conn, false, uint16(len("_NET_WM_WINDOW_OPACITY")), "_NET_WM_WINDOW_OPACITY").Reply()
	if err != nil {
		return
	}
	v := uint32(opacity * 0xffffffff)
	data := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	xproto.ChangeProperty(s.conn, xproto.PropModeReplace, s.win, atom.Atom, xproto.AtomCardinal, 32, 1, data)
}

func escapeKeycodes(conn *xgb.Conn, setup *xproto.SetupInfo) map[xproto.Keycode]bool {
	out := map[xproto.Keycode]bool{}
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	reply, err := xproto.GetKeyboardMapping(conn, setup.MinKeycode, count).Reply()
	if err != nil || reply.KeysymsPerKeycode == 0 {
		return out
	}
	per := int(reply.KeysymsPerKeycode)
	for i, sym := range reply.Keysyms {
		if sym == keysymEsc {
			out[setup.MinKeycode+xproto.Keycode(i/per)] = true
		}
	}
	return out
}

func (s *x11Surface) pump() {
	log := logutil.WithComponent("overlay-x11")
	defer close(s.done)
	defer close(s.events)

	for {
		ev, err := s.conn.WaitForEvent()
		if ev == nil && err == nil {
			return
		}
		if err != nil {
			log.Debug().Err(err).Msg("X11 event error")
			continue
		}
		switch e := ev.(type) {
		case xproto.ButtonPressEvent:
			if e.Detail == xproto.ButtonIndex1 {
				send(s.events, overlay.Event{Kind: overlay.PointerDown, Pos: image.Pt(int(e.EventX), int(e.EventY))})
			}
		case xproto.MotionNotifyEvent:
			send(s.events, overlay.Event{Kind: overlay.PointerMove, Pos: image.Pt(int(e.EventX), int(e.EventY))})
		case xproto.ButtonReleaseEvent:
			if e.Detail == xproto.ButtonIndex1 {
				send(s.events, overlay.Event{Kind: overlay.PointerUp, Pos: image.Pt(int(e.EventX), int(e.EventY))})
			}
		case xproto.KeyPressEvent:
			if s.escape[e.Detail] {
				send(s.events, overlay.Event{Kind: overlay.Cancel})
			}
		case xproto.ExposeEvent:
			if e.Count == 0 {
				s.paint()
			}
		case xproto.DestroyNotifyEvent:
			return
		}
	}
}

func (s *x11Surface) Show() error {
	if err := xproto.MapWindowChecked(s.conn, s.win).Check(); err != nil {
		return fmt.Errorf("map overlay: %w", err)
	}
	xproto.ConfigureWindow(s.conn, s.win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
	// Grabs can fail briefly while the window is being mapped.
	for i := 0; i < 20; i++ {
		reply, err := xproto.GrabPointer(s.conn, true, s.win,
			xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease|xproto.EventMaskPointerMotion,
			xproto.GrabModeAsync, xproto.GrabModeAsync, s.win, xproto.CursorNone, xproto.TimeCurrentTime).Reply()
		if err == nil && reply.Status == xproto.GrabStatusSuccess {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	xproto.GrabKeyboard(s.conn, true, s.win, xproto.TimeCurrentTime, xproto.GrabModeAsync, xproto.GrabModeAsync)
	return nil
}

func (s *x11Surface) Hide() error {
	xproto.UngrabPointer(s.conn, xproto.TimeCurrentTime)
	xproto.UngrabKeyboard(s.conn, xproto.TimeCurrentTime)
	if err := xproto.UnmapWindowChecked(s.conn, s.win).Check(); err != nil {
		return fmt.Errorf("unmap overlay: %w", err)
	}
	// Round trip so the unmap is processed before the capture reads pixels.
	_, _ = xproto.GetInputFocus(s.conn).Reply()
	time.Sleep(hideSettle)
	return nil
}

func (s *x11Surface) Redraw(outline screenshot.Region) {
	s.mu.Lock()
	s.outline = outline
	s.mu.Unlock()
	s.paint()
}

func (s *x11Surface) paint() {
	s.mu.Lock()
	outline, closed := s.outline, s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	xproto.ClearArea(s.conn, false, s.win, 0, 0, 0, 0)
	if outline.Empty() {
		return
	}
	xproto.PolyRectangle(s.conn, xproto.Drawable(s.win), s.gc, []xproto.Rectangle{{
		X:      int16(outline.X),
		Y:      int16(outline.Y),
		Width:  uint16(outline.Width),
		Height: uint16(outline.Height),
	}})
}

func (s *x11Surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	xproto.UngrabPointer(s.conn, xproto.TimeCurrentTime)
	xproto.UngrabKeyboard(s.conn, xproto.TimeCurrentTime)
	xproto.FreeGC(s.conn, s.gc)
	xproto.DestroyWindow(s.conn, s.win)
	s.conn.Sync()
	s.conn.Close()
	<-s.done
	return nil
}

func (s *x11Surface) Origin() image.Point { return s.bounds.Origin() }

func (s *x11Surface) Events() <-chan overlay.Event { return s.events }
