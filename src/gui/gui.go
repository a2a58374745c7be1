// Package gui provides the native overlay windows behind the interactive
// selector.
package gui

import (
	"errors"
	"time"

	"finalshot/src/logutil"
	"finalshot/src/overlay"
	"finalshot/src/screenshot"
)

// ErrUnsupported is returned where no overlay toolkit is available.
var ErrUnsupported = errors.New("interactive overlay not supported on this platform")

const (
	DefaultOpacity = 0.25
	// outlineRGB is the dashed selection border colour, 0xRRGGBB.
	outlineRGB   = 0x1E90FF
	outlineWidth = 3
	eventBuffer  = 256
	// hideSettle gives the compositor time to repaint what the overlay covered.
	hideSettle = 80 * time.Millisecond
)

// Options configures an overlay surface.
type Options struct {
	// Bounds is the area to cover, normally the virtual screen. An empty
	// value asks the platform for its virtual-screen rectangle.
	Bounds  screenshot.Region
	Opacity float64
}

// NewSurface opens a hidden, topmost, semi-transparent overlay window.
func NewSurface(opts Options) (overlay.Surface, error) {
	if opts.Opacity <= 0 || opts.Opacity > 1 {
		opts.Opacity = DefaultOpacity
	}
	return newSurface(opts)
}

// deliveryTimeout bounds how long the UI thread waits for the selector to
// accept an event that must not be dropped.
var deliveryTimeout = 2 * time.Second

// send delivers ev to the selector. Moves are dropped when the buffer is
// full since a later move supersedes them. Presses, releases and cancels
// wait up to deliveryTimeout so the selector cannot miss the end of a drag.
func send(ch chan<- overlay.Event, ev overlay.Event) bool {
	select {
	case ch <- ev:
		return true
	default:
	}
	if ev.Kind == overlay.PointerMove {
		return false
	}
	t := time.NewTimer(deliveryTimeout)
	defer t.Stop()
	select {
	case ch <- ev:
		return true
	case <-t.C:
		logutil.WithComponent("gui").Warn().Int("event", int(ev.Kind)).Msg("selector not reading events; dropped")
		return false
	}
}
