// Package screenshottest provides a synthetic screen for capture tests.
package screenshottest

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"finalshot/src/screenshot"
)

// Screen is an in-memory virtual screen. Every pixel inside a display has a
// colour derived from its virtual coordinate and the index of the display
// that owns it, so tests can tell which display a pixel came from.
type Screen struct {
	Topology screenshot.StaticTopology

	mu    sync.Mutex
	calls []screenshot.Region
}

func New(displays ...screenshot.Display) *Screen {
	return &Screen{Topology: screenshot.StaticTopology(displays)}
}

func (s *Screen) Displays() []screenshot.Display { return s.Topology.Displays() }

// Capture returns the synthetic pixels of r. Pixels outside every display
// stay transparent.
func (s *Screen) Capture(r screenshot.Region) (*image.RGBA, error) {
	if r.Empty() {
		return nil, fmt.Errorf("capture %s: %w", r, screenshot.ErrEmptyRegion)
	}
	s.mu.Lock()
	s.calls = append(s.calls, r)
	s.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			vx, vy := r.X+x, r.Y+y
			if idx := s.owner(vx, vy); idx >= 0 {
				img.SetRGBA(x, y, PixelAt(idx, vx, vy))
			}
		}
	}
	return img, nil
}

// Calls returns the regions passed to Capture so far.
func (s *Screen) Calls() []screenshot.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]screenshot.Region, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Screen) owner(x, y int) int {
	p := image.Pt(x, y)
	for i, d := range s.Topology {
		if p.In(d.Bounds.Rect()) {
			return i
		}
	}
	return -1
}

// PixelAt is the colour Screen paints at virtual (x, y) on display idx.
func PixelAt(idx, x, y int) color.RGBA {
	return color.RGBA{
		R: uint8(idx + 1),
		G: uint8(x),
		B: uint8(y),
		A: 0xff,
	}
}

// DisplayIndex recovers the owning display index from a painted pixel, or -1
// for an unpainted one.
func DisplayIndex(c color.RGBA) int {
	if c.A == 0 {
		return -1
	}
	return int(c.R) - 1
}
