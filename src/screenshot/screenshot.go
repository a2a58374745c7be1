package screenshot

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/kbinani/screenshot"

	"finalshot/src/logutil"
)

var (
	// ErrEmptyRegion is returned for rectangles with zero width or height.
	ErrEmptyRegion = errors.New("empty capture region")
	// ErrOutsideDisplays is returned when a rectangle touches no display.
	ErrOutsideDisplays = errors.New("capture region lies outside every display")
)

// Region is a rectangle in virtual-screen coordinates. X and Y may be
// negative for displays left of or above the primary one.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RegionFromRect converts an image.Rectangle into a Region.
func RegionFromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) Origin() image.Point { return image.Pt(r.X, r.Y) }

// Empty reports whether either dimension is zero or negative.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

func (r Region) Intersect(o Region) Region {
	if r.Empty() || o.Empty() {
		return Region{}
	}
	return RegionFromRect(r.Rect().Intersect(o.Rect()))
}

// Contains reports whether o lies entirely inside r.
func (r Region) Contains(o Region) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return o.Rect().In(r.Rect())
}

func (r Region) Union(o Region) Region {
	switch {
	case r.Empty():
		return o
	case o.Empty():
		return r
	}
	return RegionFromRect(r.Rect().Union(o.Rect()))
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Display is one connected display surface.
type Display struct {
	ID     string
	Bounds Region
}

// Topology enumerates displays. Implementations read the arrangement fresh on
// every call; an empty result means nothing is capturable.
type Topology interface {
	Displays() []Display
}

// Capturer copies a virtual-screen rectangle into a new image whose bounds
// start at (0,0) and measure exactly r.Width x r.Height.
type Capturer interface {
	Capture(r Region) (*image.RGBA, error)
}

// VirtualBounds returns the union of all display bounds.
func VirtualBounds(displays []Display) Region {
	var u Region
	for _, d := range displays {
		u = u.Union(d.Bounds)
	}
	return u
}

// StaticTopology is a fixed display arrangement.
type StaticTopology []Display

func (s StaticTopology) Displays() []Display {
	out := make([]Display, len(s))
	copy(out, s)
	return out
}

// System is the live screen, backed by github.com/kbinani/screenshot.
type System struct{}

// Displays enumerates active displays. A panic inside the platform layer is
// treated like an enumeration failure.
func (System) Displays() (displays []Display) {
	log := logutil.WithComponent("screenshot")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("display enumeration failed")
			displays = nil
		}
	}()

	n := screenshot.NumActiveDisplays()
	for i := 0; i < n; i++ {
		b := RegionFromRect(screenshot.GetDisplayBounds(i))
		if b.Empty() {
			continue
		}
		displays = append(displays, Display{ID: fmt.Sprintf("display%d", i), Bounds: b})
	}
	if len(displays) == 0 {
		log.Warn().Msg("no active displays found")
	}
	return displays
}

// Capture grabs r from the live screen. Callers are expected to hold a
// high-DPI context (see package dpi) around the call.
func (s System) Capture(r Region) (*image.RGBA, error) {
	if r.Empty() {
		return nil, fmt.Errorf("capture %s: %w", r, ErrEmptyRegion)
	}
	if VirtualBounds(s.Displays()).Intersect(r).Empty() {
		return nil, fmt.Errorf("capture %s: %w", r, ErrOutsideDisplays)
	}
	img, err := screenshot.CaptureRect(r.Rect())
	if err != nil {
		return nil, fmt.Errorf("failed to capture region %s: %w", r, err)
	}
	return rebase(img), nil
}

// Displays reads the live topology.
func Displays() []Display { return System{}.Displays() }

// rebase returns img with its bounds moved to a (0,0) origin.
func rebase(img *image.RGBA) *image.RGBA {
	if img.Bounds().Min == (image.Point{}) {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
