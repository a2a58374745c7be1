// Package compositor turns a virtual-screen rectangle into one image,
// stitching per-display captures when the rectangle crosses displays.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"

	"finalshot/src/cursor"
	"finalshot/src/dpi"
	"finalshot/src/logutil"
	"finalshot/src/screenshot"
)

// Compositor is safe for concurrent use when its collaborators are.
type Compositor struct {
	Topology screenshot.Topology
	Capturer screenshot.Capturer
	Cursor   *cursor.Renderer
	// EnterDPI opens the high-DPI scope around capture calls. Defaults to dpi.Enter.
	EnterDPI func() (restore func())
}

func New(topo screenshot.Topology, capt screenshot.Capturer, cur *cursor.Renderer) *Compositor {
	return &Compositor{Topology: topo, Capturer: capt, Cursor: cur, EnterDPI: dpi.Enter}
}

// NewSystem wires the live screen, pointer and DPI scope.
func NewSystem() *Compositor {
	sys := screenshot.System{}
	return New(sys, sys, cursor.NewRenderer(cursor.NewSystem()))
}

// Compose captures target. When one display contains target entirely a
// single capture is taken; otherwise each display's intersection is
// captured, stamped with the cursor at that part's own origin, and blitted
// into a transparent canvas. Pixels no display covers stay transparent.
// Overlapping displays resolve in enumeration order: later ones win.
func (c *Compositor) Compose(ctx context.Context, target screenshot.Region, includeCursor bool) (*image.RGBA, error) {
	log := logutil.WithComponent("compositor")

	if target.Empty() {
		log.Info().Stringer("target", target).Msg("ignoring zero-area capture")
		return nil, fmt.Errorf("compose %s: %w", target, screenshot.ErrEmptyRegion)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	displays := c.Topology.Displays()
	if missesAll(displays, target) {
		log.Warn().Stringer("target", target).Int("displays", len(displays)).Msg("capture target outside every display")
		return nil, fmt.Errorf("compose %s: %w", target, screenshot.ErrOutsideDisplays)
	}

	restore := c.enterDPI()
	defer restore()

	for _, d := range displays {
		if d.Bounds.Contains(target) {
			log.Debug().Stringer("target", target).Str("display", d.ID).Msg("single-capture path")
			return c.single(target, includeCursor)
		}
	}
	return c.composite(ctx, target, displays, includeCursor)
}

// missesAll reports whether target misses the union of displays.
func missesAll(displays []screenshot.Display, target screenshot.Region) bool {
	return screenshot.VirtualBounds(displays).Intersect(target).Empty()
}

func (c *Compositor) single(target screenshot.Region, includeCursor bool) (*image.RGBA, error) {
	img, err := c.Capturer.Capture(target)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", target, err)
	}
	if includeCursor {
		c.Cursor.Draw(img, target.Origin())
	}
	return img, nil
}

func (c *Compositor) composite(ctx context.Context, target screenshot.Region, displays []screenshot.Display, includeCursor bool) (*image.RGBA, error) {
	log := logutil.WithComponent("compositor")
	dst := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))

	var parts int
	var errs []error
	for _, d := range displays {
		inter := target.Intersect(d.Bounds)
		if inter.Empty() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := c.Capturer.Capture(inter)
		if err != nil {
			log.Warn().Err(err).Str("display", d.ID).Stringer("part", inter).Msg("part capture failed")
			errs = append(errs, fmt.Errorf("%s: %w", d.ID, err))
			continue
		}
		if includeCursor {
			c.Cursor.Draw(part, inter.Origin())
		}
		at := image.Pt(inter.X-target.X, inter.Y-target.Y)
		draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(part.Bounds().Size())}, part, part.Bounds().Min, draw.Src)
		parts++
		log.Debug().Str("display", d.ID).Stringer("part", inter).Msg("composited part")
	}

	// A failed part would be indistinguishable from a gap, so nothing is
	// returned unless every intersecting display was captured.
	if len(errs) > 0 {
		return nil, fmt.Errorf("compose %s: %w", target, errors.Join(errs...))
	}
	if parts == 0 {
		log.Warn().Stringer("target", target).Msg("capture target lies in a gap between displays; returning blank image")
	}
	return dst, nil
}

func (c *Compositor) enterDPI() func() {
	if c.EnterDPI == nil {
		return func() {}
	}
	return c.EnterDPI()
}
