// Package cursor stamps the mouse pointer onto captured images.
package cursor

import (
	"image"
	"image/draw"

	"finalshot/src/logutil"
)

// Pointer is one snapshot of the mouse pointer. Pos is in virtual-screen
// coordinates; Hotspot is relative to the glyph's top-left corner.
type Pointer struct {
	Visible bool
	Pos     image.Point
	Hotspot image.Point
	Glyph   image.Image
}

// Source reports the current pointer state.
type Source interface {
	Pointer() (Pointer, error)
}

// Renderer draws the pointer reported by Source.
type Renderer struct {
	Source Source
}

func NewRenderer(src Source) *Renderer {
	return &Renderer{Source: src}
}

// Draw paints the pointer onto dst, where dst's top-left pixel sits at origin
// in virtual-screen space. A hidden pointer or a failing Source leaves dst
// untouched.
func (r *Renderer) Draw(dst draw.Image, origin image.Point) {
	if r == nil || r.Source == nil {
		return
	}
	p, err := r.Source.Pointer()
	if err != nil {
		logutil.WithComponent("cursor").Debug().Err(err).Msg("cursor query failed; skipping overlay")
		return
	}
	DrawPointer(dst, origin, p)
}

// DrawPointer paints p onto dst. The glyph lands at p.Pos - origin - p.Hotspot
// relative to dst's bounds and is alpha-blended over existing pixels.
func DrawPointer(dst draw.Image, origin image.Point, p Pointer) {
	if !p.Visible || p.Glyph == nil {
		return
	}
	local := p.Pos.Sub(origin).Sub(p.Hotspot)
	gb := p.Glyph.Bounds()
	at := dst.Bounds().Min.Add(local)
	target := image.Rectangle{Min: at, Max: at.Add(gb.Size())}
	if target.Intersect(dst.Bounds()).Empty() {
		return
	}
	draw.Draw(dst, target, p.Glyph, gb.Min, draw.Over)
}

// Hidden is a Source whose pointer is never visible.
type Hidden struct{}

func (Hidden) Pointer() (Pointer, error) { return Pointer{}, nil }

// Static always reports the same pointer.
type Static Pointer

func (s Static) Pointer() (Pointer, error) { return Pointer(s), nil }
