package cursor

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var red = color.RGBA{R: 0xff, A: 0xff}

func glyph(w, h int) *image.RGBA {
	g := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(g.Pix); i += 4 {
		g.Pix[i], g.Pix[i+3] = 0xff, 0xff
	}
	return g
}

type failingSource struct{}

func (failingSource) Pointer() (Pointer, error) { return Pointer{}, errors.New("no cursor") }

func TestDrawPlacesGlyphRelativeToOrigin(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	src := Static{
		Visible: true,
		Pos:     image.Pt(1950, 230),
		Hotspot: image.Pt(2, 3),
		Glyph:   glyph(4, 4),
	}
	NewRenderer(src).Draw(dst, image.Pt(1920, 200))

	// 1950-1920-2 = 28, 230-200-3 = 27
	assert.Equal(t, red, dst.RGBAAt(28, 27))
	assert.Equal(t, red, dst.RGBAAt(31, 30))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(27, 27))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(32, 30))
}

func TestDrawClipsPartiallyVisibleGlyph(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src := Static{Visible: true, Pos: image.Pt(-2, -2), Glyph: glyph(4, 4)}
	NewRenderer(src).Draw(dst, image.Point{})

	assert.Equal(t, red, dst.RGBAAt(0, 0))
	assert.Equal(t, red, dst.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(2, 2))
}

func TestDrawOutsideSurfaceIsNoop(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src := Static{Visible: true, Pos: image.Pt(500, 500), Glyph: glyph(4, 4)}
	NewRenderer(src).Draw(dst, image.Point{})
	for _, b := range dst.Pix {
		assert.Zero(t, b)
	}
}

func TestDrawHiddenOrFailingSourceLeavesSurface(t *testing.T) {
	for name, src := range map[string]Source{
		"hidden":  Hidden{},
		"failing": failingSource{},
		"noglyph": Static{Visible: true},
	} {
		t.Run(name, func(t *testing.T) {
			dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
			NewRenderer(src).Draw(dst, image.Point{})
			for _, b := range dst.Pix {
				assert.Zero(t, b)
			}
		})
	}
}

func TestDrawBlendsTranslucentGlyph(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
	dst.SetRGBA(0, 0, color.RGBA{B: 0xff, A: 0xff})
	g := image.NewRGBA(image.Rect(0, 0, 1, 1))
	g.SetRGBA(0, 0, color.RGBA{}) // fully transparent
	DrawPointer(dst, image.Point{}, Pointer{Visible: true, Glyph: g})
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, dst.RGBAAt(0, 0))
}

func TestNilRendererIsSafe(t *testing.T) {
	var r *Renderer
	assert.NotPanics(t, func() { r.Draw(image.NewRGBA(image.Rect(0, 0, 1, 1)), image.Point{}) })
}
