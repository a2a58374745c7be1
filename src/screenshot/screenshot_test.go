package screenshot

import (
	"image"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionEmpty(t *testing.T) {
	assert.True(t, Region{Width: 0, Height: 10}.Empty())
	assert.True(t, Region{Width: 10, Height: 0}.Empty())
	assert.True(t, Region{Width: -1, Height: 10}.Empty())
	assert.False(t, Region{X: -5, Y: -5, Width: 1, Height: 1}.Empty())
}

func TestRegionIntersectAndContains(t *testing.T) {
	a := Region{X: 0, Y: 0, Width: 1920, Height: 1080}
	b := Region{X: 1920, Y: 0, Width: 1280, Height: 1024}
	target := Region{X: 1800, Y: 200, Width: 400, Height: 300}

	assert.Equal(t, Region{X: 1800, Y: 200, Width: 120, Height: 300}, target.Intersect(a))
	assert.Equal(t, Region{X: 1920, Y: 200, Width: 280, Height: 300}, target.Intersect(b))
	assert.False(t, a.Contains(target))
	assert.False(t, b.Contains(target))
	assert.True(t, a.Contains(Region{X: 10, Y: 10, Width: 100, Height: 100}))
	assert.True(t, a.Contains(a))

	// Touching edges do not intersect.
	assert.True(t, a.Intersect(b).Empty())
}

func TestRegionNegativeOrigin(t *testing.T) {
	left := Region{X: -1280, Y: -200, Width: 1280, Height: 1024}
	r := Region{X: -100, Y: 0, Width: 200, Height: 50}
	assert.Equal(t, Region{X: -100, Y: 0, Width: 100, Height: 50}, r.Intersect(left))
	assert.Equal(t, image.Rect(-1280, -200, 0, 824), left.Rect())
}

func TestVirtualBounds(t *testing.T) {
	assert.True(t, VirtualBounds(nil).Empty())

	displays := StaticTopology{
		{ID: "left", Bounds: Region{X: -1280, Y: -200, Width: 1280, Height: 1024}},
		{ID: "main", Bounds: Region{X: 0, Y: 0, Width: 1920, Height: 1080}},
	}.Displays()
	assert.Equal(t, Region{X: -1280, Y: -200, Width: 3200, Height: 1280}, VirtualBounds(displays))

	single := []Display{{ID: "only", Bounds: Region{Width: 800, Height: 600}}}
	assert.Equal(t, Region{Width: 800, Height: 600}, VirtualBounds(single))
}

func TestStaticTopologyReturnsCopy(t *testing.T) {
	topo := StaticTopology{{ID: "a", Bounds: Region{Width: 10, Height: 10}}}
	got := topo.Displays()
	got[0].ID = "mutated"
	assert.Equal(t, "a", topo[0].ID)
}

func TestRebaseMovesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(100, 50, 110, 55))
	src.Pix[0] = 42
	out := rebase(src)
	require.Equal(t, image.Rect(0, 0, 10, 5), out.Bounds())
	assert.Equal(t, uint8(42), out.Pix[0])
}

func TestSystemCaptureRejectsEmptyRegion(t *testing.T) {
	_, err := System{}.Capture(Region{Width: 0, Height: 10})
	assert.ErrorIs(t, err, ErrEmptyRegion)
}

func TestSystemCapture(t *testing.T) {
	if os.Getenv("FINALSHOT_INTERACTIVE_TESTS") != "1" {
		t.Skip("requires a display; set FINALSHOT_INTERACTIVE_TESTS=1")
	}
	displays := Displays()
	require.NotEmpty(t, displays)
	d := displays[0].Bounds
	img, err := System{}.Capture(Region{X: d.X, Y: d.Y, Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())
}
