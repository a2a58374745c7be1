package window

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finalshot/src/screenshot"
)

var sample = StaticLister{
	{ID: 1, Title: "Untitled - Notepad", Bounds: screenshot.Region{X: 10, Y: 10, Width: 800, Height: 600}},
	{ID: 2, Title: "notepad", Bounds: screenshot.Region{X: -1200, Y: 0, Width: 400, Height: 300}},
	{ID: 3, Title: "STRASSE Browser", Bounds: screenshot.Region{X: 0, Y: 0, Width: 100, Height: 100}},
	{ID: 4, Title: "Minimized", Bounds: screenshot.Region{X: -32000, Y: -32000, Width: 0, Height: 0}},
}

func TestMatchPrefersExactTitle(t *testing.T) {
	w, ok := Match(sample, "notepad")
	require.True(t, ok)
	assert.Equal(t, uint64(2), w.ID)
}

func TestMatchCaseFoldedSubstring(t *testing.T) {
	w, ok := Match(sample, "UNTITLED")
	require.True(t, ok)
	assert.Equal(t, uint64(1), w.ID)

	// Full case folding maps ß to ss.
	w, ok = Match(sample, "straße")
	require.True(t, ok)
	assert.Equal(t, uint64(3), w.ID)
}

func TestFindNotFound(t *testing.T) {
	_, err := NewFinder(sample).Find("Calculator")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewFinder(sample).Find("   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindZeroSizedWindow(t *testing.T) {
	_, err := NewFinder(sample).Find("Minimized")
	assert.ErrorIs(t, err, screenshot.ErrEmptyRegion)
}

func TestFindReturnsBounds(t *testing.T) {
	w, err := NewFinder(sample).Find("notepad")
	require.NoError(t, err)
	assert.Equal(t, screenshot.Region{X: -1200, Y: 0, Width: 400, Height: 300}, w.Bounds)
}

type failingLister struct{}

func (failingLister) List() ([]Info, error) { return nil, errors.New("no display") }

func TestFindPropagatesListError(t *testing.T) {
	_, err := NewFinder(failingLister{}).Find("x")
	assert.ErrorContains(t, err, "no display")
}
