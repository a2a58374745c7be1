// Package window resolves top-level windows by title to their on-screen
// rectangle.
package window

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"finalshot/src/logutil"
	"finalshot/src/screenshot"
)

// ErrNotFound is returned when no visible window matches the title.
var ErrNotFound = errors.New("window not found")

// Info describes one top-level window.
type Info struct {
	ID     uint64
	Title  string
	Bounds screenshot.Region
}

// Lister enumerates visible top-level windows in stacking order, topmost
// first where the platform reports it.
type Lister interface {
	List() ([]Info, error)
}

type Finder struct {
	Lister Lister
}

func NewFinder(l Lister) *Finder { return &Finder{Lister: l} }

// Find returns the window whose title equals title, or failing that the
// first whose title contains it, compared case-insensitively. A matched
// window with no area yields screenshot.ErrEmptyRegion.
func (f *Finder) Find(title string) (Info, error) {
	log := logutil.WithComponent("window")
	title = strings.TrimSpace(title)
	if title == "" {
		return Info{}, fmt.Errorf("empty window title: %w", ErrNotFound)
	}
	windows, err := f.Lister.List()
	if err != nil {
		return Info{}, fmt.Errorf("list windows: %w", err)
	}
	info, ok := Match(windows, title)
	if !ok {
		log.Info().Str("title", title).Int("candidates", len(windows)).Msg("no window matches title")
		return Info{}, fmt.Errorf("%q: %w", title, ErrNotFound)
	}
	if info.Bounds.Empty() {
		log.Info().Str("title", info.Title).Stringer("bounds", info.Bounds).Msg("window has no area")
		return info, fmt.Errorf("window %q is %dx%d: %w", info.Title, info.Bounds.Width, info.Bounds.Height, screenshot.ErrEmptyRegion)
	}
	log.Debug().Str("title", info.Title).Stringer("bounds", info.Bounds).Msg("window resolved")
	return info, nil
}

// Match picks the best window for title: an exact title first, then a
// case-folded exact title, then the first case-folded substring match.
func Match(windows []Info, title string) (Info, bool) {
	for _, w := range windows {
		if w.Title == title {
			return w, true
		}
	}
	fold := cases.Fold()
	want := fold.String(title)
	for _, w := range windows {
		if fold.String(w.Title) == want {
			return w, true
		}
	}
	for _, w := range windows {
		if strings.Contains(fold.String(w.Title), want) {
			return w, true
		}
	}
	return Info{}, false
}

// StaticLister returns a fixed window list.
type StaticLister []Info

func (s StaticLister) List() ([]Info, error) { return s, nil }
