// Package overlay implements the interactive selection state machine. It is
// toolkit-agnostic: a Surface supplies pointer events and paints the
// outline, while the Session decides what the events mean.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"

	"finalshot/src/logutil"
	"finalshot/src/screenshot"
)

// ErrCancelled is returned when the user dismisses the overlay or releases a
// selection smaller than the minimum size.
var ErrCancelled = errors.New("selection cancelled")

type State int

const (
	Idle State = iota
	Dragging
	Finalizing
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Finalizing:
		return "finalizing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	// Cancel is sent for Escape or when the window is closed externally.
	Cancel
)

// Event is a pointer event in window-client coordinates.
type Event struct {
	Kind EventKind
	Pos  image.Point
}

// Surface is the overlay window. Events is closed when the window goes away.
type Surface interface {
	Show() error
	// Hide must take effect on screen before it returns.
	Hide() error
	// Redraw paints outline (client coordinates) as a dashed border; an empty
	// outline clears it.
	Redraw(outline screenshot.Region)
	Close() error
	// Origin is the window's top-left in virtual-screen coordinates.
	Origin() image.Point
	Events() <-chan Event
}

// CaptureFunc composes and persists the absolute selection.
type CaptureFunc func(ctx context.Context, abs screenshot.Region) error

// Session drives one overlay interaction from Idle to Closed.
type Session struct {
	Surface Surface
	// MinSize is the smallest accepted width and height; values below 1 mean 1.
	MinSize int
	Capture CaptureFunc
	// OnComplete runs after Capture succeeds, before the window is destroyed.
	OnComplete func(abs screenshot.Region)

	state   State
	anchor  image.Point
	current screenshot.Region
}

// State reports the current state. Not safe to call concurrently with Run.
func (s *Session) State() State { return s.state }

// Run shows the surface and processes events until the session closes. It
// returns the absolute rectangle that was captured.
func (s *Session) Run(ctx context.Context) (screenshot.Region, error) {
	log := logutil.WithComponent("overlay")
	if s.Surface == nil || s.Capture == nil {
		return screenshot.Region{}, errors.New("overlay session needs a surface and a capture func")
	}
	if err := s.Surface.Show(); err != nil {
		s.close()
		return screenshot.Region{}, fmt.Errorf("show overlay: %w", err)
	}
	s.state = Idle
	events := s.Surface.Events()

	for {
		select {
		case <-ctx.Done():
			s.close()
			return screenshot.Region{}, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				s.close()
				return screenshot.Region{}, ErrCancelled
			}
			done, abs, err := s.handle(ctx, ev)
			if done {
				if err != nil && !errors.Is(err, ErrCancelled) {
					log.Error().Err(err).Msg("selection capture failed")
				}
				return abs, err
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, ev Event) (bool, screenshot.Region, error) {
	switch ev.Kind {
	case Cancel:
		logutil.WithComponent("overlay").Info().Stringer("state", s.state).Msg("selection cancelled")
		s.close()
		return true, screenshot.Region{}, ErrCancelled
	case PointerDown:
		if s.state != Idle {
			return false, screenshot.Region{}, nil
		}
		s.state = Dragging
		s.anchor = ev.Pos
		s.current = Normalize(ev.Pos, ev.Pos)
	case PointerMove:
		if s.state != Dragging {
			return false, screenshot.Region{}, nil
		}
		s.current = Normalize(s.anchor, ev.Pos)
		s.Surface.Redraw(s.current)
	case PointerUp:
		if s.state != Dragging {
			return false, screenshot.Region{}, nil
		}
		s.current = Normalize(s.anchor, ev.Pos)
		abs, err := s.finalize(ctx)
		return true, abs, err
	}
	return false, screenshot.Region{}, nil
}

func (s *Session) finalize(ctx context.Context) (screenshot.Region, error) {
	log := logutil.WithComponent("overlay")
	s.state = Finalizing
	defer s.close()

	minSize := max(s.MinSize, 1)
	if s.current.Width < minSize || s.current.Height < minSize {
		log.Info().Stringer("selection", s.current).Int("min", minSize).Msg("selection too small; discarding")
		return screenshot.Region{}, fmt.Errorf("selection %s below %dpx: %w", s.current, minSize, ErrCancelled)
	}

	// The overlay must be gone from the screen before pixels are read.
	if err := s.Surface.Hide(); err != nil {
		log.Warn().Err(err).Msg("failed to hide overlay before capture")
	}
	o := s.Surface.Origin()
	abs := screenshot.Region{
		X:      s.current.X + o.X,
		Y:      s.current.Y + o.Y,
		Width:  s.current.Width,
		Height: s.current.Height,
	}
	log.Debug().Stringer("client", s.current).Stringer("absolute", abs).Msg("selection finalized")

	if err := s.Capture(ctx, abs); err != nil {
		return abs, err
	}
	if s.OnComplete != nil {
		s.OnComplete(abs)
	}
	return abs, nil
}

func (s *Session) close() {
	if s.state == Closed {
		return
	}
	s.state = Closed
	if err := s.Surface.Close(); err != nil {
		logutil.WithComponent("overlay").Debug().Err(err).Msg("overlay close")
	}
}

// Normalize returns the rectangle spanned by two corners, independent of
// drag direction.
func Normalize(a, b image.Point) screenshot.Region {
	return screenshot.Region{
		X:      min(a.X, b.X),
		Y:      min(a.Y, b.Y),
		Width:  absInt(b.X - a.X),
		Height: absInt(b.Y - a.Y),
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
