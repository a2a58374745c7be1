//go:build !windows && !linux

package gui

import "finalshot/src/overlay"

func newSurface(Options) (overlay.Surface, error) { return nil, ErrUnsupported }
