//go:build !windows && !linux

package window

import "errors"

type unsupported struct{}

// NewSystem returns a Lister that always fails on this platform.
func NewSystem() Lister { return unsupported{} }

func (unsupported) List() ([]Info, error) {
	return nil, errors.New("window enumeration not supported on this platform")
}
