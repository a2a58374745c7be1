//go:build !windows && !linux

package cursor

// NewSystem returns the live pointer source for this platform. Pointer
// queries are not implemented here, so captures never include a cursor.
func NewSystem() Source { return Hidden{} }
