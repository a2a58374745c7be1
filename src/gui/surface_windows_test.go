//go:build windows

package gui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func TestOverlayProcsLoadFromSystemDirectory(t *testing.T) {
	for _, dll := range []*windows.LazyDLL{user32DLL, gdi32DLL, dwmapiDLL} {
		assert.True(t, dll.System, dll.Name)
	}
	for _, proc := range []*windows.LazyProc{procAllowSetForegroundWindow, procSetLayeredWindowAttributes, procExtCreatePen, procRectangle, procDwmFlush} {
		require.NoError(t, proc.Find(), proc.Name)
	}
}
