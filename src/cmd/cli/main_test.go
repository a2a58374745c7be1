package main

import (
	"bytes"
	"context"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finalshot/src/compositor"
	"finalshot/src/config"
	"finalshot/src/imageio"
	"finalshot/src/runtimeinit"
	"finalshot/src/screenshot"
	"finalshot/src/screenshot/screenshottest"
	"finalshot/src/session"
	"finalshot/src/trigger"
	"finalshot/src/window"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"finalshot-cli", "-save-path", "/tmp/a.png", "full"},
			out:  []string{"finalshot-cli", "--save-path", "/tmp/a.png", "full"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"finalshot-cli", "-jpeg-quality=40", "-config=/tmp/c.yaml", "full"},
			out:  []string{"finalshot-cli", "--jpeg-quality=40", "--config=/tmp/c.yaml", "full"},
		},
		{
			name: "Leaves shorthand and unknown flags unchanged",
			in:   []string{"finalshot-cli", "-v", "--show-cursor", "-x", "full"},
			out:  []string{"finalshot-cli", "-v", "--show-cursor", "-x", "full"},
		},
		{
			name: "Shields bang commands from flag parsing",
			in:   []string{"finalshot-cli", "-save-path", "a.png", "bang", "-ws|Untitled - Notepad"},
			out:  []string{"finalshot-cli", "--save-path", "a.png", "bang", "--", "-ws|Untitled - Notepad"},
		},
		{
			name: "Leaves batch bang commands alone",
			in:   []string{"finalshot-cli", "bang", "ExecuteBatch", "1"},
			out:  []string{"finalshot-cli", "bang", "ExecuteBatch", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, normalizeLegacyArgs(tt.in))
		})
	}
}

func TestParseRegion(t *testing.T) {
	r, err := parseRegion([]string{"-100", "20", "300", "40"})
	require.NoError(t, err)
	assert.Equal(t, screenshot.Region{X: -100, Y: 20, Width: 300, Height: 40}, r)

	_, err = parseRegion([]string{"0", "0", "0", "10"})
	assert.ErrorIs(t, err, screenshot.ErrEmptyRegion)

	_, err = parseRegion([]string{"a", "0", "1", "1"})
	assert.Error(t, err)
}

// testApp runs commands against a synthetic two-display screen.
func testApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	t.Setenv("FINALSHOT_SAVE_PATH", "")
	t.Setenv("FINALSHOT_HISTORY_PATH", "")
	screen := screenshottest.New(
		screenshot.Display{ID: "display0", Bounds: screenshot.Region{X: 0, Y: 0, Width: 64, Height: 48}},
		screenshot.Display{ID: "display1", Bounds: screenshot.Region{X: 64, Y: -16, Width: 32, Height: 32}},
	)
	out := &bytes.Buffer{}
	a := newApp(out)
	a.skipDPI = true
	a.displays = screen.Displays
	a.delegate = nil
	a.newService = func(rt *runtimeinit.Runtime) *session.Service {
		comp := compositor.New(screen, screen, nil)
		comp.EnterDPI = func() func() { return func() {} }
		return &session.Service{
			Composer: comp,
			Topology: screen,
			Windows: window.NewFinder(window.StaticLister{
				{ID: 7, Title: "Paint", Bounds: screenshot.Region{X: 10, Y: 10, Width: 20, Height: 10}},
			}),
			Save:    imageio.Save,
			History: rt.History,
		}
	}
	return a, out
}

func runCLI(t *testing.T, a *app, args ...string) error {
	t.Helper()
	return runWithArgs(a, normalizeLegacyArgs(append([]string{"finalshot-cli", "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...)))
}

func decodeBounds(t *testing.T, path string) image.Rectangle {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return image.Rect(0, 0, cfg.Width, cfg.Height)
}

func TestFullWritesVirtualScreen(t *testing.T) {
	a, out := testApp(t)
	path := filepath.Join(t.TempDir(), "shots", "full.png")

	require.NoError(t, runCLI(t, a, "--save-path", path, "full"))
	assert.Equal(t, image.Rect(0, 0, 96, 64), decodeBounds(t, path))
	assert.Contains(t, out.String(), "full.png png (0,-16 96x64)")
}

func TestFullWithoutSavePathWritesNothing(t *testing.T) {
	a, out := testApp(t)
	for i := 0; i < 3; i++ {
		err := runCLI(t, a, "full")
		assert.ErrorIs(t, err, config.ErrNoSavePath)
	}
	assert.Empty(t, out.String())
}

func TestRegionWithExplicitRectangle(t *testing.T) {
	a, _ := testApp(t)
	path := filepath.Join(t.TempDir(), "r.png")
	require.NoError(t, runCLI(t, a, "-save-path", path, "region", "60", "0", "10", "5"))
	assert.Equal(t, image.Rect(0, 0, 10, 5), decodeBounds(t, path))
}

func TestRegionUsesPredefined(t *testing.T) {
	a, _ := testApp(t)
	path := filepath.Join(t.TempDir(), "p.png")
	require.NoError(t, runCLI(t, a, "--save-path", path,
		"--predef-x", "1", "--predef-y", "2", "--predef-width", "3", "--predef-height", "4", "region"))
	assert.Equal(t, image.Rect(0, 0, 3, 4), decodeBounds(t, path))

	err := runCLI(t, a, "--save-path", path, "region")
	assert.ErrorIs(t, err, config.ErrInvalidRegion)
}

func TestBangWindow(t *testing.T) {
	a, _ := testApp(t)
	path := filepath.Join(t.TempDir(), "w.png")
	require.NoError(t, runCLI(t, a, "--save-path", path, "bang", "-ws|paint"))
	assert.Equal(t, image.Rect(0, 0, 20, 10), decodeBounds(t, path))

	err := runCLI(t, a, "--save-path", path, "bang", "-ws|Calculator")
	assert.ErrorIs(t, err, window.ErrNotFound)
}

func TestBangDelegatesToResident(t *testing.T) {
	a, out := testApp(t)
	var sent []string
	a.delegate = func(_ context.Context, command string) (bool, error) {
		sent = append(sent, command)
		return true, nil
	}
	path := filepath.Join(t.TempDir(), "d.png")

	require.NoError(t, runCLI(t, a, "--save-path", path, "bang", "-fs"))
	assert.Equal(t, []string{"-fs"}, sent)
	assert.Contains(t, out.String(), "delegated -fs")
	assert.NoFileExists(t, path)

	err := runCLI(t, a, "bang", "-zz")
	assert.ErrorIs(t, err, trigger.ErrUnknownCommand)
	assert.Len(t, sent, 1)

	require.NoError(t, runCLI(t, a, "--save-path", path, "bang", "--local", "ExecuteBatch", "1"))
	assert.Len(t, sent, 1)
	assert.FileExists(t, path)
}

func TestBangFallsBackWithoutResident(t *testing.T) {
	a, _ := testApp(t)
	a.delegate = func(context.Context, string) (bool, error) { return false, nil }
	path := filepath.Join(t.TempDir(), "f.png")
	require.NoError(t, runCLI(t, a, "--save-path", path, "bang", "-fs"))
	assert.Equal(t, image.Rect(0, 0, 96, 64), decodeBounds(t, path))
}

func TestBangReportsResidentRejection(t *testing.T) {
	a, _ := testApp(t)
	a.delegate = func(context.Context, string) (bool, error) { return true, session.ErrBusy }
	err := runCLI(t, a, "bang", "-cs")
	assert.ErrorContains(t, err, session.ErrBusy.Error())
}

func TestDisplaysTable(t *testing.T) {
	a, out := testApp(t)
	require.NoError(t, runCLI(t, a, "displays"))
	s := out.String()
	assert.Contains(t, s, "display0")
	assert.Contains(t, s, "display1")
	assert.Contains(t, s, "-16")
	assert.Contains(t, s, "VIRTUAL")
}

func TestHistoryListsCaptures(t *testing.T) {
	a, out := testApp(t)
	dir := t.TempDir()
	hist := filepath.Join(dir, "history.db")
	path := filepath.Join(dir, "h.jpg")

	err := runCLI(t, a, "history")
	assert.ErrorContains(t, err, "history-path")

	require.NoError(t, runCLI(t, a, "--history-path", hist, "--save-path", path, "full"))
	out.Reset()
	require.NoError(t, runCLI(t, a, "--history-path", hist, "history", "--limit", "5"))
	assert.Contains(t, out.String(), "h.jpg")
	assert.Contains(t, out.String(), "jpeg")
	assert.Contains(t, out.String(), "(0,-16 96x64)")
}

func TestConfigDumpsYAML(t *testing.T) {
	a, out := testApp(t)
	require.NoError(t, runCLI(t, a, "--save-path", "x.tiff", "--jpeg-quality", "40", "config"))
	assert.Contains(t, out.String(), "save_path: x.tiff")
	assert.Contains(t, out.String(), "jpeg_quality: 40")
}
