package trigger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finalshot/src/config"
	"finalshot/src/session"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Trigger
	}{
		{"-fs", Trigger{Kind: Full}},
		{"-FS", Trigger{Kind: Full}},
		{" -ps ", Trigger{Kind: Region}},
		{"-cs", Trigger{Kind: Select}},
		{"-ws|Untitled - Notepad", Trigger{Kind: Window, Title: "Untitled - Notepad"}},
		{"-WS|a|b", Trigger{Kind: Window, Title: "a|b"}},
		{"ExecuteBatch 1", Trigger{Kind: Full}},
		{"executebatch 2", Trigger{Kind: Select, SkipFinish: true}},
		{"ExecuteBatch 3", Trigger{Kind: Region}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "-xx", "ExecuteBatch", "ExecuteBatch 4", "ExecuteBatch two", "-ws"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrUnknownCommand, "input %q", in)
	}
}

func TestFromName(t *testing.T) {
	tr, ok := FromName("Select")
	assert.True(t, ok)
	assert.Equal(t, Select, tr.Kind)
	_, ok = FromName("window")
	assert.False(t, ok)
}

type call struct {
	op     string
	title  string
	finish string
}

type fakeCapturer struct{ calls []call }

func (f *fakeCapturer) record(op string, cfg config.Settings, title string) (session.Result, error) {
	f.calls = append(f.calls, call{op: op, title: title, finish: cfg.FinishAction})
	if cfg.SavePath == "" {
		return session.Result{}, config.ErrNoSavePath
	}
	return session.Result{Trigger: op, Path: cfg.SavePath}, nil
}

func (f *fakeCapturer) CaptureFullScreen(_ context.Context, cfg config.Settings) (session.Result, error) {
	return f.record("full", cfg, "")
}

func (f *fakeCapturer) CaptureRegion(_ context.Context, cfg config.Settings) (session.Result, error) {
	return f.record("region", cfg, "")
}

func (f *fakeCapturer) CaptureWindow(_ context.Context, cfg config.Settings, title string) (session.Result, error) {
	return f.record("window", cfg, title)
}

func (f *fakeCapturer) CaptureInteractive(_ context.Context, cfg config.Settings) (session.Result, error) {
	return f.record("select", cfg, "")
}

func TestDispatch(t *testing.T) {
	f := &fakeCapturer{}
	cfg := config.Defaults()
	cfg.SavePath = "a.png"
	cfg.FinishAction = "open a.png"

	for _, cmd := range []string{"-fs", "-ps", "-ws|Paint", "-cs", "ExecuteBatch 2"} {
		tr, err := Parse(cmd)
		require.NoError(t, err)
		res, err := Dispatch(context.Background(), f, cfg, tr)
		require.NoError(t, err)
		assert.Equal(t, tr.Kind.String(), res.Trigger)
	}
	assert.Equal(t, []call{
		{op: "full", finish: "open a.png"},
		{op: "region", finish: "open a.png"},
		{op: "window", title: "Paint", finish: "open a.png"},
		{op: "select", finish: "open a.png"},
		{op: "select", finish: ""},
	}, f.calls)
	assert.Equal(t, "open a.png", cfg.FinishAction)
}

func TestDispatchReturnsCaptureErrors(t *testing.T) {
	_, err := Dispatch(context.Background(), &fakeCapturer{}, config.Defaults(), Trigger{Kind: Full})
	assert.ErrorIs(t, err, config.ErrNoSavePath)

	_, err = Dispatch(context.Background(), &fakeCapturer{}, config.Defaults(), Trigger{})
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
