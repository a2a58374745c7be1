package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finalshot/src/config"
	"finalshot/src/session"
	"finalshot/src/trigger"
)

// blockingCapturer holds each capture until released and records the save
// path of the settings it was given.
type blockingCapturer struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	paths   []string
}

func newBlockingCapturer() *blockingCapturer {
	return &blockingCapturer{started: make(chan string, 8), release: make(chan struct{}, 8)}
}

func (b *blockingCapturer) capture(op string, cfg config.Settings) (session.Result, error) {
	b.mu.Lock()
	b.paths = append(b.paths, cfg.SavePath)
	b.mu.Unlock()
	b.started <- op
	<-b.release
	return session.Result{Trigger: op, Path: cfg.SavePath}, nil
}

func (b *blockingCapturer) CaptureFullScreen(_ context.Context, cfg config.Settings) (session.Result, error) {
	return b.capture("full", cfg)
}

func (b *blockingCapturer) CaptureRegion(_ context.Context, cfg config.Settings) (session.Result, error) {
	return b.capture("region", cfg)
}

func (b *blockingCapturer) CaptureWindow(_ context.Context, cfg config.Settings, _ string) (session.Result, error) {
	return b.capture("window", cfg)
}

func (b *blockingCapturer) CaptureInteractive(_ context.Context, cfg config.Settings) (session.Result, error) {
	return b.capture("select", cfg)
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

func TestTriggersRejectedWhileCapturing(t *testing.T) {
	capt := newBlockingCapturer()
	cfg := config.Defaults()
	cfg.SavePath = "first.png"
	l := New(capt, cfg)

	rejected := make(chan trigger.Trigger, 4)
	done := make(chan trigger.Trigger, 4)
	l.OnRejected = func(tr trigger.Trigger) { rejected <- tr }
	l.OnDone = func(tr trigger.Trigger, err error) {
		assert.NoError(t, err)
		done <- tr
	}
	var tooltips []string
	l.SetTooltip(func(s string) { tooltips = append(tooltips, s) }, "FinalShot - idle")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	l.PostName("select")
	assert.Equal(t, "select", waitFor(t, capt.started))

	// Second trigger while the selector is still open.
	require.True(t, l.Post(trigger.Trigger{Kind: trigger.Full}))
	assert.Equal(t, trigger.Full, waitFor(t, rejected).Kind)

	// A reload does not touch the running capture.
	next := cfg
	next.SavePath = "second.png"
	l.UpdateSettings(next)

	capt.release <- struct{}{}
	assert.Equal(t, trigger.Select, waitFor(t, done).Kind)

	l.PostName("full")
	assert.Equal(t, "full", waitFor(t, capt.started))
	capt.release <- struct{}{}
	assert.Equal(t, trigger.Full, waitFor(t, done).Kind)

	capt.mu.Lock()
	assert.Equal(t, []string{"first.png", "second.png"}, capt.paths)
	capt.mu.Unlock()

	cancel()
	assert.Equal(t, "FinalShot: capturing...", tooltips[0])
	assert.Equal(t, "FinalShot - idle", tooltips[1])
}

func TestPostNameIgnoresUnknown(t *testing.T) {
	l := New(newBlockingCapturer(), config.Defaults())
	l.PostName("window")
	assert.Empty(t, l.triggers)
	l.PostName("region")
	assert.Len(t, l.triggers, 1)
}

func TestSettingsSnapshot(t *testing.T) {
	cfg := config.Defaults()
	cfg.SavePath = "a.png"
	l := New(newBlockingCapturer(), cfg)
	got := l.Settings()
	got.SavePath = "mutated.png"
	assert.Equal(t, "a.png", l.Settings().SavePath)
}

func TestClaimRefusedWhileCapturing(t *testing.T) {
	capt := newBlockingCapturer()
	l := New(capt, config.Defaults())
	done := make(chan trigger.Trigger, 4)
	l.OnDone = func(tr trigger.Trigger, _ error) { done <- tr }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	require.NoError(t, l.Claim(trigger.Trigger{Kind: trigger.Full}))
	assert.True(t, l.Busy())
	// The slot is reserved before the loop even picks the trigger up.
	assert.ErrorIs(t, l.Claim(trigger.Trigger{Kind: trigger.Region}), session.ErrBusy)
	assert.Equal(t, "full", waitFor(t, capt.started))

	assert.ErrorIs(t, l.Claim(trigger.Trigger{Kind: trigger.Region}), session.ErrBusy)

	capt.release <- struct{}{}
	assert.Equal(t, trigger.Full, waitFor(t, done).Kind)
	require.Eventually(t, func() bool { return !l.Busy() }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, l.Claim(trigger.Trigger{Kind: trigger.Region}))
	assert.Equal(t, "region", waitFor(t, capt.started))
	capt.release <- struct{}{}
	assert.Equal(t, trigger.Region, waitFor(t, done).Kind)

	select {
	case op := <-capt.started:
		t.Fatalf("unexpected capture %q", op)
	default:
	}
}
