package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitEventually retries until a worker goroutine is parked on the hand-off.
func submitEventually(t *testing.T, p *Pool, name string, run Job, cb ResultCallback) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.Submit(context.Background(), name, run, cb)
	}, 2*time.Second, time.Millisecond)
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	p := New(1)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	submitEventually(t, p, "full", func(context.Context) error {
		close(started)
		<-release
		return nil
	}, func(_ string, err error) { done <- err })

	<-started
	assert.False(t, p.Submit(context.Background(), "select", func(context.Context) error { return nil }, nil))

	close(release)
	require.NoError(t, <-done)
	submitEventually(t, p, "select", func(context.Context) error { return nil }, nil)
}

func TestJobErrorReachesCallback(t *testing.T) {
	p := New(0)
	defer p.Close()

	got := make(chan string, 1)
	submitEventually(t, p, "window", func(context.Context) error {
		return errors.New("window not found")
	}, func(name string, err error) { got <- name + ": " + err.Error() })
	assert.Equal(t, "window: window not found", <-got)
}

func TestPanicIsRecovered(t *testing.T) {
	p := New(1)
	defer p.Close()

	errs := make(chan error, 1)
	submitEventually(t, p, "region", func(context.Context) error {
		panic("boom")
	}, func(_ string, err error) { errs <- err })
	err := <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// The worker survives and accepts more work.
	submitEventually(t, p, "full", func(context.Context) error { return nil }, nil)
}
