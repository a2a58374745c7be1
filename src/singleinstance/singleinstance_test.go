package singleinstance

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// usePort points the port range at a single port that was free a moment ago.
func usePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	t.Setenv(PortStartEnvVar, strconv.Itoa(port))
	t.Setenv(PortEndEnvVar, strconv.Itoa(port))
	return port
}

func startServer(t *testing.T, ctx context.Context, handle Handler) Server {
	t.Helper()
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	go func() { _ = Serve(ctx, srv, handle) }()
	return srv
}

func TestDelegateRoundTrip(t *testing.T) {
	port := usePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 1)
	srv := startServer(t, ctx, func(command string) error {
		got <- command
		return nil
	})
	assert.Equal(t, port, srv.Port())

	found, ok := DetectResident(ctx)
	require.True(t, ok)
	assert.Equal(t, port, found)

	delegated, err := NewClient().Delegate(ctx, "-ws|Untitled - Notepad")
	require.NoError(t, err)
	assert.True(t, delegated)
	assert.Equal(t, "-ws|Untitled - Notepad", <-got)
}

func TestDelegateRejected(t *testing.T) {
	usePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	startServer(t, ctx, func(string) error { return errors.New("capture in progress") })

	delegated, err := NewClient().Delegate(ctx, "-fs")
	assert.True(t, delegated)
	assert.EqualError(t, err, "capture in progress")
}

func TestDelegateWithoutResident(t *testing.T) {
	usePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	delegated, err := NewClient().Delegate(ctx, "-fs")
	assert.NoError(t, err)
	assert.False(t, delegated)
}

func TestDelegateRefusesMultiline(t *testing.T) {
	_, err := NewClient().Delegate(context.Background(), "-fs\nPING")
	assert.Error(t, err)
}

func TestSecondServerReportsAlreadyRunning(t *testing.T) {
	usePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	startServer(t, ctx, func(string) error { return nil })

	second := NewServer()
	err := second.Start(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Zero(t, second.Port())
}

func TestPortRangeClampsAndSwaps(t *testing.T) {
	t.Setenv(PortStartEnvVar, "70000")
	t.Setenv(PortEndEnvVar, "80")
	start, end := PortRange()
	assert.Equal(t, 1024, start)
	assert.Equal(t, 65535, end)

	t.Setenv(PortStartEnvVar, "bogus")
	t.Setenv(PortEndEnvVar, "")
	start, end = PortRange()
	assert.Equal(t, defaultPortStart, start)
	assert.Equal(t, defaultPortEnd, end)
}
