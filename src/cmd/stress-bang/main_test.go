package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finalshot/src/session"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{}))
	assert.Equal(t, 50, opts.n)
	assert.Equal(t, "-fs", opts.command)
	assert.Equal(t, 5*time.Second, opts.deadline)
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--n", "3", "--command", "ExecuteBatch 3", "--deadline", "7s"}))
	assert.Equal(t, 3, opts.n)
	assert.Equal(t, "ExecuteBatch 3", opts.command)
	assert.Equal(t, 7*time.Second, opts.deadline)
}

func TestRootCmdRejectsUnknownCommand(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs([]string{"--command", "-nope"})
	assert.Error(t, cmd.Execute())
}

type scriptedClient struct {
	calls int32
}

// Delegate accepts the first call and classifies the rest by call number.
func (c *scriptedClient) Delegate(ctx context.Context, command string) (bool, error) {
	switch atomic.AddInt32(&c.calls, 1) {
	case 1:
		return true, nil
	case 2:
		return false, nil
	case 3:
		return true, errors.New("connection reset")
	default:
		return true, errors.New(session.ErrBusy.Error())
	}
}

func TestRunWithOptionsCountsOutcomes(t *testing.T) {
	s := runWithOptions(stressOptions{n: 6, command: "-fs", deadline: time.Second}, &scriptedClient{})
	assert.Equal(t, 6, s.launched)
	assert.EqualValues(t, 1, s.queued)
	assert.EqualValues(t, 1, s.absent)
	assert.EqualValues(t, 1, s.failed)
	assert.EqualValues(t, 3, s.busy)

	var out bytes.Buffer
	s.print(&out)
	assert.Equal(t, "launched=6 queued=1 busy=3 no-resident=1 err=1\n", out.String())
}
