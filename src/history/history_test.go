package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finalshot/src/screenshot"
)

func TestOpenWithoutPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestRecordAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	first := &Capture{Trigger: "full", Path: "a.png", Format: "png", Width: 10, Height: 10, CreatedAt: 100}
	second := &Capture{Trigger: "region", Path: "b.jpg", Format: "jpeg", X: -5, Y: 7, Width: 3, Height: 4, CreatedAt: 200}
	require.NoError(t, s.Record(first))
	require.NoError(t, s.Record(second))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b.jpg", all[0].Path)
	assert.Equal(t, screenshot.Region{X: -5, Y: 7, Width: 3, Height: 4}, all[0].Region())

	one, err := s.List(1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, second.ID, one[0].ID)
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(&Capture{Trigger: "select", Path: "x.png"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.List(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "select", got[0].Trigger)
	assert.NotZero(t, got[0].CreatedAt)
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Record(&Capture{}))
	rows, err := s.List(10)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, rows)
	assert.NoError(t, s.Close())
}
