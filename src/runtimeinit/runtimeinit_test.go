package runtimeinit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finalshot/src/config"
)

func TestBootstrapOpensHistory(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "finalshot.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"save_path: "+filepath.Join(dir, "shot.png")+"\n"+
			"history_path: "+filepath.Join(dir, "history.db")+"\n"), 0o644))

	rt, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{SkipEnvFile: true, ConfigFile: cfgFile},
		SkipDPI:     true,
	})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, filepath.Join(dir, "shot.png"), rt.Settings.SavePath)
	require.NotNil(t, rt.History)
	rows, err := rt.History.List(0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBootstrapWithoutSavePathStillStarts(t *testing.T) {
	t.Setenv("FINALSHOT_SAVE_PATH", "")
	t.Setenv("FINALSHOT_HISTORY_PATH", "")
	rt, err := Bootstrap(Options{LoadOptions: config.LoadOptions{SkipEnvFile: true}, SkipDPI: true})
	require.NoError(t, err)
	defer rt.Close()
	assert.ErrorIs(t, rt.Settings.Validate(), config.ErrNoSavePath)
	assert.Nil(t, rt.History)
}

func TestBootstrapBadConfigFile(t *testing.T) {
	_, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{SkipEnvFile: true, ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")},
		SkipDPI:     true,
	})
	assert.Error(t, err)
}
