package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupUserConfig_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := BackupUserConfig()
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackupUserConfig_KeepsNewest(t *testing.T) {
	// Given: a user config
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(GetUserConfigDir(), 0o755))
	require.NoError(t, os.WriteFile(GetUserConfigPath(), []byte("version: 1\n"), 0o644))

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return clock }
	t.Cleanup(func() { now = time.Now })

	// When: backing up more often than MaxBackups
	var paths []string
	for i := 0; i < MaxBackups+2; i++ {
		clock = clock.Add(time.Second)
		p, err := BackupUserConfig()
		require.NoError(t, err)
		paths = append(paths, p)
	}

	// Then: only the newest MaxBackups remain, newest first
	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	assert.Equal(t, paths[len(paths)-1], backups[0])
	assert.NoFileExists(t, paths[0])

	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
	assert.Equal(t, GetUserConfigDir(), filepath.Dir(backups[0]))
}
