package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

// isolate points every location the config reads at temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	return home
}

func writeUserConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(GetUserConfigDir(), 0o755))
	require.NoError(t, os.WriteFile(GetUserConfigPath(), []byte(content), 0o644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	home := isolate(t)

	cfg := NewConfig()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, filepath.Join(home, ".local", "share", "amantmpl", "templates.def"), cfg.Registry.Path)
	assert.Equal(t, filepath.Join(home, ".amantmpl", "templates.def.bak"), cfg.Registry.BackupPath)
	assert.True(t, cfg.BackupEnabled())
	assert.Equal(t, 10*time.Second, cfg.LockTimeoutDuration())
	assert.Equal(t, "git", cfg.Remote.GitBinary)
	assert.Equal(t, "https://github.com", cfg.Remote.GitHubURL)
	assert.Equal(t, 16, cfg.Remote.CacheSize)
	assert.Equal(t, ".amantmpl.yaml", cfg.Project.ConfigFile)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestGetUserConfigPath_FollowsXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	assert.Equal(t, filepath.Join(xdg, "amantmpl", "config.yaml"), GetUserConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".config", "amantmpl", "config.yaml"), GetUserConfigPath())
}

func TestLoad_NoUserConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	// Given: a user config setting some keys
	home := isolate(t)
	writeUserConfig(t, `registry:
  path: ~/templates/registry.def
  disable_backup: true
remote:
  cache_size: 4
`)

	// When: loading
	cfg, err := Load()
	require.NoError(t, err)

	// Then: set keys win, others keep defaults, ~ is expanded
	assert.Equal(t, filepath.Join(home, "templates", "registry.def"), cfg.Registry.Path)
	assert.False(t, cfg.BackupEnabled())
	assert.Equal(t, 4, cfg.Remote.CacheSize)
	assert.Equal(t, "git", cfg.Remote.GitBinary)
}

func TestLoad_EnvOverridesUserConfig(t *testing.T) {
	isolate(t)
	writeUserConfig(t, "logging:\n  level: warn\n")
	t.Setenv("AMANTMPL_LOG_LEVEL", "debug")
	t.Setenv("AMANTMPL_CACHE_SIZE", "2")
	t.Setenv("AMANTMPL_DISABLE_BACKUP", "true")
	t.Setenv("AMANTMPL_GITHUB_URL", "https://git.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Remote.CacheSize)
	assert.True(t, cfg.Registry.DisableBackup)
	assert.Equal(t, "https://git.example.com", cfg.Remote.GitHubURL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		env    map[string]string
	}{
		{name: "yaml syntax", config: "registry: [\n"},
		{name: "bad cache size env", env: map[string]string{"AMANTMPL_CACHE_SIZE": "many"}},
		{name: "bad backup env", env: map[string]string{"AMANTMPL_DISABLE_BACKUP": "perhaps"}},
		{name: "zero cache size", config: "remote:\n  cache_size: -1\n"},
		{name: "bad log level", config: "logging:\n  level: loud\n"},
		{name: "relative github url", config: "remote:\n  github_url: github.com\n"},
		{name: "config file with directory", config: "project:\n  config_file: conf/x.yaml\n"},
		{name: "bad lock timeout", config: "registry:\n  lock_timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if tt.config != "" {
				writeUserConfig(t, tt.config)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, amerrors.CategoryConfig, amerrors.GetCategory(err))
		})
	}
}

func TestValidate_BackupPathRules(t *testing.T) {
	isolate(t)

	cfg := NewConfig()
	cfg.Registry.BackupPath = ""
	assert.Error(t, cfg.Validate())

	cfg.Registry.DisableBackup = true
	assert.NoError(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Registry.BackupPath = cfg.Registry.Path
	assert.Error(t, cfg.Validate())
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	cfg := NewConfig()
	cfg.Remote.CacheSize = 3

	require.NoError(t, cfg.WriteYAML(GetUserConfigPath()))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestMergeNewDefaults_PreservesUserValues(t *testing.T) {
	// Given: an old user config that predates most settings
	isolate(t)
	writeUserConfig(t, "version: 0\nremote:\n  git_binary: /opt/git/bin/git\n")

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// When: merging new defaults
	added := cfg.MergeNewDefaults()

	// Then: missing keys are reported and filled, set keys are kept
	assert.Equal(t, "/opt/git/bin/git", cfg.Remote.GitBinary)
	assert.Contains(t, added, "registry.path")
	assert.Contains(t, added, "registry.backup_path")
	assert.Contains(t, added, "remote.cache_size")
	assert.NotContains(t, added, "remote.git_binary")
	assert.Equal(t, CurrentVersion, cfg.Version)
	require.NoError(t, cfg.Validate())

	// And: a second merge adds nothing
	assert.Empty(t, cfg.MergeNewDefaults())
}

func TestLoadUserConfig_Missing(t *testing.T) {
	isolate(t)
	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
