package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

func TestConfigCmd_HasSubcommands(t *testing.T) {
	// Given: root command
	cmd := NewRootCmd()

	// When: finding config command
	configCmd, _, err := cmd.Find([]string{"config"})
	require.NoError(t, err)

	// Then: config command should have subcommands
	names := make(map[string]bool)
	for _, sc := range configCmd.Commands() {
		names[sc.Name()] = true
	}
	assert.True(t, names["init"], "should have init command")
	assert.True(t, names["show"], "should have show command")
	assert.True(t, names["path"], "should have path command")
}

func TestConfigPathCmd_OutputsPath(t *testing.T) {
	home := isolate(t)

	out := mustExecute(t, "config", "path")

	assert.Equal(t, filepath.Join(home, ".config", "amantmpl", "config.yaml"), strings.TrimSpace(out))
}

func TestConfigInit_CreatesThenRefuses(t *testing.T) {
	// Given: no user config
	home := isolate(t)
	path := filepath.Join(home, ".config", "amantmpl", "config.yaml")

	// When: running init
	out := mustExecute(t, "config", "init")

	// Then: the template is written
	assert.Contains(t, out, "Created user configuration")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "logging:")

	// When: running init again without --force
	out = mustExecute(t, "config", "init")

	// Then: the file is left alone
	assert.Contains(t, out, "User configuration already exists")
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, after)
}

func TestConfigInit_ForceUpgradesAndKeepsValues(t *testing.T) {
	// Given: an old config that only sets the git binary
	home := isolate(t)
	path := filepath.Join(home, ".config", "amantmpl", "config.yaml")
	writeTree(t, filepath.Dir(path), map[string]string{
		"config.yaml": "remote:\n  git_binary: /opt/git/bin/git\n",
	})

	// When: upgrading
	out := mustExecute(t, "config", "init", "--force")

	// Then: a backup is made, the value survives and new defaults are listed
	assert.Contains(t, out, "Configuration upgraded")
	assert.Contains(t, out, "Backup: ")
	assert.Contains(t, out, "- registry.path")
	assert.NotContains(t, out, "- remote.git_binary")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "git_binary: /opt/git/bin/git")
	assert.Contains(t, string(data), "lock_timeout: 10s")
}

func TestConfigShow_JSON(t *testing.T) {
	isolate(t)
	t.Setenv("AMANTMPL_CACHE_SIZE", "4")

	out := mustExecute(t, "config", "show", "--json")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	remote, ok := parsed["remote"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), remote["cache_size"])
}

func TestConfigShow_Sources(t *testing.T) {
	isolate(t)

	out := mustExecute(t, "config", "show", "--source", "defaults")
	assert.Contains(t, out, "Configuration source: defaults")
	assert.Contains(t, out, "github_url: https://github.com")

	out = mustExecute(t, "config", "show", "--source", "user")
	assert.Contains(t, out, "No user configuration file found")

	_, _, err := execute(t, "config", "show", "--source", "project")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidInput))
}

func TestConfigShow_InvalidEnvIsConfigError(t *testing.T) {
	isolate(t)
	t.Setenv("AMANTMPL_CACHE_SIZE", "many")

	_, stderr, err := execute(t, "config", "show")
	require.Error(t, err)
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeConfigInvalid))
	assert.Contains(t, stderr, "AMANTMPL_CACHE_SIZE")
}
