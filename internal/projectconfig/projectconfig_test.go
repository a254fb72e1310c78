package projectconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

func testSchema() Schema {
	return Schema{
		Version: "2.0.0",
		Fields: []Field{
			{Key: "project_name", Default: ""},
			{Key: "license", Default: "MIT"},
			{Key: "vcs", Default: "git"},
		},
	}
}

func TestReconcile_NoCurrentConfig(t *testing.T) {
	// Given: a fresh project and a template overriding the license
	cfg, changes := Reconcile(nil, testSchema(), map[string]string{"license": "Apache-2.0", "ci": "github"})

	// Then: schema defaults are filled and overrides applied
	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, map[string]string{
		"project_name": "",
		"license":      "Apache-2.0",
		"vcs":          "git",
		"ci":           "github",
	}, cfg.Values)
	assert.Equal(t, []string{"project_name", "license", "vcs"}, changes.Added)
	assert.Equal(t, []string{"ci", "license"}, changes.Overridden)
	assert.Empty(t, changes.PreviousVersion)
}

func TestReconcile_KeepsUserValuesAndRepairsDrift(t *testing.T) {
	// Given: a config written by an older version that lacks "vcs"
	current := &Config{Version: "1.0.0", Values: map[string]string{
		"project_name": "demo",
		"license":      "BSD-3-Clause",
		"owner_note":   "hand added",
	}}

	// When: reconciling with an override that does not touch those keys
	cfg, changes := Reconcile(current, testSchema(), map[string]string{"ci": "none"})

	// Then: user values survive, the missing key is filled, the stamp moves
	assert.Equal(t, "demo", cfg.Values["project_name"])
	assert.Equal(t, "BSD-3-Clause", cfg.Values["license"])
	assert.Equal(t, "hand added", cfg.Values["owner_note"])
	assert.Equal(t, "git", cfg.Values["vcs"])
	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, []string{"vcs"}, changes.Added)
	assert.Equal(t, "1.0.0", changes.PreviousVersion)

	// And: the input is not modified
	_, ok := current.Values["vcs"]
	assert.False(t, ok)
}

func TestReconcile_OverrideBeatsUserValue(t *testing.T) {
	current := &Config{Version: "2.0.0", Values: map[string]string{"license": "BSD-3-Clause"}}

	cfg, changes := Reconcile(current, testSchema(), map[string]string{"license": "MIT", VersionKey: "9.9.9"})

	assert.Equal(t, "MIT", cfg.Values["license"])
	assert.Equal(t, []string{"license"}, changes.Overridden)
	assert.Equal(t, "2.0.0", cfg.Version, "overrides never set the version stamp")
}

func TestReconcile_Idempotent(t *testing.T) {
	overrides := map[string]string{"license": "Apache-2.0"}
	first, _ := Reconcile(&Config{Version: "1.0.0", Values: map[string]string{"project_name": "demo"}}, testSchema(), overrides)

	second, changes := Reconcile(first, testSchema(), overrides)

	assert.True(t, changes.Empty())
	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, first.Version, second.Version)
}

func TestWriteLoad_OrderAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	cfg := &Config{Version: "2.0.0", Values: map[string]string{
		"zeta":         "last",
		"vcs":          "git",
		"alpha":        "true",
		"project_name": "demo",
		"license":      "",
	}}

	require.NoError(t, Write(path, cfg, testSchema()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 2.0.0\nproject_name: demo\nlicense: \"\"\nvcs: git\nalpha: \"true\"\nzeta: last\n", string(data))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_RejectsNestedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nlist:\n  - a\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeConfigInvalid))
}

func TestParseOverrides(t *testing.T) {
	values, err := ParseOverrides([]byte("# template defaults\nlicense: Apache-2.0\nempty:\nversion: 7\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"license": "Apache-2.0", "empty": ""}, values)

	values, err = ParseOverrides(nil)
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = ParseOverrides([]byte("- a\n- b\n"))
	assert.Error(t, err)
}

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema("1.2.3")
	assert.Equal(t, "1.2.3", s.Version)
	require.NotEmpty(t, s.Fields)
	assert.Equal(t, "project_name", s.Fields[0].Key)
}
