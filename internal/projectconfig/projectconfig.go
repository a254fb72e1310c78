// Package projectconfig reconciles a generated project's own configuration
// file with the defaults of the running tool and a template's overrides.
//
// The file is a flat YAML mapping with a version stamp:
//
//	version: 1.4.0
//	project_name: demo
//	license: MIT
package projectconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

// DefaultFileName is the project config file written at a project root.
const DefaultFileName = ".amantmpl.yaml"

// VersionKey holds the schema version stamp.
const VersionKey = "version"

// Field is one key of the schema and the value it takes when absent.
type Field struct {
	Key     string
	Default string
}

// Schema is the ordered set of keys a config of a given version carries.
type Schema struct {
	Version string
	Fields  []Field
}

// DefaultSchema returns the schema shipped with the tool at version.
func DefaultSchema(version string) Schema {
	return Schema{
		Version: version,
		Fields: []Field{
			{Key: "project_name", Default: ""},
			{Key: "description", Default: ""},
			{Key: "author", Default: ""},
			{Key: "license", Default: "MIT"},
			{Key: "vcs", Default: "git"},
		},
	}
}

// Config is a project config as read from disk.
type Config struct {
	Version string
	Values  map[string]string
}

// Changes describes what a reconciliation did.
type Changes struct {
	// Added lists keys that were missing and took their schema default.
	Added []string
	// Overridden lists keys whose value was set or changed by an override.
	Overridden []string
	// PreviousVersion is the version stamp before reconciliation.
	PreviousVersion string
}

// Empty reports whether reconciliation changed no values.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Overridden) == 0
}

// Load reads the config at path. A missing file returns (nil, nil).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeFilePermission,
			fmt.Sprintf("failed to read project config %s", path), err)
	}

	values, err := decodeFlat(data)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("project config %s is not a flat key/value file", path), err).
			WithDetail("file", path)
	}

	cfg := &Config{Version: values[VersionKey], Values: values}
	delete(cfg.Values, VersionKey)
	return cfg, nil
}

// ParseOverrides decodes a template's flat override file.
func ParseOverrides(data []byte) (map[string]string, error) {
	values, err := decodeFlat(data)
	if err != nil {
		return nil, err
	}
	delete(values, VersionKey)
	return values, nil
}

// Reconcile merges overrides into current against schema. Current keys are
// never dropped. Missing schema keys take their defaults, then overrides are
// applied, and the result is stamped with schema.Version. current may be nil.
func Reconcile(current *Config, schema Schema, overrides map[string]string) (*Config, Changes) {
	out := &Config{Version: schema.Version, Values: make(map[string]string)}
	var changes Changes

	if current != nil {
		changes.PreviousVersion = current.Version
		for k, v := range current.Values {
			out.Values[k] = v
		}
	}

	for _, f := range schema.Fields {
		if _, ok := out.Values[f.Key]; !ok {
			out.Values[f.Key] = f.Default
			changes.Added = append(changes.Added, f.Key)
		}
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if k != VersionKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if old, ok := out.Values[k]; ok && old == overrides[k] {
			continue
		}
		out.Values[k] = overrides[k]
		changes.Overridden = append(changes.Overridden, k)
	}

	return out, changes
}

// Write emits cfg with the version first, then the schema keys in order,
// then any other keys sorted.
func Write(path string, cfg *Config, schema Schema) error {
	data, err := Encode(cfg, schema)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeInternal, "failed to encode project config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeProjectConfigWrite,
			fmt.Sprintf("failed to create directory for %s", path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return amerrors.New(amerrors.ErrCodeProjectConfigWrite,
			fmt.Sprintf("failed to write project config %s", path), err)
	}
	return nil
}

// Encode renders cfg in Write order.
func Encode(cfg *Config, schema Schema) ([]byte, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	add := func(k, v string) {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
	}

	add(VersionKey, cfg.Version)
	written := map[string]bool{VersionKey: true}
	for _, f := range schema.Fields {
		if v, ok := cfg.Values[f.Key]; ok && !written[f.Key] {
			add(f.Key, v)
			written[f.Key] = true
		}
	}

	extra := make([]string, 0, len(cfg.Values))
	for k := range cfg.Values {
		if !written[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		add(k, cfg.Values[k])
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeFlat reads a mapping of scalars. Empty input is an empty mapping.
func decodeFlat(data []byte) (map[string]string, error) {
	values := make(map[string]string)

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return values, nil
	}

	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected key: value pairs", m.Line)
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: key %q must have a single value", key.Line, key.Value)
		}
		if val.Tag == "!!null" {
			values[key.Value] = ""
			continue
		}
		values[key.Value] = val.Value
	}
	return values, nil
}
