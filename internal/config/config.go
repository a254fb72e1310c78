// Package config loads the amantmpl tool configuration.
//
// Values are applied in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/amantmpl/config.yaml)
//  3. Environment variables (AMANTMPL_*)
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 1

// Config is the complete amantmpl configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Registry RegistryConfig `yaml:"registry" json:"registry"`
	Remote   RemoteConfig   `yaml:"remote" json:"remote"`
	Project  ProjectConfig  `yaml:"project" json:"project"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// RegistryConfig locates the template registry.
type RegistryConfig struct {
	// Path is the primary registry file.
	Path string `yaml:"path" json:"path"`
	// BackupPath is the copy kept outside the install location so the
	// registry survives reinstalls.
	BackupPath string `yaml:"backup_path" json:"backup_path"`
	// DisableBackup stops writing BackupPath on registry writes.
	DisableBackup bool `yaml:"disable_backup" json:"disable_backup"`
	// LockTimeout bounds waiting for another amantmpl process (default: 10s).
	LockTimeout string `yaml:"lock_timeout" json:"lock_timeout"`
}

// RemoteConfig configures fetching github: locations.
type RemoteConfig struct {
	GitBinary string `yaml:"git_binary" json:"git_binary"`
	GitHubURL string `yaml:"github_url" json:"github_url"`
	// CacheSize is the number of checkouts kept per run.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// TempDir receives checkouts. Empty uses the system temp dir.
	TempDir string `yaml:"temp_dir" json:"temp_dir"`
}

// ProjectConfig configures files written into generated projects.
type ProjectConfig struct {
	// ConfigFile is the project config file name at the project root.
	ConfigFile string `yaml:"config_file" json:"config_file"`
}

// LoggingConfig configures the debug log.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Registry: RegistryConfig{
			Path:        filepath.Join(dataDir(), "templates.def"),
			BackupPath:  filepath.Join(homeDir(), ".amantmpl", "templates.def.bak"),
			LockTimeout: "10s",
		},
		Remote: RemoteConfig{
			GitBinary: "git",
			GitHubURL: "https://github.com",
			CacheSize: 16,
		},
		Project: ProjectConfig{
			ConfigFile: ".amantmpl.yaml",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "amantmpl")
	}
	return filepath.Join(homeDir(), ".local", "share", "amantmpl")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/amantmpl/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amantmpl/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amantmpl", "config.yaml")
	}
	return filepath.Join(homeDir(), ".config", "amantmpl", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	info, err := os.Stat(GetUserConfigPath())
	return err == nil && !info.IsDir()
}

// LoadUserConfig loads the user configuration file as written, without
// defaults, so MergeNewDefaults can see which settings it lacks.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	if !UserConfigExists() {
		return nil, nil
	}
	cfg := &Config{}
	if err := cfg.loadYAML(GetUserConfigPath()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load builds the effective configuration.
func Load() (*Config, error) {
	cfg := NewConfig()

	if UserConfigExists() {
		if err := cfg.loadYAML(GetUserConfigPath()); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over c, so keys absent from the file keep their
// current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return amerrors.New(amerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("file", path)
	}
	return nil
}

// applyEnvOverrides applies AMANTMPL_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"AMANTMPL_REGISTRY_PATH":       &c.Registry.Path,
		"AMANTMPL_REGISTRY_BACKUP":     &c.Registry.BackupPath,
		"AMANTMPL_LOCK_TIMEOUT":        &c.Registry.LockTimeout,
		"AMANTMPL_GIT_BINARY":          &c.Remote.GitBinary,
		"AMANTMPL_GITHUB_URL":          &c.Remote.GitHubURL,
		"AMANTMPL_TEMP_DIR":            &c.Remote.TempDir,
		"AMANTMPL_PROJECT_CONFIG_FILE": &c.Project.ConfigFile,
		"AMANTMPL_LOG_LEVEL":           &c.Logging.Level,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("AMANTMPL_DISABLE_BACKUP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("AMANTMPL_DISABLE_BACKUP", v, err)
		}
		c.Registry.DisableBackup = b
	}
	if v := os.Getenv("AMANTMPL_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("AMANTMPL_CACHE_SIZE", v, err)
		}
		c.Remote.CacheSize = n
	}
	return nil
}

func envError(key, value string, err error) error {
	return amerrors.New(amerrors.ErrCodeConfigInvalid,
		fmt.Sprintf("invalid value %q for %s", value, key), err)
}

// expandPaths resolves a leading ~/ in path settings.
func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Registry.Path, &c.Registry.BackupPath, &c.Remote.TempDir} {
		if *p == "~" {
			*p = homeDir()
		} else if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(homeDir(), (*p)[2:])
		}
	}
}

// BackupEnabled reports whether registry writes also write the backup.
func (c *Config) BackupEnabled() bool {
	return !c.Registry.DisableBackup
}

// LockTimeoutDuration returns the parsed registry lock timeout.
func (c *Config) LockTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Registry.LockTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return amerrors.Newf(amerrors.ErrCodeConfigInvalid, format, args...).
			WithSuggestion("Check " + GetUserConfigPath() + " and AMANTMPL_* environment variables")
	}

	if c.Registry.Path == "" {
		return invalid("registry.path must not be empty")
	}
	if c.BackupEnabled() && c.Registry.BackupPath == "" {
		return invalid("registry.backup_path must be set unless registry.disable_backup is true")
	}
	if c.BackupEnabled() && filepath.Clean(c.Registry.BackupPath) == filepath.Clean(c.Registry.Path) {
		return invalid("registry.backup_path must differ from registry.path")
	}
	if d, err := time.ParseDuration(c.Registry.LockTimeout); err != nil || d <= 0 {
		return invalid("registry.lock_timeout must be a positive duration, got %q", c.Registry.LockTimeout)
	}

	if c.Remote.GitBinary == "" {
		return invalid("remote.git_binary must not be empty")
	}
	if u, err := url.Parse(c.Remote.GitHubURL); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("remote.github_url must be an absolute URL, got %q", c.Remote.GitHubURL)
	}
	if c.Remote.CacheSize < 1 {
		return invalid("remote.cache_size must be at least 1, got %d", c.Remote.CacheSize)
	}

	name := c.Project.ConfigFile
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return invalid("project.config_file must be a plain file name, got %q", name)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeInternal, "failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission, "failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission, "failed to write config file", err)
	}
	return nil
}

// MergeNewDefaults fills settings that are absent from an older config file
// while preserving existing values. It returns the names of the added
// settings.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	fill := func(name string, dst *string, def string) {
		if *dst == "" {
			*dst = def
			added = append(added, name)
		}
	}
	fill("registry.path", &c.Registry.Path, defaults.Registry.Path)
	fill("registry.lock_timeout", &c.Registry.LockTimeout, defaults.Registry.LockTimeout)
	fill("remote.git_binary", &c.Remote.GitBinary, defaults.Remote.GitBinary)
	fill("remote.github_url", &c.Remote.GitHubURL, defaults.Remote.GitHubURL)
	fill("project.config_file", &c.Project.ConfigFile, defaults.Project.ConfigFile)
	fill("logging.level", &c.Logging.Level, defaults.Logging.Level)

	// backup_path is only required while backups are enabled
	if c.BackupEnabled() {
		fill("registry.backup_path", &c.Registry.BackupPath, defaults.Registry.BackupPath)
	}
	if c.Remote.CacheSize == 0 {
		c.Remote.CacheSize = defaults.Remote.CacheSize
		added = append(added, "remote.cache_size")
	}
	if c.Version < CurrentVersion {
		c.Version = CurrentVersion
	}

	return added
}
