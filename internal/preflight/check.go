package preflight

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/amantmpl/internal/config"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/registry"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	verbose bool
	output  io.Writer
	logger  *slog.Logger

	loadConfig func() (*config.Config, error)
	lookPath   func(file string) (string, error)
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithLogger sets the logger handed to the registry store.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output:     os.Stdout,
		loadConfig: config.Load,
		lookPath:   exec.LookPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs all preflight checks and returns the results. Checks that need
// a valid configuration are skipped when it does not load.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	cfgResult, cfg := c.CheckConfig()
	results := []CheckResult{cfgResult}
	if cfg == nil {
		return results
	}

	results = append(results, c.CheckWritePermissions(filepath.Dir(cfg.Registry.Path)))

	regResult, reg := c.CheckRegistry(ctx, cfg)
	results = append(results, regResult)

	results = append(results, c.CheckBackup(cfg, reg))
	results = append(results, c.CheckGit(cfg, reg))

	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// Err returns an error naming the failed required checks, or nil.
func (c *Checker) Err(results []CheckResult) error {
	var failed []string
	for _, r := range results {
		if r.IsCritical() {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return amerrors.New(amerrors.ErrCodeCheckFailed,
		fmt.Sprintf("%d required check(s) failed: %s", len(failed), strings.Join(failed, ", ")), nil).
		WithSuggestion("Run 'amantmpl doctor --verbose' for details")
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "amantmpl system check")
	_, _ = fmt.Fprintln(c.output, "=====================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var warnings, errors []string
	for _, r := range results {
		if r.IsCritical() {
			errors = append(errors, r.Name+": "+r.Message)
		} else if r.Status != StatusPass {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(errors) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(errors))
		for _, e := range errors {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

// CheckConfig loads the effective configuration. The config is nil when the
// check failed.
func (c *Checker) CheckConfig() (CheckResult, *config.Config) {
	result := CheckResult{
		Name:     "config",
		Required: true,
	}

	cfg, err := c.loadConfig()
	if err != nil {
		result.Status = StatusFail
		result.Message = errorMessage(err)
		result.Details = config.GetUserConfigPath()
		return result, nil
	}

	result.Status = StatusPass
	result.Message = "OK"
	if config.UserConfigExists() {
		result.Details = config.GetUserConfigPath()
	} else {
		result.Details = "no user config, using defaults"
	}
	return result, cfg
}

// CheckWritePermissions checks if the registry directory is writable,
// creating it when missing.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
		Details:  dir,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	f, err := os.CreateTemp(dir, ".amantmpl-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(f.Name())

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckRegistry reads the registry, restoring it from the backup when the
// primary is missing or corrupted.
func (c *Checker) CheckRegistry(_ context.Context, cfg *config.Config) (CheckResult, registry.Registry) {
	result := CheckResult{
		Name:     "registry",
		Required: true,
		Details:  cfg.Registry.Path,
	}

	store, err := registry.NewStore(registry.Options{
		Path:         cfg.Registry.Path,
		BackupPath:   cfg.Registry.BackupPath,
		CreateBackup: cfg.BackupEnabled(),
		LockTimeout:  cfg.LockTimeoutDuration(),
		Logger:       c.logger,
	})
	if err != nil {
		result.Status = StatusFail
		result.Message = errorMessage(err)
		return result, registry.Registry{}
	}

	reg, err := store.Read()
	if err != nil {
		result.Status = StatusFail
		result.Message = errorMessage(err)
		return result, registry.Registry{}
	}

	result.Status = StatusPass
	switch {
	case !reg.Configured:
		result.Message = "no templates configured"
	default:
		result.Message = fmt.Sprintf("%d template(s)", reg.Len())
		if def, ok := reg.Default(); ok {
			result.Message += fmt.Sprintf(", default %q", def.TemplateName)
		}
	}
	return result, reg
}

// CheckBackup reports whether the registry backup exists.
func (c *Checker) CheckBackup(cfg *config.Config, reg registry.Registry) CheckResult {
	result := CheckResult{
		Name:    "registry_backup",
		Details: cfg.Registry.BackupPath,
	}

	if !cfg.BackupEnabled() {
		result.Status = StatusWarn
		result.Message = "backups are disabled; a reinstall may lose the registry"
		return result
	}
	if info, err := os.Stat(cfg.Registry.BackupPath); err == nil && !info.IsDir() {
		result.Status = StatusPass
		result.Message = "OK"
		return result
	}
	if !reg.Configured {
		result.Status = StatusPass
		result.Message = "nothing to back up yet"
		return result
	}

	result.Status = StatusWarn
	result.Message = "backup missing; it is rewritten on the next registry change"
	return result
}

// CheckGit checks that the git binary is available. It is required only
// while a github: template is registered.
func (c *Checker) CheckGit(cfg *config.Config, reg registry.Registry) CheckResult {
	result := CheckResult{
		Name: "git",
	}
	for _, rec := range reg.Templates {
		if rec.Location.IsRemote() {
			result.Required = true
			break
		}
	}

	path, err := c.lookPath(cfg.Remote.GitBinary)
	if err != nil {
		result.Status = StatusWarn
		if result.Required {
			result.Status = StatusFail
		}
		result.Message = fmt.Sprintf("%q not found; github: templates cannot be fetched", cfg.Remote.GitBinary)
		return result
	}

	result.Status = StatusPass
	result.Message = "OK"
	result.Details = path
	return result
}

func errorMessage(err error) string {
	if ae, ok := amerrors.As(err); ok {
		return ae.Message
	}
	return err.Error()
}
