package registry

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/amantmpl/internal/definition"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

const (
	// CorruptSuffix is appended to a primary file that failed to parse
	// before it is replaced from the backup.
	CorruptSuffix = ".corrupt"

	// DefaultLockTimeout bounds how long a Store waits for another process.
	DefaultLockTimeout = 10 * time.Second
)

// Options configures a Store. There are no package-level path defaults;
// callers build Options from the tool configuration.
type Options struct {
	// Path is the primary registry file.
	Path string
	// BackupPath receives a copy of every write and is used to restore
	// Path when it goes missing or is corrupted.
	BackupPath string
	// CreateBackup enables writing BackupPath.
	CreateBackup bool
	// LockTimeout bounds waiting for the registry lock (default 10s).
	LockTimeout time.Duration
	// Logger receives diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Store persists a Registry to a definition file plus its backup.
type Store struct {
	opts   Options
	logger *slog.Logger
	lock   *FileLock
}

// NewStore creates a Store.
func NewStore(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, amerrors.New(amerrors.ErrCodeConfigInvalid, "registry path must not be empty", nil)
	}
	if opts.CreateBackup && opts.BackupPath == "" {
		return nil, amerrors.New(amerrors.ErrCodeConfigInvalid, "backup path must be set when backups are enabled", nil)
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		opts:   opts,
		logger: logger,
		lock:   NewFileLock(opts.Path),
	}, nil
}

// Path returns the primary registry file path.
func (s *Store) Path() string {
	return s.opts.Path
}

// BackupPath returns the backup file path, or "" when backups are disabled.
func (s *Store) BackupPath() string {
	if !s.opts.CreateBackup {
		return ""
	}
	return s.opts.BackupPath
}

// EnsureInitialized creates the primary file if it is absent, restoring it
// from the backup when one exists and writing the unconfigured marker
// otherwise. It is idempotent.
func (s *Store) EnsureInitialized() error {
	return s.withLock(s.ensureInitialized)
}

// Read loads and normalizes the registry, writing the normalized form back
// when normalization changed it.
func (s *Store) Read() (Registry, error) {
	var reg Registry
	err := s.withLock(func() error {
		var err error
		reg, err = s.read()
		return err
	})
	return reg, err
}

// Write persists reg to the primary path and the backup path.
func (s *Store) Write(reg Registry) error {
	return s.withLock(func() error { return s.write(reg) })
}

// Clear resets the registry to the unconfigured state. The backup is reset
// too, so a later restore cannot bring the cleared templates back.
func (s *Store) Clear() error {
	return s.withLock(func() error {
		if err := os.Remove(s.opts.Path); err != nil && !os.IsNotExist(err) {
			return amerrors.New(amerrors.ErrCodeRegistryWrite,
				fmt.Sprintf("failed to remove registry %s", s.opts.Path), err)
		}
		s.logger.Info("registry cleared", slog.String("path", s.opts.Path))
		return s.write(Unconfigured())
	})
}

// RestoreFromBackup replaces the primary file with the backup.
func (s *Store) RestoreFromBackup() error {
	return s.withLock(s.restoreFromBackup)
}

// Update runs fn on the current registry and persists the normalized
// result, all under the registry lock.
func (s *Store) Update(fn func(*Registry) error) (Registry, error) {
	var reg Registry
	err := s.withLock(func() error {
		var err error
		reg, err = s.read()
		if err != nil {
			return err
		}
		if err := fn(&reg); err != nil {
			return err
		}
		if _, err := reg.Normalize(); err != nil {
			return err
		}
		return s.write(reg)
	})
	if err != nil {
		return Registry{}, err
	}
	return reg, nil
}

func (s *Store) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.LockTimeout)
	defer cancel()

	if err := s.lock.Lock(ctx); err != nil {
		return amerrors.New(amerrors.ErrCodeRegistryWrite,
			"the template registry is locked by another process", err).
			WithDetail("lock", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release registry lock", slog.String("error", err.Error()))
		}
	}()

	return fn()
}

func (s *Store) ensureInitialized() error {
	if fileExists(s.opts.Path) {
		return nil
	}
	if s.backupExists() {
		return s.restoreFromBackup()
	}
	s.logger.Debug("initializing empty registry", slog.String("path", s.opts.Path))
	return s.write(Unconfigured())
}

func (s *Store) read() (Registry, error) {
	if !fileExists(s.opts.Path) {
		if err := s.ensureInitialized(); err != nil {
			return Registry{}, err
		}
	}

	res, err := definition.ParseFile(s.opts.Path)
	if err != nil {
		if !isCorruption(err) {
			return Registry{}, err
		}
		if err := s.recoverCorrupted(err); err != nil {
			return Registry{}, err
		}
		if res, err = definition.ParseFile(s.opts.Path); err != nil {
			return Registry{}, corrupted(s.opts.Path, err)
		}
	}

	if !res.Configured {
		return Unconfigured(), nil
	}

	reg := Registry{Configured: true, Templates: res.Records}
	changed, err := reg.Normalize()
	if err != nil {
		return Registry{}, err
	}
	if changed {
		s.logger.Info("normalized registry default", slog.String("path", s.opts.Path))
		if err := s.write(reg); err != nil {
			return Registry{}, err
		}
	}
	return reg, nil
}

// recoverCorrupted moves the unreadable primary aside and restores the backup.
func (s *Store) recoverCorrupted(cause error) error {
	if !s.backupExists() {
		return corrupted(s.opts.Path, cause)
	}

	s.logger.Warn("registry unreadable, restoring from backup",
		append([]any{slog.String("path", s.opts.Path)}, amerrors.FormatForLog(cause)...)...)

	aside := s.opts.Path + CorruptSuffix
	if err := os.Rename(s.opts.Path, aside); err != nil {
		return corrupted(s.opts.Path, err)
	}
	return s.restoreFromBackup()
}

func (s *Store) restoreFromBackup() error {
	if !s.backupExists() {
		return amerrors.New(amerrors.ErrCodeRegistryCorrupted,
			"no registry backup is available", nil).
			WithDetail("backup", s.opts.BackupPath)
	}

	data, err := os.ReadFile(s.opts.BackupPath)
	if err != nil {
		return corrupted(s.opts.BackupPath, err)
	}
	if _, err := definition.Parse(bytes.NewReader(data)); err != nil {
		return corrupted(s.opts.BackupPath, err)
	}

	if err := writeFileAtomic(s.opts.Path, data); err != nil {
		return amerrors.New(amerrors.ErrCodeRegistryWrite,
			fmt.Sprintf("failed to restore registry %s", s.opts.Path), err)
	}

	s.logger.Info("registry restored from backup",
		slog.String("path", s.opts.Path),
		slog.String("backup", s.opts.BackupPath))
	return nil
}

func (s *Store) write(reg Registry) error {
	var buf bytes.Buffer
	var err error
	if reg.Configured {
		err = definition.Encode(&buf, reg.Templates)
	} else {
		err = definition.EncodeUnconfigured(&buf)
	}
	if err != nil {
		return amerrors.New(amerrors.ErrCodeInternal, "failed to encode registry", err)
	}

	if err := writeFileAtomic(s.opts.Path, buf.Bytes()); err != nil {
		return amerrors.New(amerrors.ErrCodeRegistryWrite,
			fmt.Sprintf("failed to write registry %s", s.opts.Path), err)
	}

	if s.opts.CreateBackup {
		if err := writeFileAtomic(s.opts.BackupPath, buf.Bytes()); err != nil {
			return amerrors.New(amerrors.ErrCodeRegistryWrite,
				fmt.Sprintf("failed to write registry backup %s", s.opts.BackupPath), err)
		}
	}
	return nil
}

func (s *Store) backupExists() bool {
	return s.opts.BackupPath != "" && fileExists(s.opts.BackupPath)
}

// isCorruption reports whether err means the file could not be read as
// records at all. Well-formed records with invalid values are validation
// errors and are surfaced rather than papered over by a restore.
func isCorruption(err error) bool {
	if amerrors.HasCode(err, amerrors.ErrCodeMalformedDefinition) {
		return true
	}
	_, structured := amerrors.As(err)
	return !structured
}

func corrupted(path string, cause error) error {
	return amerrors.New(amerrors.ErrCodeRegistryCorrupted,
		fmt.Sprintf("template registry %s is unreadable and no usable backup exists", path), cause).
		WithSuggestion("Fix the file by hand or run 'amantmpl template clear' to start over")
}

// writeFileAtomic writes data to a temp file beside path and renames it
// into place, creating the parent directory if needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
