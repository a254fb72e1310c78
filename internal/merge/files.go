package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/amantmpl/internal/definition"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

// maxDuplicates bounds the search for a free name_N.ext.
const maxDuplicates = 10000

// writer performs file operations inside one project and records them.
type writer struct {
	project string
	// realProject is project with symlinks resolved; every write must land
	// below it.
	realProject string
	result      *Result
	logger      *slog.Logger
}

func newWriter(project string, result *Result, logger *slog.Logger) (*writer, error) {
	resolved, err := filepath.EvalSymlinks(project)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("failed to resolve project directory %s", project), err)
	}
	return &writer{project: project, realProject: resolved, result: result, logger: logger}, nil
}

// applyDir applies policy to every entry under src, mirrored under target.
// Directories are created even when empty.
func (w *writer) applyDir(ctx context.Context, rec definition.Record, src, target string) error {
	root, err := filepath.EvalSymlinks(src)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeMergeFailed, "failed to read template content", err).
			WithDetail("path", src)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return amerrors.New(amerrors.ErrCodeMergeFailed, "failed to read template content", err).
				WithDetail("path", path)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return amerrors.New(amerrors.ErrCodeInternal, "failed to relativize template path", err)
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return w.mkdir(filepath.Join(target, rel))
		}
		return w.apply(rec.Merge, path, filepath.Join(target, rel), rec.TemplateName)
	})
}

// mkdir creates dir and its parents inside the project.
func (w *writer) mkdir(dir string) error {
	if err := w.guard(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("failed to create directory %s", dir), err)
	}
	return nil
}

// apply writes src to dst according to policy. A symlink source is
// recreated as a link with the same target, never followed.
func (w *writer) apply(policy definition.MergeType, src, dst, record string) error {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("failed to read %s", src), err)
	}
	isLink := srcInfo.Mode()&fs.ModeSymlink != 0

	_, statErr := os.Lstat(dst)
	exists := statErr == nil

	var action Action
	switch {
	case !exists:
		action = ActionCreated
	case policy == definition.MergeAppend && isLink:
		// A link has no bytes to append
		w.logger.Warn("skipping symlink under append policy",
			slog.String("source", src), slog.String("target", dst))
		w.record(dst, src, ActionSkipped, record)
		return nil
	case policy == definition.MergeAppend:
		action = ActionAppended
	case policy == definition.MergeDuplicate:
		action = ActionDuplicate
		free, err := freeDuplicateName(dst)
		if err != nil {
			return writeFailed(dst, src, err)
		}
		dst = free
	default:
		action = ActionReplaced
	}

	if isLink {
		if err := w.guard(filepath.Dir(dst)); err != nil {
			return err
		}
		err = copyLink(src, dst)
	} else {
		if err := w.guard(dst); err != nil {
			return err
		}
		err = copyFile(src, dst, action == ActionAppended)
	}
	if err != nil {
		return writeFailed(dst, src, err)
	}

	w.record(dst, src, action, record)
	return nil
}

func (w *writer) record(dst, src string, action Action, record string) {
	rel := filepath.ToSlash(mustRel(w.project, dst))
	w.result.Files = append(w.result.Files, FileResult{Path: rel, Source: src, Action: action, Record: record})
	w.logger.Debug("wrote project file", slog.String("path", rel), slog.String("action", string(action)))
}

// guard fails with MergeFailed unless path, with symlinks in its existing
// prefix resolved, lies inside the project. A dangling link at path fails.
func (w *writer) guard(path string) error {
	existing := path
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("failed to resolve target %s", path), err)
	}
	if err := contained(w.realProject, resolved); err != nil {
		return amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("target %s resolves to %s outside the project", path, resolved), nil).
			WithDetail("project", w.project)
	}
	return nil
}

func writeFailed(dst, src string, err error) error {
	return amerrors.New(amerrors.ErrCodeMergeFailed,
		fmt.Sprintf("failed to write %s", dst), err).
		WithDetail("source", src)
}

// DuplicateName returns the n-th duplicate name for path: name_N.ext, or
// name_N for files without an extension. Dotfiles keep their leading dot,
// so .gitignore becomes .gitignore_1.
func DuplicateName(path string, n int) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
}

func freeDuplicateName(path string) (string, error) {
	for n := 1; n <= maxDuplicates; n++ {
		candidate := DuplicateName(path, n)
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free duplicate name for %s", path)
}

// copyFile copies src to dst, creating parent directories. With appendMode
// the bytes are added to the end of dst exactly as they are in src.
func copyFile(src, dst string, appendMode bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	out, err := os.OpenFile(dst, flags, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// copyLink recreates the symlink src at dst, replacing a file or link
// already there.
func copyLink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if info, err := os.Lstat(dst); err == nil {
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", dst)
		}
		if err := os.Remove(dst); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Symlink(target, dst)
}

// within joins rel to dir and fails with MergeFailed if the result leaves dir.
func within(dir, rel string) (string, error) {
	joined := filepath.Join(dir, filepath.FromSlash(rel))
	if err := contained(dir, joined); err != nil {
		return "", err
	}
	return joined, nil
}

// contained fails with MergeFailed unless path is dir or below it.
func contained(dir, path string) error {
	back, err := filepath.Rel(dir, path)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("target %s is outside the project", path), err).
			WithDetail("project", dir)
	}
	return nil
}

func mustRel(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
