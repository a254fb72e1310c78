// Package merge writes a resolved template into a project directory.
//
// Simple templates are copied file by file, overwriting what exists.
// Advanced templates carry a template.def of project records, each naming
// a source, a target inside the project and a merge policy:
//
//	overwrite  replace the target
//	append     add the source bytes to the end of the target
//	duplicate  keep the target and write the source beside it as name_N.ext
//
// Merging is not transactional. A failure leaves the files written so far
// in place; re-running against the same directory is the recovery path.
package merge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/amantmpl/internal/definition"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/gitignore"
	"github.com/Aman-CERP/amantmpl/internal/location"
	"github.com/Aman-CERP/amantmpl/internal/projectconfig"
)

// Resolver materializes a record's content location.
type Resolver interface {
	Resolve(ctx context.Context, loc location.Location, baseDir string) (string, error)
}

// Options configures an Engine.
type Options struct {
	Resolver Resolver
	// Schema is reconciled into the project config when a template has
	// overrides.
	Schema projectconfig.Schema
	// ConfigFileName is the project config file, relative to the project
	// root. Defaults to projectconfig.DefaultFileName.
	ConfigFileName string
	Logger         *slog.Logger
}

// Engine applies templates.
type Engine struct {
	resolver   Resolver
	schema     projectconfig.Schema
	configFile string
	logger     *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		resolver:   opts.Resolver,
		schema:     opts.Schema,
		configFile: opts.ConfigFileName,
		logger:     opts.Logger,
	}
	if e.configFile == "" {
		e.configFile = projectconfig.DefaultFileName
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Action is what happened to one project file.
type Action string

const (
	ActionCreated   Action = "created"
	ActionReplaced  Action = "replaced"
	ActionAppended  Action = "appended"
	ActionDuplicate Action = "duplicated"
	ActionSkipped   Action = "skipped"
)

// FileResult records one written file.
type FileResult struct {
	// Path is relative to the project root, slash separated.
	Path   string
	Source string
	Action Action
	// Record is the template_name of the project record, empty in simple mode.
	Record string
}

// Result summarizes an Apply.
type Result struct {
	Mode  Mode
	Files []FileResult
	// Config is set when the project config was reconciled.
	Config     *projectconfig.Changes
	ConfigPath string
}

// Apply merges content into projectDir, creating it when missing. The
// returned Result lists the files written, including on failure.
func (e *Engine) Apply(ctx context.Context, content Content, projectDir string) (*Result, error) {
	res := &Result{Mode: content.Mode}

	absProject, err := filepath.Abs(projectDir)
	if err != nil {
		return res, amerrors.New(amerrors.ErrCodeMergeFailed, "invalid project directory", err)
	}
	if err := os.MkdirAll(absProject, 0o755); err != nil {
		return res, amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("failed to create project directory %s", absProject), err)
	}

	base, err := within(absProject, content.TargetDir)
	if err != nil {
		return res, err
	}

	w, err := newWriter(absProject, res, e.logger)
	if err != nil {
		return res, err
	}

	switch content.Mode {
	case ModeAdvanced:
		err = e.applyRecords(ctx, w, content, base)
	default:
		err = e.applySimple(ctx, w, content, base)
	}
	if err != nil {
		return res, err
	}

	if len(content.Overrides) > 0 {
		if err := e.reconcileConfig(absProject, content.Overrides, res); err != nil {
			return res, err
		}
	}

	e.logger.Info("template applied",
		slog.String("project", absProject),
		slog.String("mode", string(content.Mode)),
		slog.Int("files", len(res.Files)))
	return res, nil
}

func (e *Engine) applySimple(ctx context.Context, w *writer, content Content, base string) error {
	root, err := filepath.EvalSymlinks(content.Root)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeMergeFailed, "failed to read template content", err).
			WithDetail("path", content.Root)
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
		if rel == "." {
			return w.mkdir(base)
		}
		if skipSimple(rel, d, content) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.mkdir(filepath.Join(base, rel))
		}

		return w.apply(definition.MergeOverwrite, path, filepath.Join(base, rel), "")
	})
}

func skipSimple(rel string, d fs.DirEntry, content Content) bool {
	if d.IsDir() && d.Name() == ".git" {
		return true
	}
	switch filepath.ToSlash(rel) {
	case DefinitionFileName, OverridesFileName, gitignore.FileName:
		return true
	}
	return content.Ignore != nil && content.Ignore.Match(rel, d.IsDir())
}

func (e *Engine) applyRecords(ctx context.Context, w *writer, content Content, base string) error {
	if e.resolver == nil && len(content.Records) > 0 {
		return amerrors.New(amerrors.ErrCodeInternal, "merge engine has no location resolver", nil)
	}

	for _, rec := range content.Records {
		if err := ctx.Err(); err != nil {
			return err
		}

		src, err := e.resolver.Resolve(ctx, rec.Location, content.Root)
		if err != nil {
			return withRecord(err, rec)
		}
		info, err := os.Stat(src)
		if err != nil {
			return withRecord(amerrors.New(amerrors.ErrCodeMergeFailed,
				fmt.Sprintf("content %s of %q not found", rec.ContentLocation, rec.TemplateName), err), rec)
		}

		target := filepath.Join(base, filepath.FromSlash(rec.TargetDir))
		if err := contained(w.project, target); err != nil {
			return withRecord(err, rec)
		}

		e.logger.Debug("applying project record",
			slog.String("template_name", rec.TemplateName),
			slog.String("merge", string(rec.Merge)),
			slog.String("source", src),
			slog.String("target", target))

		if info.IsDir() {
			err = w.applyDir(ctx, rec, src, target)
		} else {
			err = w.apply(rec.Merge, src, fileTarget(src, target, rec.TargetDir), rec.TemplateName)
		}
		if err != nil {
			return withRecord(err, rec)
		}
	}
	return nil
}

// fileTarget returns where a single source file lands. A target_dir that is
// "." or ends in a separator, or that names an existing directory, receives
// the file under its own name.
func fileTarget(src, target, targetDir string) string {
	if targetDir == "" || targetDir == "." || os.IsPathSeparator(targetDir[len(targetDir)-1]) {
		return filepath.Join(target, filepath.Base(src))
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, filepath.Base(src))
	}
	return target
}

func (e *Engine) reconcileConfig(project string, overrides map[string]string, res *Result) error {
	path := filepath.Join(project, e.configFile)

	current, err := projectconfig.Load(path)
	if err != nil {
		return err
	}
	cfg, changes := projectconfig.Reconcile(current, e.schema, overrides)
	if err := projectconfig.Write(path, cfg, e.schema); err != nil {
		return err
	}

	e.logger.Debug("project config reconciled",
		slog.String("path", path),
		slog.Any("added", changes.Added),
		slog.Any("overridden", changes.Overridden))

	res.Config = &changes
	res.ConfigPath = path
	return nil
}

func withRecord(err error, rec definition.Record) error {
	if ae, ok := amerrors.As(err); ok {
		ae.WithDetail("template_name", rec.TemplateName)
		return ae
	}
	return amerrors.New(amerrors.ErrCodeMergeFailed,
		fmt.Sprintf("failed to apply %q", rec.TemplateName), err).
		WithDetail("template_name", rec.TemplateName)
}
