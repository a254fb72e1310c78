package merge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/amantmpl/internal/definition"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/gitignore"
	"github.com/Aman-CERP/amantmpl/internal/projectconfig"
)

const (
	// DefinitionFileName marks an advanced template.
	DefinitionFileName = "template.def"
	// OverridesFileName holds project config overrides at a template root.
	OverridesFileName = "overrides.yaml"
)

// Mode is how a template's content is merged.
type Mode string

const (
	// ModeSimple copies the template tree, overwriting existing files.
	ModeSimple Mode = "simple"
	// ModeAdvanced applies the project records of a definition file.
	ModeAdvanced Mode = "advanced"
)

// Content is a resolved template ready to be applied.
type Content struct {
	// Root is the local directory holding the template.
	Root string
	// TargetDir is the root record's target_dir, relative to the project.
	TargetDir string
	Mode      Mode
	// Records are the project records of an advanced template.
	Records []definition.Record
	// Overrides are project config values the template sets.
	Overrides map[string]string
	// Ignore holds the .templateignore patterns of a simple template.
	Ignore *gitignore.Matcher
}

// Load inspects the template at root. A definition file selects advanced
// mode and must contain only project records.
func Load(root, targetDir string) (Content, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Content{}, amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("template content %s is not readable", root), err).
			WithDetail("root", root)
	}
	if !info.IsDir() {
		return Content{}, amerrors.New(amerrors.ErrCodeMergeFailed,
			fmt.Sprintf("template content %s is not a directory", root), nil).
			WithDetail("root", root)
	}

	if targetDir == "" {
		targetDir = "."
	}
	c := Content{Root: root, TargetDir: targetDir, Mode: ModeSimple}

	defPath := filepath.Join(root, DefinitionFileName)
	if _, err := os.Stat(defPath); err == nil {
		res, err := definition.ParseFile(defPath)
		if err != nil {
			return Content{}, err
		}
		if err := checkProjectRecords(res.Records); err != nil {
			return Content{}, err
		}
		c.Mode = ModeAdvanced
		c.Records = res.Records
	} else {
		if c.Ignore, err = gitignore.Load(root); err != nil {
			return Content{}, amerrors.New(amerrors.ErrCodeMergeFailed, "failed to read template ignore file", err).
				WithDetail("root", root)
		}
	}

	overrides, err := readOverrides(filepath.Join(root, OverridesFileName))
	if err != nil {
		return Content{}, err
	}
	c.Overrides = overrides
	return c, nil
}

func checkProjectRecords(records []definition.Record) error {
	for _, rec := range records {
		if rec.TemplateType != definition.TypeProject {
			return amerrors.New(amerrors.ErrCodeInvalidTemplateType,
				fmt.Sprintf("%s may only contain project records, %q is %s",
					DefinitionFileName, rec.TemplateName, rec.TemplateType), nil)
		}
	}
	return nil
}

func readOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeMergeFailed, "failed to read template overrides", err).
			WithDetail("file", path)
	}

	overrides, err := projectconfig.ParseOverrides(data)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s must be a flat key: value file", OverridesFileName), err).
			WithDetail("file", path)
	}
	return overrides, nil
}
