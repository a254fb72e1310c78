// Package registry owns the site-wide list of registered templates: the
// on-disk registry file with its backup, the mutations the management CLI
// performs, and selection of a template by name, position or default.
package registry

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/Aman-CERP/amantmpl/internal/definition"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/location"
)

// DefaultTargetDir is the target_dir given to templates added without one.
const DefaultTargetDir = "."

// Registry is the set of registered root templates.
//
// A Registry is either unconfigured (no templates were ever set up, or it
// was cleared) or configured with zero or more templates in file order.
type Registry struct {
	Configured bool
	Templates  []definition.Record
}

// Unconfigured returns the "no templates configured" registry.
func Unconfigured() Registry {
	return Registry{}
}

// Len returns the number of registered templates.
func (r Registry) Len() int {
	return len(r.Templates)
}

// Default returns the record marked default.
func (r Registry) Default() (definition.Record, bool) {
	for _, rec := range r.Templates {
		if rec.Default {
			return rec, true
		}
	}
	return definition.Record{}, false
}

// Normalize validates the registry and makes exactly one template default.
// When zero or several records are marked default, the first record in file
// order becomes the default and all others are cleared. It reports whether
// anything was changed.
func (r *Registry) Normalize() (bool, error) {
	if !r.Configured {
		return false, nil
	}

	var badTypes []string
	for _, rec := range r.Templates {
		if rec.TemplateType != definition.TypeRoot {
			badTypes = append(badTypes, fmt.Sprintf("%q (%s)", rec.TemplateType, rec.TemplateName))
		}
	}
	if len(badTypes) > 0 {
		return false, amerrors.New(amerrors.ErrCodeInvalidTemplateType,
			fmt.Sprintf("the registry accepts only root records, found %s", strings.Join(badTypes, ", ")), nil)
	}

	if err := definition.CheckUniqueNames(r.Templates); err != nil {
		return false, err
	}

	if len(r.Templates) == 0 {
		return false, nil
	}

	defaults := 0
	for _, rec := range r.Templates {
		if rec.Default {
			defaults++
		}
	}
	if defaults == 1 {
		return false, nil
	}

	for i := range r.Templates {
		r.Templates[i].Default = i == 0
	}
	return true, nil
}

// Add registers a new root template. The name is trimmed of surrounding
// whitespace, and an empty name is derived from the last path segment of
// contentLocation; an empty targetDir becomes ".".
func (r *Registry) Add(name, contentLocation, targetDir string, makeDefault bool) (definition.Record, error) {
	loc, err := location.Parse(contentLocation)
	if err != nil {
		return definition.Record{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(DeriveName(loc))
	}
	if err := validateName(name); err != nil {
		return definition.Record{}, err
	}
	for _, rec := range r.Templates {
		if rec.TemplateName == name {
			return definition.Record{}, amerrors.New(amerrors.ErrCodeDuplicateTemplateName,
				fmt.Sprintf("a template named %q is already registered", name), nil).
				WithSuggestion("Pass --name to register it under a different name")
		}
	}

	if targetDir == "" {
		targetDir = DefaultTargetDir
	}

	rec := definition.Record{
		TemplateType:    definition.TypeRoot,
		TemplateName:    name,
		ContentLocation: loc.String(),
		Location:        loc,
		TargetDir:       targetDir,
		Default:         makeDefault,
	}

	if makeDefault {
		for i := range r.Templates {
			r.Templates[i].Default = false
		}
	}
	r.Configured = true
	r.Templates = append(r.Templates, rec)
	return rec, nil
}

// Remove unregisters the template matching id. Removing the default leaves
// the registry without one until it is normalized. A zero id is rejected
// rather than removing the default.
func (r *Registry) Remove(id Identifier) (definition.Record, error) {
	if id.IsZero() {
		return definition.Record{}, amerrors.New(amerrors.ErrCodeInvalidInput,
			"a template name or position is required", nil)
	}
	rec, err := Select(*r, id)
	if err != nil {
		return definition.Record{}, err
	}

	i := r.indexOf(rec.TemplateName)
	r.Templates = append(r.Templates[:i], r.Templates[i+1:]...)
	return rec, nil
}

// SetDefault marks the template matching id as the only default.
func (r *Registry) SetDefault(id Identifier) (definition.Record, error) {
	if id.IsZero() {
		return definition.Record{}, amerrors.New(amerrors.ErrCodeInvalidInput,
			"a template name or position is required", nil)
	}
	rec, err := Select(*r, id)
	if err != nil {
		return definition.Record{}, err
	}

	for i := range r.Templates {
		r.Templates[i].Default = r.Templates[i].TemplateName == rec.TemplateName
	}
	rec.Default = true
	return rec, nil
}

// ClearDefault unmarks every template. Normalizing afterwards makes the first
// record in file order the default again.
func (r *Registry) ClearDefault() {
	for i := range r.Templates {
		r.Templates[i].Default = false
	}
}

func (r Registry) indexOf(name string) int {
	for i, rec := range r.Templates {
		if rec.TemplateName == name {
			return i
		}
	}
	return -1
}

// DeriveName returns the last path segment of a location, or the repository
// name for a remote location pointing at the repository root.
func DeriveName(loc location.Location) string {
	p := strings.TrimRight(strings.ReplaceAll(loc.Path, "\\", "/"), "/")
	if p != "" {
		if base := path.Base(p); base != "." && base != "/" {
			return base
		}
	}
	if loc.IsRemote() {
		if ref, err := location.ParseRepoRef(loc.RepoRef); err == nil {
			return ref.Repo
		}
	}
	return ""
}

// validateName rejects names that cannot be stored or selected by name.
func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return amerrors.New(amerrors.ErrCodeInvalidInput, "template name must not be empty", nil).
			WithSuggestion("Pass --name explicitly")
	case strings.ContainsAny(name, "\r\n"):
		return amerrors.New(amerrors.ErrCodeInvalidInput, "template name must be a single line", nil)
	case name == definition.LegacyUnconfiguredName:
		return amerrors.Newf(amerrors.ErrCodeInvalidInput, "%q is a reserved template name", name)
	}
	if _, err := strconv.Atoi(name); err == nil {
		return amerrors.Newf(amerrors.ErrCodeInvalidInput,
			"template name %q is numeric and would be read as a list position", name).
			WithSuggestion("Choose a name containing at least one non-digit")
	}
	return nil
}
