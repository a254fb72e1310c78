// Package definition parses and writes template definition files.
//
// A definition file holds one or more records separated by blank lines.
// Each record is a block of "field: value" lines:
//
//	template_type: project
//	template_name: gitignore
//	content_location: local:files/gitignore
//	merge: append
//	target_dir: .gitignore
//
// Root records describe the site-wide template registry; project records
// describe the file operations of a single template. A file containing only
// the record "configured: false" marks a registry with no templates
// configured.
package definition

import (
	"github.com/Aman-CERP/amantmpl/internal/location"
)

// TemplateType is the kind of a record.
type TemplateType string

const (
	// TypeRoot is a registry entry.
	TypeRoot TemplateType = "root"
	// TypeProject is a file operation inside a template.
	TypeProject TemplateType = "project"
)

// IsValid reports whether t is a known record kind.
func (t TemplateType) IsValid() bool {
	return t == TypeRoot || t == TypeProject
}

// MergeType is the per-file merge policy of a project record.
type MergeType string

const (
	// MergeOverwrite replaces the target wholesale.
	MergeOverwrite MergeType = "overwrite"
	// MergeAppend appends the source to an existing target.
	MergeAppend MergeType = "append"
	// MergeDuplicate writes next to an existing target under a free name.
	MergeDuplicate MergeType = "duplicate"
)

// IsValid reports whether m is a known merge policy.
func (m MergeType) IsValid() bool {
	switch m {
	case MergeOverwrite, MergeAppend, MergeDuplicate:
		return true
	}
	return false
}

// Field names of the on-disk format.
const (
	FieldTemplateType    = "template_type"
	FieldTemplateName    = "template_name"
	FieldContentLocation = "content_location"
	FieldMerge           = "merge"
	FieldTargetDir       = "target_dir"
	FieldDefault         = "default"
	FieldConfigured      = "configured"
)

// LegacyUnconfiguredName is the template_name older registries used as a
// "no templates defined" marker. It is recognised on read only.
const LegacyUnconfiguredName = "no_templates_defined"

var (
	commonFields  = []string{FieldTemplateType, FieldContentLocation, FieldTemplateName}
	rootFields    = []string{FieldTargetDir, FieldDefault}
	projectFields = []string{FieldMerge, FieldTargetDir}
)

// Record is one validated record of a definition file.
type Record struct {
	TemplateType    TemplateType
	TemplateName    string
	ContentLocation string
	// Location holds the fields derived from ContentLocation.
	Location  location.Location
	Merge     MergeType
	TargetDir string
	Default   bool
	// Line is the first line of the record in its source, 0 if built in memory.
	Line int
}

// Result is the outcome of parsing a definition file.
type Result struct {
	// Configured is false when the file holds only the unconfigured marker.
	Configured bool
	Records    []Record
}
