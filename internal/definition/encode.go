package definition

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// rootRecordYAML fixes the field order of persisted root records.
// Derived location fields are never written.
type rootRecordYAML struct {
	TemplateType    TemplateType `yaml:"template_type"`
	TemplateName    string       `yaml:"template_name"`
	ContentLocation string       `yaml:"content_location"`
	TargetDir       string       `yaml:"target_dir"`
	Default         bool         `yaml:"default"`
}

type projectRecordYAML struct {
	TemplateType    TemplateType `yaml:"template_type"`
	TemplateName    string       `yaml:"template_name"`
	ContentLocation string       `yaml:"content_location"`
	Merge           MergeType    `yaml:"merge"`
	TargetDir       string       `yaml:"target_dir"`
}

type unconfiguredYAML struct {
	Configured bool `yaml:"configured"`
}

// Encode writes records in order, one blank line between records. The
// output depends only on the records, so encoding a parsed file twice gives
// identical bytes.
func Encode(w io.Writer, records []Record) error {
	var buf bytes.Buffer
	for i, rec := range records {
		var v any
		switch rec.TemplateType {
		case TypeRoot:
			v = rootRecordYAML{
				TemplateType:    rec.TemplateType,
				TemplateName:    rec.TemplateName,
				ContentLocation: rec.ContentLocation,
				TargetDir:       rec.TargetDir,
				Default:         rec.Default,
			}
		case TypeProject:
			v = projectRecordYAML{
				TemplateType:    rec.TemplateType,
				TemplateName:    rec.TemplateName,
				ContentLocation: rec.ContentLocation,
				Merge:           rec.Merge,
				TargetDir:       rec.TargetDir,
			}
		default:
			return fmt.Errorf("cannot encode record %q with template_type %q", rec.TemplateName, rec.TemplateType)
		}

		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode record %q: %w", rec.TemplateName, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// EncodeUnconfigured writes the marker for a registry with no templates
// configured.
func EncodeUnconfigured(w io.Writer) error {
	data, err := yaml.Marshal(unconfiguredYAML{Configured: false})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
