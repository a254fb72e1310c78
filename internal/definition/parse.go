package definition

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/location"
)

// rawRecord is a record before validation.
type rawRecord struct {
	line   int
	fields map[string]string
}

// ParseFile parses the definition file at path.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = f.Close() }()

	res, err := Parse(f)
	if err != nil {
		if ae, ok := amerrors.As(err); ok {
			ae.WithDetail("file", path)
		}
		return Result{}, err
	}
	return res, nil
}

// Parse reads and validates a definition. Any invalid record fails the
// whole parse, as do two records sharing a template_name; nothing is
// partially accepted.
func Parse(r io.Reader) (Result, error) {
	raws, err := readRecords(r)
	if err != nil {
		return Result{}, err
	}

	if isUnconfiguredMarker(raws) {
		return Result{Configured: false}, nil
	}

	if err := validateFields(raws); err != nil {
		return Result{}, err
	}

	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := buildRecord(raw)
		if err != nil {
			return Result{}, err
		}
		records = append(records, rec)
	}
	if err := CheckUniqueNames(records); err != nil {
		return Result{}, err
	}

	return Result{Configured: true, Records: records}, nil
}

// readRecords splits the input on blank lines and decodes each block as a
// flat mapping of scalars.
func readRecords(r io.Reader) ([]rawRecord, error) {
	var (
		records []rawRecord
		block   bytes.Buffer
		start   int
		lineNo  int
	)

	flush := func() error {
		if block.Len() == 0 {
			return nil
		}
		defer block.Reset()

		rec, ok, err := decodeBlock(block.Bytes(), start)
		if err != nil {
			return err
		}
		if ok {
			records = append(records, rec)
		}
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if block.Len() == 0 {
			start = lineNo
		}
		block.WriteString(line)
		block.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, amerrors.New(amerrors.ErrCodeMalformedDefinition, "failed to read definition", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return records, nil
}

// decodeBlock decodes one record. Comment-only blocks yield ok=false.
func decodeBlock(data []byte, start int) (rawRecord, bool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return rawRecord{}, false, malformed(start, "record is not valid field: value text", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return rawRecord{}, false, nil
	}

	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return rawRecord{}, false, malformed(start, "record must be a list of field: value lines", nil)
	}

	fields := make(map[string]string, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return rawRecord{}, false, malformed(start+key.Line-1,
				fmt.Sprintf("field %q must have a single value", key.Value), nil)
		}
		if _, dup := fields[key.Value]; dup {
			return rawRecord{}, false, malformed(start+key.Line-1,
				fmt.Sprintf("field %q appears twice in one record", key.Value), nil)
		}
		fields[key.Value] = strings.TrimSpace(val.Value)
	}

	return rawRecord{line: start, fields: fields}, true, nil
}

func isUnconfiguredMarker(raws []rawRecord) bool {
	if len(raws) != 1 {
		return false
	}
	f := raws[0].fields
	if v, ok := f[FieldConfigured]; ok {
		if b, err := parseBool(v); err == nil && !b {
			return true
		}
	}
	return f[FieldTemplateName] == LegacyUnconfiguredName
}

// validateFields checks required fields and enumerations across all records
// before any record is built, so errors report every offending value.
func validateFields(raws []rawRecord) error {
	for _, raw := range raws {
		if missing := missingFields(raw, commonFields); len(missing) > 0 {
			return missingFieldError(raw, missing)
		}
	}

	var badTypes []string
	seen := make(map[string]bool)
	for _, raw := range raws {
		t := raw.fields[FieldTemplateType]
		if !TemplateType(t).IsValid() && !seen[t] {
			seen[t] = true
			badTypes = append(badTypes, t)
		}
	}
	if len(badTypes) > 0 {
		return amerrors.New(amerrors.ErrCodeInvalidTemplateType,
			fmt.Sprintf("invalid template_type value(s): %s (expected root or project)", strings.Join(quoteAll(badTypes), ", ")), nil)
	}

	for _, raw := range raws {
		required := rootFields
		if TemplateType(raw.fields[FieldTemplateType]) == TypeProject {
			required = projectFields
		}
		if missing := missingFields(raw, required); len(missing) > 0 {
			return missingFieldError(raw, missing)
		}
	}

	for _, raw := range raws {
		if TemplateType(raw.fields[FieldTemplateType]) != TypeProject {
			continue
		}
		if m := raw.fields[FieldMerge]; !MergeType(m).IsValid() {
			return amerrors.New(amerrors.ErrCodeInvalidMergeType,
				fmt.Sprintf("record %q (line %d): invalid merge value %q (expected overwrite, append or duplicate)",
					raw.fields[FieldTemplateName], raw.line, m), nil)
		}
	}

	return nil
}

func buildRecord(raw rawRecord) (Record, error) {
	f := raw.fields
	rec := Record{
		TemplateType:    TemplateType(f[FieldTemplateType]),
		TemplateName:    f[FieldTemplateName],
		ContentLocation: f[FieldContentLocation],
		TargetDir:       f[FieldTargetDir],
		Line:            raw.line,
	}

	loc, err := location.Parse(rec.ContentLocation)
	if err != nil {
		if ae, ok := amerrors.As(err); ok {
			ae.WithDetail("template_name", rec.TemplateName)
		}
		return Record{}, err
	}
	rec.Location = loc

	switch rec.TemplateType {
	case TypeRoot:
		b, err := parseBool(f[FieldDefault])
		if err != nil {
			return Record{}, malformed(raw.line,
				fmt.Sprintf("record %q: default must be true or false, got %q", rec.TemplateName, f[FieldDefault]), nil)
		}
		rec.Default = b
	case TypeProject:
		rec.Merge = MergeType(f[FieldMerge])
	}

	return rec, nil
}

// CheckUniqueNames fails with DuplicateTemplateName if two records share a
// template_name.
func CheckUniqueNames(records []Record) error {
	seen := make(map[string]int, len(records))
	var dups []string
	for _, rec := range records {
		seen[rec.TemplateName]++
		if seen[rec.TemplateName] == 2 {
			dups = append(dups, rec.TemplateName)
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	return amerrors.New(amerrors.ErrCodeDuplicateTemplateName,
		fmt.Sprintf("duplicate template_name: %s", strings.Join(quoteAll(dups), ", ")), nil).
		WithSuggestion("Template names must be unique; rename or remove the duplicates")
}

func missingFields(raw rawRecord, names []string) []string {
	var missing []string
	for _, name := range names {
		if raw.fields[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func missingFieldError(raw rawRecord, missing []string) error {
	name := raw.fields[FieldTemplateName]
	if name == "" {
		name = "<unnamed>"
	}
	err := amerrors.New(amerrors.ErrCodeMissingRequiredField,
		fmt.Sprintf("record %s (line %d) is missing required field(s): %s", name, raw.line, strings.Join(missing, ", ")), nil)

	// The flat location/type schema is no longer read
	if _, ok := raw.fields["location"]; ok {
		err.WithSuggestion("This looks like the old location/type format; rename location to content_location and type to template_type")
	}
	return err
}

func malformed(line int, msg string, cause error) *amerrors.AmanError {
	return amerrors.New(amerrors.ErrCodeMalformedDefinition, fmt.Sprintf("line %d: %s", line, msg), cause)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
