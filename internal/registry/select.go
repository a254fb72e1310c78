package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Aman-CERP/amantmpl/internal/definition"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

// Identifier selects a template by name, by 1-based position in display
// order, or (when zero) the default template.
type Identifier struct {
	Name  string
	Index int

	byIndex bool
}

// ParseIdentifier interprets user input. Empty input selects the default,
// an integer selects by position and anything else is a name.
func ParseIdentifier(s string) Identifier {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identifier{}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Identifier{Index: n, byIndex: true}
	}
	return Identifier{Name: s}
}

// ByName selects a template by exact name.
func ByName(name string) Identifier {
	return Identifier{Name: name}
}

// ByIndex selects the k-th template in display order.
func ByIndex(k int) Identifier {
	return Identifier{Index: k, byIndex: true}
}

// IsZero reports whether the identifier selects the default template.
func (id Identifier) IsZero() bool {
	return !id.byIndex && id.Name == ""
}

func (id Identifier) String() string {
	switch {
	case id.byIndex:
		return strconv.Itoa(id.Index)
	case id.Name != "":
		return id.Name
	}
	return "<default>"
}

// DisplayOrder returns the templates as listed to users: the default first,
// then the rest by name. It is computed from the snapshot on every call.
func DisplayOrder(reg Registry) []definition.Record {
	out := make([]definition.Record, 0, len(reg.Templates))
	rest := make([]definition.Record, 0, len(reg.Templates))

	haveDefault := false
	for _, rec := range reg.Templates {
		if rec.Default && !haveDefault {
			out = append(out, rec)
			haveDefault = true
			continue
		}
		rest = append(rest, rec)
	}

	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].TemplateName < rest[j].TemplateName
	})
	return append(out, rest...)
}

// Select picks the template matching id.
func Select(reg Registry, id Identifier) (definition.Record, error) {
	switch {
	case id.IsZero():
		if rec, ok := reg.Default(); ok {
			return rec, nil
		}
		msg := "no default template: no templates are configured"
		if reg.Configured && reg.Len() > 0 {
			msg = "no template is marked default"
		}
		return definition.Record{}, amerrors.New(amerrors.ErrCodeNoDefaultTemplate, msg, nil).
			WithSuggestion("Register one with 'amantmpl template add <location>' or pass --template")

	case id.byIndex:
		order := DisplayOrder(reg)
		if id.Index < 1 || id.Index > len(order) {
			msg := fmt.Sprintf("template position %d is out of range (1-%d)", id.Index, len(order))
			if len(order) == 0 {
				msg = fmt.Sprintf("template position %d is out of range: no templates are registered", id.Index)
			}
			return definition.Record{}, amerrors.New(amerrors.ErrCodeTemplateIndexOutOfRange, msg, nil).
				WithSuggestion("Run 'amantmpl template list' to see template positions")
		}
		return order[id.Index-1], nil

	default:
		for _, rec := range reg.Templates {
			if rec.TemplateName == id.Name {
				return rec, nil
			}
		}
		return definition.Record{}, amerrors.New(amerrors.ErrCodeTemplateNotFound,
			fmt.Sprintf("template %q is not registered", id.Name), nil).
			WithSuggestion("Run 'amantmpl template list' to see registered templates")
	}
}
