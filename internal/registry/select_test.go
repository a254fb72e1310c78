package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Aman-CERP/amantmpl/internal/definition"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/location"
)

func rootRecord(name string, isDefault bool) definition.Record {
	loc := location.Location{Type: location.TypeLocal, Path: "/tpl/" + name}
	return definition.Record{
		TemplateType:    definition.TypeRoot,
		TemplateName:    name,
		ContentLocation: loc.String(),
		Location:        loc,
		TargetDir:       ".",
		Default:         isDefault,
	}
}

func abRegistry() Registry {
	return Registry{
		Configured: true,
		Templates:  []definition.Record{rootRecord("A", true), rootRecord("B", false)},
	}
}

func TestSelect_DefaultIndexAndName(t *testing.T) {
	reg := abRegistry()

	rec, err := Select(reg, Identifier{})
	require.NoError(t, err)
	assert.Equal(t, "A", rec.TemplateName)

	rec, err = Select(reg, ByIndex(2))
	require.NoError(t, err)
	assert.Equal(t, "B", rec.TemplateName)

	_, err = Select(reg, ByName("C"))
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeTemplateNotFound))
}

func TestSelect_Errors(t *testing.T) {
	tests := []struct {
		name string
		reg  Registry
		id   Identifier
		code string
	}{
		{"unconfigured default", Unconfigured(), Identifier{}, amerrors.ErrCodeNoDefaultTemplate},
		{"empty configured default", Registry{Configured: true}, Identifier{}, amerrors.ErrCodeNoDefaultTemplate},
		{"no default marked", Registry{Configured: true, Templates: []definition.Record{rootRecord("x", false)}}, Identifier{}, amerrors.ErrCodeNoDefaultTemplate},
		{"index zero", abRegistry(), ByIndex(0), amerrors.ErrCodeTemplateIndexOutOfRange},
		{"index past end", abRegistry(), ByIndex(3), amerrors.ErrCodeTemplateIndexOutOfRange},
		{"negative index", abRegistry(), ByIndex(-1), amerrors.ErrCodeTemplateIndexOutOfRange},
		{"index into empty", Unconfigured(), ByIndex(1), amerrors.ErrCodeTemplateIndexOutOfRange},
		{"unknown name", abRegistry(), ByName("nope"), amerrors.ErrCodeTemplateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(tt.reg, tt.id)
			require.Error(t, err)
			assert.True(t, amerrors.HasCode(err, tt.code), "got %v", err)
			assert.True(t, amerrors.IsRecoverable(err))
		})
	}
}

func TestParseIdentifier(t *testing.T) {
	assert.True(t, ParseIdentifier("").IsZero())
	assert.True(t, ParseIdentifier("  ").IsZero())
	assert.Equal(t, ByIndex(3), ParseIdentifier("3"))
	assert.Equal(t, ByName("go-service"), ParseIdentifier("go-service"))
	assert.Equal(t, "3", ByIndex(3).String())
	assert.Equal(t, "<default>", Identifier{}.String())
	assert.False(t, ByIndex(0).IsZero())
}

func TestDisplayOrder_DefaultFirstThenByName(t *testing.T) {
	reg := Registry{Configured: true, Templates: []definition.Record{
		rootRecord("zeta", false),
		rootRecord("beta", false),
		rootRecord("mid", true),
		rootRecord("alpha", false),
	}}

	var names []string
	for _, rec := range DisplayOrder(reg) {
		names = append(names, rec.TemplateName)
	}
	assert.Equal(t, []string{"mid", "alpha", "beta", "zeta"}, names)

	// Display order never reorders the file
	assert.Equal(t, "zeta", reg.Templates[0].TemplateName)
}

func TestRegistry_Add(t *testing.T) {
	var reg Registry

	rec, err := reg.Add("", "github:acme/templates@v2", "", false)
	require.NoError(t, err)
	assert.Equal(t, "templates", rec.TemplateName)
	assert.Equal(t, DefaultTargetDir, rec.TargetDir)
	assert.True(t, reg.Configured)

	_, err = reg.Add("second", "local:/b", "out", true)
	require.NoError(t, err)
	def, ok := reg.Default()
	require.True(t, ok)
	assert.Equal(t, "second", def.TemplateName)
	assert.False(t, reg.Templates[0].Default)

	_, err = reg.Add("templates", "local:/c", "", false)
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeDuplicateTemplateName))

	_, err = reg.Add("x", "ftp:/c", "", false)
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidLocationType))
}

func TestRegistry_Add_TrimsName(t *testing.T) {
	var reg Registry

	rec, err := reg.Add("  spaced \t", "local:/tpl/x", "", false)
	require.NoError(t, err)
	assert.Equal(t, "spaced", rec.TemplateName)

	_, err = reg.Add("spaced ", "local:/tpl/y", "", false)
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeDuplicateTemplateName))

	_, err = reg.Add("   ", "local:/tpl/z", "", false)
	require.NoError(t, err, "blank name falls back to the derived one")
	assert.Equal(t, "z", reg.Templates[1].TemplateName)
}

func TestRegistry_Add_RejectsBadNames(t *testing.T) {
	for _, name := range []string{"42", definition.LegacyUnconfiguredName, "two\nlines"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			var reg Registry
			_, err := reg.Add(name, "local:/x", "", false)
			assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidInput))
			assert.Empty(t, reg.Templates)
		})
	}

	var reg Registry
	_, err := reg.Add("", "local:/", "", false)
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidInput), "root path has no derivable name")
}

func TestRegistry_RemoveAndDefaults(t *testing.T) {
	reg := Registry{Configured: true, Templates: []definition.Record{
		rootRecord("a", true),
		rootRecord("b", false),
		rootRecord("c", false),
	}}

	// Position 3 in display order is "c"
	removed, err := reg.Remove(ByIndex(3))
	require.NoError(t, err)
	assert.Equal(t, "c", removed.TemplateName)
	assert.Equal(t, 2, reg.Len())

	_, err = reg.SetDefault(ByName("b"))
	require.NoError(t, err)
	def, _ := reg.Default()
	assert.Equal(t, "b", def.TemplateName)

	_, err = reg.SetDefault(Identifier{})
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidInput))

	_, err = reg.Remove(Identifier{})
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidInput))
	assert.Equal(t, 2, reg.Len(), "a zero identifier must not remove the default")

	reg.ClearDefault()
	_, ok := reg.Default()
	assert.False(t, ok)

	changed, err := reg.Normalize()
	require.NoError(t, err)
	assert.True(t, changed)
	def, _ = reg.Default()
	assert.Equal(t, "a", def.TemplateName, "first record in file order becomes default")
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"local:/home/me/templates/go-service", "go-service"},
		{"local:/home/me/templates/go-service/", "go-service"},
		{"local:files/gitignore", "gitignore"},
		{"github:acme/starter", "starter"},
		{"github:acme/starter@main:web/react", "react"},
		{"local:/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := location.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, DeriveName(loc))
		})
	}
}

// genRegistry draws a configured registry with unique names and arbitrary
// default flags.
func genRegistry(t *rapid.T) Registry {
	names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z][a-z0-9_-]{0,8}`), 0, 8, rapid.ID[string]).Draw(t, "names")
	reg := Registry{Configured: true}
	for i, name := range names {
		reg.Templates = append(reg.Templates, rootRecord(name, rapid.Bool().Draw(t, fmt.Sprintf("default%d", i))))
	}
	return reg
}

func TestProperty_NormalizeLeavesOneDefault(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := genRegistry(t)
		before := make([]bool, reg.Len())
		defaults := 0
		for i, rec := range reg.Templates {
			before[i] = rec.Default
			if rec.Default {
				defaults++
			}
		}

		changed, err := reg.Normalize()
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		if reg.Len() == 0 {
			return
		}

		count := 0
		for _, rec := range reg.Templates {
			if rec.Default {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("expected exactly one default, got %d", count)
		}
		if defaults != 1 && !reg.Templates[0].Default {
			t.Fatalf("invalid default count %d must fall back to the first record", defaults)
		}
		if defaults == 1 {
			if changed {
				t.Fatalf("a valid registry must not change")
			}
			for i, rec := range reg.Templates {
				if rec.Default != before[i] {
					t.Fatalf("record %d default flag changed", i)
				}
			}
		}
	})
}

func TestProperty_IndexMatchesDisplayOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := genRegistry(t)
		if _, err := reg.Normalize(); err != nil {
			t.Fatalf("normalize: %v", err)
		}

		order := DisplayOrder(reg)
		if len(order) != reg.Len() {
			t.Fatalf("display order has %d entries, registry %d", len(order), reg.Len())
		}
		if len(order) > 0 && !order[0].Default {
			t.Fatalf("default must be listed first")
		}
		for k := 1; k <= len(order); k++ {
			rec, err := Select(reg, ByIndex(k))
			if err != nil {
				t.Fatalf("select %d: %v", k, err)
			}
			if rec.TemplateName != order[k-1].TemplateName {
				t.Fatalf("index %d selected %q, display order has %q", k, rec.TemplateName, order[k-1].TemplateName)
			}
			byName, err := Select(reg, ByName(rec.TemplateName))
			if err != nil || byName.TemplateName != rec.TemplateName {
				t.Fatalf("name lookup of %q failed: %v", rec.TemplateName, err)
			}
		}
	})
}
