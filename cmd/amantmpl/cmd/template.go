package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amantmpl/internal/definition"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/location"
	"github.com/Aman-CERP/amantmpl/internal/output"
	"github.com/Aman-CERP/amantmpl/internal/registry"
)

func newTemplateCmd(s *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage registered templates",
		Long: `Manage the site-wide template registry.

Templates are listed with the default first and the rest by name. The
position shown by 'template list' can be used wherever a name is accepted.`,
		Example: `  # Register a local template as the default
  amantmpl template add ~/templates/go-service --default

  # Register a template from a GitHub repository
  amantmpl template add github:acme/templates@v2:web --name web

  # Show registered templates
  amantmpl template list`,
	}

	cmd.AddCommand(newTemplateAddCmd(s))
	cmd.AddCommand(newTemplateRemoveCmd(s))
	cmd.AddCommand(newTemplateListCmd(s))
	cmd.AddCommand(newTemplateSetDefaultCmd(s))
	cmd.AddCommand(newTemplateNoDefaultCmd(s))
	cmd.AddCommand(newTemplateClearCmd(s))

	return cmd
}

func newTemplateAddCmd(s *cliState) *cobra.Command {
	var (
		name        string
		targetDir   string
		makeDefault bool
	)

	cmd := &cobra.Command{
		Use:   "add <location>",
		Short: "Register a template",
		Long: `Register a template.

The location is local:<path>, github:<owner>/<repo>[@ref][:<path>], or a plain
directory path. Relative local paths are stored as absolute paths. Without
--name the template is named after the last path segment.`,
		Args: exactArgs(1, "a template location"),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			contentLocation, err := normalizeLocation(args[0])
			if err != nil {
				return err
			}

			store, _, err := s.openStore()
			if err != nil {
				return err
			}

			var added definition.Record
			reg, err := store.Update(func(r *registry.Registry) error {
				added, err = r.Add(name, contentLocation, targetDir, makeDefault)
				return err
			})
			if err != nil {
				return err
			}

			out.Successf("Registered template %q", added.TemplateName)
			out.Statusf("📁", "Location: %s", added.ContentLocation)
			if def, ok := reg.Default(); ok && def.TemplateName == added.TemplateName {
				out.Status("⭐", "Default template")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Template name (default: last path segment)")
	cmd.Flags().StringVar(&targetDir, "target-dir", "", "Directory inside new projects that receives the template (default: .)")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "Make this the default template")

	return cmd
}

func newTemplateRemoveCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name|position>",
		Aliases: []string{"rm"},
		Short:   "Unregister a template",
		Args:    exactArgs(1, "a template name or position"),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			store, _, err := s.openStore()
			if err != nil {
				return err
			}

			var removed definition.Record
			reg, err := store.Update(func(r *registry.Registry) error {
				removed, err = r.Remove(registry.ParseIdentifier(args[0]))
				return err
			})
			if err != nil {
				return err
			}

			out.Successf("Removed template %q", removed.TemplateName)
			if removed.Default {
				if def, ok := reg.Default(); ok {
					out.Statusf("⭐", "Default template is now %q", def.TemplateName)
				}
			}
			return nil
		},
	}
}

func newTemplateListCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered templates",
		Args:    exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			store, _, err := s.openStore()
			if err != nil {
				return err
			}
			reg, err := store.Read()
			if err != nil {
				return err
			}

			if !reg.Configured {
				out.Status("📭", "No templates are configured")
				out.Status("💡", "Register one with 'amantmpl template add <location>'")
				return nil
			}
			if reg.Len() == 0 {
				out.Status("📭", "No templates are registered")
				return nil
			}

			order := registry.DisplayOrder(reg)
			rows := make([]output.TemplateRow, len(order))
			for i, rec := range order {
				rows[i] = output.TemplateRow{
					Position:  i + 1,
					Name:      rec.TemplateName,
					Location:  rec.ContentLocation,
					TargetDir: rec.TargetDir,
					Default:   rec.Default,
				}
			}
			out.Templates(rows)
			return nil
		},
	}
}

func newTemplateSetDefaultCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "setdefault <name|position>",
		Short: "Make a template the default",
		Args:  exactArgs(1, "a template name or position"),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			store, _, err := s.openStore()
			if err != nil {
				return err
			}

			var rec definition.Record
			if _, err := store.Update(func(r *registry.Registry) error {
				rec, err = r.SetDefault(registry.ParseIdentifier(args[0]))
				return err
			}); err != nil {
				return err
			}

			out.Successf("Default template is now %q", rec.TemplateName)
			return nil
		},
	}
}

func newTemplateNoDefaultCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "nodefault",
		Short: "Clear the default flag",
		Long: `Clear the default flag.

A registry with templates always has one default, so the first template in
the registry file becomes the default again.`,
		Args: exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			store, _, err := s.openStore()
			if err != nil {
				return err
			}
			reg, err := store.Update(func(r *registry.Registry) error {
				r.ClearDefault()
				return nil
			})
			if err != nil {
				return err
			}

			if def, ok := reg.Default(); ok {
				out.Successf("Default flag cleared; %q is the default again", def.TemplateName)
				return nil
			}
			out.Success("Default flag cleared")
			return nil
		},
	}
}

func newTemplateClearCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all templates",
		Long:  `Reset the registry and its backup to the unconfigured state.`,
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			store, _, err := s.openStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}

			out.Success("Template registry cleared")
			return nil
		},
	}
}

// normalizeLocation accepts a content location or a bare directory path and
// returns a content location whose local path is absolute.
func normalizeLocation(arg string) (string, error) {
	loc, err := location.Parse(arg)
	if err != nil {
		if !looksLikePath(arg) {
			return "", err
		}
		loc = location.Location{Type: location.TypeLocal, Path: arg}
	}

	if loc.Type == location.TypeLocal && !filepath.IsAbs(loc.Path) {
		abs, err := filepath.Abs(loc.Path)
		if err != nil {
			return "", amerrors.New(amerrors.ErrCodeInvalidInput, "cannot resolve template path", err)
		}
		loc.Path = abs
	}
	return loc.String(), nil
}

// looksLikePath reports whether arg has no scheme before its first path
// separator, or is a Windows drive path.
func looksLikePath(arg string) bool {
	i := strings.IndexAny(arg, ":/\\")
	return i < 0 || arg[i] != ':' || i == 1
}
