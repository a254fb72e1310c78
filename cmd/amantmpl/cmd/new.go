package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amantmpl/internal/location"
	"github.com/Aman-CERP/amantmpl/internal/merge"
	"github.com/Aman-CERP/amantmpl/internal/output"
	"github.com/Aman-CERP/amantmpl/internal/projectconfig"
	"github.com/Aman-CERP/amantmpl/internal/registry"
	"github.com/Aman-CERP/amantmpl/pkg/version"
)

func newNewCmd(s *cliState) *cobra.Command {
	var templateID string

	cmd := &cobra.Command{
		Use:   "new <project-dir>",
		Short: "Create a project from a template",
		Long: `Create a project from a registered template.

The project directory is created when it does not exist. Merging into an
existing project follows each piece's merge policy. A failed merge leaves
the files written so far in place; run the command again once the cause is
fixed.`,
		Example: `  # Use the default template
  amantmpl new ./my-service

  # Use the second template shown by 'amantmpl template list'
  amantmpl new ./my-service --template 2`,
		Args: exactArgs(1, "a project directory"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runNew(cmd, args[0], templateID)
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Template name or position (default: the default template)")

	return cmd
}

func (s *cliState) runNew(cmd *cobra.Command, projectDir, templateID string) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	store, cfg, err := s.openStore()
	if err != nil {
		return err
	}
	reg, err := store.Read()
	if err != nil {
		return err
	}
	rec, err := registry.Select(reg, registry.ParseIdentifier(templateID))
	if err != nil {
		return err
	}

	resolver := location.NewResolver(
		location.NewGitFetcher(cfg.Remote.GitBinary, cfg.Remote.GitHubURL, cfg.Remote.TempDir),
		cfg.Remote.CacheSize,
		location.WithLogger(s.logger),
	)
	defer func() { _ = resolver.Close() }()

	out.Statusf("📦", "Using template %q (%s)", rec.TemplateName, rec.ContentLocation)

	root, err := resolver.ResolvePinned(ctx, rec.Location, "")
	if err != nil {
		return err
	}
	content, err := merge.Load(root, rec.TargetDir)
	if err != nil {
		return err
	}

	engine := merge.NewEngine(merge.Options{
		Resolver:       resolver,
		Schema:         projectconfig.DefaultSchema(version.Version),
		ConfigFileName: cfg.Project.ConfigFile,
		Logger:         s.logger,
	})

	res, err := engine.Apply(ctx, content, projectDir)
	printMergeResult(out, res)
	if err != nil {
		if res != nil && len(res.Files) > 0 {
			out.Warningf("%d file(s) were written before the failure", len(res.Files))
		}
		return err
	}

	abs, _ := filepath.Abs(projectDir)
	out.Successf("Project ready at %s", abs)
	return nil
}

func printMergeResult(out *output.Writer, res *merge.Result) {
	if res == nil {
		return
	}
	for _, f := range res.Files {
		out.Statusf("", "%-10s  %s", f.Action, f.Path)
	}
	if res.Config != nil && !res.Config.Empty() {
		out.Statusf("📝", "Updated %s: %d added, %d overridden",
			filepath.Base(res.ConfigPath), len(res.Config.Added), len(res.Config.Overridden))
	}
}
