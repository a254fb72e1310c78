package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amantmpl/configs"
	"github.com/Aman-CERP/amantmpl/internal/config"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/amantmpl/config.yaml)
  3. Environment variables (AMANTMPL_*)`,
		Example: `  # Create user config from template
  amantmpl config init

  # Show effective configuration
  amantmpl config show

  # Print user config file path
  amantmpl config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file from a template.

The file is created at ~/.config/amantmpl/config.yaml (or
$XDG_CONFIG_HOME/amantmpl/config.yaml if XDG_CONFIG_HOME is set).
With --force an existing file is backed up and upgraded with settings it
lacks; values already set are kept.`,
		Args: exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upgrade an existing configuration with new defaults")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("📁", "Location: %s", configPath)
			out.Newline()
			out.Status("💡", "Use --force to upgrade with new defaults (preserves your settings)")
			return nil
		}
		return runConfigUpgrade(out, configPath)
	}

	if err := os.MkdirAll(config.GetUserConfigDir(), 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission,
			fmt.Sprintf("failed to create config directory %s", config.GetUserConfigDir()), err)
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission, "failed to write config file", err)
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Edit the file to customize settings")
	out.Status("", "  2. Run 'amantmpl config show' to verify")
	return nil
}

// runConfigUpgrade backs up the existing config, then fills settings it lacks.
func runConfigUpgrade(out *output.Writer, configPath string) error {
	backupPath, err := config.BackupUserConfig()
	if err != nil {
		return err
	}

	existing, err := config.LoadUserConfig()
	if err != nil {
		return err
	}
	if existing == nil {
		return amerrors.New(amerrors.ErrCodeConfigNotFound, "config file disappeared during upgrade", nil)
	}

	added := existing.MergeNewDefaults()
	if err := existing.WriteYAML(configPath); err != nil {
		return err
	}

	out.Success("Configuration upgraded")
	out.Statusf("📁", "Location: %s", configPath)
	out.Statusf("💾", "Backup: %s", backupPath)
	out.Newline()

	if len(added) > 0 {
		out.Status("✨", "New options added with defaults:")
		for _, field := range added {
			out.Statusf("", "  - %s", field)
		}
	} else {
		out.Status("✓", "Your configuration is already up to date")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg        *config.Config
		sourceDesc string
		err        error
	)

	switch source {
	case "merged":
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		sourceDesc = "merged (defaults + user + env)"

	case "user":
		cfg, err = config.LoadUserConfig()
		if err != nil {
			return err
		}
		if cfg == nil {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", config.GetUserConfigPath())
			out.Status("💡", "Run 'amantmpl config init' to create one")
			return nil
		}
		sourceDesc = fmt.Sprintf("user (%s)", config.GetUserConfigPath())

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return amerrors.Newf(amerrors.ErrCodeInvalidInput,
			"invalid source: %s (use: merged, user, defaults)", source)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeInternal, "failed to marshal config", err)
	}
	out.Statusf("📋", "Configuration source: %s", sourceDesc)
	out.Code(string(data))
	return nil
}
