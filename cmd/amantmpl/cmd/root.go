// Package cmd provides the CLI commands for amantmpl.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amantmpl/internal/config"
	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
	"github.com/Aman-CERP/amantmpl/internal/logging"
	"github.com/Aman-CERP/amantmpl/internal/registry"
	"github.com/Aman-CERP/amantmpl/pkg/version"
)

// cliState is shared by the commands of one invocation.
type cliState struct {
	debug   bool
	logger  *slog.Logger
	cleanup func()
}

// close releases the log file, if one was opened.
func (s *cliState) close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// NewRootCmd creates the root command for amantmpl CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&cliState{})
}

func newRootCmd(s *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amantmpl",
		Short: "Project templates with merge policies",
		Long: `amantmpl keeps a registry of project templates and creates projects
from them.

A template is a directory, local or in a GitHub repository. Simple templates
are copied as they are. Advanced templates carry a template.def that places
each piece under a target directory with an overwrite, append or duplicate
merge policy.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s.setupLogging(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.SetVersionTemplate("amantmpl version {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return amerrors.New(amerrors.ErrCodeInvalidInput, err.Error(), nil).
			WithSuggestion("Run 'amantmpl --help' for usage")
	})

	cmd.PersistentFlags().BoolVar(&s.debug, "debug", false, "Enable debug logging to ~/.amantmpl/logs/ and stderr")

	cmd.AddCommand(newTemplateCmd(s))
	cmd.AddCommand(newNewCmd(s))
	cmd.AddCommand(newDoctorCmd(s))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging installs the invocation logger. Log records go to the
// rotating log file at the configured level; --debug lowers the level to
// debug and mirrors records to stderr. When the config or the log file
// cannot be used, only warnings reach stderr.
func (s *cliState) setupLogging(stderr io.Writer) {
	s.logger = logging.NewStderrLogger(stderr)

	level := "info"
	if cfg, err := config.Load(); err == nil {
		level = cfg.Logging.Level
	}
	if s.debug {
		level = "debug"
	}

	logCfg := logging.DefaultConfig(level)
	logCfg.WriteToStderr = s.debug
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		s.logger.Warn("file logging disabled", slog.String("error", err.Error()))
	} else {
		s.logger = logger
		s.cleanup = cleanup
	}

	slog.SetDefault(s.logger)
	s.logger.Debug("amantmpl started", slog.String("version", version.Version))
}

// loadConfig loads the effective configuration.
func (s *cliState) loadConfig() (*config.Config, error) {
	return config.Load()
}

// openStore builds the registry store from the configuration.
func (s *cliState) openStore() (*registry.Store, *config.Config, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := registry.NewStore(registry.Options{
		Path:         cfg.Registry.Path,
		BackupPath:   cfg.Registry.BackupPath,
		CreateBackup: cfg.BackupEnabled(),
		LockTimeout:  cfg.LockTimeoutDuration(),
		Logger:       s.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// exactArgs is cobra.ExactArgs with a structured error.
func exactArgs(n int, what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == n {
			return nil
		}
		msg := fmt.Sprintf("%s requires %s", cmd.CommandPath(), what)
		if len(args) > n {
			msg = fmt.Sprintf("%s accepts %d argument(s), got %d", cmd.CommandPath(), n, len(args))
		}
		return amerrors.New(amerrors.ErrCodeInvalidInput, msg, nil).
			WithSuggestion(fmt.Sprintf("Usage: %s", cmd.UseLine()))
	}
}

// run executes the CLI with args and reports errors on stderr.
func run(args []string, stdout, stderr io.Writer) error {
	s := &cliState{}
	defer s.close()

	root := newRootCmd(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("command failed", amerrors.FormatForLog(err)...)
		}
		_, _ = fmt.Fprint(stderr, amerrors.FormatForCLI(err))
	}
	return err
}

// Execute runs the root command.
func Execute() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}
