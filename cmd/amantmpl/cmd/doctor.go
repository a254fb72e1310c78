package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amantmpl/internal/preflight"
)

func newDoctorCmd(s *cliState) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, registry and git",
		Long: `Run health checks on the amantmpl installation.

A missing or corrupted registry is restored from its backup as part of the
check. The command fails when a required check fails.`,
		Args: exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			checker := preflight.New(
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithVerbose(verbose),
				preflight.WithLogger(s.logger),
			)
			results := checker.RunAll(cmd.Context())

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}
			return checker.Err(results)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}
