// Package preflight provides the health checks behind 'amantmpl doctor'.
//
// The package validates:
//   - Configuration validity
//   - Write permissions in the registry directory
//   - Registry readability (restoring from the backup when needed)
//   - Registry backup presence
//   - Availability of the git binary used for github: templates
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
