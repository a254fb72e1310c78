package errors

import (
	"fmt"
	"sort"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display. Structured errors
// show their message, hint and code; anything else is shown as an internal
// error so raw library text never reaches the user unlabelled.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ae, ok := As(err)
	if !ok {
		ae = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", ae.Message))

	if ae.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ae.Suggestion))
	}

	sb.WriteString(fmt.Sprintf("  Code: %s\n", ae.Code))

	return sb.String()
}

// FormatForLog formats an error for structured logging.
// Returns alternating key-value pairs suitable for slog.Logger methods.
func FormatForLog(err error) []any {
	if err == nil {
		return nil
	}

	ae, ok := As(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", ae.Code,
		"message", ae.Message,
		"category", string(ae.Category),
		"severity", string(ae.Severity),
	}

	if ae.Cause != nil {
		attrs = append(attrs, "cause", ae.Cause.Error())
	}

	// Details are emitted in key order so log lines are stable
	keys := make([]string, 0, len(ae.Details))
	for k := range ae.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, "detail_"+k, ae.Details[k])
	}

	return attrs
}
