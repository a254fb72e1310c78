// Package errors provides structured error handling for amantmpl.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (registry file, project files)
//   - 3XX: Network errors (remote template fetch)
//   - 4XX: Validation errors (definition files)
//   - 5XX: Internal errors
//   - 6XX: Lookup errors (template selection)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates definition validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryLookup indicates a template could not be selected.
	CategoryLookup Category = "LOOKUP"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the caller may recover.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound       = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission     = "ERR_202_FILE_PERMISSION"
	ErrCodeRegistryCorrupted  = "ERR_205_REGISTRY_CORRUPTED"
	ErrCodeRegistryWrite      = "ERR_206_REGISTRY_WRITE"
	ErrCodeMergeFailed        = "ERR_207_MERGE_FAILED"
	ErrCodeProjectConfigWrite = "ERR_208_PROJECT_CONFIG_WRITE"

	// Network errors (300-399)
	ErrCodeRemoteFetchFailed = "ERR_301_REMOTE_FETCH_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidTemplateType   = "ERR_401_INVALID_TEMPLATE_TYPE"
	ErrCodeInvalidMergeType      = "ERR_402_INVALID_MERGE_TYPE"
	ErrCodeInvalidLocationType   = "ERR_403_INVALID_LOCATION_TYPE"
	ErrCodeMissingRequiredField  = "ERR_404_MISSING_REQUIRED_FIELD"
	ErrCodeDuplicateTemplateName = "ERR_405_DUPLICATE_TEMPLATE_NAME"
	ErrCodeMalformedDefinition   = "ERR_406_MALFORMED_DEFINITION"
	ErrCodeInvalidInput          = "ERR_407_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal    = "ERR_501_INTERNAL"
	ErrCodeCheckFailed = "ERR_502_CHECK_FAILED"

	// Lookup errors (600-699)
	ErrCodeNoDefaultTemplate       = "ERR_601_NO_DEFAULT_TEMPLATE"
	ErrCodeTemplateNotFound        = "ERR_602_TEMPLATE_NOT_FOUND"
	ErrCodeTemplateIndexOutOfRange = "ERR_603_TEMPLATE_INDEX_OUT_OF_RANGE"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "401" from "ERR_401_INVALID_TEMPLATE_TYPE")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '6':
		return CategoryLookup
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Malformed definitions, merge failures and corrupted registries abort the
// operation; lookup errors can be retried by the caller with another id.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeRegistryCorrupted, ErrCodeMergeFailed:
		return SeverityFatal
	}

	switch categoryFromCode(code) {
	case CategoryValidation:
		return SeverityFatal
	case CategoryLookup:
		return SeverityError
	}

	return SeverityError
}
