package errors

import (
	"slices"
	"strings"
	"unicode"
)

// maxReportIDLength bounds report identifiers accepted from the API and CLI.
const maxReportIDLength = 128

// ValidateReportID validates a report identifier before it is used as a
// store key or cache scope.
//
// The rules are conservative:
//   - No empty IDs
//   - No control characters or whitespace
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateReportID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "report id cannot be empty")
	}
	if len(id) > maxReportIDLength {
		return New(ErrCodeInvalidInput, "report id too long (max %d characters)", maxReportIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "report id contains invalid characters")
		}
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "report id cannot contain path components: %q", id)
	}
	return nil
}

// ValidateFormats checks each requested output format against the supported set.
func ValidateFormats(formats, supported []string) error {
	if len(formats) == 0 {
		return New(ErrCodeInvalidFormat, "no output format requested")
	}
	for _, f := range formats {
		if !slices.Contains(supported, f) {
			return New(ErrCodeInvalidFormat, "unsupported format %q (supported: %s)", f, strings.Join(supported, ", "))
		}
	}
	return nil
}
