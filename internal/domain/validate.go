package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLength = 200
	maxBodyLength  = 20000
	minMood        = 1
	maxMood        = 10
)

// ValidateJournalEntry enforces baseline journal input policy before any
// encryption or persistence work is spent on the request.
func ValidateJournalEntry(title, body string, mood int) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: title must be <= %d characters", ErrInvalidInput, maxTitleLength)
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return fmt.Errorf("%w: body must be <= %d characters", ErrInvalidInput, maxBodyLength)
	}
	if mood < minMood || mood > maxMood {
		return fmt.Errorf("%w: mood must be between %d and %d", ErrInvalidInput, minMood, maxMood)
	}
	return nil
}

// ValidateExportFormat restricts exports to the supported renderers.
func ValidateExportFormat(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case ExportFormatJSON, ExportFormatCSV:
		return normalized, nil
	case "":
		return ExportFormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", ErrInvalidInput, format)
	}
}
