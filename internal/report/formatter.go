package report

import (
	"fmt"
	"io"

	"github.com/cybertec-postgresql/pgsplit/internal/runner"
)

// Formatter is an interface for run report formatters
type Formatter interface {
	// Format formats script runs and writes to the writer
	Format(runs []*runner.FileRun, writer io.Writer) error

	// FormatString returns script runs as a string
	FormatString(runs []*runner.FileRun) (string, error)

	// Name returns the name of this formatter
	Name() string
}

// FormatType represents supported report formats
type FormatType string

const (
	FormatText FormatType = "text"
	FormatJSON FormatType = "json"
)

// GetFormatter returns a formatter for the specified format type. mode
// decides what a run is reported as.
func GetFormatter(format FormatType, mode runner.Mode) (Formatter, error) {
	switch format {
	case FormatText:
		return NewTextReporter(mode), nil
	case FormatJSON:
		return NewJSONReporter(mode), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: text, json)", format)
	}
}

// FormatToWriter formats script runs to a writer using the specified format
func FormatToWriter(runs []*runner.FileRun, format FormatType, mode runner.Mode, writer io.Writer) error {
	formatter, err := GetFormatter(format, mode)
	if err != nil {
		return err
	}
	return formatter.Format(runs, writer)
}

// ValidFormat checks if a format string is valid
func ValidFormat(format string) bool {
	switch FormatType(format) {
	case FormatText, FormatJSON:
		return true
	default:
		return false
	}
}

// SupportedFormats returns a list of supported format names
func SupportedFormats() []string {
	return []string{string(FormatText), string(FormatJSON)}
}
