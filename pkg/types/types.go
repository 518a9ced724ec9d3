package types

import (
	"fmt"
	"strings"
	"time"
)

// Grammar names accepted by Config.Grammar
const (
	GrammarPgQuery = "pgquery" // in-process parser
	GrammarServer  = "server"  // ask the server to describe each statement
	GrammarNone    = "none"    // split only
)

// Report formats accepted by Config.Format
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds runtime configuration combining flags, environment variables, and defaults
type Config struct {
	// PostgreSQL connection, URI or key=value; PG* environment variables fill the gaps
	ConnectionString string

	// Checking
	Grammar      string // GrammarPgQuery, GrammarServer or GrammarNone
	ValidateCopy bool   // check CSV COPY data

	// Execution
	Timeout     time.Duration // Per-file timeout, 0 = none
	Parallelism int           // Max concurrent files (1 = sequential)

	// Loading
	SingleTransaction bool // wrap each file in one transaction
	ContinueOnError   bool // keep going after a failed statement
	Scratch           bool // load into a throwaway database

	// Output
	Format  string // FormatText or FormatJSON
	Output  string // "-" for stdout, a path, or an s3:// URL
	Verbose bool   // Enable debug logging

	// S3 access for s3:// inputs and outputs; empty values fall back to the
	// default AWS credential chain
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Validate checks the configuration for values no command can work with
func (c *Config) Validate() error {
	switch c.Grammar {
	case GrammarPgQuery, GrammarServer, GrammarNone:
	default:
		return &ConfigError{
			Field:      "grammar",
			Value:      c.Grammar,
			Message:    fmt.Sprintf("unknown grammar: %q", c.Grammar),
			Suggestion: fmt.Sprintf("Use one of: %s, %s, %s.", GrammarPgQuery, GrammarServer, GrammarNone),
		}
	}

	// An empty ConnectionString is valid for every grammar: pgx fills it
	// from PGHOST, PGPORT, PGUSER, PGDATABASE and the other PG* variables.

	if c.Timeout < 0 {
		return &ConfigError{
			Field:      "timeout",
			Value:      c.Timeout,
			Message:    fmt.Sprintf("invalid timeout: %v", c.Timeout),
			Suggestion: "Timeout must be zero (no limit) or a positive duration such as 30s or 5m.",
		}
	}

	if c.Parallelism < 1 || c.Parallelism > 100 {
		return &ConfigError{
			Field:      "parallel",
			Value:      c.Parallelism,
			Message:    fmt.Sprintf("invalid parallelism: %d", c.Parallelism),
			Suggestion: "Parallelism must be between 1 and 100.",
		}
	}

	if c.SingleTransaction && c.ContinueOnError {
		return &ConfigError{
			Field:      "continue-on-error",
			Value:      c.ContinueOnError,
			Message:    "--continue-on-error cannot be combined with --single-transaction",
			Suggestion: "A failed statement rolls back the whole transaction; drop one of the two flags.",
		}
	}

	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return &ConfigError{
			Field:      "format",
			Value:      c.Format,
			Message:    fmt.Sprintf("unsupported format: %q", c.Format),
			Suggestion: fmt.Sprintf("Use %s or %s.", FormatText, FormatJSON),
		}
	}

	if c.Output == "" {
		return &ConfigError{
			Field:      "output",
			Value:      c.Output,
			Message:    "output path is empty",
			Suggestion: "Use - for stdout, a file path, or an s3://bucket/key URL.",
		}
	}

	if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
		return &ConfigError{
			Field:      "s3-access-key",
			Message:    "S3 access key and secret key must be given together",
			Suggestion: "Set both --s3-access-key and --s3-secret-key, or neither to use the default AWS credential chain.",
		}
	}

	return nil
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s: %s", e.Field, e.Message)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\nSuggestion: %s", e.Suggestion)
	}
	return b.String()
}
