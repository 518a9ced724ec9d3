package cli

import (
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/source"
	"github.com/cybertec-postgresql/pgsplit/pkg/types"
)

// Config is an alias for the shared Config type
type Config = types.Config

// ConfigError is an alias for the shared ConfigError type
type ConfigError = types.ConfigError

// DefaultConfig provides default configuration values. Copy it before
// applying flags.
var DefaultConfig = Config{
	ConnectionString: "",
	Grammar:          types.GrammarPgQuery,
	Timeout:          0,
	Parallelism:      1,
	Format:           types.FormatText,
	Output:           source.Stdio,
	Verbose:          false,
}

// Flags holds the command-line values that override DefaultConfig. Zero
// values leave the default in place, except for the booleans.
type Flags struct {
	Connection        string
	Grammar           string
	Timeout           time.Duration
	Parallel          int
	Format            string
	Output            string
	ValidateCopy      bool
	SingleTransaction bool
	ContinueOnError   bool
	Scratch           bool
	Verbose           bool

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// ApplyFlagsToConfig applies command-line flag values to configuration
func ApplyFlagsToConfig(c *Config, f Flags) {
	if f.Connection != "" {
		c.ConnectionString = f.Connection
	}
	if f.Grammar != "" {
		c.Grammar = f.Grammar
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.Parallel != 0 {
		c.Parallelism = f.Parallel
	}
	if f.Format != "" {
		c.Format = f.Format
	}
	if f.Output != "" {
		c.Output = f.Output
	}
	if f.S3Region != "" {
		c.S3Region = f.S3Region
	}
	if f.S3Endpoint != "" {
		c.S3Endpoint = f.S3Endpoint
	}
	if f.S3AccessKey != "" {
		c.S3AccessKey = f.S3AccessKey
	}
	if f.S3SecretKey != "" {
		c.S3SecretKey = f.S3SecretKey
	}
	c.ValidateCopy = f.ValidateCopy
	c.SingleTransaction = f.SingleTransaction
	c.ContinueOnError = f.ContinueOnError
	c.Scratch = f.Scratch
	c.Verbose = f.Verbose
}
