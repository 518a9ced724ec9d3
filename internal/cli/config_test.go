package cli

import (
	"context"
	"testing"
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/parser"
	"github.com/cybertec-postgresql/pgsplit/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig

	if cfg.Grammar != types.GrammarPgQuery {
		t.Errorf("expected default grammar %q, got %q", types.GrammarPgQuery, cfg.Grammar)
	}
	if cfg.Parallelism != 1 {
		t.Errorf("expected default parallelism 1, got %d", cfg.Parallelism)
	}
	if cfg.Format != types.FormatText || cfg.Output != "-" {
		t.Errorf("expected text to stdout, got %s to %s", cfg.Format, cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestApplyFlagsToConfig(t *testing.T) {
	cfg := DefaultConfig
	ApplyFlagsToConfig(&cfg, Flags{
		Connection:      "postgres://flaghost/db",
		Grammar:         types.GrammarServer,
		Timeout:         time.Minute,
		Parallel:        4,
		Format:          types.FormatJSON,
		Output:          "report.json",
		ContinueOnError: true,
		Scratch:         true,
		Verbose:         true,
		S3Endpoint:      "http://localhost:9000",
	})

	if cfg.ConnectionString != "postgres://flaghost/db" {
		t.Errorf("expected connection from flag, got '%s'", cfg.ConnectionString)
	}
	if cfg.Grammar != types.GrammarServer {
		t.Errorf("expected grammar server, got %s", cfg.Grammar)
	}
	if cfg.Timeout != time.Minute || cfg.Parallelism != 4 {
		t.Errorf("expected 1m and 4 workers, got %v and %d", cfg.Timeout, cfg.Parallelism)
	}
	if cfg.Format != types.FormatJSON || cfg.Output != "report.json" {
		t.Errorf("expected json to report.json, got %s to %s", cfg.Format, cfg.Output)
	}
	if !cfg.ContinueOnError || !cfg.Scratch || !cfg.Verbose || cfg.SingleTransaction {
		t.Errorf("unexpected boolean flags: %+v", cfg)
	}
	if cfg.S3Endpoint != "http://localhost:9000" {
		t.Errorf("expected S3 endpoint from flag, got '%s'", cfg.S3Endpoint)
	}

	// DefaultConfig itself is untouched
	if DefaultConfig.Parallelism != 1 {
		t.Errorf("expected DefaultConfig to be unchanged, got parallelism %d", DefaultConfig.Parallelism)
	}
}

func TestApplyFlagsToConfig_ZeroValuesKeepDefaults(t *testing.T) {
	cfg := DefaultConfig
	ApplyFlagsToConfig(&cfg, Flags{})

	if cfg.Grammar != DefaultConfig.Grammar || cfg.Parallelism != DefaultConfig.Parallelism || cfg.Output != DefaultConfig.Output {
		t.Errorf("expected defaults to survive empty flags, got %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"unknown grammar", func(c *Config) { c.Grammar = "yacc" }, "grammar"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"zero workers", func(c *Config) { c.Parallelism = 0 }, "parallel"},
		{"conflicting load options", func(c *Config) { c.SingleTransaction, c.ContinueOnError = true, true }, "continue-on-error"},
		{"unknown format", func(c *Config) { c.Format = "html" }, "format"},
		{"empty output", func(c *Config) { c.Output = "" }, "output"},
		{"half S3 credentials", func(c *Config) { c.S3AccessKey = "AKIA" }, "s3-access-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig
			tt.edit(&cfg)

			err := cfg.Validate()
			ce, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
			}
			if ce.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ce.Field)
			}
		})
	}
}

func TestGrammarFactory(t *testing.T) {
	ctx := context.Background()

	g, release, err := GrammarFactory(types.GrammarPgQuery, nil)(ctx)
	if err != nil {
		t.Fatalf("pgquery factory error = %v", err)
	}
	release()
	if _, ok := g.(*parser.PgQueryGrammar); !ok {
		t.Errorf("expected *parser.PgQueryGrammar, got %T", g)
	}

	g, release, err = GrammarFactory(types.GrammarNone, nil)(ctx)
	if err != nil || g != nil {
		t.Errorf("expected no grammar, got %T, %v", g, err)
	}
	release()

	if _, _, err := GrammarFactory(types.GrammarServer, nil)(ctx); err == nil {
		t.Error("expected server grammar without a pool to fail")
	}
}

func TestConfigValidateServerGrammarWithoutConnection(t *testing.T) {
	cfg := DefaultConfig
	cfg.Grammar = types.GrammarServer

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected PG* environment variables to stand in for --connection, got %v", err)
	}
}
