package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cybertec-postgresql/pgsplit/internal/report"
	"github.com/cybertec-postgresql/pgsplit/internal/runner"
	"github.com/cybertec-postgresql/pgsplit/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readReport(t *testing.T, path string) *report.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc report.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid report: %v", err)
	}
	return &doc
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scripts", "001_schema.sql"), "CREATE TABLE t (id int);\nCOPY t FROM STDIN;\n1\n\\.\n")
	writeFile(t, filepath.Join(dir, "scripts", "002_broken.sql"), "SELECT 1;\nSELECT FROM FROM;\nSELECT 2;\n")
	writeFile(t, filepath.Join(dir, "scripts", "notes.txt"), "not sql")

	cfg := DefaultConfig
	ApplyFlagsToConfig(&cfg, Flags{Format: types.FormatJSON, Output: filepath.Join(dir, "report.json"), Parallel: 2})

	code, err := Run(context.Background(), &cfg, runner.ModeCheck, []string{filepath.Join(dir, "scripts")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}

	doc := readReport(t, cfg.Output)
	if len(doc.Files) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(doc.Files))
	}
	if doc.Files[0].Status != "passed" || doc.Files[1].Status != "failed" {
		t.Errorf("expected passed then failed, got %s and %s", doc.Files[0].Status, doc.Files[1].Status)
	}
	if doc.Summary.FailedStatements != 1 {
		t.Errorf("expected 1 failed statement, got %d", doc.Summary.FailedStatements)
	}
}

func TestRunSplit(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "one.sql")
	writeFile(t, script, "SELECT 1; SELECT 2;\n")

	cfg := DefaultConfig
	ApplyFlagsToConfig(&cfg, Flags{Grammar: types.GrammarNone, Output: filepath.Join(dir, "out.sql")})

	code, err := Run(context.Background(), &cfg, runner.ModeSplit, []string{script})
	if err != nil || code != 0 {
		t.Fatalf("Run() = %d, %v", code, err)
	}

	out, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	name := filepath.ToSlash(script)
	want := "-- " + name + ":1 statement 1 (other)\nSELECT 1; \n-- " + name + ":1 statement 2 (other)\nSELECT 2;\n"
	if got := string(out); got != want {
		t.Errorf("expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestRunNoScripts(t *testing.T) {
	cfg := DefaultConfig
	code, err := Run(context.Background(), &cfg, runner.ModeCheck, []string{t.TempDir()})
	if err != nil || code != 0 {
		t.Errorf("expected 0, nil for an empty directory, got %d, %v", code, err)
	}
}

func TestRunMissingInput(t *testing.T) {
	cfg := DefaultConfig
	code, err := Run(context.Background(), &cfg, runner.ModeCheck, []string{filepath.Join(t.TempDir(), "nope.sql")})
	if err == nil || code != 1 {
		t.Errorf("expected exit code 1 with an error, got %d, %v", code, err)
	}
}
