package integration_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cybertec-postgresql/pgsplit/internal/cli"
	"github.com/cybertec-postgresql/pgsplit/internal/database"
	"github.com/cybertec-postgresql/pgsplit/internal/report"
	"github.com/cybertec-postgresql/pgsplit/internal/runner"
	"github.com/cybertec-postgresql/pgsplit/internal/testutil"
	"github.com/cybertec-postgresql/pgsplit/pkg/types"
)

const (
	scriptsDir = "../testdata/scripts"
	brokenDir  = "../testdata/broken"
)

// runJSON runs one command with a JSON report and returns the exit code and report.
func runJSON(t *testing.T, mode runner.Mode, flags cli.Flags, inputs ...string) (int, *report.Document) {
	t.Helper()
	config := cli.DefaultConfig
	flags.Format = types.FormatJSON
	flags.Output = filepath.Join(t.TempDir(), "report.json")
	cli.ApplyFlagsToConfig(&config, flags)
	if err := config.Validate(); err != nil {
		t.Fatalf("invalid configuration: %v", err)
	}

	code, err := cli.Run(context.Background(), &config, mode, inputs)
	if err != nil {
		t.Fatalf("Run(%s) error = %v", mode, err)
	}

	data, err := os.ReadFile(config.Output)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var doc report.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON report: %v", err)
	}
	return code, &doc
}

func TestSplitSampleScripts(t *testing.T) {
	code, doc := runJSON(t, runner.ModeSplit, cli.Flags{Grammar: types.GrammarNone}, scriptsDir)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if len(doc.Files) != 3 {
		t.Fatalf("expected 3 scripts, got %d", len(doc.Files))
	}

	wantCounts := []int{3, 2, 3}
	for i, f := range doc.Files {
		if len(f.Statements) != wantCounts[i] {
			t.Errorf("%s: expected %d statements, got %d", f.Path, wantCounts[i], len(f.Statements))
		}
	}

	data := doc.Files[2]
	if p := data.Statements[0].Payload; p == nil || *p != "1\tnorth\n2\tsouth; east\n" {
		t.Errorf("unexpected text payload: %v", p)
	}
	if p := data.Statements[1].Payload; p == nil || *p != "10,1,\"bolt, large\"\n11,1,nut\n12,2,\"washer \"\"flat\"\"\"\n" {
		t.Errorf("unexpected csv payload: %v", p)
	}
	if data.Statements[2].Line != 10 {
		t.Errorf("expected last statement on line 10, got %d", data.Statements[2].Line)
	}

	functions := doc.Files[1]
	if functions.Statements[0].Type != "function" || functions.Statements[1].Type != "do" {
		t.Errorf("expected function then do, got %s and %s", functions.Statements[0].Type, functions.Statements[1].Type)
	}
}

func TestCheckSampleScripts(t *testing.T) {
	code, doc := runJSON(t, runner.ModeCheck, cli.Flags{ValidateCopy: true}, scriptsDir)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %+v", code, doc.Files)
	}
	for _, f := range doc.Files {
		for _, s := range f.Statements {
			if s.Outcome != "ok" {
				t.Errorf("%s statement %d: expected ok, got %s (%s)", f.Path, s.Index, s.Outcome, s.Error)
			}
		}
	}
}

func TestCheckBrokenScript(t *testing.T) {
	code, doc := runJSON(t, runner.ModeCheck, cli.Flags{}, brokenDir)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}

	outcomes := []string{"ok", "error", "ok", "error"}
	stmts := doc.Files[0].Statements
	if len(stmts) != len(outcomes) {
		t.Fatalf("expected %d statements, got %d", len(outcomes), len(stmts))
	}
	for i, want := range outcomes {
		if stmts[i].Outcome != want {
			t.Errorf("statement %d: expected %s, got %s (%s)", i+1, want, stmts[i].Outcome, stmts[i].Error)
		}
	}
	if stmts[3].Unclosed != "single-quoted string" {
		t.Errorf("expected statement 4 to end inside a quote, got %q", stmts[3].Unclosed)
	}
}

// TestOrderIndependence verifies that results do not depend on how many
// workers process the scripts
func TestOrderIndependence(t *testing.T) {
	_, sequential := runJSON(t, runner.ModeCheck, cli.Flags{Parallel: 1}, scriptsDir, brokenDir)
	_, parallel := runJSON(t, runner.ModeCheck, cli.Flags{Parallel: 4}, scriptsDir, brokenDir)

	if len(sequential.Files) != len(parallel.Files) {
		t.Fatalf("expected %d files, got %d", len(sequential.Files), len(parallel.Files))
	}
	for i := range sequential.Files {
		a, b := sequential.Files[i], parallel.Files[i]
		if a.Path != b.Path || a.Status != b.Status || len(a.Statements) != len(b.Statements) {
			t.Errorf("file %d differs: %s/%s vs %s/%s", i, a.Path, a.Status, b.Path, b.Status)
			continue
		}
		for j := range a.Statements {
			if a.Statements[j].Outcome != b.Statements[j].Outcome || a.Statements[j].Error != b.Statements[j].Error {
				t.Errorf("%s statement %d differs between runs", a.Path, j+1)
			}
		}
	}
}

func TestLoadSampleScripts(t *testing.T) {
	connString := testutil.PostgresConnString(t)

	code, doc := runJSON(t, runner.ModeLoad, cli.Flags{Connection: connString, SingleTransaction: true}, scriptsDir)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %+v", code, doc.Files)
	}
	for _, f := range doc.Files {
		if !f.Committed {
			t.Errorf("%s: expected committed transaction", f.Path)
		}
	}

	do := doc.Files[1].Statements[1]
	if len(do.Notices) != 1 || do.Notices[0] != "NOTICE: functions installed" {
		t.Errorf("expected notice from DO block, got %v", do.Notices)
	}
	copied := doc.Files[2].Statements[1]
	if copied.Rows == nil || *copied.Rows != 3 {
		t.Errorf("expected 3 copied items, got %v", copied.Rows)
	}

	pool, err := database.NewPool(context.Background(), &types.Config{ConnectionString: connString, Parallelism: 1})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Close()

	var label string
	if err := pool.QueryRow(context.Background(), "SELECT label FROM items WHERE id = 12").Scan(&label); err != nil {
		t.Fatalf("query: %v", err)
	}
	if label != `washer "flat"` {
		t.Errorf("expected label %q, got %q", `washer "flat"`, label)
	}
}

// TestScratchIsolation loads the same schema twice in parallel. Each copy
// gets its own database, so neither sees the other's tables.
func TestScratchIsolation(t *testing.T) {
	connString := testutil.PostgresConnString(t)

	schema, err := os.ReadFile(filepath.Join(scriptsDir, "001_schema.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	dir := t.TempDir()
	for _, name := range []string{"a.sql", "b.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), schema, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	code, doc := runJSON(t, runner.ModeLoad, cli.Flags{Connection: connString, Scratch: true, Parallel: 2}, dir)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %+v", code, doc.Files)
	}
	if doc.Files[0].Scratch == doc.Files[1].Scratch {
		t.Errorf("expected distinct scratch databases, both used %s", doc.Files[0].Scratch)
	}

	pool, err := database.NewPool(context.Background(), &types.Config{ConnectionString: connString, Parallelism: 1})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Close()

	for _, f := range doc.Files {
		exists, err := databaseExists(context.Background(), pool, f.Scratch)
		if err != nil {
			t.Fatalf("databaseExists: %v", err)
		}
		if exists {
			t.Errorf("expected %s to be dropped", f.Scratch)
		}
	}
}

// databaseExists checks if a database exists
func databaseExists(ctx context.Context, pool *database.Pool, dbName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	return exists, err
}
