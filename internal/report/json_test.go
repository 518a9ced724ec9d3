package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/database"
	"github.com/cybertec-postgresql/pgsplit/internal/discovery"
	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	"github.com/cybertec-postgresql/pgsplit/internal/parser"
	"github.com/cybertec-postgresql/pgsplit/internal/runner"
	"github.com/jackc/pgx/v5/pgconn"
)

// sampleRuns builds two script runs: one clean, one with a rejected statement.
func sampleRuns(t *testing.T) []*runner.FileRun {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	good := parser.Split(ctx, "SELECT 1;\nCOPY t FROM STDIN;\n1\n\\.\n", nil)
	bad := parser.Split(ctx, "SELECT 1;\nSELEC 2;\n", nil)
	bad[1].Err = &errors.ParseError{File: "b.sql", Statement: 2, Line: 2, Column: 1, Message: `syntax error at or near "SELEC"`}

	return []*runner.FileRun{
		{
			File:       &discovery.DiscoveredFile{RelativePath: "a.sql"},
			StartTime:  start,
			EndTime:    start.Add(5 * time.Millisecond),
			Status:     runner.RunPassed,
			Statements: good,
		},
		{
			File:       &discovery.DiscoveredFile{RelativePath: "b.sql"},
			StartTime:  start,
			EndTime:    start.Add(time.Millisecond),
			Status:     runner.RunFailed,
			Statements: bad,
		},
	}
}

func TestJSONReporter_Format(t *testing.T) {
	reporter := NewJSONReporter(runner.ModeCheck)

	var buf bytes.Buffer
	if err := reporter.Format(sampleRuns(t), &buf); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}

	if doc.Mode != "check" {
		t.Errorf("expected mode check, got %s", doc.Mode)
	}
	if doc.Summary.TotalFiles != 2 || doc.Summary.FailedFiles != 1 || doc.Summary.FailedStatements != 1 {
		t.Errorf("unexpected summary: %+v", doc.Summary)
	}
	if len(doc.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(doc.Files))
	}

	copyStmt := doc.Files[0].Statements[1]
	if copyStmt.Payload == nil || *copyStmt.Payload != "1\n" {
		t.Errorf("expected payload %q, got %v", "1\n", copyStmt.Payload)
	}
	if copyStmt.Type != "copy" {
		t.Errorf("expected type copy, got %s", copyStmt.Type)
	}
	if doc.Files[0].Statements[0].Payload != nil {
		t.Error("expected no payload on a plain statement")
	}

	failed := doc.Files[1].Statements[1]
	if failed.Outcome != "error" || !strings.Contains(failed.Error, "SELEC") {
		t.Errorf("expected rejected statement, got %+v", failed)
	}
	if doc.Files[1].DurationMS != 1 {
		t.Errorf("expected 1ms, got %d", doc.Files[1].DurationMS)
	}
}

func TestJSONReporter_Load(t *testing.T) {
	runs := sampleRuns(t)[:1]
	runs[0].Scratch = "pgsplit_scratch_x"
	runs[0].Load = &database.LoadResult{
		Executed: 2,
		Statements: []*database.StatementResult{
			{Index: 1, Tag: "SELECT 1", Rows: 1},
			{
				Index:   2,
				Err:     errors.NewLoadError("a.sql", 2, 2, &pgconn.PgError{Code: "42P01", Message: `relation "t" does not exist`}),
				Notices: []database.Notice{{Severity: "NOTICE", Message: "hello"}},
			},
		},
	}

	output, err := NewJSONReporter(runner.ModeLoad).FormatString(runs)
	if err != nil {
		t.Fatalf("FormatString failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}

	f := doc.Files[0]
	if f.Scratch != "pgsplit_scratch_x" {
		t.Errorf("expected scratch database, got %q", f.Scratch)
	}
	if f.Statements[0].Tag != "SELECT 1" || f.Statements[0].Rows == nil || *f.Statements[0].Rows != 1 {
		t.Errorf("expected tag and rows on statement 1, got %+v", f.Statements[0])
	}
	if !strings.Contains(f.Statements[1].Error, "42P01") {
		t.Errorf("expected load error on statement 2, got %q", f.Statements[1].Error)
	}
	if len(f.Statements[1].Notices) != 1 || f.Statements[1].Notices[0] != "NOTICE: hello" {
		t.Errorf("expected notice, got %v", f.Statements[1].Notices)
	}
}

func TestJSONReporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONReporter(runner.ModeSplit).Format(nil, &buf); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if doc.Files == nil || len(doc.Files) != 0 {
		t.Errorf("expected empty files array, got %v", doc.Files)
	}
}
