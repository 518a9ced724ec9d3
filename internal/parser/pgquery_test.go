package parser

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	pgquery "github.com/pganalyze/pg_query_go/v6"
)

func TestPgQueryGrammar(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Outcome
	}{
		{"simple", "SELECT 1;", []Outcome{OutcomeTree}},
		{"null statement", ";", []Outcome{OutcomeEmpty}},
		{
			"five errors then success",
			"one;\n    two;\n    three;\n    four;\n    five;\n    SELECT 6;",
			[]Outcome{OutcomeError, OutcomeError, OutcomeError, OutcomeError, OutcomeError, OutcomeTree},
		},
		{
			"utf8",
			"SELECT 'aⓐ' ~ U&'a\\24D0' AS t;",
			[]Outcome{OutcomeTree},
		},
		{
			"quoted quotes",
			`select '(",a)'::textrange;select '(,,a)'::textrange;`,
			[]Outcome{OutcomeTree, OutcomeTree},
		},
		{
			"escaped quotes",
			"select 'is''t';select 'that';select 'special';",
			[]Outcome{OutcomeTree, OutcomeTree, OutcomeTree},
		},
		{"dollar quotes", "SELECT $a$dollar ;quotes$a$;", []Outcome{OutcomeTree}},
		{"unclosed comment", "SELECT 1 /* never closed", []Outcome{OutcomeError}},
		{"unclosed string", "SELECT 'abc", []Outcome{OutcomeError}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(context.Background(), tt.src, NewPgQueryGrammar())
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d statements, got %d", len(tt.want), len(got))
			}
			for i, s := range got {
				if s.Outcome() != tt.want[i] {
					t.Errorf("statement %d: expected %v, got %v (%v)", i+1, tt.want[i], s.Outcome(), s.Err)
				}
			}
		})
	}
}

func TestPgQueryTree(t *testing.T) {
	got := Split(context.Background(), "CREATE PROCEDURE p() LANGUAGE sql AS $$ SELECT 1 $$;", NewPgQueryGrammar())
	if len(got) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(got))
	}
	raw, ok := got[0].Tree.(*pgquery.RawStmt)
	if !ok {
		t.Fatalf("expected *pgquery.RawStmt, got %T", got[0].Tree)
	}
	if raw.GetStmt().GetCreateFunctionStmt() == nil {
		t.Errorf("expected CREATE FUNCTION node, got %v", raw.GetStmt())
	}
	if got[0].Type != StmtProcedure {
		t.Errorf("expected procedure, got %v", got[0].Type)
	}
}

func TestPgQueryErrorPosition(t *testing.T) {
	sc := NewStatementScanner("SELECT 1;\nSELECT 2;\nSELECT 1 FROM WHERE;\n", NewPgQueryGrammar())
	sc.File = "bad.sql"

	var failed *Statement
	for s := range sc.All(context.Background()) {
		if s.Err != nil {
			failed = s
		}
	}
	if failed == nil {
		t.Fatal("expected a failing statement")
	}
	var pe *errors.ParseError
	if !stderrors.As(failed.Err, &pe) {
		t.Fatalf("expected *errors.ParseError, got %T", failed.Err)
	}
	if pe.Statement != 3 || pe.Line != 3 {
		t.Errorf("expected statement 3 on line 3, got statement %d line %d", pe.Statement, pe.Line)
	}
	if pe.Column != 15 {
		t.Errorf(`expected column 15 ("WHERE"), got %d: %v`, pe.Column, pe)
	}
}

func TestPgQueryGrammarRequiresReset(t *testing.T) {
	ctx := context.Background()
	g := NewPgQueryGrammar()

	if _, err := g.Parse(ctx, "SELEC 1"); err == nil {
		t.Fatal("expected syntax error")
	}
	if g.LastError() == nil {
		t.Fatal("expected diagnostic to be kept")
	}
	if _, err := g.Parse(ctx, "SELECT 1"); err == nil {
		t.Error("expected stale diagnostic to block Parse")
	}
	if err := g.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if g.LastError() != nil {
		t.Error("expected Reset to clear diagnostic")
	}
	if _, err := g.Parse(ctx, "SELECT 1"); err != nil {
		t.Errorf("expected SELECT 1 to parse after Reset, got %v", err)
	}
}
