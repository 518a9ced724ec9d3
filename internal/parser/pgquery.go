package parser

import (
	"context"
	stderrors "errors"

	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	pgquery "github.com/pganalyze/pg_query_go/v6"
	pgparser "github.com/pganalyze/pg_query_go/v6/parser"
)

// PgQueryGrammar checks statements with the PostgreSQL raw parser linked
// in through pg_query. No server is needed.
//
// The tree of an accepted statement is its *pgquery.RawStmt, or nil when
// the text held no statement the parser could see.
type PgQueryGrammar struct {
	last *pgparser.Error // diagnostic of the previous Parse
}

// NewPgQueryGrammar returns a ready grammar.
func NewPgQueryGrammar() *PgQueryGrammar { return &PgQueryGrammar{} }

// Reset forgets the diagnostic left by the previous statement.
func (g *PgQueryGrammar) Reset(ctx context.Context) error {
	g.last = nil
	return nil
}

// Parse parses a single statement.
func (g *PgQueryGrammar) Parse(ctx context.Context, sql string) (any, error) {
	if g.last != nil {
		return nil, stderrors.New("pg_query grammar used without Reset")
	}
	result, err := pgquery.Parse(sql)
	if err != nil {
		pe := &errors.ParseError{Message: err.Error(), Err: err}
		var perr *pgparser.Error
		if stderrors.As(err, &perr) {
			g.last = perr
			pe.Message = perr.Message
			pe.Position = perr.Cursorpos
		} else {
			g.last = &pgparser.Error{Message: err.Error()}
		}
		return nil, pe
	}
	if len(result.Stmts) == 0 {
		return nil, nil
	}
	return result.Stmts[0], nil
}

// LastError returns the diagnostic of the last failed Parse since Reset.
func (g *PgQueryGrammar) LastError() *pgparser.Error { return g.last }

// Classify implements Classifier for *pgquery.RawStmt trees.
func (g *PgQueryGrammar) Classify(tree any) StatementType {
	raw, ok := tree.(*pgquery.RawStmt)
	if !ok || raw == nil {
		return StmtUnknown
	}
	return ClassifyStatement(raw.Stmt)
}

// ClassifyStatement determines the type of SQL statement
func ClassifyStatement(node *pgquery.Node) StatementType {
	if node == nil {
		return StmtUnknown
	}

	switch n := node.Node.(type) {
	case *pgquery.Node_CreateFunctionStmt:
		if n.CreateFunctionStmt.GetIsProcedure() {
			return StmtProcedure
		}
		return StmtFunction
	case *pgquery.Node_CreateTrigStmt:
		return StmtTrigger
	case *pgquery.Node_ViewStmt:
		return StmtView
	case *pgquery.Node_DoStmt:
		return StmtDO
	case *pgquery.Node_CopyStmt:
		return StmtCopy
	case *pgquery.Node_TransactionStmt:
		return StmtTransaction
	default:
		return StmtOther
	}
}
