package parser

import (
	"context"

	"github.com/cybertec-postgresql/pgsplit/internal/scanner"
)

// Grammar checks one statement at a time.
//
// Implementations usually keep diagnostic state between calls (the last
// error, an aborted transaction). Reset clears that state; StatementScanner
// calls it immediately before every Parse, so a failure on one statement can
// never be reported against the next.
type Grammar interface {
	Reset(ctx context.Context) error
	Parse(ctx context.Context, sql string) (any, error)
}

// Classifier is implemented by grammars whose trees tell what kind of
// statement was parsed.
type Classifier interface {
	Classify(tree any) StatementType
}

// Outcome is the result of checking a statement
type Outcome int

const (
	OutcomeUnchecked Outcome = iota // no grammar configured
	OutcomeTree                     // the grammar accepted the statement
	OutcomeEmpty                    // nothing but comments and whitespace
	OutcomeError                    // the grammar rejected the statement
)

// String returns a string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchecked:
		return "unchecked"
	case OutcomeTree:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Statement is one statement of a script, with its COPY data if it has any
type Statement struct {
	Index      int    // 1-based position in the script
	Offset     int    // byte offset of Raw in the script
	TextOffset int    // byte offset of the first byte that is not whitespace or comment
	Line       int    // 1-indexed line of TextOffset
	EndLine    int    // 1-indexed line of the last byte of SQL or of the "\." line
	SQL        string // statement text, terminator and trailing newline included
	Payload    string // COPY data, without the "\." line
	Raw        string // everything the statement consumed, a blank tail at end of input included

	HasPayload bool
	Terminated bool // closed by ';'
	Empty      bool
	Copy       bool         // COPY … FROM STDIN
	CSV        bool         // COPY data declared as CSV
	Unclosed   scanner.Mode // construct left open at end of input
	Type       StatementType

	Tree any   // grammar result, nil unless Outcome is OutcomeTree
	Err  error // *errors.ParseError for rejected statements

	checked bool
	rawLine int // line of Offset
}

// Text returns SQL without the whitespace and comments before the statement
func (s *Statement) Text() string {
	return s.SQL[s.TextOffset-s.Offset:]
}

// Outcome reports how the statement was classified
func (s *Statement) Outcome() Outcome {
	switch {
	case s.Err != nil:
		return OutcomeError
	case s.Empty:
		return OutcomeEmpty
	case !s.checked:
		return OutcomeUnchecked
	default:
		return OutcomeTree
	}
}

// StatementType classifies SQL statements
type StatementType int

const (
	StmtUnknown     StatementType = iota
	StmtFunction                  // CREATE FUNCTION
	StmtProcedure                 // CREATE PROCEDURE
	StmtTrigger                   // CREATE TRIGGER
	StmtView                      // CREATE VIEW
	StmtDO                        // DO block
	StmtCopy                      // COPY
	StmtTransaction               // BEGIN, COMMIT, ROLLBACK, ...
	StmtOther                     // Any other statement
)

// String returns a string representation of StatementType
func (st StatementType) String() string {
	switch st {
	case StmtFunction:
		return "function"
	case StmtProcedure:
		return "procedure"
	case StmtTrigger:
		return "trigger"
	case StmtView:
		return "view"
	case StmtDO:
		return "do"
	case StmtCopy:
		return "copy"
	case StmtTransaction:
		return "transaction"
	case StmtOther:
		return "other"
	default:
		return "unknown"
	}
}
