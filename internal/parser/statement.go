package parser

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	"github.com/cybertec-postgresql/pgsplit/internal/scanner"
)

/*
 * StatementScanner turns a script into a sequence of Statements and, when a
 * Grammar is configured, checks each one.
 *
 * Every statement goes through the same steps: the boundary scanner finds
 * its extent, the grammar is reset, the statement text is parsed, and the
 * result is attached to the Statement before it is returned.  A grammar
 * failure is recorded on the Statement and scanning carries on with the
 * next one; the sequence only stops at end of input or when ctx is done.
 *
 * A StatementScanner is single-use and not safe for concurrent use.  Give
 * each goroutine its own scanner and its own Grammar.
 */
type StatementScanner struct {
	File string // reported in ParseErrors

	src     string
	grammar Grammar
	sc      *scanner.Scanner
	index   int
	err     error
	done    bool

	// line is the 1-based line number of byte lineAt
	line   int
	lineAt int
}

// NewStatementScanner returns a scanner over src. g may be nil, in which
// case statements are split but not checked.
func NewStatementScanner(src string, g Grammar) *StatementScanner {
	return &StatementScanner{
		src:     src,
		grammar: g,
		sc:      scanner.New(src),
		line:    1,
	}
}

// Next returns the next statement. It returns false at end of input or once
// ctx is done; Err tells the two apart.
func (s *StatementScanner) Next(ctx context.Context) (*Statement, bool) {
	if s.done {
		return nil, false
	}
	if err := ctx.Err(); err != nil {
		s.err = err
		s.done = true
		return nil, false
	}

	b, ok := s.sc.Next()
	if !ok {
		s.done = true
		return nil, false
	}
	s.index++

	rawLine := s.lineOf(b.Start)
	stmt := &Statement{
		Index:      s.index,
		Offset:     b.Start,
		TextOffset: b.TextStart,
		Line:       s.lineOf(b.TextStart),
		SQL:        s.src[b.Start:b.SQLEnd],
		Raw:        s.src[b.Start:b.End],
		HasPayload: b.HasPayload,
		Terminated: b.Terminated,
		Empty:      b.Empty,
		Copy:       b.Copy,
		CSV:        b.CSV,
		Unclosed:   b.Unclosed,
		Type:       classifyWords(b.Words),
	}
	if b.HasPayload {
		stmt.Payload = s.src[b.PayloadStart:b.PayloadEnd]
	}
	stmt.EndLine = s.lineOf(max(b.End-b.Tail-1, b.TextStart))
	stmt.rawLine = rawLine

	s.check(ctx, stmt)
	return stmt, true
}

// Err returns the context error that stopped the scan, if any.
func (s *StatementScanner) Err() error { return s.err }

// All returns an iterator over the remaining statements.
func (s *StatementScanner) All(ctx context.Context) iter.Seq[*Statement] {
	return func(yield func(*Statement) bool) {
		for {
			stmt, ok := s.Next(ctx)
			if !ok || !yield(stmt) {
				return
			}
		}
	}
}

// Split scans src to the end and returns every statement.
func Split(ctx context.Context, src string, g Grammar) []*Statement {
	var statements []*Statement
	for stmt := range NewStatementScanner(src, g).All(ctx) {
		statements = append(statements, stmt)
	}
	return statements
}

// check runs the grammar over one statement. Reset always comes first.
func (s *StatementScanner) check(ctx context.Context, stmt *Statement) {
	if stmt.Empty || s.grammar == nil {
		return
	}
	stmt.checked = true

	if err := s.grammar.Reset(ctx); err != nil {
		stmt.Err = fmt.Errorf("statement %d: reset grammar: %w", stmt.Index, err)
		return
	}
	tree, err := s.grammar.Parse(ctx, stmt.SQL)
	if err != nil {
		stmt.Err = s.parseError(stmt, err)
		return
	}
	stmt.Tree = tree
	if c, ok := s.grammar.(Classifier); ok {
		if t := c.Classify(tree); t != StmtUnknown {
			stmt.Type = t
		}
	}
}

// parseError converts a grammar error into a *errors.ParseError placed in
// the script. Grammars report positions as 1-based character offsets into
// the statement text.
func (s *StatementScanner) parseError(stmt *Statement, err error) error {
	pe := &errors.ParseError{Message: err.Error(), Err: err}
	var inner *errors.ParseError
	if stderrors.As(err, &inner) {
		copied := *inner
		pe = &copied
	}
	pe.File = s.File
	pe.Statement = stmt.Index

	if pe.Position > 0 {
		pe.Line, pe.Column = s.position(stmt, pe.Position)
	} else {
		pe.Line = stmt.Line
	}
	return pe
}

// position converts a 1-based character position inside stmt.SQL into an
// absolute 1-based line and column.
func (s *StatementScanner) position(stmt *Statement, pos int) (line, column int) {
	off := 0
	for i := 1; i < pos && off < len(stmt.SQL); i++ {
		_, size := utf8.DecodeRuneInString(stmt.SQL[off:])
		off += size
	}
	line = stmt.rawLine + strings.Count(stmt.SQL[:off], "\n")

	abs := stmt.Offset + off
	lineStart := strings.LastIndexByte(s.src[:abs], '\n') + 1
	column = utf8.RuneCountInString(s.src[lineStart:abs]) + 1
	return line, column
}

// lineOf returns the line of byte off. Offsets must not decrease between
// calls.
func (s *StatementScanner) lineOf(off int) int {
	if off > s.lineAt {
		s.line += strings.Count(s.src[s.lineAt:off], "\n")
		s.lineAt = off
	}
	return s.line
}
