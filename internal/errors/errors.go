package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParseError represents a statement the grammar rejected
type ParseError struct {
	File      string
	Statement int // 1-based index of the statement in its file
	Line      int // 1-based, 0 when the grammar reported no position
	Column    int
	Position  int    // 1-based character position inside the statement
	Code      string // SQLSTATE, when the grammar reports one
	Message   string
	Err       error
}

func (e *ParseError) Error() string {
	loc := e.File
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", loc, e.Line, e.Column)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: statement %d: %s (SQLSTATE %s)", loc, e.Statement, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: statement %d: %s", loc, e.Statement, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a new ParseError
func NewParseError(file string, statement, line, column int, message string) *ParseError {
	return &ParseError{
		File:      file,
		Statement: statement,
		Line:      line,
		Column:    column,
		Message:   message,
	}
}

// ConnectionError represents PostgreSQL connection failure
type ConnectionError struct {
	Message    string
	Suggestion string
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("failed to connect to PostgreSQL: %s (%s)", e.Message, e.Suggestion)
	}
	return fmt.Sprintf("failed to connect to PostgreSQL: %s", e.Message)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError creates a new ConnectionError
func NewConnectionError(message, suggestion string, err error) *ConnectionError {
	return &ConnectionError{
		Message:    message,
		Suggestion: suggestion,
		Err:        err,
	}
}

// LoadError represents a statement that failed while a script was executed
type LoadError struct {
	File      string
	Statement int
	Line      int
	SQLError  *pgconn.PgError // PostgreSQL error details
	Err       error
}

func (e *LoadError) Error() string {
	if e.SQLError != nil {
		return fmt.Sprintf("%s:%d: statement %d failed: [%s] %s",
			e.File, e.Line, e.Statement, e.SQLError.Code, e.SQLError.Message)
	}
	return fmt.Sprintf("%s:%d: statement %d failed: %v", e.File, e.Line, e.Statement, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError creates a new LoadError. err may carry a *pgconn.PgError.
func NewLoadError(file string, statement, line int, err error) *LoadError {
	le := &LoadError{
		File:      file,
		Statement: statement,
		Line:      line,
		Err:       err,
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		le.SQLError = pgErr
	}
	return le
}

// SourceError represents an input or output location that could not be used
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError creates a new SourceError
func NewSourceError(path string, err error) *SourceError {
	return &SourceError{Path: path, Err: err}
}
