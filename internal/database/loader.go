package database

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	"github.com/cybertec-postgresql/pgsplit/internal/logger"
	"github.com/cybertec-postgresql/pgsplit/internal/parser"
	"github.com/jackc/pgx/v5"
)

// savepointName is the savepoint that guards each statement when loading
// continues past errors inside a transaction.
const savepointName = "pgsplit_statement"

// LoadOptions controls how a script is executed
type LoadOptions struct {
	SingleTransaction bool // BEGIN before the first statement, COMMIT after the last
	ContinueOnError   bool // record failures and carry on
}

// StatementResult is what happened to one executed statement
type StatementResult struct {
	Index    int
	Line     int
	Tag      string // command tag, e.g. "INSERT 0 3"
	Rows     int64
	Duration time.Duration
	Notices  []Notice
	Err      *errors.LoadError
}

// LoadResult summarises a script execution
type LoadResult struct {
	File       string
	Statements []*StatementResult
	Executed   int
	Failed     int
	Skipped    int // empty statements
	Committed  bool
	Duration   time.Duration
}

// Loader executes scripts statement by statement on one connection
type Loader struct {
	conn    *pgx.Conn
	notices *Notices
	opts    LoadOptions
}

// NewLoader creates a loader that runs on conn. notices may be nil.
func NewLoader(conn *pgx.Conn, notices *Notices, opts LoadOptions) *Loader {
	return &Loader{conn: conn, notices: notices, opts: opts}
}

/*
 * Load executes statements in order.
 *
 * Statements with COPY data are streamed with the copy protocol; everything
 * else goes through the simple query protocol, one statement per round trip.
 * Without ContinueOnError the first failure stops the load and is returned.
 * With it, a failing statement inside an open transaction is rolled back to
 * a savepoint taken just before it, so the transaction stays usable for the
 * statements that follow.
 */
func (l *Loader) Load(ctx context.Context, file string, statements iter.Seq[*parser.Statement]) (*LoadResult, error) {
	start := time.Now()
	result := &LoadResult{File: file}
	defer func() { result.Duration = time.Since(start) }()

	if l.opts.SingleTransaction {
		if _, err := l.conn.Exec(ctx, "BEGIN"); err != nil {
			return result, errors.NewLoadError(file, 0, 0, fmt.Errorf("begin: %w", err))
		}
	}

	for stmt := range statements {
		if stmt.Empty {
			result.Skipped++
			continue
		}

		res := l.execute(ctx, file, stmt)
		result.Statements = append(result.Statements, res)
		result.Executed++

		if res.Err == nil {
			continue
		}
		result.Failed++
		logger.Debugf("%s:%d: %v", file, stmt.Line, res.Err)
		if !l.opts.ContinueOnError {
			l.abandon(ctx)
			return result, res.Err
		}
	}

	if l.opts.SingleTransaction {
		if _, err := l.conn.Exec(ctx, "COMMIT"); err != nil {
			return result, errors.NewLoadError(file, 0, 0, fmt.Errorf("commit: %w", err))
		}
		result.Committed = true
	}
	return result, ctx.Err()
}

// execute runs one statement, guarded by a savepoint when needed.
func (l *Loader) execute(ctx context.Context, file string, stmt *parser.Statement) *StatementResult {
	res := &StatementResult{Index: stmt.Index, Line: stmt.Line}
	begin := time.Now()

	guarded := l.opts.ContinueOnError && l.conn.PgConn().TxStatus() == 'T' && stmt.Type != parser.StmtTransaction
	if guarded {
		if _, err := l.conn.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
			res.Err = errors.NewLoadError(file, stmt.Index, stmt.Line, fmt.Errorf("savepoint: %w", err))
			return res
		}
	}

	err := l.run(ctx, stmt, res)
	res.Duration = time.Since(begin)
	if l.notices != nil {
		res.Notices = l.notices.Drain(l.conn.PgConn().PID())
	}

	switch {
	case err != nil:
		res.Err = errors.NewLoadError(file, stmt.Index, stmt.Line, err)
		if guarded {
			if _, rbErr := l.conn.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
				logger.Errorf("%s:%d: rollback to savepoint failed: %v", file, stmt.Line, rbErr)
			}
		}
	case guarded && l.conn.PgConn().TxStatus() == 'T':
		if _, relErr := l.conn.Exec(ctx, "RELEASE SAVEPOINT "+savepointName); relErr != nil {
			res.Err = errors.NewLoadError(file, stmt.Index, stmt.Line, fmt.Errorf("release savepoint: %w", relErr))
		}
	}
	return res
}

func (l *Loader) run(ctx context.Context, stmt *parser.Statement, res *StatementResult) error {
	if stmt.Copy {
		// A COPY at the very end of a script has no data lines: send none.
		tag, err := l.conn.PgConn().CopyFrom(ctx, strings.NewReader(stmt.Payload), stmt.SQL)
		res.Tag, res.Rows = tag.String(), tag.RowsAffected()
		return err
	}
	tag, err := l.conn.Exec(ctx, stmt.SQL)
	res.Tag, res.Rows = tag.String(), tag.RowsAffected()
	return err
}

func (l *Loader) inTransaction() bool {
	switch l.conn.PgConn().TxStatus() {
	case 'T', 'E':
		return true
	default:
		return false
	}
}

// abandon rolls back whatever transaction a failed load left open.
func (l *Loader) abandon(ctx context.Context) {
	if !l.inTransaction() {
		return
	}
	if _, err := l.conn.Exec(ctx, "ROLLBACK"); err != nil {
		logger.Errorf("rollback failed: %v", err)
	}
}
