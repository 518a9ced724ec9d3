package database

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

/*
 * ServerGrammar checks statements by asking the server to parse and describe
 * them, without executing anything.
 *
 * Describing happens inside a transaction the grammar owns, so that catalog
 * lookups see a consistent snapshot and nothing a statement might lock
 * outlives the check.  A failed describe leaves that transaction aborted and
 * every later describe on the connection would fail with "current
 * transaction is aborted"; Reset rolls back and starts over, which is why it
 * has to run before each statement.
 *
 * The server resolves names as well as syntax: a statement that refers to a
 * table the script creates earlier fails here unless that table already
 * exists.
 */
type ServerGrammar struct {
	conn *pgxpool.Conn
}

// NewServerGrammar reserves a connection from pool for the grammar. Close
// gives it back.
func NewServerGrammar(ctx context.Context, pool *Pool) (*ServerGrammar, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errors.NewConnectionError(
			fmt.Sprintf("failed to acquire connection: %v", err), "", err)
	}
	return &ServerGrammar{conn: conn}, nil
}

func (g *ServerGrammar) pgConn() *pgconn.PgConn {
	return g.conn.Conn().PgConn()
}

// Reset discards whatever the previous statement left behind and opens a
// fresh transaction.
func (g *ServerGrammar) Reset(ctx context.Context) error {
	pc := g.pgConn()
	if pc.TxStatus() != 'I' {
		if err := pc.Exec(ctx, "ROLLBACK").Close(); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	}
	if err := pc.Exec(ctx, "BEGIN READ ONLY").Close(); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	return nil
}

// Parse describes sql as an unnamed prepared statement. The tree is the
// *pgconn.StatementDescription.
func (g *ServerGrammar) Parse(ctx context.Context, sql string) (any, error) {
	sd, err := g.pgConn().Prepare(ctx, "", sql, nil)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) {
			return nil, &errors.ParseError{
				Position: int(pgErr.Position),
				Code:     pgErr.Code,
				Message:  pgErr.Message,
				Err:      err,
			}
		}
		return nil, err
	}
	return sd, nil
}

// Close ends the grammar's transaction and releases its connection.
func (g *ServerGrammar) Close(ctx context.Context) {
	if g.conn == nil {
		return
	}
	if g.pgConn().TxStatus() != 'I' {
		_ = g.pgConn().Exec(ctx, "ROLLBACK").Close()
	}
	g.conn.Release()
	g.conn = nil
}
