package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScratchDatabase is a throwaway database a script is loaded into
type ScratchDatabase struct {
	Name      string // e.g. "pgsplit_scratch_20260105_150405_a3f9c2b1"
	CreatedAt time.Time
	Pool      *pgxpool.Pool
}

// CreateScratchDatabase creates an empty database and returns a pool connected to it.
// Connection options of adminPool (sslmode, notice handlers, ...) carry over.
func CreateScratchDatabase(ctx context.Context, adminPool *Pool) (*ScratchDatabase, error) {
	createdAt := time.Now()
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random suffix: %w", err)
	}
	dbName := fmt.Sprintf("pgsplit_scratch_%s_%s", createdAt.Format("20060102_150405"), hex.EncodeToString(randomBytes))
	ident := pgx.Identifier{dbName}.Sanitize()

	if _, err := adminPool.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		return nil, fmt.Errorf("failed to create scratch database: %w", err)
	}

	config := adminPool.Pool.Config()
	config.ConnConfig.Database = dbName
	config.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		_, _ = adminPool.Exec(ctx, "DROP DATABASE IF EXISTS "+ident)
		return nil, fmt.Errorf("failed to connect to scratch database: %w", err)
	}

	return &ScratchDatabase{Name: dbName, CreatedAt: createdAt, Pool: pool}, nil
}

// DestroyScratchDatabase closes the scratch pool and drops its database.
func DestroyScratchDatabase(ctx context.Context, adminPool *Pool, scratch *ScratchDatabase) error {
	if scratch == nil {
		return nil
	}
	scratch.Pool.Close()
	_, err := adminPool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{scratch.Name}.Sanitize()+" WITH (FORCE)")
	return err
}
