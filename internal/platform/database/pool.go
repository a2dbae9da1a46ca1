package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"esign/internal/platform/config"
)

const pingTimeout = 5 * time.Second

// Pool is the PostgreSQL handle shared by every store.
type Pool struct {
	*sql.DB
}

// Open connects through the pgx stdlib driver and fails when PostgreSQL does
// not answer the first ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Pool{DB: db}, nil
}

// Health is the readiness check. The ping is bounded so a saturated pool
// cannot stall /health/ready.
func (p *Pool) Health(ctx context.Context) error {
	return ping(ctx, p.DB)
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
