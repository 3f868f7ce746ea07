package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	token_mint   TEXT NOT NULL,
	symbol       TEXT NOT NULL DEFAULT '',
	entry_price  DOUBLE PRECISION NOT NULL,
	exit_price   DOUBLE PRECISION NOT NULL,
	invested_sol DOUBLE PRECISION NOT NULL,
	pnl_sol      DOUBLE PRECISION NOT NULL,
	pnl_percent  DOUBLE PRECISION NOT NULL,
	reason       TEXT NOT NULL,
	entry_time   TIMESTAMPTZ NOT NULL,
	exit_time    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	token_mint TEXT NOT NULL,
	symbol     TEXT NOT NULL DEFAULT '',
	score      DOUBLE PRECISION NOT NULL,
	action     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_token ON trades (token_mint);
CREATE INDEX IF NOT EXISTS idx_alerts_token ON alerts (token_mint);
`

// PostgresStore persists records through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, verifies the connection and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) SaveTrade(ctx context.Context, rec domain.TradeRecord) error {
	query := `
		INSERT INTO trades (
			id, token_mint, symbol, entry_price, exit_price,
			invested_sol, pnl_sol, pnl_percent, reason, entry_time, exit_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.TokenMint, rec.Symbol, rec.EntryPrice, rec.ExitPrice,
		rec.InvestedSOL, rec.PnLSOL, rec.PnLPercent, rec.Reason, rec.EntryTime, rec.ExitTime)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) SaveAlert(ctx context.Context, rec domain.AlertRecord) error {
	query := `
		INSERT INTO alerts (id, token_mint, symbol, score, action, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.TokenMint, rec.Symbol, rec.Score, rec.Action, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
