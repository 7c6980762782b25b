package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"log/slog"

	"github.com/reemardelarosa/simulation/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id     UUID PRIMARY KEY,
	pair         TEXT NOT NULL,
	bid_order_id UUID NOT NULL,
	ask_order_id UUID NOT NULL,
	buyer        UUID NOT NULL,
	seller       UUID NOT NULL,
	price        NUMERIC NOT NULL,
	quantity     NUMERIC NOT NULL,
	quote_value  NUMERIC NOT NULL,
	step         BIGINT NOT NULL,
	executed_at  TIMESTAMPTZ NOT NULL
)`

// Store journals settled trades to postgres for offline analysis. It is an
// optional collaborator: the simulation runs identically without it.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure trades table: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// InsertTrade records one settled trade. Re-inserting the same trade is a
// no-op so replays cannot duplicate rows.
func (s *Store) InsertTrade(ctx context.Context, t engine.Trade) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (
			trade_id, pair, bid_order_id, ask_order_id, buyer, seller,
			price, quantity, quote_value, step, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (trade_id) DO NOTHING
	`, t.ID, t.Pair, t.BidOrderID, t.AskOrderID, t.Buyer, t.Seller,
		t.Price.String(), t.Quantity.String(), t.QuoteValue.String(), int64(t.Step), t.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
