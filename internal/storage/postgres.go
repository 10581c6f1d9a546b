// Package storage persists cycle snapshots and detected opportunities.
// The core engine treats it as an optional collaborator: full cycles write
// through it when configured, and analysis-only mode reads the most recent
// snapshot back instead of polling.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/arbiscan/internal/config"
	"github.com/avolkov/arbiscan/internal/models"
)

// DatabasePool is the subset of pgxpool.Pool the stores use. Both the real
// pool and pgxmock satisfy it.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Connect opens a pgx pool against the configured database and verifies it.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL")
	return pool, nil
}

// SnapshotStore persists poll-cycle snapshots and reads the latest one back
// for analysis-only runs.
type SnapshotStore struct {
	pool DatabasePool
}

func NewSnapshotStore(pool DatabasePool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// SaveSnapshot stores the snapshot header and its quotes.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot *models.PriceSnapshot) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_snapshots (cycle_id, started_at, deadline)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (cycle_id) DO NOTHING`,
		snapshot.CycleID, snapshot.StartedAt, snapshot.Deadline)
	if err != nil {
		return fmt.Errorf("failed to save snapshot header: %w", err)
	}

	for _, q := range snapshot.Quotes {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO price_quotes (cycle_id, exchange_id, symbol, bid, ask, bid_volume, ask_volume, observed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			snapshot.CycleID, q.ExchangeID, q.Symbol, q.Bid, q.Ask, q.BidVolume, q.AskVolume, q.ObservedAt)
		if err != nil {
			return fmt.Errorf("failed to save quote %s@%s: %w", q.Symbol, q.ExchangeID, err)
		}
	}
	return nil
}

// LatestSnapshot loads the most recently started snapshot with its quotes.
// Returns nil when no snapshot has been persisted yet.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context) (*models.PriceSnapshot, error) {
	snapshot := &models.PriceSnapshot{}
	err := s.pool.QueryRow(ctx,
		`SELECT cycle_id, started_at, deadline
		 FROM price_snapshots
		 ORDER BY started_at DESC
		 LIMIT 1`).Scan(&snapshot.CycleID, &snapshot.StartedAt, &snapshot.Deadline)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT exchange_id, symbol, bid, ask, bid_volume, ask_volume, observed_at
		 FROM price_quotes
		 WHERE cycle_id = $1`,
		snapshot.CycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot quotes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q models.PriceQuote
		if err := rows.Scan(&q.ExchangeID, &q.Symbol, &q.Bid, &q.Ask, &q.BidVolume, &q.AskVolume, &q.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote row: %w", err)
		}
		snapshot.Quotes = append(snapshot.Quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quote rows: %w", err)
	}
	return snapshot, nil
}

// OpportunityStore persists detected opportunities, upserting on the
// opportunity key so each (symbol, buy, sell) combination keeps one active
// row with its latest pricing.
type OpportunityStore struct {
	pool DatabasePool
}

func NewOpportunityStore(pool DatabasePool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

func (s *OpportunityStore) SaveOpportunities(ctx context.Context, opportunities []models.ArbitrageOpportunity) error {
	for _, opp := range opportunities {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO arbitrage_opportunities
				(id, symbol, buy_exchange_id, sell_exchange_id, buy_price, sell_price,
				 gross_spread_pct, net_profit_pct, profit_per_1000, volume, cycle_id, detected_at, alerted)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 ON CONFLICT (symbol, buy_exchange_id, sell_exchange_id) DO UPDATE SET
				buy_price = EXCLUDED.buy_price,
				sell_price = EXCLUDED.sell_price,
				gross_spread_pct = EXCLUDED.gross_spread_pct,
				net_profit_pct = EXCLUDED.net_profit_pct,
				profit_per_1000 = EXCLUDED.profit_per_1000,
				volume = EXCLUDED.volume,
				cycle_id = EXCLUDED.cycle_id,
				detected_at = EXCLUDED.detected_at,
				alerted = EXCLUDED.alerted`,
			opp.ID, opp.Symbol, opp.BuyExchangeID, opp.SellExchangeID, opp.BuyPrice, opp.SellPrice,
			opp.GrossSpreadPct, opp.NetProfitPct, opp.ProfitPer1000, opp.Volume, opp.CycleID, opp.DetectedAt, opp.Alerted)
		if err != nil {
			return fmt.Errorf("failed to save opportunity %s %s->%s: %w",
				opp.Symbol, opp.BuyExchangeID, opp.SellExchangeID, err)
		}
	}
	return nil
}

// RecentOpportunities returns the latest detected opportunities, best net
// profit first.
func (s *OpportunityStore) RecentOpportunities(ctx context.Context, limit int) ([]models.ArbitrageOpportunity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, symbol, buy_exchange_id, sell_exchange_id, buy_price, sell_price,
			gross_spread_pct, net_profit_pct, profit_per_1000, volume, cycle_id, detected_at, alerted
		 FROM arbitrage_opportunities
		 ORDER BY net_profit_pct DESC, detected_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []models.ArbitrageOpportunity
	for rows.Next() {
		var opp models.ArbitrageOpportunity
		if err := rows.Scan(&opp.ID, &opp.Symbol, &opp.BuyExchangeID, &opp.SellExchangeID,
			&opp.BuyPrice, &opp.SellPrice, &opp.GrossSpreadPct, &opp.NetProfitPct,
			&opp.ProfitPer1000, &opp.Volume, &opp.CycleID, &opp.DetectedAt, &opp.Alerted); err != nil {
			return nil, fmt.Errorf("failed to scan opportunity row: %w", err)
		}
		opportunities = append(opportunities, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunity rows: %w", err)
	}
	return opportunities, nil
}
