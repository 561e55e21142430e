package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// PostgresClient wraps the PostgreSQL database connection
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresClient{db: db}, nil
}

// InitSchema creates the necessary database tables
func (c *PostgresClient) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS market_events (
		event_id VARCHAR(64) PRIMARY KEY,
		kind VARCHAR(32) NOT NULL,
		item_kind VARCHAR(16) NOT NULL,
		item_id BIGINT NOT NULL,
		actor VARCHAR(255),
		amount BIGINT NOT NULL DEFAULT 0,
		previous_bid BIGINT NOT NULL DEFAULT 0,
		previous_bidder VARCHAR(255),
		event_time TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS auction_state (
		item_id BIGINT PRIMARY KEY,
		highest_bid BIGINT NOT NULL DEFAULT 0,
		highest_bidder VARCHAR(255),
		claimed BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS bids (
		event_id VARCHAR(64) PRIMARY KEY,
		auction_id BIGINT NOT NULL,
		bidder VARCHAR(255) NOT NULL,
		amount BIGINT NOT NULL,
		placed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_market_events_item ON market_events(item_kind, item_id);
	CREATE INDEX IF NOT EXISTS idx_bids_auction_id ON bids(auction_id);
	CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder);
	`

	_, err := c.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// InsertEvent appends an event to the archive. Duplicate deliveries are
// ignored, so at-least-once delivery from JetStream stays safe.
func (c *PostgresClient) InsertEvent(ctx context.Context, event *models.MarketEvent) error {
	query := `
		INSERT INTO market_events (event_id, kind, item_kind, item_id, actor, amount, previous_bid, previous_bidder, event_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		event.EventID,
		event.Kind,
		event.ItemKind,
		event.ItemID,
		event.Actor,
		int64(event.Amount),
		int64(event.PreviousBid),
		event.PreviousBidder,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// InsertBid records an accepted bid
func (c *PostgresClient) InsertBid(ctx context.Context, event *models.MarketEvent) error {
	query := `
		INSERT INTO bids (event_id, auction_id, bidder, amount, placed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		event.EventID,
		event.ItemID,
		event.Actor,
		int64(event.Amount),
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}

	return nil
}

// UpsertAuctionState updates the archived bid state of an auction
func (c *PostgresClient) UpsertAuctionState(ctx context.Context, auctionID uint64, highestBid uint64, highestBidder string) error {
	query := `
		INSERT INTO auction_state (item_id, highest_bid, highest_bidder, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (item_id) DO UPDATE
		SET highest_bid = EXCLUDED.highest_bid,
		    highest_bidder = EXCLUDED.highest_bidder,
		    updated_at = CURRENT_TIMESTAMP
	`

	if _, err := c.db.ExecContext(ctx, query, int64(auctionID), int64(highestBid), highestBidder); err != nil {
		return fmt.Errorf("failed to upsert auction state: %w", err)
	}

	return nil
}

// MarkAuctionClaimed flags an archived auction as claimed
func (c *PostgresClient) MarkAuctionClaimed(ctx context.Context, auctionID uint64) error {
	query := `
		INSERT INTO auction_state (item_id, claimed, updated_at)
		VALUES ($1, TRUE, CURRENT_TIMESTAMP)
		ON CONFLICT (item_id) DO UPDATE
		SET claimed = TRUE,
		    updated_at = CURRENT_TIMESTAMP
	`

	if _, err := c.db.ExecContext(ctx, query, int64(auctionID)); err != nil {
		return fmt.Errorf("failed to mark auction claimed: %w", err)
	}

	return nil
}

// GetBidHistory retrieves the archived bid history for an auction
func (c *PostgresClient) GetBidHistory(ctx context.Context, auctionID uint64, limit int) ([]*models.MarketEvent, error) {
	query := `
		SELECT event_id, item_id, bidder, amount, placed_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY placed_at DESC
		LIMIT $2
	`

	rows, err := c.db.QueryContext(ctx, query, int64(auctionID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var events []*models.MarketEvent
	for rows.Next() {
		event := &models.MarketEvent{
			Kind:     models.EventBidPlaced,
			ItemKind: models.ItemKindAuction,
		}
		var amount int64
		err := rows.Scan(
			&event.EventID,
			&event.ItemID,
			&event.Actor,
			&amount,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		event.Amount = uint64(amount)
		events = append(events, event)
	}

	return events, rows.Err()
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	return c.db.Close()
}
