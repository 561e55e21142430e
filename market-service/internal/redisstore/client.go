// Package redisstore keeps a derived read-model of auction state in Redis and
// publishes market events over Redis Pub/Sub. The in-process ledger stays
// authoritative; these keys only serve cheap polling reads and the broadcast
// service's fan-out.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// Client wraps the Redis client with marketplace-specific operations
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: rdb}, nil
}

// SetAuctionSnapshot write-throughs the current bid state for an auction.
// Key scheme: "auction:{id}:current_bid" / "auction:{id}:highest_bidder"
func (c *Client) SetAuctionSnapshot(ctx context.Context, auctionID, highestBid uint64, highestBidder string) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf("auction:%d:current_bid", auctionID), highestBid, 0)
	pipe.Set(ctx, fmt.Sprintf("auction:%d:highest_bidder", auctionID), highestBidder, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write auction snapshot: %w", err)
	}
	return nil
}

// GetAuctionSnapshot reads the cached bid state for an auction. A missing key
// reads as a zero bid, matching an auction nobody has bid on yet.
func (c *Client) GetAuctionSnapshot(ctx context.Context, auctionID uint64) (highestBid uint64, highestBidder string, err error) {
	pipe := c.client.Pipeline()

	bidCmd := pipe.Get(ctx, fmt.Sprintf("auction:%d:current_bid", auctionID))
	bidderCmd := pipe.Get(ctx, fmt.Sprintf("auction:%d:highest_bidder", auctionID))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, "", fmt.Errorf("failed to read auction snapshot: %w", err)
	}

	if bidCmd.Err() == nil {
		if parsed, err := bidCmd.Uint64(); err == nil {
			highestBid = parsed
		}
	}
	if bidderCmd.Err() == nil {
		highestBidder = bidderCmd.Val()
	}
	return highestBid, highestBidder, nil
}

// PublishEvent publishes a market event to Redis Pub/Sub.
// The broadcast service picks these up for real-time WebSocket updates.
func (c *Client) PublishEvent(ctx context.Context, event *models.MarketEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return c.client.Publish(ctx, event.Channel(), payload).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
