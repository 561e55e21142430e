package models

import (
	"fmt"
	"time"
)

// Event kinds published by the market service
const (
	EventItemListed     = "item_listed"
	EventItemSold       = "item_sold"
	EventAuctionCreated = "auction_created"
	EventBidPlaced      = "bid_placed"
	EventBidRefunded    = "bid_refunded"
	EventAuctionClaimed = "auction_claimed"
)

// Item kinds used to scope events and Pub/Sub channels
const (
	ItemKindMarket  = "market"
	ItemKindAuction = "auction"
)

// Messaging names shared by the three services
const (
	// NATS JetStream stream and subject space for archival
	EventStream        = "MARKET_EVENTS"
	EventSubjectPrefix = "market.events"

	// Redis Pub/Sub channel prefix for real-time broadcast
	EventChannelPrefix = "market_events"
)

// MarketEvent is published whenever the ledger commits a mutation.
// It is sent to:
// 1. Redis Pub/Sub (for real-time WebSocket broadcast)
// 2. NATS JetStream (for archival to PostgreSQL)
type MarketEvent struct {
	EventID        string    `json:"event_id"`
	Kind           string    `json:"kind"`
	ItemKind       string    `json:"item_kind"`
	ItemID         uint64    `json:"item_id"`
	Actor          string    `json:"actor"`
	Amount         uint64    `json:"amount"`
	PreviousBid    uint64    `json:"previous_bid,omitempty"`
	PreviousBidder string    `json:"previous_bidder,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Subject returns the JetStream subject for this event.
// Subject naming: "market.events.{itemKind}.{itemID}" allows per-item filtering
func (e *MarketEvent) Subject() string {
	return fmt.Sprintf("%s.%s.%d", EventSubjectPrefix, e.ItemKind, e.ItemID)
}

// Channel returns the Redis Pub/Sub channel for this event.
// Channel naming: "market_events:{itemKind}:{itemID}"
func (e *MarketEvent) Channel() string {
	return fmt.Sprintf("%s:%s:%d", EventChannelPrefix, e.ItemKind, e.ItemID)
}

// Topic returns the broadcast routing key, "{itemKind}:{itemID}"
func (e *MarketEvent) Topic() string {
	return fmt.Sprintf("%s:%d", e.ItemKind, e.ItemID)
}
