package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/jp93arg/NFTMarketplace/archival-worker/internal/database"
	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// JetStreamConsumer consumes market events from NATS JetStream and persists
// them to the database
type JetStreamConsumer struct {
	conn *nats.Conn
	js   jetstream.JetStream
	db   *database.PostgresClient
	log  zerolog.Logger
}

// NewJetStreamConsumer creates a new JetStream consumer
func NewJetStreamConsumer(natsURL string, db *database.PostgresClient, log zerolog.Logger) (*JetStreamConsumer, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamConsumer{
		conn: conn,
		js:   js,
		db:   db,
		log:  log,
	}, nil
}

// Start begins consuming messages from the archival stream.
// A durable consumer gives at-least-once delivery across worker restarts; the
// database writes are idempotent on event id, so redelivery is harmless.
func (c *JetStreamConsumer) Start(ctx context.Context) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, models.EventStream, jetstream.ConsumerConfig{
		Durable:       "archival-worker",
		FilterSubject: models.EventSubjectPrefix + ".>",
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		c.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer consumeCtx.Stop()

	c.log.Info().Str("stream", models.EventStream).Msg("consuming market events")

	// Keep consumer running until context is cancelled
	<-ctx.Done()
	return nil
}

// handleMessage processes a single market event message
func (c *JetStreamConsumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var event models.MarketEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		c.log.Warn().Err(err).Str("subject", msg.Subject()).Msg("failed to unmarshal event")
		// Poison message - ack so it does not redeliver forever
		msg.Ack()
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.persistEvent(dbCtx, &event); err != nil {
		c.log.Error().Err(err).Str("event_id", event.EventID).Msg("failed to persist event")
		// Leave unacked so JetStream redelivers
		msg.Nak()
		return
	}

	c.log.Info().
		Str("event_id", event.EventID).
		Str("kind", event.Kind).
		Uint64("item_id", event.ItemID).
		Msg("persisted event")

	msg.Ack()
}

// persistEvent writes the event, plus its projections, to PostgreSQL
func (c *JetStreamConsumer) persistEvent(ctx context.Context, event *models.MarketEvent) error {
	if err := c.db.InsertEvent(ctx, event); err != nil {
		return err
	}

	switch event.Kind {
	case models.EventBidPlaced:
		if err := c.db.InsertBid(ctx, event); err != nil {
			return err
		}
		return c.db.UpsertAuctionState(ctx, event.ItemID, event.Amount, event.Actor)

	case models.EventAuctionClaimed:
		return c.db.MarkAuctionClaimed(ctx, event.ItemID)
	}

	return nil
}

// Close closes the NATS connection
func (c *JetStreamConsumer) Close() error {
	c.conn.Close()
	return nil
}
