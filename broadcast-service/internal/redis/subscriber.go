package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// Subscriber wraps Redis Pub/Sub functionality
type Subscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
	log    zerolog.Logger
}

// NewSubscriber creates a new Redis Pub/Sub subscriber
func NewSubscriber(addr, password string, db int, log zerolog.Logger) (*Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Subscriber{
		client: rdb,
		log:    log,
	}, nil
}

// SubscribeToMarketEvents subscribes to every market event channel.
// Pattern: "market_events:*" matches all item kinds and ids.
func (s *Subscriber) SubscribeToMarketEvents(ctx context.Context) error {
	s.pubsub = s.client.PSubscribe(ctx, models.EventChannelPrefix+":*")
	return nil
}

// Listen starts listening for messages and sends them to the provided channel.
// This is a blocking operation - run in a goroutine.
func (s *Subscriber) Listen(ctx context.Context, messageChan chan<- *Message) error {
	if s.pubsub == nil {
		return fmt.Errorf("not subscribed to any channel")
	}
	return s.forward(ctx, s.pubsub.Channel(), messageChan)
}

// forward parses and routes Pub/Sub messages until the context is cancelled or
// the source channel is closed (subscriber shutdown)
func (s *Subscriber) forward(ctx context.Context, ch <-chan *redis.Message, messageChan chan<- *Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event models.MarketEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Warn().Err(err).Str("channel", msg.Channel).Msg("failed to parse message")
				continue
			}

			messageChan <- &Message{
				Topic:   topicFromChannel(msg.Channel),
				Payload: msg.Payload,
				Event:   &event,
			}
		}
	}
}

// Message represents a parsed Pub/Sub message
type Message struct {
	Topic   string // "{itemKind}:{itemID}" routing key
	Payload string // raw JSON payload
	Event   *models.MarketEvent
}

// topicFromChannel extracts the routing key from a channel name.
// Example: "market_events:auction:3" -> "auction:3"
func topicFromChannel(channel string) string {
	return strings.TrimPrefix(channel, models.EventChannelPrefix+":")
}

// Close closes the subscriber
func (s *Subscriber) Close() error {
	if s.pubsub != nil {
		s.pubsub.Close()
	}
	return s.client.Close()
}
