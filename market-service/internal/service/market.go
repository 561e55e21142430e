// Package service orchestrates the ledger engine and its downstream systems.
//
// The write path never depends on Redis or NATS: a mutation commits in the
// engine first, then events and snapshots are pushed out asynchronously, best
// effort. Either collaborator may be absent (nil), which keeps the core fully
// testable without infrastructure.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/jp93arg/NFTMarketplace/market-service/internal/market"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/redisstore"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/token"
	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// MarketService exposes the ledger operations to the HTTP layer and fans
// committed mutations out to Redis and NATS JetStream
type MarketService struct {
	market   *market.Market
	registry *token.InMemoryRegistry
	cache    *redisstore.Client
	nats     *nats.Conn
	js       jetstream.JetStream
	log      zerolog.Logger
}

// New creates the market service. When a NATS connection is supplied the
// archival stream is created (or updated) up front, the way the write side
// owns its stream definition.
func New(m *market.Market, registry *token.InMemoryRegistry, cache *redisstore.Client, natsConn *nats.Conn, log zerolog.Logger) (*MarketService, error) {
	s := &MarketService{
		market:   m,
		registry: registry,
		cache:    cache,
		nats:     natsConn,
		log:      log,
	}

	if natsConn != nil {
		js, err := jetstream.New(natsConn)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:        models.EventStream,
			Description: "Stream for marketplace event archival",
			Subjects:    []string{models.EventSubjectPrefix + ".>"},
			Storage:     jetstream.FileStorage,
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      24 * time.Hour,
			Replicas:    1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create/update stream: %w", err)
		}
		s.js = js
		log.Info().Str("stream", models.EventStream).Msg("JetStream stream ready")
	}

	return s, nil
}

// MintToken mints a token in the in-process registry
func (s *MarketService) MintToken(owner, tokenURI string) models.TokenRef {
	return s.registry.Mint(owner, tokenURI)
}

// TokenURI resolves a token's metadata location
func (s *MarketService) TokenURI(ref models.TokenRef) (string, error) {
	return s.registry.TokenURI(ref)
}

// TokenOwner resolves a token's current owner
func (s *MarketService) TokenOwner(ref models.TokenRef) (string, error) {
	return s.registry.OwnerOf(ref)
}

// ListingPrice returns the fixed listing fee
func (s *MarketService) ListingPrice() uint64 {
	return s.market.ListingPrice()
}

// BalanceOf returns a party's escrow balance
func (s *MarketService) BalanceOf(party string) uint64 {
	return s.market.BalanceOf(party)
}

// CreateMarketItem lists a token for direct sale and announces the listing
func (s *MarketService) CreateMarketItem(ctx context.Context, req *models.ListItemRequest) (*models.MarketItem, error) {
	ref := models.TokenRef{Contract: req.TokenContract, TokenID: req.TokenID}
	item, err := s.market.CreateMarketItem(req.Seller, ref, req.Price, req.FeePaid)
	if err != nil {
		return nil, err
	}

	s.publish(&models.MarketEvent{
		EventID:   uuid.New().String(),
		Kind:      models.EventItemListed,
		ItemKind:  models.ItemKindMarket,
		ItemID:    item.ItemID,
		Actor:     item.Seller,
		Amount:    item.Price,
		Timestamp: time.Now().UTC(),
	})
	return item, nil
}

// CreateMarketSale settles a direct sale and announces it
func (s *MarketService) CreateMarketSale(ctx context.Context, itemID uint64, req *models.BuyItemRequest) (*models.MarketItem, error) {
	item, err := s.market.CreateMarketSale(req.Buyer, itemID, req.PaidAmount)
	if err != nil {
		return nil, err
	}

	s.publish(&models.MarketEvent{
		EventID:   uuid.New().String(),
		Kind:      models.EventItemSold,
		ItemKind:  models.ItemKindMarket,
		ItemID:    item.ItemID,
		Actor:     item.Owner,
		Amount:    item.Price,
		Timestamp: time.Now().UTC(),
	})
	return item, nil
}

// CreateAuction opens a timed auction and announces it
func (s *MarketService) CreateAuction(ctx context.Context, req *models.CreateAuctionRequest) (*models.AuctionItem, error) {
	ref := models.TokenRef{Contract: req.TokenContract, TokenID: req.TokenID}
	auction, err := s.market.CreateAuction(req.Seller, ref, req.StartingPrice, req.AuctionEnd)
	if err != nil {
		return nil, err
	}

	s.snapshot(ctx, auction)
	s.publish(&models.MarketEvent{
		EventID:   uuid.New().String(),
		Kind:      models.EventAuctionCreated,
		ItemKind:  models.ItemKindAuction,
		ItemID:    auction.ItemID,
		Actor:     auction.Seller,
		Amount:    auction.StartingPrice,
		Timestamp: time.Now().UTC(),
	})
	return auction, nil
}

// PlaceBid places a bid and announces both the new bid and the refund of the
// displaced one
func (s *MarketService) PlaceBid(ctx context.Context, auctionID uint64, req *models.PlaceBidRequest) (*models.PlaceBidResponse, error) {
	outcome, err := s.market.PlaceBid(req.Bidder, auctionID, req.BidAmount, req.PaidAmount)
	if err != nil {
		return nil, err
	}

	s.snapshot(ctx, outcome.Auction)

	bidEvent := &models.MarketEvent{
		EventID:        uuid.New().String(),
		Kind:           models.EventBidPlaced,
		ItemKind:       models.ItemKindAuction,
		ItemID:         auctionID,
		Actor:          req.Bidder,
		Amount:         outcome.Auction.HighestBid,
		PreviousBid:    outcome.PreviousBid,
		PreviousBidder: outcome.PreviousBidder,
		Timestamp:      time.Now().UTC(),
	}
	s.publish(bidEvent)

	if outcome.PreviousBidder != "" {
		s.publish(&models.MarketEvent{
			EventID:   uuid.New().String(),
			Kind:      models.EventBidRefunded,
			ItemKind:  models.ItemKindAuction,
			ItemID:    auctionID,
			Actor:     outcome.PreviousBidder,
			Amount:    outcome.PreviousBid,
			Timestamp: time.Now().UTC(),
		})
	}

	return &models.PlaceBidResponse{
		Success:     true,
		Message:     "Bid placed successfully!",
		CurrentBid:  outcome.Auction.HighestBid,
		YourBid:     req.BidAmount,
		IsHighest:   true,
		PreviousBid: outcome.PreviousBid,
		EventID:     bidEvent.EventID,
	}, nil
}

// ClaimAuctionItem settles an ended auction for its winner and announces it
func (s *MarketService) ClaimAuctionItem(ctx context.Context, auctionID uint64, claimant string) (*models.AuctionItem, error) {
	outcome, err := s.market.ClaimAuctionItem(claimant, auctionID)
	if err != nil {
		return nil, err
	}

	s.publish(&models.MarketEvent{
		EventID:   uuid.New().String(),
		Kind:      models.EventAuctionClaimed,
		ItemKind:  models.ItemKindAuction,
		ItemID:    auctionID,
		Actor:     claimant,
		Amount:    outcome.Proceeds,
		Timestamp: time.Now().UTC(),
	})
	return outcome.Auction, nil
}

// MarketItem returns a single listing
func (s *MarketService) MarketItem(itemID uint64) (*models.MarketItem, error) {
	return s.market.MarketItem(itemID)
}

// AuctionItem returns a single auction from the authoritative ledger
func (s *MarketService) AuctionItem(auctionID uint64) (*models.AuctionItem, error) {
	return s.market.AuctionItem(auctionID)
}

// AuctionBid returns the current bid state for an auction, served from the
// Redis snapshot when available and falling back to the ledger
func (s *MarketService) AuctionBid(ctx context.Context, auctionID uint64) (highestBid uint64, highestBidder string, err error) {
	if s.cache != nil {
		bid, bidder, err := s.cache.GetAuctionSnapshot(ctx, auctionID)
		if err == nil && bidder != "" {
			return bid, bidder, nil
		}
	}

	auction, err := s.market.AuctionItem(auctionID)
	if err != nil {
		return 0, "", err
	}
	return auction.HighestBid, auction.HighestBidder, nil
}

// AvailableMarketItems lists every unsold item
func (s *MarketService) AvailableMarketItems() []*models.MarketItem {
	return s.market.AvailableMarketItems()
}

// MarketItemsBySeller lists the seller's unsold items
func (s *MarketService) MarketItemsBySeller(seller string) []*models.MarketItem {
	return s.market.MarketItemsBySeller(seller)
}

// OwnedItems lists the items owned by a buyer
func (s *MarketService) OwnedItems(owner string) []*models.MarketItem {
	return s.market.OwnedItems(owner)
}

// OngoingAuctions lists every open auction
func (s *MarketService) OngoingAuctions() []*models.AuctionItem {
	return s.market.OngoingAuctions()
}

// AuctionsBySeller lists the seller's auctions
func (s *MarketService) AuctionsBySeller(seller string) []*models.AuctionItem {
	return s.market.AuctionsBySeller(seller)
}

// AuctionClaims lists the ended auctions the bidder can still claim
func (s *MarketService) AuctionClaims(bidder string) []*models.AuctionItem {
	return s.market.AuctionClaims(bidder)
}

// ClaimedAuctions lists the auctions the bidder has claimed
func (s *MarketService) ClaimedAuctions(bidder string) []*models.AuctionItem {
	return s.market.ClaimedAuctions(bidder)
}

// snapshot write-throughs an auction's bid state to Redis
func (s *MarketService) snapshot(ctx context.Context, auction *models.AuctionItem) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetAuctionSnapshot(ctx, auction.ItemID, auction.HighestBid, auction.HighestBidder); err != nil {
		s.log.Warn().Err(err).Uint64("auction_id", auction.ItemID).Msg("failed to write auction snapshot")
	}
}

// publish fans an event out to Redis Pub/Sub (broadcast) and NATS JetStream
// (archival), asynchronously and best effort
func (s *MarketService) publish(event *models.MarketEvent) {
	if s.cache != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := s.cache.PublishEvent(ctx, event); err != nil {
				s.log.Warn().Err(err).Str("event_id", event.EventID).Msg("failed to publish event to Redis")
			}
		}()
	}

	if s.js != nil {
		go func() {
			if err := s.publishToArchivalStream(event); err != nil {
				s.log.Warn().Err(err).Str("event_id", event.EventID).Msg("failed to publish to archival stream")
			}
		}()
	}
}

// publishToArchivalStream publishes an event to NATS JetStream for archival
// persistence. JetStream publish waits for the server acknowledgment, so the
// message is persisted before this returns.
func (s *MarketService) publishToArchivalStream(event *models.MarketEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ack, err := s.js.Publish(ctx, event.Subject(), data)
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	s.log.Debug().Str("subject", event.Subject()).Uint64("seq", ack.Sequence).Msg("published to JetStream")
	return nil
}
