// Package market is the marketplace ledger state machine.
//
// Every mutating operation runs to completion under one coarse mutex, so the
// ledger behaves as a strictly-ordered single-writer: no other operation can
// observe or interleave with a half-applied call. Fallible steps (token
// transfers, escrow releases) run before any store write, so a failed call
// leaves the ledger exactly as it was.
package market

import (
	"sync"

	"github.com/jp93arg/NFTMarketplace/market-service/internal/funds"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/ledger"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/token"
	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// Market owns all marketplace and auction state transitions
type Market struct {
	mu sync.Mutex

	store  *ledger.Store
	escrow *funds.Escrow
	tokens token.Registry
	clock  Clock

	// operator receives listing fees and acts as the escrow holder of
	// listed and auctioned tokens
	operator   string
	listingFee uint64
}

// New creates a market over the given collaborators. The listing fee is fixed
// for the lifetime of the market.
func New(store *ledger.Store, escrow *funds.Escrow, tokens token.Registry, clock Clock, operator string, listingFee uint64) *Market {
	return &Market{
		store:      store,
		escrow:     escrow,
		tokens:     tokens,
		clock:      clock,
		operator:   operator,
		listingFee: listingFee,
	}
}

// ListingPrice returns the fixed fee charged when creating a direct-sale listing
func (m *Market) ListingPrice() uint64 {
	return m.listingFee
}

// Operator returns the marketplace operator identity
func (m *Market) Operator() string {
	return m.operator
}

// BalanceOf returns the escrow balance credited to a party through refunds,
// fees and sale proceeds
func (m *Market) BalanceOf(party string) uint64 {
	return m.escrow.BalanceOf(party)
}

// MarketItem returns a single listing by id
func (m *Market) MarketItem(itemID uint64) (*models.MarketItem, error) {
	return m.store.MarketItem(itemID)
}

// AuctionItem returns a single auction by id
func (m *Market) AuctionItem(auctionID uint64) (*models.AuctionItem, error) {
	return m.store.Auction(auctionID)
}

// AvailableMarketItems returns every listing that has not been sold yet
func (m *Market) AvailableMarketItems() []*models.MarketItem {
	return m.store.AvailableMarketItems()
}

// MarketItemsBySeller returns the seller's still-unsold listings
func (m *Market) MarketItemsBySeller(seller string) []*models.MarketItem {
	return m.store.MarketItemsBySeller(seller)
}

// OwnedItems returns the items bought by, and now owned by, the given party
func (m *Market) OwnedItems(owner string) []*models.MarketItem {
	return m.store.MarketItemsByOwner(owner)
}

// OngoingAuctions returns every auction whose window is still open
func (m *Market) OngoingAuctions() []*models.AuctionItem {
	now := m.clock.Now().Unix()
	return m.store.Auctions(func(auction *models.AuctionItem) bool {
		return !auction.Ended(now)
	})
}

// AuctionsBySeller returns every auction created by the seller
func (m *Market) AuctionsBySeller(seller string) []*models.AuctionItem {
	return m.store.AuctionsBySeller(seller)
}

// AuctionClaims returns the ended, still unclaimed auctions the bidder has won
func (m *Market) AuctionClaims(bidder string) []*models.AuctionItem {
	now := m.clock.Now().Unix()
	return m.store.Auctions(func(auction *models.AuctionItem) bool {
		return auction.HighestBidder == bidder && auction.Ended(now) && !auction.Claimed
	})
}

// ClaimedAuctions returns the auctions the bidder has won and already claimed
func (m *Market) ClaimedAuctions(bidder string) []*models.AuctionItem {
	return m.store.Auctions(func(auction *models.AuctionItem) bool {
		return auction.HighestBidder == bidder && auction.Claimed
	})
}
