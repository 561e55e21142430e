// Package ledger is the authoritative store for marketplace records.
//
// Records are append-only: items and auctions are inserted once and then only
// mutated through the Update* methods, which keep the secondary indices
// consistent. Ids are assigned by the store, one strictly increasing sequence
// per record kind.
package ledger

import (
	"errors"
	"sync"

	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// ErrNotFound is returned when a record id is unknown
var ErrNotFound = errors.New("record not found")

// Store holds all MarketItem and AuctionItem records plus per-party indices
type Store struct {
	mu sync.RWMutex

	nextMarketID  uint64
	nextAuctionID uint64

	marketItems map[uint64]*models.MarketItem
	marketOrder []uint64

	auctions     map[uint64]*models.AuctionItem
	auctionOrder []uint64

	// secondary indices, maintained on every mutating call
	marketBySeller  map[string][]uint64
	marketByOwner   map[string][]uint64
	auctionBySeller map[string][]uint64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		marketItems:     make(map[uint64]*models.MarketItem),
		auctions:        make(map[uint64]*models.AuctionItem),
		marketBySeller:  make(map[string][]uint64),
		marketByOwner:   make(map[string][]uint64),
		auctionBySeller: make(map[string][]uint64),
	}
}

// NextMarketItemID returns the next id in the market item sequence
func (s *Store) NextMarketItemID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMarketID++
	return s.nextMarketID
}

// NextAuctionID returns the next id in the auction sequence
func (s *Store) NextAuctionID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAuctionID++
	return s.nextAuctionID
}

// InsertMarketItem stores a new market item and indexes it by seller and owner
func (s *Store) InsertMarketItem(item *models.MarketItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *item
	s.marketItems[stored.ItemID] = &stored
	s.marketOrder = append(s.marketOrder, stored.ItemID)
	s.marketBySeller[stored.Seller] = append(s.marketBySeller[stored.Seller], stored.ItemID)
	s.marketByOwner[stored.Owner] = append(s.marketByOwner[stored.Owner], stored.ItemID)
}

// InsertAuction stores a new auction and indexes it by seller
func (s *Store) InsertAuction(auction *models.AuctionItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *auction
	s.auctions[stored.ItemID] = &stored
	s.auctionOrder = append(s.auctionOrder, stored.ItemID)
	s.auctionBySeller[stored.Seller] = append(s.auctionBySeller[stored.Seller], stored.ItemID)
}

// MarketItem returns a copy of the market item with the given id
func (s *Store) MarketItem(id uint64) (*models.MarketItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.marketItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

// Auction returns a copy of the auction with the given id
func (s *Store) Auction(id uint64) (*models.AuctionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[id]
	if !ok || !auction.Exists {
		return nil, ErrNotFound
	}
	copied := *auction
	return &copied, nil
}

// UpdateMarketItem applies a mutation in place and fixes up the owner index
// when the mutation moves ownership. All market item mutation goes through
// here so the indices can never drift from the records.
func (s *Store) UpdateMarketItem(id uint64, mutate func(*models.MarketItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.marketItems[id]
	if !ok {
		return ErrNotFound
	}

	previousOwner := item.Owner
	mutate(item)

	if item.Owner != previousOwner {
		s.marketByOwner[previousOwner] = removeID(s.marketByOwner[previousOwner], id)
		s.marketByOwner[item.Owner] = append(s.marketByOwner[item.Owner], id)
	}
	return nil
}

// UpdateAuction applies a mutation in place
func (s *Store) UpdateAuction(id uint64, mutate func(*models.AuctionItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[id]
	if !ok || !auction.Exists {
		return ErrNotFound
	}

	mutate(auction)
	return nil
}

// AvailableMarketItems returns all unsold items in insertion order
func (s *Store) AvailableMarketItems() []*models.MarketItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectMarketItems(s.marketOrder, func(item *models.MarketItem) bool {
		return !item.Sold
	})
}

// MarketItemsBySeller returns the seller's unsold listings in insertion order
func (s *Store) MarketItemsBySeller(seller string) []*models.MarketItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectMarketItems(s.marketBySeller[seller], func(item *models.MarketItem) bool {
		return !item.Sold
	})
}

// MarketItemsByOwner returns the sold items currently owned by owner, in
// insertion order
func (s *Store) MarketItemsByOwner(owner string) []*models.MarketItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectMarketItems(s.marketByOwner[owner], func(item *models.MarketItem) bool {
		return item.Sold && item.Owner == owner
	})
}

// Auctions returns copies of all auctions matching the filter, in insertion order
func (s *Store) Auctions(filter func(*models.AuctionItem) bool) []*models.AuctionItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectAuctions(s.auctionOrder, filter)
}

// AuctionsBySeller returns the seller's auctions in insertion order
func (s *Store) AuctionsBySeller(seller string) []*models.AuctionItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectAuctions(s.auctionBySeller[seller], func(*models.AuctionItem) bool {
		return true
	})
}

func (s *Store) collectMarketItems(ids []uint64, keep func(*models.MarketItem) bool) []*models.MarketItem {
	items := []*models.MarketItem{}
	for _, id := range ids {
		item, ok := s.marketItems[id]
		if !ok || !keep(item) {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	return items
}

func (s *Store) collectAuctions(ids []uint64, keep func(*models.AuctionItem) bool) []*models.AuctionItem {
	auctions := []*models.AuctionItem{}
	for _, id := range ids {
		auction, ok := s.auctions[id]
		if !ok || !auction.Exists || !keep(auction) {
			continue
		}
		copied := *auction
		auctions = append(auctions, &copied)
	}
	return auctions
}

func removeID(ids []uint64, id uint64) []uint64 {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
