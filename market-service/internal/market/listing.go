package market

import (
	"fmt"

	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// CreateMarketItem lists a token for direct sale. The seller pays the fixed
// listing fee and the token is escrowed by the marketplace until it sells.
func (m *Market) CreateMarketItem(seller string, ref models.TokenRef, price, feePaid uint64) (*models.MarketItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if price == 0 {
		return nil, ErrInvalidPrice
	}
	if feePaid != m.listingFee {
		return nil, ErrInvalidFee
	}

	// escrow the token before touching any ledger state
	if err := m.tokens.Transfer(ref, seller, m.operator); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotApproved, err)
	}

	m.escrow.Credit(m.operator, feePaid)

	item := &models.MarketItem{
		ItemID:    m.store.NextMarketItemID(),
		TokenRef:  ref,
		Seller:    seller,
		Owner:     m.operator,
		Price:     price,
		Sold:      false,
		CreatedAt: m.clock.Now().UTC(),
	}
	m.store.InsertMarketItem(item)
	return item, nil
}

// CreateMarketSale settles a listing: the asking price goes to the seller,
// title goes to the buyer, and the item becomes immutable. Payment must match
// the asking price exactly.
func (m *Market) CreateMarketSale(buyer string, itemID, paidAmount uint64) (*models.MarketItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, err := m.store.MarketItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.Sold {
		return nil, ErrAlreadySold
	}
	if paidAmount != item.Price {
		return nil, ErrIncorrectPayment
	}

	if err := m.tokens.Transfer(item.TokenRef, m.operator, buyer); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotApproved, err)
	}

	m.escrow.Credit(item.Seller, paidAmount)

	soldAt := m.clock.Now().UTC()
	if err := m.store.UpdateMarketItem(itemID, func(item *models.MarketItem) {
		item.Owner = buyer
		item.Sold = true
		item.SoldAt = soldAt
	}); err != nil {
		return nil, err
	}
	return m.store.MarketItem(itemID)
}
