package market_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jp93arg/NFTMarketplace/market-service/internal/ledger"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/market"
)

func TestCreateMarketItem(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	item, err := f.market.CreateMarketItem(alice, ref, 100000, listingFee)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), item.ItemID)
	assert.Equal(t, alice, item.Seller)
	assert.Equal(t, operator, item.Owner)
	assert.Equal(t, uint64(100000), item.Price)
	assert.False(t, item.Sold)

	// the token is escrowed and the fee goes to the operator
	owner, err := f.registry.OwnerOf(ref)
	require.NoError(t, err)
	assert.Equal(t, operator, owner)
	assert.Equal(t, listingFee, f.market.BalanceOf(operator))

	available := f.market.AvailableMarketItems()
	require.Len(t, available, 1)
	assert.Equal(t, item.ItemID, available[0].ItemID)
}

func TestCreateMarketItemValidation(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	_, err := f.market.CreateMarketItem(alice, ref, 0, listingFee)
	require.ErrorIs(t, err, market.ErrInvalidPrice)

	_, err = f.market.CreateMarketItem(alice, ref, 100000, listingFee-1)
	require.ErrorIs(t, err, market.ErrInvalidFee)

	// bob does not own alice's token
	_, err = f.market.CreateMarketItem(bob, ref, 100000, listingFee)
	require.ErrorIs(t, err, market.ErrTransferNotApproved)

	// nothing was listed and no fee was collected
	assert.Empty(t, f.market.AvailableMarketItems())
	assert.Zero(t, f.market.BalanceOf(operator))
}

func TestCreateMarketSale(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	item, err := f.market.CreateMarketItem(alice, ref, 100000, listingFee)
	require.NoError(t, err)

	sold, err := f.market.CreateMarketSale(bob, item.ItemID, 100000)
	require.NoError(t, err)

	assert.True(t, sold.Sold)
	assert.Equal(t, bob, sold.Owner)

	// title to the buyer, proceeds to the seller
	owner, err := f.registry.OwnerOf(ref)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
	assert.Equal(t, uint64(100000), f.market.BalanceOf(alice))

	// the item moved from available to owned
	assert.Empty(t, f.market.AvailableMarketItems())
	owned := f.market.OwnedItems(bob)
	require.Len(t, owned, 1)
	assert.Equal(t, item.ItemID, owned[0].ItemID)
}

func TestCreateMarketSaleIncorrectPayment(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	item, err := f.market.CreateMarketItem(alice, ref, 100000, listingFee)
	require.NoError(t, err)

	_, err = f.market.CreateMarketSale(bob, item.ItemID, 99999)
	require.ErrorIs(t, err, market.ErrIncorrectPayment)

	// overpayment is rejected too - payment must match exactly
	_, err = f.market.CreateMarketSale(bob, item.ItemID, 100001)
	require.ErrorIs(t, err, market.ErrIncorrectPayment)

	unsold, err := f.market.MarketItem(item.ItemID)
	require.NoError(t, err)
	assert.False(t, unsold.Sold)
}

func TestCreateMarketSaleIsTerminal(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	item, err := f.market.CreateMarketItem(alice, ref, 100000, listingFee)
	require.NoError(t, err)

	_, err = f.market.CreateMarketSale(bob, item.ItemID, 100000)
	require.NoError(t, err)

	// a second sale with the correct payment still fails
	_, err = f.market.CreateMarketSale(carol, item.ItemID, 100000)
	require.ErrorIs(t, err, market.ErrAlreadySold)

	// the first buyer keeps the token and the seller is paid once
	owner, err := f.registry.OwnerOf(ref)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
	assert.Equal(t, uint64(100000), f.market.BalanceOf(alice))
}

func TestCreateMarketSaleUnknownItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.market.CreateMarketSale(bob, 42, 100000)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestMarketItemsBySeller(t *testing.T) {
	f := newFixture(t)

	first, err := f.market.CreateMarketItem(alice, f.mint(alice), 100000, listingFee)
	require.NoError(t, err)
	_, err = f.market.CreateMarketItem(bob, f.mint(bob), 200000, listingFee)
	require.NoError(t, err)
	second, err := f.market.CreateMarketItem(alice, f.mint(alice), 300000, listingFee)
	require.NoError(t, err)

	forSale := f.market.MarketItemsBySeller(alice)
	require.Len(t, forSale, 2)
	assert.Equal(t, first.ItemID, forSale[0].ItemID)
	assert.Equal(t, second.ItemID, forSale[1].ItemID)

	// sold items leave the seller's for-sale listing
	_, err = f.market.CreateMarketSale(carol, first.ItemID, 100000)
	require.NoError(t, err)

	forSale = f.market.MarketItemsBySeller(alice)
	require.Len(t, forSale, 1)
	assert.Equal(t, second.ItemID, forSale[0].ItemID)
}

func TestListingPrice(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, listingFee, f.market.ListingPrice())
}
