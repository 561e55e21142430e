package market_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jp93arg/NFTMarketplace/market-service/internal/funds"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/ledger"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/market"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/token"
)

func TestCreateAuction(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), auction.ItemID)
	assert.Equal(t, alice, auction.Seller)
	assert.Equal(t, uint64(1000), auction.StartingPrice)
	assert.Equal(t, uint64(0), auction.HighestBid)
	assert.Empty(t, auction.HighestBidder)
	assert.False(t, auction.Claimed)

	// the token is escrowed by the marketplace while the auction is open
	owner, err := f.registry.OwnerOf(ref)
	require.NoError(t, err)
	assert.Equal(t, operator, owner)

	ongoing := f.market.OngoingAuctions()
	require.Len(t, ongoing, 1)
	assert.Equal(t, auction.ItemID, ongoing[0].ItemID)
}

func TestCreateAuctionEndDateInPast(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	_, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(-24*time.Hour))
	require.ErrorIs(t, err, market.ErrInvalidEndDate)
	assert.Contains(t, err.Error(), "auctionEnd must be in the future")

	// the end date check runs before the token moves
	owner, err := f.registry.OwnerOf(ref)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	_, err = f.market.CreateAuction(alice, ref, 1000, f.clock.Now().Unix())
	require.ErrorIs(t, err, market.ErrInvalidEndDate)
}

// steppingClock advances on every read, exposing operations that sample the
// clock more than once
type steppingClock struct {
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

func TestCreateAuctionReadsClockOnce(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock := &steppingClock{now: start, step: time.Minute}
	registry := token.NewInMemoryRegistry(contract, operator)
	m := market.New(ledger.NewStore(), funds.NewEscrow(), registry, clock, operator, listingFee)
	ref := registry.Mint(alice, "www.faketokenlocation.com")

	auction, err := m.CreateAuction(alice, ref, 1000, start.Add(time.Hour).Unix())
	require.NoError(t, err)

	// validation and CreatedAt observe the same instant
	assert.Equal(t, start.UTC(), auction.CreatedAt)
}

func TestCreateAuctionValidation(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	_, err := f.market.CreateAuction(alice, ref, 0, f.endIn(time.Hour))
	require.ErrorIs(t, err, market.ErrInvalidPrice)

	// bob does not own the token
	_, err = f.market.CreateAuction(bob, ref, 1000, f.endIn(time.Hour))
	require.ErrorIs(t, err, market.ErrTransferNotApproved)

	assert.Empty(t, f.market.OngoingAuctions())
}

func TestPlaceBidSupersession(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(24*time.Hour))
	require.NoError(t, err)

	// first bid
	outcome, err := f.market.PlaceBid(bob, auction.ItemID, 2000, 2000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), outcome.Auction.HighestBid)
	assert.Equal(t, bob, outcome.Auction.HighestBidder)
	assert.Zero(t, outcome.PreviousBid)
	assert.Equal(t, uint64(2000), f.escrow.TotalHeld())

	// carol outbids bob; bob must be refunded in full
	outcome, err = f.market.PlaceBid(carol, auction.ItemID, 3000, 3000)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), outcome.Auction.HighestBid)
	assert.Equal(t, carol, outcome.Auction.HighestBidder)
	assert.Equal(t, uint64(2000), outcome.PreviousBid)
	assert.Equal(t, bob, outcome.PreviousBidder)

	// refund-completeness: only the winning bid is held
	assert.Equal(t, uint64(2000), f.market.BalanceOf(bob))
	assert.Equal(t, uint64(3000), f.escrow.TotalHeld())
}

func TestPlaceBidStrictlyMonotonic(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(24*time.Hour))
	require.NoError(t, err)

	_, err = f.market.PlaceBid(bob, auction.ItemID, 2000, 2000)
	require.NoError(t, err)

	// a bid equal to the current highest is rejected
	_, err = f.market.PlaceBid(carol, auction.ItemID, 2000, 2000)
	require.ErrorIs(t, err, market.ErrBidTooLow)

	_, err = f.market.PlaceBid(carol, auction.ItemID, 1500, 1500)
	require.ErrorIs(t, err, market.ErrBidTooLow)

	// the rejected bidder keeps nothing in escrow
	assert.Equal(t, uint64(2000), f.escrow.TotalHeld())

	updated, err := f.market.AuctionItem(auction.ItemID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), updated.HighestBid)
	assert.Equal(t, bob, updated.HighestBidder)
}

func TestPlaceBidValidation(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(24*time.Hour))
	require.NoError(t, err)

	// payment below the declared bid
	_, err = f.market.PlaceBid(bob, auction.ItemID, 2000, 1999)
	require.ErrorIs(t, err, market.ErrInsufficientPayment)
	assert.Contains(t, err.Error(), "you should transfer at least the bid amount")

	// first bid below the starting price
	_, err = f.market.PlaceBid(bob, auction.ItemID, 500, 500)
	require.ErrorIs(t, err, market.ErrBelowStartingPrice)

	// unknown auction
	_, err = f.market.PlaceBid(bob, 99, 2000, 2000)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestPlaceBidAfterAuctionEnded(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(time.Hour))
	require.NoError(t, err)

	f.clock.advance(2 * time.Hour)

	_, err = f.market.PlaceBid(bob, auction.ItemID, 2000, 2000)
	require.ErrorIs(t, err, market.ErrAuctionEnded)

	updated, err := f.market.AuctionItem(auction.ItemID)
	require.NoError(t, err)
	assert.Zero(t, updated.HighestBid)
	assert.Zero(t, f.escrow.TotalHeld())
}

func TestPlaceBidOverpaymentRefundedAsChange(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(24*time.Hour))
	require.NoError(t, err)

	outcome, err := f.market.PlaceBid(bob, auction.ItemID, 2000, 2500)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), outcome.ChangeRefunded)

	// exactly the bid amount stays in escrow, the rest comes straight back
	assert.Equal(t, uint64(2000), f.escrow.TotalHeld())
	assert.Equal(t, uint64(500), f.market.BalanceOf(bob))
}

func TestClaimAuctionItem(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(time.Hour))
	require.NoError(t, err)

	_, err = f.market.PlaceBid(bob, auction.ItemID, 2000, 2000)
	require.NoError(t, err)
	_, err = f.market.PlaceBid(carol, auction.ItemID, 3000, 3000)
	require.NoError(t, err)

	// claiming before the window elapses fails
	_, err = f.market.ClaimAuctionItem(carol, auction.ItemID)
	require.ErrorIs(t, err, market.ErrAuctionNotEnded)
	assert.Contains(t, err.Error(), "Auction has not ended")

	f.clock.advance(2 * time.Hour)

	// only the highest bidder can claim
	_, err = f.market.ClaimAuctionItem(bob, auction.ItemID)
	require.ErrorIs(t, err, market.ErrNotAuctionWinner)

	claims := f.market.AuctionClaims(carol)
	require.Len(t, claims, 1)
	assert.False(t, claims[0].Claimed)

	claimed, err := f.market.ClaimAuctionItem(carol, auction.ItemID)
	require.NoError(t, err)
	assert.True(t, claimed.Auction.Claimed)

	// token to the winner, funds to the seller, escrow emptied
	owner, err := f.registry.OwnerOf(ref)
	require.NoError(t, err)
	assert.Equal(t, carol, owner)
	assert.Equal(t, uint64(3000), f.market.BalanceOf(alice))
	assert.Zero(t, f.escrow.TotalHeld())

	// a claim settles exactly once
	_, err = f.market.ClaimAuctionItem(carol, auction.ItemID)
	require.ErrorIs(t, err, market.ErrAlreadyClaimed)

	assert.Empty(t, f.market.AuctionClaims(carol))
	claimedList := f.market.ClaimedAuctions(carol)
	require.Len(t, claimedList, 1)
	assert.True(t, claimedList[0].Claimed)
}

func TestClaimAuctionItemWithoutBids(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(time.Hour))
	require.NoError(t, err)

	f.clock.advance(2 * time.Hour)

	_, err = f.market.ClaimAuctionItem(alice, auction.ItemID)
	require.ErrorIs(t, err, market.ErrNoBidsPlaced)

	// the token stays escrowed
	owner, err := f.registry.OwnerOf(ref)
	require.NoError(t, err)
	assert.Equal(t, operator, owner)
}

func TestAuctionProjections(t *testing.T) {
	f := newFixture(t)

	first, err := f.market.CreateAuction(alice, f.mint(alice), 1000, f.endIn(time.Hour))
	require.NoError(t, err)
	second, err := f.market.CreateAuction(bob, f.mint(bob), 1000, f.endIn(48*time.Hour))
	require.NoError(t, err)

	_, err = f.market.PlaceBid(carol, first.ItemID, 2000, 2000)
	require.NoError(t, err)

	byAlice := f.market.AuctionsBySeller(alice)
	require.Len(t, byAlice, 1)
	assert.Equal(t, first.ItemID, byAlice[0].ItemID)

	// nothing claimable while the windows are open
	assert.Empty(t, f.market.AuctionClaims(carol))

	f.clock.advance(2 * time.Hour)

	// the first auction has ended, the second is still open
	ongoing := f.market.OngoingAuctions()
	require.Len(t, ongoing, 1)
	assert.Equal(t, second.ItemID, ongoing[0].ItemID)

	claims := f.market.AuctionClaims(carol)
	require.Len(t, claims, 1)
	assert.Equal(t, first.ItemID, claims[0].ItemID)
}

// The full lifecycle from the original marketplace: open, outbid with refund,
// expire, claim.
func TestAuctionEndToEnd(t *testing.T) {
	f := newFixture(t)
	ref := f.mint(alice)

	auction, err := f.market.CreateAuction(alice, ref, 1000, f.endIn(time.Hour))
	require.NoError(t, err)

	_, err = f.market.PlaceBid(bob, auction.ItemID, 2000, 2000)
	require.NoError(t, err)

	updated, err := f.market.AuctionItem(auction.ItemID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), updated.HighestBid)
	assert.Equal(t, bob, updated.HighestBidder)

	_, err = f.market.PlaceBid(carol, auction.ItemID, 3000, 3000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), f.market.BalanceOf(bob))

	f.clock.advance(2 * time.Hour)

	_, err = f.market.ClaimAuctionItem(carol, auction.ItemID)
	require.NoError(t, err)

	owner, err := f.registry.OwnerOf(ref)
	require.NoError(t, err)
	assert.Equal(t, carol, owner)
	assert.Equal(t, uint64(3000), f.market.BalanceOf(alice))
	assert.Equal(t, uint64(2000), f.market.BalanceOf(bob))
	assert.Zero(t, f.market.BalanceOf(carol))
	assert.Zero(t, f.escrow.TotalHeld())
}
