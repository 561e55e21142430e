package market

import (
	"fmt"

	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// BidOutcome reports an accepted bid, including the hold that was released to
// make room for it so the displaced bidder can be notified
type BidOutcome struct {
	Auction        *models.AuctionItem
	PreviousBid    uint64
	PreviousBidder string
	ChangeRefunded uint64
}

// ClaimOutcome reports a settled auction claim
type ClaimOutcome struct {
	Auction   *models.AuctionItem
	Proceeds  uint64
	SoldToken models.TokenRef
}

// CreateAuction opens a timed auction. The token is escrowed by the
// marketplace until the winning bidder claims it.
func (m *Market) CreateAuction(seller string, ref models.TokenRef, startingPrice uint64, auctionEnd int64) (*models.AuctionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if auctionEnd <= now.Unix() {
		return nil, ErrInvalidEndDate
	}
	if startingPrice == 0 {
		return nil, ErrInvalidPrice
	}

	if err := m.tokens.Transfer(ref, seller, m.operator); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotApproved, err)
	}

	auction := &models.AuctionItem{
		ItemID:        m.store.NextAuctionID(),
		TokenRef:      ref,
		Seller:        seller,
		StartingPrice: startingPrice,
		HighestBid:    0,
		HighestBidder: "",
		AuctionEnd:    auctionEnd,
		Claimed:       false,
		Exists:        true,
		CreatedAt:     now.UTC(),
	}
	m.store.InsertAuction(auction)
	return auction, nil
}

// PlaceBid supersedes the current highest bid. The displaced bidder is
// refunded in full before the new bid is held, so no bidder is ever both
// charged and outbid. Exactly the bid amount is held; any overpayment is
// returned to the bidder as change within the same call.
func (m *Market) PlaceBid(bidder string, auctionID, bidAmount, paidAmount uint64) (*BidOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	auction, err := m.store.Auction(auctionID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now().Unix()
	if auction.Ended(now) {
		return nil, ErrAuctionEnded
	}
	if paidAmount < bidAmount {
		return nil, ErrInsufficientPayment
	}
	if auction.HighestBidder == "" && bidAmount < auction.StartingPrice {
		return nil, ErrBelowStartingPrice
	}
	if bidAmount <= auction.HighestBid {
		return nil, ErrBidTooLow
	}

	// refund-then-accept ordering
	var previousBid uint64
	var previousBidder string
	if auction.HighestBidder != "" {
		previousBidder, previousBid, err = m.escrow.RefundHold(auctionID)
		if err != nil {
			return nil, fmt.Errorf("refund of superseded bid failed: %w", err)
		}
	}
	if err := m.escrow.HoldBid(auctionID, bidder, bidAmount); err != nil {
		return nil, fmt.Errorf("bid escrow failed: %w", err)
	}
	if change := paidAmount - bidAmount; change > 0 {
		m.escrow.Credit(bidder, change)
	}

	if err := m.store.UpdateAuction(auctionID, func(auction *models.AuctionItem) {
		auction.HighestBid = bidAmount
		auction.HighestBidder = bidder
	}); err != nil {
		return nil, err
	}

	updated, err := m.store.Auction(auctionID)
	if err != nil {
		return nil, err
	}
	return &BidOutcome{
		Auction:        updated,
		PreviousBid:    previousBid,
		PreviousBidder: previousBidder,
		ChangeRefunded: paidAmount - bidAmount,
	}, nil
}

// ClaimAuctionItem settles an ended auction exactly once: the token goes to
// the winning bidder and the held bid goes to the seller. Only the recorded
// highest bidder may claim.
func (m *Market) ClaimAuctionItem(claimant string, auctionID uint64) (*ClaimOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	auction, err := m.store.Auction(auctionID)
	if err != nil {
		return nil, err
	}

	if !auction.Ended(m.clock.Now().Unix()) {
		return nil, ErrAuctionNotEnded
	}
	if auction.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if auction.HighestBidder == "" {
		return nil, ErrNoBidsPlaced
	}
	if claimant != auction.HighestBidder {
		return nil, ErrNotAuctionWinner
	}

	// the winning hold must be present before the irreversible transfer
	if _, held, ok := m.escrow.Held(auctionID); !ok || held != auction.HighestBid {
		return nil, fmt.Errorf("escrow out of step with auction %d: %w", auctionID, ErrNoBidsPlaced)
	}

	if err := m.tokens.Transfer(auction.TokenRef, m.operator, auction.HighestBidder); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotApproved, err)
	}

	proceeds, err := m.escrow.DisburseHold(auctionID, auction.Seller)
	if err != nil {
		return nil, fmt.Errorf("disbursement to seller failed: %w", err)
	}

	if err := m.store.UpdateAuction(auctionID, func(auction *models.AuctionItem) {
		auction.Claimed = true
	}); err != nil {
		return nil, err
	}

	updated, err := m.store.Auction(auctionID)
	if err != nil {
		return nil, err
	}
	return &ClaimOutcome{
		Auction:   updated,
		Proceeds:  proceeds,
		SoldToken: updated.TokenRef,
	}, nil
}
