package models

import "time"

// AuctionItem represents one timed auction.
// HighestBid is always the amount currently escrowed on behalf of HighestBidder;
// every displaced bid has already been refunded. The token stays escrowed by the
// marketplace until Claimed flips, after which the record is immutable.
type AuctionItem struct {
	ItemID        uint64    `json:"item_id"`
	TokenRef      TokenRef  `json:"token_ref"`
	Seller        string    `json:"seller"`
	StartingPrice uint64    `json:"starting_price"`
	HighestBid    uint64    `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
	AuctionEnd    int64     `json:"auction_end"` // unix seconds
	Claimed       bool      `json:"claimed"`
	Exists        bool      `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Ended reports whether the auction window has elapsed at the given instant
func (a *AuctionItem) Ended(now int64) bool {
	return now >= a.AuctionEnd
}

// CreateAuctionRequest is the incoming request to open an auction
type CreateAuctionRequest struct {
	Seller        string `json:"seller"`
	TokenContract string `json:"token_contract"`
	TokenID       uint64 `json:"token_id"`
	StartingPrice uint64 `json:"starting_price"`
	AuctionEnd    int64  `json:"auction_end"`
}

// PlaceBidRequest is the incoming bid request from the API.
// PaidAmount is the value attached to the call; it must cover BidAmount and any
// excess is refunded to the bidder inside the same operation.
type PlaceBidRequest struct {
	Bidder     string `json:"bidder"`
	BidAmount  uint64 `json:"bid_amount"`
	PaidAmount uint64 `json:"paid_amount"`
}

// PlaceBidResponse reports the outcome of a bid attempt
type PlaceBidResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	CurrentBid  uint64 `json:"current_bid"`
	YourBid     uint64 `json:"your_bid"`
	IsHighest   bool   `json:"is_highest"`
	PreviousBid uint64 `json:"previous_bid"`
	EventID     string `json:"event_id,omitempty"`
}

// ClaimRequest is the incoming request to claim an ended auction
type ClaimRequest struct {
	Claimant string `json:"claimant"`
}
