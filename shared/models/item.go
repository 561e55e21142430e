package models

import "time"

// TokenRef identifies a token inside an external token contract
type TokenRef struct {
	Contract string `json:"contract"`
	TokenID  uint64 `json:"token_id"`
}

// MarketItem represents one direct-sale listing.
// While Sold is false the token is escrowed by the marketplace and Owner is the
// marketplace operator; after the sale Owner is the buyer and the record is immutable.
type MarketItem struct {
	ItemID    uint64    `json:"item_id"`
	TokenRef  TokenRef  `json:"token_ref"`
	Seller    string    `json:"seller"`
	Owner     string    `json:"owner"`
	Price     uint64    `json:"price"` // smallest currency units
	Sold      bool      `json:"sold"`
	CreatedAt time.Time `json:"created_at"`
	SoldAt    time.Time `json:"sold_at,omitempty"`
}

// ListItemRequest is the incoming request to create a direct-sale listing
type ListItemRequest struct {
	Seller        string `json:"seller"`
	TokenContract string `json:"token_contract"`
	TokenID       uint64 `json:"token_id"`
	Price         uint64 `json:"price"`
	FeePaid       uint64 `json:"fee_paid"`
}

// BuyItemRequest is the incoming request to buy a listed item
type BuyItemRequest struct {
	Buyer      string `json:"buyer"`
	PaidAmount uint64 `json:"paid_amount"`
}

// MintTokenRequest is the incoming request to mint a token in the in-process registry
type MintTokenRequest struct {
	Owner    string `json:"owner"`
	TokenURI string `json:"token_uri"`
}
