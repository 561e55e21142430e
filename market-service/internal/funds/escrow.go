// Package funds holds bid and sale money on behalf of the marketplace.
//
// At any point the total held amount equals the sum of the highest bid over
// all open auctions with at least one bid: a new hold can only replace a
// previous one after that one has been refunded, and a hold leaves escrow
// exactly once, either back to its bidder (refund) or to the seller
// (disbursement at claim time).
package funds

import (
	"errors"
	"sync"
)

var (
	// ErrHoldExists is returned when a bid hold would overwrite an
	// unreleased one - the engine must refund the previous hold first
	ErrHoldExists = errors.New("funds are already held for this auction")

	// ErrNoHold is returned when there is nothing to refund or disburse
	ErrNoHold = errors.New("no funds held for this auction")
)

type hold struct {
	bidder string
	amount uint64
}

// Escrow tracks per-party credited balances and per-auction bid holds
type Escrow struct {
	mu       sync.Mutex
	balances map[string]uint64
	holds    map[uint64]hold
}

// NewEscrow creates an empty escrow
func NewEscrow() *Escrow {
	return &Escrow{
		balances: make(map[string]uint64),
		holds:    make(map[uint64]hold),
	}
}

// Credit adds amount to a party's free balance (listing fees, sale proceeds,
// overpayment change)
func (e *Escrow) Credit(party string, amount uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.balances[party] += amount
}

// BalanceOf returns a party's free balance
func (e *Escrow) BalanceOf(party string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.balances[party]
}

// HoldBid records amount as held on behalf of bidder for an auction.
// Fails if a previous hold has not been refunded yet.
func (e *Escrow) HoldBid(auctionID uint64, bidder string, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.holds[auctionID]; exists {
		return ErrHoldExists
	}
	e.holds[auctionID] = hold{bidder: bidder, amount: amount}
	return nil
}

// Held returns the current hold for an auction, if any
func (e *Escrow) Held(auctionID uint64) (bidder string, amount uint64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, exists := e.holds[auctionID]
	return h.bidder, h.amount, exists
}

// RefundHold releases the auction's hold back to the bidder it was taken from
func (e *Escrow) RefundHold(auctionID uint64) (bidder string, amount uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, exists := e.holds[auctionID]
	if !exists {
		return "", 0, ErrNoHold
	}
	delete(e.holds, auctionID)
	e.balances[h.bidder] += h.amount
	return h.bidder, h.amount, nil
}

// DisburseHold releases the auction's hold to the payee (the seller, at claim
// time)
func (e *Escrow) DisburseHold(auctionID uint64, payee string) (amount uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, exists := e.holds[auctionID]
	if !exists {
		return 0, ErrNoHold
	}
	delete(e.holds, auctionID)
	e.balances[payee] += h.amount
	return h.amount, nil
}

// TotalHeld returns the sum of all outstanding holds
func (e *Escrow) TotalHeld() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	var total uint64
	for _, h := range e.holds {
		total += h.amount
	}
	return total
}
