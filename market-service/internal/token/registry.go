// Package token is the identity and transfer capability the ledger depends on.
//
// The engine only ever sees the narrow Registry interface; the in-memory
// implementation mirrors the token contract the marketplace was built against,
// where minting pre-approves the marketplace operator for all of the minter's
// tokens.
package token

import (
	"errors"
	"sync"

	"github.com/jp93arg/NFTMarketplace/shared/models"
)

var (
	// ErrUnknownToken is returned for a token id that was never minted
	ErrUnknownToken = errors.New("unknown token")

	// ErrNotTokenOwner is returned when the transfer source does not
	// currently own the token
	ErrNotTokenOwner = errors.New("transfer source does not own the token")

	// ErrNotApproved is returned when the caller is neither the owner nor
	// the approved operator
	ErrNotApproved = errors.New("caller is not approved to transfer the token")
)

// Registry is the transfer capability injected into the market engine.
// Transfer moves title of the referenced token from one party to another and
// is called at most once per ledger operation.
type Registry interface {
	Transfer(ref models.TokenRef, from, to string) error
}

// InMemoryRegistry is a single-contract token registry with an operator that
// is approved to move every token, the way the marketplace is approved by the
// token contract at mint time.
type InMemoryRegistry struct {
	mu       sync.Mutex
	contract string
	operator string
	nextID   uint64
	owners   map[uint64]string
	uris     map[uint64]string
}

// NewInMemoryRegistry creates a registry for one token contract address with
// the marketplace operator pre-approved
func NewInMemoryRegistry(contract, operator string) *InMemoryRegistry {
	return &InMemoryRegistry{
		contract: contract,
		operator: operator,
		owners:   make(map[uint64]string),
		uris:     make(map[uint64]string),
	}
}

// Mint creates a new token owned by owner and returns its reference.
// Token ids are a strictly increasing sequence starting at 1.
func (r *InMemoryRegistry) Mint(owner, tokenURI string) models.TokenRef {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.owners[r.nextID] = owner
	r.uris[r.nextID] = tokenURI
	return models.TokenRef{Contract: r.contract, TokenID: r.nextID}
}

// OwnerOf returns the current owner of a token
func (r *InMemoryRegistry) OwnerOf(ref models.TokenRef) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[ref.TokenID]
	if ref.Contract != r.contract || !ok {
		return "", ErrUnknownToken
	}
	return owner, nil
}

// TokenURI returns the metadata location recorded at mint time
func (r *InMemoryRegistry) TokenURI(ref models.TokenRef) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uri, ok := r.uris[ref.TokenID]
	if ref.Contract != r.contract || !ok {
		return "", ErrUnknownToken
	}
	return uri, nil
}

// Transfer moves the token from one party to another. The marketplace
// operator acts as the escrow intermediary, so a transfer is accepted when
// from currently owns the token and either from or the operator side of the
// escrow is involved.
func (r *InMemoryRegistry) Transfer(ref models.TokenRef, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[ref.TokenID]
	if ref.Contract != r.contract || !ok {
		return ErrUnknownToken
	}
	if owner != from {
		return ErrNotTokenOwner
	}
	if from != r.operator && to != r.operator {
		return ErrNotApproved
	}
	r.owners[ref.TokenID] = to
	return nil
}
