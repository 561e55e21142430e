package market_test

import (
	"testing"
	"time"

	"github.com/jp93arg/NFTMarketplace/market-service/internal/funds"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/ledger"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/market"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/token"
	"github.com/jp93arg/NFTMarketplace/shared/models"
)

const (
	operator   = "marketplace"
	contract   = "market-tokens"
	listingFee = uint64(25000)

	alice = "alice"
	bob   = "bob"
	carol = "carol"
)

// manualClock lets tests drive time explicitly
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	clock    *manualClock
	escrow   *funds.Escrow
	registry *token.InMemoryRegistry
	market   *market.Market
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	escrow := funds.NewEscrow()
	registry := token.NewInMemoryRegistry(contract, operator)
	return &fixture{
		clock:    clock,
		escrow:   escrow,
		registry: registry,
		market:   market.New(ledger.NewStore(), escrow, registry, clock, operator, listingFee),
	}
}

func (f *fixture) mint(owner string) models.TokenRef {
	return f.registry.Mint(owner, "www.faketokenlocation.com")
}

// endIn returns a unix timestamp d after the fixture's current time
func (f *fixture) endIn(d time.Duration) int64 {
	return f.clock.now.Add(d).Unix()
}
