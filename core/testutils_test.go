package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/assetauction/audit"
)

// Test doubles for the adapter contracts. They mirror the chain collaborators
// closely enough for scenario tests while staying scriptable: feeds can be
// broken, pulls can be forced to fail, and recipients can refuse pushes.

const (
	seller      = Address("seller")
	bidder1     = Address("bidder-1")
	bidder2     = Address("bidder-2")
	stranger    = Address("stranger")
	nftContract = Address("nft-contract")
	nativeFeed  = Address("feed-native")
	usdToken    = Address("usdc")
	usdFeed     = Address("feed-usdc")
	auctionAddr = Address("auction-1")
)

var (
	// 1000 USD in 18-decimal reference units.
	startingPrice = decimal.New(1000, 18)
	weekDuration  = 7 * 24 * time.Hour
)

type fakeQuote struct {
	price    decimal.Decimal
	decimals int32
}

type fakeOracle struct {
	quotes map[Address]fakeQuote
	fail   map[Address]error
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		quotes: make(map[Address]fakeQuote),
		fail:   make(map[Address]error),
	}
}

func (o *fakeOracle) set(feed Address, price decimal.Decimal, decimals int32) {
	o.quotes[feed] = fakeQuote{price: price, decimals: decimals}
	delete(o.fail, feed)
}

func (o *fakeOracle) CurrentPrice(ctx context.Context, feed Address) (decimal.Decimal, int32, error) {
	if err, ok := o.fail[feed]; ok {
		return decimal.Zero, 0, err
	}
	q, ok := o.quotes[feed]
	if !ok {
		return decimal.Zero, 0, fmt.Errorf("no such feed %q", feed)
	}
	return q.price, q.decimals, nil
}

type acctKey struct {
	currency Address
	account  Address
}

type fakeLedger struct {
	decimals   map[Address]int32
	balances   map[acctKey]decimal.Decimal
	pullErr    error            // when set, every Pull fails with it
	rejectPush map[Address]bool // recipients refusing to receive pushes
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		decimals:   map[Address]int32{NativeCurrency: 18, usdToken: 6},
		balances:   make(map[acctKey]decimal.Decimal),
		rejectPush: make(map[Address]bool),
	}
}

func (l *fakeLedger) mint(currency, account Address, amount decimal.Decimal) {
	k := acctKey{currency: currency, account: account}
	l.balances[k] = l.balances[k].Add(amount)
}

func (l *fakeLedger) balance(currency, account Address) decimal.Decimal {
	return l.balances[acctKey{currency: currency, account: account}]
}

func (l *fakeLedger) Decimals(ctx context.Context, currency Address) (int32, error) {
	d, ok := l.decimals[currency]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q", currency)
	}
	return d, nil
}

func (l *fakeLedger) Pull(ctx context.Context, currency Address, owner, recipient Address, amount decimal.Decimal) error {
	if l.pullErr != nil {
		return l.pullErr
	}
	return l.move(currency, owner, recipient, amount)
}

func (l *fakeLedger) Push(ctx context.Context, currency Address, owner, recipient Address, amount decimal.Decimal) error {
	if l.rejectPush[recipient] {
		return fmt.Errorf("recipient %s refuses funds", recipient)
	}
	return l.move(currency, owner, recipient, amount)
}

func (l *fakeLedger) move(currency Address, owner, recipient Address, amount decimal.Decimal) error {
	from := acctKey{currency: currency, account: owner}
	if l.balances[from].LessThan(amount) {
		return fmt.Errorf("insufficient %q balance for %s", currency, owner)
	}
	to := acctKey{currency: currency, account: recipient}
	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}

type fakeCustodian struct {
	owners map[AssetRef]Address
}

func newFakeCustodian() *fakeCustodian {
	return &fakeCustodian{owners: make(map[AssetRef]Address)}
}

func (c *fakeCustodian) Transfer(ctx context.Context, asset AssetRef, from, to Address) error {
	if c.owners[asset] != from {
		return fmt.Errorf("%s does not own %s", from, asset)
	}
	c.owners[asset] = to
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type auctionFixture struct {
	oracle    *fakeOracle
	ledger    *fakeLedger
	custodian *fakeCustodian
	clock     *fakeClock
	log       *audit.Log
	asset     AssetRef
	auction   *Auction
}

// newAuctionFixture builds an open auction over one minted asset: native
// feed at $2000 (8 decimals), a supported 6-decimal USD token at $1, and
// both bidders funded in both currencies. Custody of the asset is already
// with the instance, as the factory would arrange.
func newAuctionFixture(t *testing.T) *auctionFixture {
	t.Helper()

	f := &auctionFixture{
		oracle:    newFakeOracle(),
		ledger:    newFakeLedger(),
		custodian: newFakeCustodian(),
		clock:     &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		log:       audit.NewLog(),
		asset:     AssetRef{Custodian: nftContract, TokenID: 1},
	}
	f.oracle.set(nativeFeed, decimal.New(2000, 8), 8)
	f.oracle.set(usdFeed, decimal.New(1, 8), 8)

	for _, b := range []Address{bidder1, bidder2} {
		f.ledger.mint(NativeCurrency, b, decimal.New(10, 18))
		f.ledger.mint(usdToken, b, decimal.New(10000, 6))
	}
	f.custodian.owners[f.asset] = auctionAddr

	a, err := New(Config{
		Address:       auctionAddr,
		Seller:        seller,
		Asset:         f.asset,
		StartingPrice: startingPrice,
		Duration:      weekDuration,
		NativeFeed:    nativeFeed,
		Oracle:        f.oracle,
		Custodian:     f.custodian,
		Ledger:        f.ledger,
		Events:        f.log,
		Now:           f.clock.Now,
	})
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	f.auction = a

	if err := a.SetSupportedToken(seller, usdToken, usdFeed); err != nil {
		t.Fatalf("register token: %v", err)
	}
	return f
}

// end expires and finalizes the auction.
func (f *auctionFixture) end(t *testing.T) {
	t.Helper()
	f.clock.advance(weekDuration + time.Second)
	if err := f.auction.EndAuction(); err != nil {
		t.Fatalf("end auction: %v", err)
	}
}
