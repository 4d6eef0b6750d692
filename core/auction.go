package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/assetauction/audit"
)

// Config carries the creation parameters and collaborators of an auction
// instance. Address is the instance's own identity: it owns the escrowed
// value on the settlement ledger and the asset under the custodian until a
// claim releases them.
type Config struct {
	Address       Address
	Seller        Address
	Asset         AssetRef
	StartingPrice decimal.Decimal // reference units, ReferenceDecimals scale
	Duration      time.Duration
	NativeFeed    Address // price feed for the native settlement currency

	Oracle    PriceOracle
	Custodian AssetCustodian
	Ledger    SettlementLedger
	Events    audit.Sink       // optional; nil discards records
	Now       func() time.Time // optional; defaults to time.Now

	ImplementationRef     Address
	ImplementationVersion uint64
}

// Auction is a single-asset English auction with bids accepted in the native
// settlement currency or any seller-approved token, each normalized to
// reference units for comparison. Lifecycle: created -> open (until the
// deadline) -> ended -> asset and payment claimed on independent schedules.
//
// The mutex serializes all operations on the instance, restoring the
// one-operation-at-a-time execution model the state machine assumes.
type Auction struct {
	mu sync.Mutex

	addr          Address
	seller        Address
	asset         AssetRef
	startingPrice decimal.Decimal
	deadline      time.Time

	// feeds maps a currency identity to its price feed. The native currency
	// is registered at creation; the seller appends or overrides token
	// entries. Entries are never removed.
	feeds  map[Address]Address
	ledger *bidLedger

	ended          bool
	assetClaimed   bool
	paymentClaimed bool

	implRef     Address
	implVersion uint64

	oracle    PriceOracle
	custodian AssetCustodian
	settle    SettlementLedger
	events    audit.Sink
	now       func() time.Time
}

// New validates the creation parameters and returns a fresh auction instance
// with no bids and a deadline of now + duration. Custody of the asset must be
// transferred to cfg.Address by the caller; the instance does not pull it.
func New(cfg Config) (*Auction, error) {
	if cfg.Seller.IsZero() {
		return nil, ErrInvalidParty
	}
	if cfg.Asset.Custodian.IsZero() {
		return nil, ErrInvalidAsset
	}
	if cfg.StartingPrice.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if cfg.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if cfg.NativeFeed.IsZero() {
		return nil, ErrInvalidOracle
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	a := &Auction{
		addr:          cfg.Address,
		seller:        cfg.Seller,
		asset:         cfg.Asset,
		startingPrice: cfg.StartingPrice,
		deadline:      now().Add(cfg.Duration),
		feeds:         map[Address]Address{NativeCurrency: cfg.NativeFeed},
		ledger:        newBidLedger(),
		implRef:       cfg.ImplementationRef,
		implVersion:   cfg.ImplementationVersion,
		oracle:        cfg.Oracle,
		custodian:     cfg.Custodian,
		settle:        cfg.Ledger,
		events:        cfg.Events,
		now:           now,
	}

	a.emit(audit.Record{
		Kind:          audit.KindAuctionCreated,
		Seller:        string(a.seller),
		Asset:         a.asset.String(),
		StartingPrice: a.startingPrice.String(),
		Deadline:      a.deadline,
	})
	return a, nil
}

// BidNative admits a bid denominated in the native settlement currency.
// The amount is pulled into escrow; the displaced bidder, if any, is refunded
// their exact original amount.
func (a *Auction) BidNative(ctx context.Context, bidder Address, amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.open(); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return ErrZeroBid
	}
	return a.placeBid(ctx, bidder, NativeCurrency, amount)
}

// BidToken admits a bid denominated in a seller-approved token. The amount is
// pulled from the bidder against a prior spending authorization; no partial
// escrow is created when the pull fails.
func (a *Auction) BidToken(ctx context.Context, bidder, token Address, amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if token.IsZero() {
		return ErrInvalidToken
	}
	if err := a.open(); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return ErrZeroBid
	}
	if _, ok := a.feeds[token]; !ok {
		return ErrUnsupportedToken
	}
	return a.placeBid(ctx, bidder, token, amount)
}

// placeBid normalizes, checks admission, escrows the new amount, and refunds
// the displaced bidder. Callers hold the mutex and have validated the inputs.
func (a *Auction) placeBid(ctx context.Context, bidder, currency Address, amount decimal.Decimal) error {
	normalized, err := a.quote(ctx, currency, amount)
	if err != nil {
		return err
	}
	if err := a.ledger.admissible(normalized, a.startingPrice); err != nil {
		return err
	}

	if err := a.settle.Pull(ctx, currency, bidder, a.addr, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	prev := a.ledger.displace(Bid{
		Bidder:     bidder,
		Amount:     amount,
		Currency:   currency,
		Normalized: normalized,
	})
	if prev != nil {
		a.refund(ctx, *prev)
	}

	a.emit(audit.Record{
		Kind:       audit.KindBidPlaced,
		Bidder:     string(bidder),
		Currency:   string(currency),
		Amount:     amount.String(),
		Normalized: normalized.String(),
	})
	return nil
}

// refund pushes a displaced bid back to its bidder: the exact raw amount in
// the original currency, never re-normalized. A failed push must not block
// the admission that displaced it, so the amount is kept in escrow and
// credited to the displaced party's withdrawable balance instead.
func (a *Auction) refund(ctx context.Context, prev Bid) {
	if err := a.settle.Push(ctx, prev.Currency, a.addr, prev.Bidder, prev.Amount); err != nil {
		log.Printf("ERROR: Refund push to %s failed, queueing for withdrawal: %v", prev.Bidder, err)
		a.ledger.queue(prev.Bidder, prev.Currency, prev.Amount)
		a.emit(audit.Record{
			Kind:     audit.KindRefundQueued,
			Bidder:   string(prev.Bidder),
			Currency: string(prev.Currency),
			Amount:   prev.Amount.String(),
		})
	}
}

// Withdraw releases a refund that could not be pushed when the caller was
// outbid.
func (a *Auction) Withdraw(ctx context.Context, caller, currency Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	amount, ok := a.ledger.takeQueued(caller, currency)
	if !ok {
		return ErrNothingToWithdraw
	}
	if err := a.settle.Push(ctx, currency, a.addr, caller, amount); err != nil {
		a.ledger.queue(caller, currency, amount)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	a.emit(audit.Record{
		Kind:     audit.KindRefundWithdrawn,
		Bidder:   string(caller),
		Currency: string(currency),
		Amount:   amount.String(),
	})
	return nil
}

// SetSupportedToken registers or overrides the price feed for a token the
// seller accepts bids in. Re-registering the same pair is a no-op success.
func (a *Auction) SetSupportedToken(caller, token, feed Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.seller {
		return ErrUnauthorized
	}
	if token.IsZero() {
		return ErrInvalidToken
	}
	if feed.IsZero() {
		return ErrInvalidOracle
	}
	a.feeds[token] = feed
	return nil
}

// EndAuction freezes the auction after its deadline. Callable by anyone;
// nothing fires at expiry on its own.
func (a *Auction) EndAuction() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ended {
		return ErrAlreadyEnded
	}
	if a.now().Before(a.deadline) {
		return ErrNotYetExpired
	}
	a.ended = true

	rec := audit.Record{Kind: audit.KindAuctionEnded}
	if cur := a.ledger.current; cur != nil {
		rec.Bidder = string(cur.Bidder)
		rec.Normalized = cur.Normalized.String()
	}
	a.emit(rec)
	return nil
}

// ClaimAsset transfers the asset to the winning bidder once the auction has
// ended. If no bid was ever placed the seller reclaims the unsold asset.
func (a *Auction) ClaimAsset(ctx context.Context, caller Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ended {
		return ErrNotEnded
	}
	winner := a.seller
	if cur := a.ledger.current; cur != nil {
		winner = cur.Bidder
	}
	if caller != winner {
		return ErrUnauthorized
	}
	if a.assetClaimed {
		return ErrAlreadyClaimed
	}

	if err := a.custodian.Transfer(ctx, a.asset, a.addr, caller); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	a.assetClaimed = true

	a.emit(audit.Record{
		Kind:   audit.KindAssetClaimed,
		Bidder: string(caller),
		Asset:  a.asset.String(),
	})
	return nil
}

// ClaimPayment releases the escrowed winning amount, in its original
// currency, to the seller once the auction has ended.
func (a *Auction) ClaimPayment(ctx context.Context, caller Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ended {
		return ErrNotEnded
	}
	if caller != a.seller {
		return ErrUnauthorized
	}
	if a.paymentClaimed {
		return ErrAlreadyClaimed
	}
	cur := a.ledger.current
	if cur == nil {
		return ErrNoBids
	}

	if err := a.settle.Push(ctx, cur.Currency, a.addr, a.seller, cur.Amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	a.paymentClaimed = true

	a.emit(audit.Record{
		Kind:       audit.KindPaymentClaimed,
		Seller:     string(a.seller),
		Currency:   string(cur.Currency),
		Amount:     cur.Amount.String(),
		Normalized: cur.Normalized.String(),
	})
	return nil
}

// Address returns the instance's own identity.
func (a *Auction) Address() Address { return a.addr }

// Implementation returns the implementation template and version the instance
// was bound to at creation. Registry upgrades never change these.
func (a *Auction) Implementation() (Address, uint64) {
	return a.implRef, a.implVersion
}

// Info returns a consistent snapshot of the auction's public state.
func (a *Auction) Info() AuctionInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	info := AuctionInfo{
		Seller:                a.seller,
		Asset:                 a.asset,
		StartingPrice:         a.startingPrice,
		Deadline:              a.deadline,
		CurrentBidAmount:      decimal.Zero,
		CurrentBidValue:       decimal.Zero,
		Ended:                 a.ended,
		AssetClaimed:          a.assetClaimed,
		PaymentClaimed:        a.paymentClaimed,
		ImplementationRef:     a.implRef,
		ImplementationVersion: a.implVersion,
	}
	if cur := a.ledger.current; cur != nil {
		info.CurrentBidder = cur.Bidder
		info.CurrentBidAmount = cur.Amount
		info.CurrentBidCurrency = cur.Currency
		info.CurrentBidValue = cur.Normalized
	}
	return info
}

// open fails unless the auction is still accepting bids.
func (a *Auction) open() error {
	if a.ended || !a.now().Before(a.deadline) {
		return ErrAlreadyEnded
	}
	return nil
}

// quote normalizes a raw amount of currency into reference units via the
// currency's registered feed.
func (a *Auction) quote(ctx context.Context, currency Address, amount decimal.Decimal) (decimal.Decimal, error) {
	feed := a.feeds[currency]
	dec, err := a.settle.Decimals(ctx, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("auction: currency decimals: %w", err)
	}
	return normalize(ctx, a.oracle, feed, amount, dec)
}

func (a *Auction) emit(r audit.Record) {
	if a.events == nil {
		return
	}
	r.Time = a.now()
	r.Instance = string(a.addr)
	a.events.Record(r)
}
