package core

import "github.com/shopspring/decimal"

// bidLedger is the per-instance escrow engine. It tracks the single bid
// currently held in escrow plus any refunds that could not be pushed back to
// a displaced bidder. At all times the value held by the instance equals the
// current bid amount plus the sum of queued refunds.
type bidLedger struct {
	current *Bid
	queued  map[refundKey]decimal.Decimal
}

type refundKey struct {
	party    Address
	currency Address
}

func newBidLedger() *bidLedger {
	return &bidLedger{queued: make(map[refundKey]decimal.Decimal)}
}

// admissible reports whether a bid at the given normalized value may displace
// the current bid.
func (l *bidLedger) admissible(normalized, startingPrice decimal.Decimal) error {
	if normalized.LessThan(startingPrice) {
		return ErrBelowStartingPrice
	}
	if l.current != nil && !normalized.GreaterThan(l.current.Normalized) {
		return ErrBidTooLow
	}
	return nil
}

// displace installs b as the current bid and returns the bid it displaced,
// if any.
func (l *bidLedger) displace(b Bid) *Bid {
	prev := l.current
	installed := b
	l.current = &installed
	return prev
}

// queue credits a refund that could not be pushed, to be withdrawn by the
// displaced party in a separate call. The value stays in the instance's
// escrow until withdrawn.
func (l *bidLedger) queue(party, currency Address, amount decimal.Decimal) {
	k := refundKey{party: party, currency: currency}
	l.queued[k] = l.queued[k].Add(amount)
}

// takeQueued removes and returns the queued refund for party in currency.
func (l *bidLedger) takeQueued(party, currency Address) (decimal.Decimal, bool) {
	k := refundKey{party: party, currency: currency}
	amount, ok := l.queued[k]
	if !ok || amount.Sign() == 0 {
		return decimal.Zero, false
	}
	delete(l.queued, k)
	return amount, true
}
