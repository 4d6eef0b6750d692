// Package audit defines the event records emitted by the auction core and
// registry, and an append-only log that chains them into a verifiable trail.
// The records are the sole observable history of an auction: reporting tools
// consume them instead of polling instance state.
package audit

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// Kind identifies the type of an audit record.
type Kind string

const (
	KindAuctionCreated         Kind = "auction_created"
	KindBidPlaced              Kind = "bid_placed"
	KindAuctionEnded           Kind = "auction_ended"
	KindAssetClaimed           Kind = "asset_claimed"
	KindPaymentClaimed         Kind = "payment_claimed"
	KindRefundQueued           Kind = "refund_queued"
	KindRefundWithdrawn        Kind = "refund_withdrawn"
	KindImplementationUpgraded Kind = "implementation_upgraded"
)

// Record is a single audit trail entry. Only the fields relevant to the
// record's Kind are populated; monetary fields carry decimal strings so the
// encoded form is stable across hosts. An empty Currency on a monetary record
// means the native settlement currency.
type Record struct {
	Kind     Kind      `cbor:"kind" json:"kind"`
	Time     time.Time `cbor:"time" json:"time"`
	Instance string    `cbor:"instance,omitempty" json:"instance,omitempty"`

	Seller        string    `cbor:"seller,omitempty" json:"seller,omitempty"`
	Bidder        string    `cbor:"bidder,omitempty" json:"bidder,omitempty"`
	Asset         string    `cbor:"asset,omitempty" json:"asset,omitempty"`
	StartingPrice string    `cbor:"starting_price,omitempty" json:"starting_price,omitempty"`
	Deadline      time.Time `cbor:"deadline,omitempty" json:"deadline,omitempty"`

	Currency   string `cbor:"currency,omitempty" json:"currency,omitempty"`
	Amount     string `cbor:"amount,omitempty" json:"amount,omitempty"`
	Normalized string `cbor:"normalized,omitempty" json:"normalized,omitempty"`

	Version           uint64 `cbor:"version,omitempty" json:"version,omitempty"`
	OldImplementation string `cbor:"old_implementation,omitempty" json:"old_implementation,omitempty"`
	NewImplementation string `cbor:"new_implementation,omitempty" json:"new_implementation,omitempty"`
}

// Sink receives audit records as they are emitted.
type Sink interface {
	Record(Record)
}

// Log is an in-memory Sink that keeps every record in order and maintains a
// SHA-256 hash chain over their canonical encoding. The chain head pins the
// full history: any change to a past record changes the head digest.
type Log struct {
	mu      sync.Mutex
	records []Record
	digest  string
}

// NewLog returns an empty audit log.
func NewLog() *Log {
	return &Log{}
}

// Record appends r to the log and advances the hash chain.
func (l *Log) Record(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	l.digest = chainDigest(l.digest, r)
}

// Records returns a copy of the full ordered trail.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Digest returns the current head of the hash chain as a hex string. The
// digest of an empty log is the empty string.
func (l *Log) Digest() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.digest
}

// chainDigest computes the next chain head from the previous head and the
// canonical encoding of r.
//
// Formula: SHA256(prev + "|" + canonical(r))
func chainDigest(prev string, r Record) string {
	hash := sha256.Sum256([]byte(prev + "|" + canonical(r)))
	return fmt.Sprintf("%x", hash)
}

// canonical renders every field of r in a fixed order. Timestamps use unix
// nanoseconds to avoid formatting ambiguity; string fields are quoted so a
// separator character inside a field cannot collide with the field boundary.
func canonical(r Record) string {
	return fmt.Sprintf("%q|%d|%q|%q|%q|%q|%q|%d|%q|%q|%q|%d|%q|%q",
		string(r.Kind), r.Time.UnixNano(), r.Instance,
		r.Seller, r.Bidder, r.Asset, r.StartingPrice, r.Deadline.UnixNano(),
		r.Currency, r.Amount, r.Normalized,
		r.Version, r.OldImplementation, r.NewImplementation)
}
