// Package core implements the per-asset auction state machine: bid admission
// with cross-currency value normalization, escrow with refund-on-outbid, and
// post-expiry settlement. External value movement goes through the narrow
// adapter contracts in adapters.go; the package holds no ambient globals.
package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Address identifies a party, instance, currency, or price feed. The zero
// value is the null identity.
type Address string

// ZeroAddress is the null identity.
const ZeroAddress Address = ""

// NativeCurrency is the sentinel currency identity for value denominated in
// the native settlement currency. It is deliberately the null identity, so a
// bid record with an empty currency always reads as a native bid.
const NativeCurrency Address = ""

// IsZero reports whether a is the null identity.
func (a Address) IsZero() bool { return a == ZeroAddress }

// AssetRef identifies a unique asset: the custodian contract holding it and
// the asset identifier within that custodian.
type AssetRef struct {
	Custodian Address
	TokenID   uint64
}

func (r AssetRef) String() string {
	return fmt.Sprintf("%s/%d", r.Custodian, r.TokenID)
}

// ReferenceDecimals is the fixed-point scale of normalized reference-unit
// (USD-equivalent) values. All bids are compared on this scale regardless of
// the currency they were placed in.
const ReferenceDecimals int32 = 18

// Bid is a bid held in escrow: the raw amount in its original currency plus
// the normalized reference-unit value it was admitted at.
type Bid struct {
	Bidder     Address
	Amount     decimal.Decimal // base units of Currency
	Currency   Address         // NativeCurrency or a token identity
	Normalized decimal.Decimal // ReferenceDecimals-scale value
}

// AuctionInfo is a read-only snapshot of an auction's public state.
type AuctionInfo struct {
	Seller        Address
	Asset         AssetRef
	StartingPrice decimal.Decimal
	Deadline      time.Time

	CurrentBidder      Address
	CurrentBidAmount   decimal.Decimal
	CurrentBidCurrency Address
	CurrentBidValue    decimal.Decimal

	Ended          bool
	AssetClaimed   bool
	PaymentClaimed bool

	ImplementationRef     Address
	ImplementationVersion uint64
}
