package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle reports the current price of a currency from a registered feed.
// Consumed, not implemented, by the auction core.
type PriceOracle interface {
	// CurrentPrice returns the latest price published by feed together with
	// the fixed-point scale of that price. Any error, and any zero or
	// negative price, must fail the calling operation: there is no fallback
	// price for a stale or broken feed.
	CurrentPrice(ctx context.Context, feed Address) (price decimal.Decimal, decimals int32, err error)
}

// AssetCustodian transfers ownership of uniquely identified assets. The
// custodian routes on the asset's Custodian identity, so a single adapter can
// front any number of custodian contracts.
type AssetCustodian interface {
	// Transfer moves the asset from one owner to another. A failure must
	// leave ownership untouched and aborts the calling operation.
	Transfer(ctx context.Context, asset AssetRef, from, to Address) error
}

// SettlementLedger moves fungible value between accounts. The zero currency
// identity addresses the native settlement balance family; any other identity
// addresses an approved token, so one ledger adapter carries both currency
// families and keeps their base-unit scales.
type SettlementLedger interface {
	// Pull moves amount of currency from owner to recipient against a
	// spending authorization previously granted by owner. Insufficient
	// balance or authorization fails the pull with no partial transfer.
	Pull(ctx context.Context, currency Address, owner, recipient Address, amount decimal.Decimal) error

	// Push moves amount of the owner's own currency balance to recipient.
	Push(ctx context.Context, currency Address, owner, recipient Address, amount decimal.Decimal) error

	// Decimals returns the base-unit scale of currency.
	Decimals(ctx context.Context, currency Address) (int32, error)
}
