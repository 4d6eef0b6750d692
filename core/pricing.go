package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// normalize converts a raw base-unit amount of a currency into
// ReferenceDecimals-scale reference units using the feed's current price.
//
// Formula: amount * price * 10^(ReferenceDecimals - currencyDecimals - priceDecimals)
//
// With an 18-decimal native currency and an 8-decimal feed at 2000e8, a bid of
// 1e18 base units normalizes to 2000e18; a 6-decimal token at 1e8 normalizes
// 2000e6 base units to the same 2000e18 scale, so bids from both currency
// families compare directly.
func normalize(ctx context.Context, oracle PriceOracle, feed Address, amount decimal.Decimal, currencyDecimals int32) (decimal.Decimal, error) {
	price, priceDecimals, err := oracle.CurrentPrice(ctx, feed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: feed %s: %v", ErrOraclePrice, feed, err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: feed %s reported %s", ErrOraclePrice, feed, price)
	}
	return amount.Mul(price).Shift(ReferenceDecimals - currencyDecimals - priceDecimals), nil
}
