// Package memory provides in-process implementations of the core adapter
// contracts for tests and local tooling: a settable price oracle, an
// owner-checked asset custodian, and a balance/allowance settlement ledger.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/assetauction/core"
)

type pricePoint struct {
	price    decimal.Decimal
	decimals int32
}

// Oracle is an in-memory price oracle keyed by feed identity.
type Oracle struct {
	mu     sync.RWMutex
	feeds  map[core.Address]pricePoint
	broken map[core.Address]error
}

func NewOracle() *Oracle {
	return &Oracle{
		feeds:  make(map[core.Address]pricePoint),
		broken: make(map[core.Address]error),
	}
}

// SetPrice publishes a price on a feed at the given fixed-point scale.
func (o *Oracle) SetPrice(feed core.Address, price decimal.Decimal, decimals int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.feeds[feed] = pricePoint{price: price, decimals: decimals}
	delete(o.broken, feed)
}

// Break makes a feed return err until the next SetPrice, simulating a stale
// or failing upstream oracle.
func (o *Oracle) Break(feed core.Address, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.broken[feed] = err
}

func (o *Oracle) CurrentPrice(ctx context.Context, feed core.Address) (decimal.Decimal, int32, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if err, ok := o.broken[feed]; ok {
		return decimal.Zero, 0, err
	}
	p, ok := o.feeds[feed]
	if !ok {
		return decimal.Zero, 0, fmt.Errorf("memory oracle: no such feed %q", feed)
	}
	return p.price, p.decimals, nil
}
