package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudx-io/assetauction/core"
)

// Custodian is an in-memory asset custodian tracking one owner per asset.
type Custodian struct {
	mu     sync.RWMutex
	owners map[core.AssetRef]core.Address
}

func NewCustodian() *Custodian {
	return &Custodian{owners: make(map[core.AssetRef]core.Address)}
}

// Mint assigns an asset to its first owner.
func (c *Custodian) Mint(asset core.AssetRef, owner core.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[asset] = owner
}

// OwnerOf returns the current owner of asset, or the null identity.
func (c *Custodian) OwnerOf(asset core.AssetRef) core.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owners[asset]
}

func (c *Custodian) Transfer(ctx context.Context, asset core.AssetRef, from, to core.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if to.IsZero() {
		return fmt.Errorf("memory custodian: transfer of %s to the null identity", asset)
	}
	if c.owners[asset] != from {
		return fmt.Errorf("memory custodian: %s does not own %s", from, asset)
	}
	c.owners[asset] = to
	return nil
}
