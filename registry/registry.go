// Package registry implements the auction factory: it creates one auction
// instance per distinct asset, tracks every instance it created, and lets a
// single authority roll the implementation template forward for future
// instances without disturbing running ones.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/assetauction/audit"
	"github.com/cloudx-io/assetauction/core"
)

var (
	ErrInvalidAuthority      = errors.New("auction factory: invalid authority identity")
	ErrInvalidSeller         = errors.New("auction factory: invalid seller identity")
	ErrInvalidAsset          = errors.New("auction factory: invalid asset custodian")
	ErrInvalidPrice          = errors.New("auction factory: starting price must be greater than zero")
	ErrInvalidDuration       = errors.New("auction factory: invalid duration")
	ErrAlreadyExists         = errors.New("auction factory: auction already exists for asset")
	ErrUnauthorized          = errors.New("auction factory: unauthorized")
	ErrInvalidImplementation = errors.New("auction factory: invalid implementation")
)

// Implementation is a versioned auction template: an identity plus the
// constructor the factory invokes for each new instance. Swapping the
// registry's implementation only changes which template future creations
// bind to.
type Implementation struct {
	Ref core.Address
	New func(core.Config) (*core.Auction, error)
}

// DefaultImplementation returns the stock auction template under the given
// identity.
func DefaultImplementation(ref core.Address) Implementation {
	return Implementation{Ref: ref, New: core.New}
}

// Config carries the registry's authority, initial template, and the adapters
// handed to every instance it creates.
type Config struct {
	Authority      core.Address
	Implementation Implementation

	Oracle    core.PriceOracle
	Custodian core.AssetCustodian
	Ledger    core.SettlementLedger
	Events    audit.Sink       // optional; nil discards records
	Now       func() time.Time // optional; defaults to time.Now
}

// Registry creates and tracks auction instances. For a given asset key at
// most one instance ever exists for the registry's lifetime: entries are
// created once and never replaced.
type Registry struct {
	mu sync.Mutex

	authority core.Address
	impl      Implementation
	version   uint64

	byAsset   map[core.AssetRef]core.Address
	order     []core.Address
	instances map[core.Address]*core.Auction

	oracle    core.PriceOracle
	custodian core.AssetCustodian
	ledger    core.SettlementLedger
	events    audit.Sink
	now       func() time.Time
}

// New builds a registry with implementation version 1.
func New(cfg Config) (*Registry, error) {
	if cfg.Authority.IsZero() {
		return nil, ErrInvalidAuthority
	}
	if cfg.Implementation.Ref.IsZero() || cfg.Implementation.New == nil {
		return nil, ErrInvalidImplementation
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		authority: cfg.Authority,
		impl:      cfg.Implementation,
		version:   1,
		byAsset:   make(map[core.AssetRef]core.Address),
		instances: make(map[core.Address]*core.Auction),
		oracle:    cfg.Oracle,
		custodian: cfg.Custodian,
		ledger:    cfg.Ledger,
		events:    cfg.Events,
		now:       now,
	}, nil
}

// CreateInstance builds a new auction for an asset the seller custodies,
// bound to the currently active implementation. Custody of the asset moves
// from the seller into the instance before the instance is published; a
// failed custody transfer aborts the creation with no mapping recorded.
func (r *Registry) CreateInstance(ctx context.Context, seller core.Address, asset core.AssetRef, startingPrice decimal.Decimal, duration time.Duration, nativeFeed core.Address) (core.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seller.IsZero() {
		return core.ZeroAddress, ErrInvalidSeller
	}
	if asset.Custodian.IsZero() {
		return core.ZeroAddress, ErrInvalidAsset
	}
	if startingPrice.Sign() <= 0 {
		return core.ZeroAddress, ErrInvalidPrice
	}
	if duration <= 0 {
		return core.ZeroAddress, ErrInvalidDuration
	}
	if nativeFeed.IsZero() {
		return core.ZeroAddress, core.ErrInvalidOracle
	}
	if _, ok := r.byAsset[asset]; ok {
		return core.ZeroAddress, ErrAlreadyExists
	}

	// Custody moves in before the instance exists, so a failed transfer never
	// leaves a creation record behind.
	addr := core.Address(uuid.NewString())
	if err := r.custodian.Transfer(ctx, asset, seller, addr); err != nil {
		return core.ZeroAddress, fmt.Errorf("%w: %v", core.ErrTransferFailed, err)
	}

	inst, err := r.impl.New(core.Config{
		Address:               addr,
		Seller:                seller,
		Asset:                 asset,
		StartingPrice:         startingPrice,
		Duration:              duration,
		NativeFeed:            nativeFeed,
		Oracle:                r.oracle,
		Custodian:             r.custodian,
		Ledger:                r.ledger,
		Events:                r.events,
		Now:                   r.now,
		ImplementationRef:     r.impl.Ref,
		ImplementationVersion: r.version,
	})
	if err != nil {
		if rbErr := r.custodian.Transfer(ctx, asset, addr, seller); rbErr != nil {
			log.Printf("ERROR: Returning custody of %s to %s failed: %v", asset, seller, rbErr)
		}
		return core.ZeroAddress, err
	}

	r.byAsset[asset] = addr
	r.order = append(r.order, addr)
	r.instances[addr] = inst
	return addr, nil
}

// GetInstance returns the instance identity created for asset, or the null
// identity if none exists. Never fails.
func (r *Registry) GetInstance(asset core.AssetRef) core.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byAsset[asset]
}

// Instance resolves an instance identity to its auction handle, or nil.
func (r *Registry) Instance(addr core.Address) *core.Auction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instances[addr]
}

// ListInstances returns the ordered sequence of every instance identity this
// registry created.
func (r *Registry) ListInstances() []core.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Address, len(r.order))
	copy(out, r.order)
	return out
}

// UpgradeImplementation swaps the template used for subsequently created
// instances and bumps the version by one. Authority-only. Already-created
// instances keep running the template they were bound to.
func (r *Registry) UpgradeImplementation(caller core.Address, impl Implementation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.authority {
		return ErrUnauthorized
	}
	if impl.Ref.IsZero() || impl.New == nil {
		return ErrInvalidImplementation
	}

	old := r.impl.Ref
	r.impl = impl
	r.version++

	r.emit(audit.Record{
		Kind:              audit.KindImplementationUpgraded,
		Version:           r.version,
		OldImplementation: string(old),
		NewImplementation: string(impl.Ref),
	})
	return nil
}

// Authority returns the identity permitted to upgrade the implementation.
func (r *Registry) Authority() core.Address {
	return r.authority
}

// ImplementationRef returns the template identity used for new instances.
func (r *Registry) ImplementationRef() core.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.impl.Ref
}

// ImplementationVersion returns the current template version. It starts at 1
// and increases by exactly 1 per successful upgrade.
func (r *Registry) ImplementationVersion() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

func (r *Registry) emit(rec audit.Record) {
	if r.events == nil {
		return
	}
	rec.Time = r.now()
	r.events.Record(rec)
}
