package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/assetauction/core"
)

type balanceKey struct {
	currency core.Address
	account  core.Address
}

type allowanceKey struct {
	currency core.Address
	owner    core.Address
	spender  core.Address
}

// Ledger is an in-memory settlement ledger for both currency families: the
// native balance lives at the zero currency identity with 18 decimals, token
// balances under their own identities. Token pulls consume an allowance the
// owner granted to the recipient; native value accompanies the call, so
// native pulls only check balance.
type Ledger struct {
	mu         sync.Mutex
	decimals   map[core.Address]int32
	balances   map[balanceKey]decimal.Decimal
	allowances map[allowanceKey]decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{
		decimals:   map[core.Address]int32{core.NativeCurrency: 18},
		balances:   make(map[balanceKey]decimal.Decimal),
		allowances: make(map[allowanceKey]decimal.Decimal),
	}
}

// RegisterCurrency declares a token currency and its base-unit scale.
func (l *Ledger) RegisterCurrency(currency core.Address, decimals int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decimals[currency] = decimals
}

// Mint credits an account out of thin air.
func (l *Ledger) Mint(currency, account core.Address, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := balanceKey{currency: currency, account: account}
	l.balances[k] = l.balances[k].Add(amount)
}

// Approve grants spender the right to pull up to amount of owner's currency.
func (l *Ledger) Approve(currency, owner, spender core.Address, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{currency: currency, owner: owner, spender: spender}] = amount
}

// BalanceOf returns the account's balance in currency.
func (l *Ledger) BalanceOf(currency, account core.Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{currency: currency, account: account}]
}

func (l *Ledger) Decimals(ctx context.Context, currency core.Address) (int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.decimals[currency]
	if !ok {
		return 0, fmt.Errorf("memory ledger: unknown currency %q", currency)
	}
	return d, nil
}

func (l *Ledger) Pull(ctx context.Context, currency core.Address, owner, recipient core.Address, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if currency != core.NativeCurrency {
		ak := allowanceKey{currency: currency, owner: owner, spender: recipient}
		if l.allowances[ak].LessThan(amount) {
			return fmt.Errorf("memory ledger: insufficient allowance from %s to %s", owner, recipient)
		}
		l.allowances[ak] = l.allowances[ak].Sub(amount)
	}
	return l.move(currency, owner, recipient, amount)
}

func (l *Ledger) Push(ctx context.Context, currency core.Address, owner, recipient core.Address, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(currency, owner, recipient, amount)
}

// move debits owner and credits recipient. Callers hold the mutex.
func (l *Ledger) move(currency core.Address, owner, recipient core.Address, amount decimal.Decimal) error {
	from := balanceKey{currency: currency, account: owner}
	if l.balances[from].LessThan(amount) {
		return fmt.Errorf("memory ledger: insufficient %q balance for %s", currency, owner)
	}
	to := balanceKey{currency: currency, account: recipient}
	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}
