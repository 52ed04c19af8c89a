// Package ledger provides the in-process implementations of the collateral
// transfer and share mint/burn primitives. Balances are exclusively owned by
// the engine runtime; the only mutation path is through engine instructions,
// each of which is individually atomic.
package ledger

import (
	"context"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
)

// Bank implements domain.CollateralBank over an in-memory balance map.
type Bank struct {
	mu       sync.RWMutex
	balances map[common.Address]uint64
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[common.Address]uint64)}
}

// Deposit credits an account from outside the engine (user funding). Returns
// ErrMathOverflow if the balance would wrap.
func (b *Bank) Deposit(account common.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.balances[account]
	if cur > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	b.balances[account] = cur + amount
	return nil
}

// Transfer moves amount between accounts. The debit is checked: the whole
// transfer fails with ErrInsufficientFunds before any balance changes.
func (b *Bank) Transfer(_ context.Context, from, to common.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.balances[from]
	if src < amount {
		return domain.ErrInsufficientFunds
	}
	dst := b.balances[to]
	if dst > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	b.balances[from] = src - amount
	b.balances[to] = dst + amount
	return nil
}

// Balance reports an account's collateral balance.
func (b *Bank) Balance(_ context.Context, account common.Address) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[account], nil
}

// TotalIssued sums every balance; test hook for conservation checks.
func (b *Bank) TotalIssued() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total uint64
	for _, v := range b.balances {
		total += v
	}
	return total
}
