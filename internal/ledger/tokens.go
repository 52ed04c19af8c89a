package ledger

import (
	"context"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
)

// TokenLedger implements domain.ShareLedger. Supply is exactly net
// minted-minus-burned per token at all times; it is the settlement
// denominator for payouts, never the AMM reserve.
type TokenLedger struct {
	mu       sync.RWMutex
	supplies map[common.Address]uint64
	holdings map[common.Address]map[common.Address]uint64 // token -> holder -> balance
}

// NewTokenLedger creates an empty TokenLedger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{
		supplies: make(map[common.Address]uint64),
		holdings: make(map[common.Address]map[common.Address]uint64),
	}
}

// Mint credits amount of token to the holder and grows the supply.
func (t *TokenLedger) Mint(_ context.Context, token, to common.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.supplies[token] > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	holders := t.holdings[token]
	if holders == nil {
		holders = make(map[common.Address]uint64)
		t.holdings[token] = holders
	}
	if holders[to] > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	t.supplies[token] += amount
	holders[to] += amount
	return nil
}

// Burn removes amount of token from the holder and shrinks the supply.
// Checked: fails with ErrInsufficientShares before any change.
func (t *TokenLedger) Burn(_ context.Context, token, from common.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	holders := t.holdings[token]
	if holders == nil || holders[from] < amount {
		return domain.ErrInsufficientShares
	}
	holders[from] -= amount
	t.supplies[token] -= amount
	return nil
}

// Supply reports the outstanding supply of a token.
func (t *TokenLedger) Supply(_ context.Context, token common.Address) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supplies[token], nil
}

// BalanceOf reports a holder's balance of a token.
func (t *TokenLedger) BalanceOf(_ context.Context, token, holder common.Address) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.holdings[token][holder], nil
}
