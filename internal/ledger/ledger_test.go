package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/ledger"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	vault = common.HexToAddress("0x7a017")
)

func TestBank_TransferMovesFunds(t *testing.T) {
	ctx := context.Background()
	b := ledger.NewBank()
	if err := b.Deposit(alice, 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := b.Transfer(ctx, alice, vault, 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	got, _ := b.Balance(ctx, alice)
	if got != 600 {
		t.Errorf("alice: got %d, want 600", got)
	}
	got, _ = b.Balance(ctx, vault)
	if got != 400 {
		t.Errorf("vault: got %d, want 400", got)
	}
}

func TestBank_TransferChecked(t *testing.T) {
	ctx := context.Background()
	b := ledger.NewBank()
	_ = b.Deposit(alice, 100)

	err := b.Transfer(ctx, alice, vault, 101)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	// No partial effect.
	got, _ := b.Balance(ctx, alice)
	if got != 100 {
		t.Errorf("alice mutated on failed transfer: %d", got)
	}
	got, _ = b.Balance(ctx, vault)
	if got != 0 {
		t.Errorf("vault mutated on failed transfer: %d", got)
	}
}

func TestBank_ConservesTotal(t *testing.T) {
	ctx := context.Background()
	b := ledger.NewBank()
	_ = b.Deposit(alice, 5_000)
	_ = b.Deposit(bob, 3_000)

	_ = b.Transfer(ctx, alice, bob, 1_234)
	_ = b.Transfer(ctx, bob, vault, 2_000)

	if total := b.TotalIssued(); total != 8_000 {
		t.Errorf("total: got %d, want 8000", total)
	}
}

func TestTokenLedger_SupplyTracksMintBurn(t *testing.T) {
	ctx := context.Background()
	tl := ledger.NewTokenLedger()
	token := common.HexToAddress("0x7e5")

	if err := tl.Mint(ctx, token, alice, 700); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tl.Mint(ctx, token, bob, 300); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tl.Burn(ctx, token, alice, 200); err != nil {
		t.Fatalf("burn: %v", err)
	}

	supply, _ := tl.Supply(ctx, token)
	if supply != 800 {
		t.Errorf("supply: got %d, want 800", supply)
	}
	bal, _ := tl.BalanceOf(ctx, token, alice)
	if bal != 500 {
		t.Errorf("alice: got %d, want 500", bal)
	}
}

func TestTokenLedger_BurnChecked(t *testing.T) {
	ctx := context.Background()
	tl := ledger.NewTokenLedger()
	token := common.HexToAddress("0x7e5")
	_ = tl.Mint(ctx, token, alice, 50)

	err := tl.Burn(ctx, token, alice, 51)
	if !errors.Is(err, domain.ErrInsufficientShares) {
		t.Fatalf("got %v, want ErrInsufficientShares", err)
	}
	supply, _ := tl.Supply(ctx, token)
	if supply != 50 {
		t.Errorf("supply mutated on failed burn: %d", supply)
	}
}

func TestTokenLedger_BurnFromUnknownHolder(t *testing.T) {
	ctx := context.Background()
	tl := ledger.NewTokenLedger()
	token := common.HexToAddress("0x7e5")

	if err := tl.Burn(ctx, token, alice, 1); !errors.Is(err, domain.ErrInsufficientShares) {
		t.Fatalf("got %v, want ErrInsufficientShares", err)
	}
}
