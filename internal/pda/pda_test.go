package pda_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/pda"
)

var program = common.HexToAddress("0x00000000000000000000000000000000deadbeef")

func TestDeriver_Deterministic(t *testing.T) {
	a := pda.NewDeriver(program)
	b := pda.NewDeriver(program)

	if a.Market(7) != b.Market(7) {
		t.Error("same program and seeds must derive the same market address")
	}
	m := a.Market(7)
	if a.Vault(m) != b.Vault(m) {
		t.Error("vault derivation must be deterministic")
	}
}

func TestDeriver_DistinctNamespaces(t *testing.T) {
	d := pda.NewDeriver(program)
	m := d.Market(1)

	addrs := []common.Address{
		d.Platform(),
		m,
		d.Vault(m),
		d.YesMint(m),
		d.NoMint(m),
		d.Dispute(m),
		d.Position(m, common.HexToAddress("0x01")),
	}
	seen := make(map[common.Address]bool, len(addrs))
	for _, a := range addrs {
		if seen[a] {
			t.Fatalf("address collision across namespaces: %s", a)
		}
		seen[a] = true
	}
}

func TestDeriver_DistinctPrograms(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000cafebabe")
	if pda.NewDeriver(program).Market(1) == pda.NewDeriver(other).Market(1) {
		t.Error("different engine identities must derive disjoint addresses")
	}
}

func TestDeriver_DistinctMarkets(t *testing.T) {
	d := pda.NewDeriver(program)
	if d.Market(1) == d.Market(2) {
		t.Error("different market ids must derive different addresses")
	}
}

func TestExpect(t *testing.T) {
	d := pda.NewDeriver(program)
	m := d.Market(42)

	if err := pda.Expect(m, d.Market(42)); err != nil {
		t.Errorf("matching address rejected: %v", err)
	}
	err := pda.Expect(m, d.Market(43))
	if !errors.Is(err, domain.ErrInvalidSeeds) {
		t.Errorf("got %v, want ErrInvalidSeeds", err)
	}
}
