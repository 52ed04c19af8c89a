// Package pda derives deterministic account addresses from fixed seed
// namespaces. Every account reference passed into a privileged instruction
// must match the derivation for its role; the check replaces any notion of
// caller-supplied pointer identity and is re-verified on every call, never
// cached.
package pda

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/openpredict/predictd/internal/domain"
)

// Seed namespaces. Each binds an account to a specific market or role.
const (
	seedPlatform = "platform_config"
	seedMarket   = "market"
	seedVault    = "vault"
	seedYesMint  = "yes_mint"
	seedNoMint   = "no_mint"
	seedPosition = "position"
	seedDispute  = "dispute"
)

// Deriver computes addresses under one engine identity. Two engines with
// different program addresses derive disjoint account spaces.
type Deriver struct {
	program common.Address
}

// NewDeriver creates a Deriver bound to the engine's own identity.
func NewDeriver(program common.Address) *Deriver {
	return &Deriver{program: program}
}

// derive hashes program || namespace || parts and takes the trailing 20
// bytes of the keccak digest as the address.
func (d *Deriver) derive(namespace string, parts ...[]byte) common.Address {
	data := make([]byte, 0, 64)
	data = append(data, d.program.Bytes()...)
	data = append(data, []byte(namespace)...)
	for _, p := range parts {
		data = append(data, p...)
	}
	return common.BytesToAddress(ethcrypto.Keccak256(data)[12:])
}

// Platform returns the singleton platform-config address.
func (d *Deriver) Platform() common.Address {
	return d.derive(seedPlatform)
}

// Market returns the state address for a market id.
func (d *Deriver) Market(id uint64) common.Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return d.derive(seedMarket, buf[:])
}

// Vault returns the escrow vault address for a market.
func (d *Deriver) Vault(market common.Address) common.Address {
	return d.derive(seedVault, market.Bytes())
}

// YesMint returns the YES share-token address for a market.
func (d *Deriver) YesMint(market common.Address) common.Address {
	return d.derive(seedYesMint, market.Bytes())
}

// NoMint returns the NO share-token address for a market.
func (d *Deriver) NoMint(market common.Address) common.Address {
	return d.derive(seedNoMint, market.Bytes())
}

// Position returns the position address for (market, user).
func (d *Deriver) Position(market, user common.Address) common.Address {
	return d.derive(seedPosition, market.Bytes(), user.Bytes())
}

// Dispute returns the dispute-record address for a market.
func (d *Deriver) Dispute(market common.Address) common.Address {
	return d.derive(seedDispute, market.Bytes())
}

// Expect rejects an account reference that does not match its derivation.
// It runs before any state is touched, independent of the admin check.
func Expect(got, want common.Address) error {
	if got != want {
		return domain.ErrInvalidSeeds
	}
	return nil
}
