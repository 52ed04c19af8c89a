package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PlatformConfig is the singleton platform record. It is created once by
// InitPlatform and afterwards mutated only by admin-authenticated
// instructions; it is never destroyed. Admin is the sole authority for every
// privileged operation in the engine.
type PlatformConfig struct {
	Admin           common.Address
	FeeBps          uint16
	Treasury        common.Address
	CollateralAsset common.Address
	DisputeBond     uint64
	Paused          bool
	TotalMarkets    uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy for copy-mutate-commit instruction handling.
func (p *PlatformConfig) Clone() *PlatformConfig {
	c := *p
	return &c
}
