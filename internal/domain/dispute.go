package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DisputeStatus is the lifecycle of a dispute record. Upheld and Rejected
// are terminal.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeUpheld   DisputeStatus = "upheld"
	DisputeRejected DisputeStatus = "rejected"
)

// DisputeRecord challenges a market's resolved outcome. At most one exists
// per market. The bond is forfeited to the treasury regardless of the
// settlement decision.
type DisputeRecord struct {
	MarketID   uint64
	Disputer   common.Address
	Reason     string
	BondAmount uint64
	Status     DisputeStatus

	CreatedAt  time.Time
	ResolvedAt *int64
}

// Clone returns a copy for copy-mutate-commit instruction handling.
func (d *DisputeRecord) Clone() *DisputeRecord {
	c := *d
	if d.ResolvedAt != nil {
		t := *d.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
