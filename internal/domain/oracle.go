package domain

import "github.com/ethereum/go-ethereum/common"

// PriceReport is an untrusted oracle observation. The engine validates feed
// identity and freshness at the instruction boundary before any arithmetic
// uses the price; a cached prior report is never trusted.
type PriceReport struct {
	FeedID      common.Hash
	Price       int64
	PublishedAt int64 // unix seconds
}

// MaxOracleAge is the freshness window for price reports, in seconds.
const MaxOracleAge = 60
