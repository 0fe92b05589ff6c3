package event

import "time"

// Pool is a tracked Orca Whirlpool, populated by the external pool loader
// this indexer does not own. The indexer only reads this table.
type Pool struct {
	Address    string
	Dex        string
	TokenMintA string
	TokenMintB string
	Name       *string
	DecimalsA  int
	DecimalsB  int
	AddedAt    time.Time
}

// TokenMetadata is read-only token metadata, also populated externally.
type TokenMetadata struct {
	Mint      string
	Name      *string
	Symbol    *string
	Decimals  int
	UpdatedAt time.Time
}

// SignatureCursor records the most recently persisted signature for a pool,
// the resume point for both backfill and the live buffer drain. Slot orders
// cursors when the live subscription and a backfill pass race to advance
// the same pool; signatures carry no ordering of their own.
type SignatureCursor struct {
	PoolAddress string
	Dex         string
	Signature   string
	Slot        int64
	UpdatedAt   time.Time
}
