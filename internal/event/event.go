// Package event defines the DEX-agnostic event shapes persisted by the
// indexer and the Orca Whirlpool detail records decoded from program logs.
package event

import "time"

// Kind identifies which detail table a Base row pairs with.
type Kind string

const (
	KindTraded             Kind = "Traded"
	KindLiquidityIncreased Kind = "LiquidityIncreased"
	KindLiquidityDecreased Kind = "LiquidityDecreased"
)

// Base is the DEX-agnostic envelope persisted once per on-chain event,
// regardless of kind. Signature is globally unique; the repository's
// at-most-once guarantee is enforced on this column.
type Base struct {
	ID        int64 // 0 until assigned by the repository
	Signature string
	Pool      string // whirlpool address
	Kind      Kind
	Version   int
	Timestamp time.Time
}

// TradedDetail is the Orca Whirlpool swap detail row, keyed by the Base's ID.
// PreSqrtPrice/PostSqrtPrice are on-chain u128 values carried as decimal
// strings so repositories can store them as NUMERIC without truncation; the
// amounts and fees are u64 values.
type TradedDetail struct {
	EventID           int64
	AToB              bool
	PreSqrtPrice      string
	PostSqrtPrice     string
	InputAmount       uint64
	OutputAmount      uint64
	InputTransferFee  uint64
	OutputTransferFee uint64
	LPFee             uint64
	ProtocolFee       uint64
}

// LiquidityDetail is shared by LiquidityIncreased and LiquidityDecreased
// events; the distinction lives entirely in Base.Kind.
type LiquidityDetail struct {
	EventID           int64
	Position          string
	TickLowerIndex    int32
	TickUpperIndex    int32
	Liquidity         string // u128, decimal string
	TokenAAmount      uint64
	TokenBAmount      uint64
	TokenATransferFee uint64
	TokenBTransferFee uint64
}

// Parsed is the pure-decoder output: one on-chain event with its detail
// payload, not yet assigned a Base.ID. Exactly one of Traded/Liquidity is set,
// selected by Kind.
type Parsed struct {
	Base      Base
	Traded    *TradedDetail
	Liquidity *LiquidityDetail
}
