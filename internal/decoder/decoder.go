// Package decoder implements the Orca Whirlpool event decoder (L3): a pure
// function turning one transaction's log lines into typed events.
package decoder

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"orca-indexer/internal/event"
)

// programDataPrefix is the substring preceding the base64 event payload on
// a Solana log line. Lines look like "Program log: Program data: <base64>"
// so the prefix is matched anywhere in the line, not just at its start.
const programDataPrefix = "Program data: "

// markers is the fast-path textual filter: if none of these appear anywhere
// in the bundle, the bundle carries no Orca Whirlpool event and decoding is
// skipped outright.
var markers = []string{"Swap", "IncreaseLiquidity", "DecreaseLiquidity"}

// Issue describes one dropped or malformed payload within a bundle.
// Decoding continues past an Issue; it never aborts the whole bundle.
type Issue struct {
	Signature string
	Reason    string
}

func (i Issue) Error() string {
	return fmt.Sprintf("signature=%s: %s", i.Signature, i.Reason)
}

// DecodeBundle extracts Orca Whirlpool events from one transaction's log
// lines. It is a pure function: no network or database access, and
// identical input always produces identical output. Malformed payloads are
// reported as Issues and skipped; they never abort decoding of the rest of
// the bundle.
func DecodeBundle(signature string, logs []string, timestamp time.Time) ([]event.Parsed, []Issue) {
	if !hasAnyMarker(logs) {
		return nil, nil
	}

	var (
		parsed []event.Parsed
		issues []Issue
	)

	for _, line := range logs {
		idx := strings.Index(line, programDataPrefix)
		if idx < 0 {
			continue
		}
		encoded := line[idx+len(programDataPrefix):]

		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			issues = append(issues, Issue{Signature: signature, Reason: "malformed base64: " + err.Error()})
			continue
		}

		if len(data) < 8 {
			issues = append(issues, Issue{Signature: signature, Reason: fmt.Sprintf("payload too short for a discriminator: got %d bytes", len(data))})
			continue
		}

		p, err := decodeVariant(data, signature, timestamp)
		if err != nil {
			issues = append(issues, Issue{Signature: signature, Reason: err.Error()})
			continue
		}

		parsed = append(parsed, *p)
	}

	return parsed, issues
}

func hasAnyMarker(logs []string) bool {
	for _, line := range logs {
		for _, m := range markers {
			if strings.Contains(line, m) {
				return true
			}
		}
	}
	return false
}

func decodeVariant(data []byte, signature string, timestamp time.Time) (*event.Parsed, error) {
	var disc [8]byte
	copy(disc[:], data[:8])
	body := data[8:]

	switch disc {
	case TradedDiscriminator:
		return decodeTraded(body, signature, timestamp)
	case LiquidityIncreasedDiscriminator:
		return decodeLiquidity(body, signature, timestamp, event.KindLiquidityIncreased)
	case LiquidityDecreasedDiscriminator:
		return decodeLiquidity(body, signature, timestamp, event.KindLiquidityDecreased)
	default:
		return nil, fmt.Errorf("unknown discriminator %x", disc)
	}
}

// Traded layout (after the 8-byte discriminator):
//
//	whirlpool            32 bytes
//	a_to_b                1 byte  (bool)
//	pre_sqrt_price        16 bytes (u128 LE)
//	post_sqrt_price       16 bytes (u128 LE)
//	input_amount           8 bytes (u64 LE)
//	output_amount          8 bytes (u64 LE)
//	input_transfer_fee      8 bytes (u64 LE)
//	output_transfer_fee     8 bytes (u64 LE)
//	lp_fee                  8 bytes (u64 LE)
//	protocol_fee            8 bytes (u64 LE)
const tradedBodyLen = 32 + 1 + 16 + 16 + 8 + 8 + 8 + 8 + 8 + 8

func decodeTraded(body []byte, signature string, timestamp time.Time) (*event.Parsed, error) {
	if len(body) < tradedBodyLen {
		return nil, fmt.Errorf("traded payload too short: got %d want %d", len(body), tradedBodyLen)
	}

	off := 0
	pool := readPubkey(body, &off)
	aToB := body[off] != 0
	off++
	preSqrt := readU128(body, &off)
	postSqrt := readU128(body, &off)

	inputAmount, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}
	outputAmount, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}
	inputFee, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}
	outputFee, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}
	lpFee, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}
	protocolFee, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}

	return &event.Parsed{
		Base: event.Base{
			Signature: signature,
			Pool:      pool,
			Kind:      event.KindTraded,
			Version:   1,
			Timestamp: timestamp,
		},
		Traded: &event.TradedDetail{
			AToB:              aToB,
			PreSqrtPrice:      preSqrt.String(),
			PostSqrtPrice:     postSqrt.String(),
			InputAmount:       inputAmount,
			OutputAmount:      outputAmount,
			InputTransferFee:  inputFee,
			OutputTransferFee: outputFee,
			LPFee:             lpFee,
			ProtocolFee:       protocolFee,
		},
	}, nil
}

// Liquidity layout (after the 8-byte discriminator), shared by both
// LiquidityIncreased and LiquidityDecreased:
//
//	whirlpool               32 bytes
//	position                32 bytes
//	tick_lower_index         4 bytes (i32 LE)
//	tick_upper_index         4 bytes (i32 LE)
//	liquidity               16 bytes (u128 LE)
//	token_a_amount           8 bytes (u64 LE)
//	token_b_amount           8 bytes (u64 LE)
//	token_a_transfer_fee     8 bytes (u64 LE)
//	token_b_transfer_fee     8 bytes (u64 LE)
const liquidityBodyLen = 32 + 32 + 4 + 4 + 16 + 8 + 8 + 8 + 8

func decodeLiquidity(body []byte, signature string, timestamp time.Time, kind event.Kind) (*event.Parsed, error) {
	if len(body) < liquidityBodyLen {
		return nil, fmt.Errorf("liquidity payload too short: got %d want %d", len(body), liquidityBodyLen)
	}

	off := 0
	pool := readPubkey(body, &off)
	position := readPubkey(body, &off)
	tickLower := int32(binary.LittleEndian.Uint32(body[off:]))
	off += 4
	tickUpper := int32(binary.LittleEndian.Uint32(body[off:]))
	off += 4
	liquidity := readU128(body, &off)

	tokenA, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}
	tokenB, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}
	tokenAFee, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}
	tokenBFee, err := readUint64Checked(body, &off)
	if err != nil {
		return nil, err
	}

	return &event.Parsed{
		Base: event.Base{
			Signature: signature,
			Pool:      pool,
			Kind:      kind,
			Version:   1,
			Timestamp: timestamp,
		},
		Liquidity: &event.LiquidityDetail{
			Position:          position,
			TickLowerIndex:    tickLower,
			TickUpperIndex:    tickUpper,
			Liquidity:         liquidity.String(),
			TokenAAmount:      tokenA,
			TokenBAmount:      tokenB,
			TokenATransferFee: tokenAFee,
			TokenBTransferFee: tokenBFee,
		},
	}, nil
}

func readPubkey(data []byte, off *int) string {
	key := data[*off : *off+32]
	*off += 32
	return base58.Encode(key)
}

func readU128(data []byte, off *int) *big.Int {
	lo := binary.LittleEndian.Uint64(data[*off : *off+8])
	hi := binary.LittleEndian.Uint64(data[*off+8 : *off+16])
	*off += 16

	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(lo))
	return v
}

// readUint64Checked reads a little-endian u64 and enforces the no-overflow
// contract: on-chain amounts are unsigned 64-bit but persisted as signed
// 64-bit, so any value exceeding math.MaxInt64 is a hard decode error
// rather than a silently wrapped negative.
func readUint64Checked(data []byte, off *int) (uint64, error) {
	v := binary.LittleEndian.Uint64(data[*off : *off+8])
	*off += 8
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("amount %d exceeds int64 range", v)
	}
	return v, nil
}
