package decoder

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IsPoolAddress reports whether addr decodes to 32 bytes that are NOT a
// point on the ed25519 curve. Orca Whirlpool pool accounts are always
// program-derived addresses, and a PDA is accepted as valid by the curve
// only with negligible probability, so an on-curve result almost certainly
// means the operator passed a wallet or token-mint address instead of a
// pool. Used to reject obviously wrong --pools entries before startup,
// not as a general-purpose Solana address validator.
func IsPoolAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	// SetBytes succeeds only for valid on-curve points; a PDA fails to
	// decode as a curve point, which is the expected, valid case here.
	return err != nil
}
