package decoder

// Discriminators tag the first 8 bytes of a decoded "Program data:" payload
// and select which Orca Whirlpool event variant follows. Values are opaque
// sighash-style tags; nothing in this indexer interprets them as anything
// but an equality key.
var (
	TradedDiscriminator             = [8]byte{0xe1, 0xca, 0x49, 0xaf, 0x93, 0x2b, 0xa0, 0x96}
	LiquidityIncreasedDiscriminator = [8]byte{0x1e, 0x07, 0x90, 0xb5, 0x66, 0xfe, 0x9b, 0xa1}
	LiquidityDecreasedDiscriminator = [8]byte{0xa6, 0x01, 0x24, 0x47, 0x70, 0xca, 0xb5, 0xab}
)
