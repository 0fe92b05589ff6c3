package decoder

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
)

func TestIsPoolAddress_RejectsWrongLength(t *testing.T) {
	assert.False(t, IsPoolAddress(base58.Encode([]byte{1, 2, 3})))
}

func TestIsPoolAddress_RejectsInvalidBase58(t *testing.T) {
	assert.False(t, IsPoolAddress("not-base58!!!"))
}

func TestIsPoolAddress_WellFormedInputNeverPanics(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	assert.NotPanics(t, func() { IsPoolAddress(base58.Encode(raw)) })
}
