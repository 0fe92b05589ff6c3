package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_PushAndDrainPreservesOrder(t *testing.T) {
	b := NewBuffer(10)
	b.Push("poolA", LogBundle{Signature: "sig1"})
	b.Push("poolA", LogBundle{Signature: "sig2"})
	b.Push("poolB", LogBundle{Signature: "sig3"})

	bundles, overflow := b.Drain()
	assert.Len(t, bundles, 3)
	assert.Equal(t, "sig1", bundles[0].Signature)
	assert.Equal(t, "sig2", bundles[1].Signature)
	assert.Equal(t, "sig3", bundles[2].Signature)
	assert.Empty(t, overflow)
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_DuplicateKeyIsIgnored(t *testing.T) {
	b := NewBuffer(10)
	b.Push("poolA", LogBundle{Signature: "sig1"})
	b.Push("poolA", LogBundle{Signature: "sig1"})

	assert.Equal(t, 1, b.Len())
}

func TestBuffer_OverflowEvictsOldestAndMarksItsPool(t *testing.T) {
	b := NewBuffer(2)
	b.Push("poolA", LogBundle{Signature: "sig1"})
	b.Push("poolB", LogBundle{Signature: "sig2"})
	b.Push("poolC", LogBundle{Signature: "sig3"})

	bundles, overflow := b.Drain()
	assert.Len(t, bundles, 2)
	assert.Equal(t, "sig2", bundles[0].Signature)
	assert.Equal(t, "sig3", bundles[1].Signature)
	assert.True(t, overflow["poolA"])
	assert.False(t, overflow["poolB"])
}

func TestBuffer_DrainResetsState(t *testing.T) {
	b := NewBuffer(10)
	b.Push("poolA", LogBundle{Signature: "sig1"})
	b.Drain()

	bundles, overflow := b.Drain()
	assert.Empty(t, bundles)
	assert.Empty(t, overflow)
}
