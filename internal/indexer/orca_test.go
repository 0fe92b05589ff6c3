package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orca-indexer/internal/storage/memory"
)

func TestNewOrcaWhirlpool_ExposesProgramIDAndPoolFilter(t *testing.T) {
	repo := memory.NewEventRepository()
	sigs := memory.NewSignatureStore()
	ix := NewOrcaWhirlpool(repo, sigs, []string{"PoolA", "PoolB"}, nil)

	assert.Equal(t, "orca", ix.DexName())
	assert.Equal(t, []string{orcaProgramID}, ix.ProgramIDs())
	assert.True(t, ix.PoolFilter()["PoolA"])
	assert.False(t, ix.PoolFilter()["PoolC"])
}

func TestNewOrcaWhirlpool_EmptyPoolsAcceptsAny(t *testing.T) {
	repo := memory.NewEventRepository()
	sigs := memory.NewSignatureStore()
	ix := NewOrcaWhirlpool(repo, sigs, nil, nil)

	assert.Empty(t, ix.PoolFilter())
}

func TestNewOrcaWhirlpool_DecodeLogsWithoutMarkersReturnsNothing(t *testing.T) {
	repo := memory.NewEventRepository()
	sigs := memory.NewSignatureStore()
	ix := NewOrcaWhirlpool(repo, sigs, nil, nil)

	parsed, issues := ix.DecodeLogs(LogBundle{Signature: "sig1", Logs: []string{"Program log: unrelated"}})
	assert.Empty(t, parsed)
	assert.Empty(t, issues)
}
