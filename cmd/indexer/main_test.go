package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orca-indexer/internal/event"
	"orca-indexer/internal/indexer"
	"orca-indexer/internal/storage/memory"
)

func TestResolvePools_ExplicitOverridesStorage(t *testing.T) {
	store := memory.NewPoolStore()
	store.Put(event.Pool{Address: "Registered1", Dex: "orca", AddedAt: time.Now()})

	pools, err := resolvePools(context.Background(), []string{"Explicit1"}, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"Explicit1"}, pools)
}

func TestResolvePools_FallsBackToRegisteredPools(t *testing.T) {
	store := memory.NewPoolStore()
	store.Put(event.Pool{Address: "Registered1", Dex: "orca", AddedAt: time.Now()})
	store.Put(event.Pool{Address: "OtherDex", Dex: "raydium", AddedAt: time.Now()})

	pools, err := resolvePools(context.Background(), nil, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"Registered1"}, pools)
}

func TestResolvePools_FallsBackToCompiledDefaultWhenStorageIsEmpty(t *testing.T) {
	store := memory.NewPoolStore()

	pools, err := resolvePools(context.Background(), nil, store)
	require.NoError(t, err)
	assert.Equal(t, []string{indexer.DefaultOrcaPool}, pools)
}
