package indexer

import (
	"context"
	"log"

	"orca-indexer/internal/decoder"
	"orca-indexer/internal/event"
	"orca-indexer/internal/storage"
)

// orcaProgramID is the Whirlpool program's on-chain address.
const orcaProgramID = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"

// DefaultOrcaPool is the compiled-in fallback pool: the SOL/USDC Whirlpool,
// the program's highest-volume pair. It is the last resort in the pool
// resolution precedence CLI override > registered pools in storage >
// this constant, used only when neither of the first two yields anything.
const DefaultOrcaPool = "7qbRF6YsyGuLUVs6Y1q64bdVrfe4ZcUUz1JRdoVNUJnm"

// OrcaWhirlpool is the Orca Whirlpool Indexer implementation: a
// concentrated-liquidity AMM whose Traded/LiquidityIncreased/
// LiquidityDecreased events are tagged with the discriminators in the
// decoder package.
type OrcaWhirlpool struct {
	Base

	pools map[string]bool
}

// NewOrcaWhirlpool constructs an indexer tracking the given pool addresses.
// An empty pools set means "accept any pool" — the orca subcommand's
// resolvePools resolves the real active set before construction.
func NewOrcaWhirlpool(repo storage.EventRepository, sigs storage.SignatureStore, pools []string, logger *log.Logger) *OrcaWhirlpool {
	if logger == nil {
		logger = log.Default()
	}
	set := make(map[string]bool, len(pools))
	for _, p := range pools {
		set[p] = true
	}
	return &OrcaWhirlpool{
		Base: Base{
			Dex:        "orca",
			Repository: repo,
			Signatures: sigs,
			Logger:     logger,
		},
		pools: set,
	}
}

func (o *OrcaWhirlpool) DexName() string { return "orca" }

func (o *OrcaWhirlpool) ProgramIDs() []string { return []string{orcaProgramID} }

func (o *OrcaWhirlpool) PoolFilter() map[string]bool { return o.pools }

func (o *OrcaWhirlpool) DecodeLogs(bundle LogBundle) ([]event.Parsed, []decoder.Issue) {
	return decoder.DecodeBundle(bundle.Signature, bundle.Logs, bundle.Timestamp)
}

func (o *OrcaWhirlpool) HandleEvent(ctx context.Context, p event.Parsed) error {
	return HandleEventDefault(ctx, o.Repository, p)
}
