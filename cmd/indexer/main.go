package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"orca-indexer/internal/config"
	"orca-indexer/internal/decoder"
	"orca-indexer/internal/indexer"
	"orca-indexer/internal/observability"
	"orca-indexer/internal/solana"
	"orca-indexer/internal/storage"
	"orca-indexer/internal/storage/memory"
	"orca-indexer/internal/storage/migrations"
	pgstore "orca-indexer/internal/storage/postgres"
)

// exit codes per the runtime contract: 0 graceful stop, 1 fatal error,
// 2 configuration error.
const (
	exitOK            = 0
	exitFatal         = 1
	exitConfiguration = 2
)

func main() {
	logger := log.New(os.Stdout, "[indexer] ", log.LstdFlags)
	os.Exit(run(logger))
}

func run(logger *log.Logger) int {
	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		if _, ok := err.(*configurationError); ok {
			logger.Printf("kind=Configuration err=%v", err)
			return exitConfiguration
		}
		logger.Printf("kind=Fatal err=%v", err)
		return exitFatal
	}
	return exitOK
}

// configurationError marks an error as the configuration-error exit path
// (exit code 2) rather than a runtime failure.
type configurationError struct{ err error }

func (e *configurationError) Error() string { return e.err.Error() }
func (e *configurationError) Unwrap() error { return e.err }

func newRootCmd(logger *log.Logger) *cobra.Command {
	var useMemory bool
	var metricsAddr string

	root := &cobra.Command{
		Use:           "indexer",
		Short:         "Real-time indexer for Orca Whirlpool swap and liquidity events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("rpc-url", "", "Solana RPC HTTP endpoint")
	root.PersistentFlags().String("ws-url", "", "Solana RPC WebSocket endpoint")
	root.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "use in-memory storage instead of Postgres (testing only)")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus metrics HTTP address (empty disables it)")

	root.AddCommand(newOrcaCmd(logger, root.PersistentFlags(), &useMemory, &metricsAddr))
	return root
}

func newOrcaCmd(logger *log.Logger, persistent *pflag.FlagSet, useMemory *bool, metricsAddr *string) *cobra.Command {
	var poolsFlag string

	cmd := &cobra.Command{
		Use:   "orca",
		Short: "Index the Orca Whirlpool program's Traded/LiquidityIncreased/LiquidityDecreased events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(persistent)
			if err != nil {
				return &configurationError{err}
			}
			cfg.Pools = config.ParsePools(poolsFlag)
			for _, p := range cfg.Pools {
				if !decoder.IsPoolAddress(p) {
					return &configurationError{fmt.Errorf("--pools entry %q does not look like a program-derived pool address", p)}
				}
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan struct{})
			installSignalHandler(cancel, done, logger)

			rpc := solana.NewHTTPClient(cfg.SolanaRPCURL)
			if *metricsAddr != "" {
				go serveMetrics(*metricsAddr, rpc, logger)
			}

			err = runOrca(ctx, logger, cfg, *useMemory, rpc)
			close(done)
			return err
		},
	}
	cmd.Flags().StringVar(&poolsFlag, "pools", "", "comma-separated Whirlpool pool addresses to index")
	return cmd
}

func runOrca(ctx context.Context, logger *log.Logger, cfg config.Config, useMemory bool, rpc solana.RPCClient) error {
	if cfg.SolanaRPCURL == "" {
		return fmt.Errorf("--rpc-url or SOLANA_RPC_URL is required")
	}
	if cfg.SolanaWSURL == "" {
		return fmt.Errorf("--ws-url or SOLANA_WS_URL is required")
	}

	wsCfg := solana.DefaultWSConfig()
	ws, err := solana.NewWSClient(ctx, cfg.SolanaWSURL, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}

	var repo storage.EventRepository
	var sigs storage.SignatureStore
	var pools storage.PoolStore

	if useMemory {
		repo = memory.NewEventRepository()
		sigs = memory.NewSignatureStore()
		pools = memory.NewPoolStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, pgstore.PoolOptions{
			MaxConnections: int32(cfg.DatabaseMaxConnections),
			ConnectTimeout: cfg.DatabaseConnectTimeout,
		})
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		repo = pgstore.NewEventRepository(pool)
		sigs = pgstore.NewSignatureStore(pool)
		pools = pgstore.NewPoolStore(pool)
	}

	resolvedPools, err := resolvePools(ctx, cfg.Pools, pools)
	if err != nil {
		return fmt.Errorf("resolve pools: %w", err)
	}
	cfg.Pools = resolvedPools

	ix := indexer.NewOrcaWhirlpool(repo, sigs, cfg.Pools, logger)
	base := &indexer.Base{
		Dex:        ix.DexName(),
		Repository: repo,
		Signatures: sigs,
		Logger:     logger,
	}
	backfill := indexer.NewBackfillManager(rpc, sigs, logger)
	coord := indexer.NewCoordinator(ix, base, backfill, ws, logger, indexer.DefaultCoordinatorOptions())

	logger.Printf("kind=Startup dex=orca pools=%v rpc=%s ws=%s", cfg.Pools, cfg.SolanaRPCURL, cfg.SolanaWSURL)
	return coord.Run(ctx, cfg.Pools)
}

// resolvePools implements the pool selection precedence: an explicit
// --pools value wins outright; otherwise the registered pool set in
// storage is used; if that is empty too, DefaultOrcaPool is the last
// resort so the binary is always indexing something.
func resolvePools(ctx context.Context, explicit []string, store storage.PoolStore) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}

	registered, err := store.ListPools(ctx, "orca")
	if err != nil {
		return nil, fmt.Errorf("list registered pools: %w", err)
	}
	if len(registered) > 0 {
		pools := make([]string, len(registered))
		for i, p := range registered {
			pools[i] = p.Address
		}
		return pools, nil
	}

	return []string{indexer.DefaultOrcaPool}, nil
}

// installSignalHandler cancels ctx on SIGINT/SIGTERM, giving the
// coordinator 30s to drain (signaled by closing done) before a second
// signal forces immediate exit.
func installSignalHandler(cancel context.CancelFunc, done <-chan struct{}, logger *log.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("kind=Shutdown signal=%v msg=%q", sig, "initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("kind=Shutdown signal=%v msg=%q", sig, "forcing immediate shutdown")
			os.Exit(exitFatal)
		case <-time.After(30 * time.Second):
			logger.Println("kind=Shutdown msg=\"graceful shutdown timed out after 30s, forcing exit\"")
			os.Exit(exitFatal)
		case <-done:
		}
	}()
}

// serveMetrics exposes /metrics and /health. /health probes the configured
// Solana RPC endpoint with GetSlot so a dead upstream RPC provider surfaces
// as an unhealthy indexer rather than a silently stuck one.
func serveMetrics(addr string, rpc solana.RPCClient, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if _, err := rpc.GetSlot(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "rpc unhealthy: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Printf("kind=Startup msg=\"starting metrics server\" addr=%s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("kind=TransientRpc msg=\"metrics server error\" err=%v", err)
	}
}
