package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"amm-launch-lab/internal/assets"
	"amm-launch-lab/internal/bootstrap"
	"amm-launch-lab/internal/cache"
	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/config"
	"amm-launch-lab/internal/etherscan"
	"amm-launch-lab/internal/funding"
	"amm-launch-lab/internal/ingestion"
	"amm-launch-lab/internal/launch"
	"amm-launch-lab/internal/logging"
	"amm-launch-lab/internal/observability"
	"amm-launch-lab/internal/pool"
	"amm-launch-lab/internal/sniper"
	"amm-launch-lab/internal/storage"
	chstore "amm-launch-lab/internal/storage/clickhouse"
	"amm-launch-lab/internal/storage/memory"
	"amm-launch-lab/internal/storage/migrations"
	pgstore "amm-launch-lab/internal/storage/postgres"
	"amm-launch-lab/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
			cancel()
		case <-done:
			return
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Error("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger)
	close(done)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("indexer failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// app holds the wired components of one indexer process.
type app struct {
	chain     *chain.Client
	stores    storage.Stores
	gate      *launch.Gate
	manager   *launch.Manager
	bootstrap *bootstrap.Bootstrapper
	metrics   *observability.Metrics
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics(observability.DefaultNamespace, prometheus.DefaultRegisterer)

	a, err := wire(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	var server *http.Server
	if cfg.MetricsAddr != "" {
		server = metricsServer(cfg.MetricsAddr)
		g.Go(func() error {
			logger.Info("starting metrics server", zap.String("addr", cfg.MetricsAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}
		}()
		return runMode(gctx, cfg, a, logger)
	})

	return g.Wait()
}

func runMode(ctx context.Context, cfg *config.Config, a *app, logger *zap.Logger) error {
	end, err := cfg.EndBlockNumber()
	if err != nil {
		return err
	}

	if cfg.Mode == config.ModeScanContracts {
		scanEnd := bootstrap.LatestBlock
		if end >= 0 {
			scanEnd = end + 1
		}
		n, err := a.bootstrap.ScanNewContracts(ctx, cfg.StartBlock, scanEnd)
		if err != nil {
			return fmt.Errorf("scan contracts: %w", err)
		}
		logger.Info("contract scan finished", zap.Int64("inserted", n))
		return nil
	}

	if _, err := a.bootstrap.SeedAssets(ctx); err != nil {
		return fmt.Errorf("seed assets: %w", err)
	}

	var source ingestion.Source
	switch cfg.Mode {
	case config.ModeBackfill:
		source = ingestion.NewLogSource(ingestion.LogSourceOptions{
			Reader:    a.chain,
			From:      cfg.StartBlock,
			To:        end,
			Window:    cfg.BackfillWindow,
			Addresses: cfg.Pools,
			Progress:  a.stores.Progress,
			Stream:    fmt.Sprintf("backfill:%d", cfg.ChainID),
			Logger:    logger.Named("backfill"),
			Metrics:   a.metrics,
		})

	case config.ModeLive:
		ws, err := chain.Dial(ctx, cfg.WSURL, chain.WithLogger(logger.Named("ws")), chain.WithMetrics(a.metrics))
		if err != nil {
			return fmt.Errorf("dial websocket rpc: %w", err)
		}
		defer ws.Close()

		source = ingestion.NewStream(ingestion.StreamOptions{
			Subscriber:    ws,
			Reader:        a.chain,
			Addresses:     cfg.Pools,
			Confirmations: cfg.Confirmations,
			Logger:        logger.Named("stream"),
			Metrics:       a.metrics,
		})
	}

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:  source,
		Handler: a.manager,
		Logger:  logger.Named("runner"),
		Metrics: a.metrics,
	})
	return runner.Run(ctx)
}

func wire(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*app, error) {
	a := &app{gate: launch.NewGate(), metrics: metrics}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	client, err := chain.Dial(ctx, cfg.RPCURL, chain.WithLogger(logger.Named("rpc")), chain.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	a.chain = client
	a.closers = append(a.closers, client.Close)

	// Stores
	var sink storage.LaunchSink
	if cfg.UseMemory {
		a.stores = memory.NewStores()
		sink = memory.NewLaunchSink()
		logger.Info("using in-memory storage")
	} else {
		pg, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if err := migrations.RunPostgresMigrations(ctx, pg); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		a.stores = pgstore.NewStores(pg)
		logger.Info("connected to postgres")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		sink = chstore.NewLaunchSummaryStore(conn)
		logger.Info("launch summaries published to clickhouse")
	}

	// Creation cache
	var creations cache.CreationCache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.CacheTTL, logger.Named("cache"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		creations = rc
	}

	if cfg.EtherscanAPIKey == "" {
		logger.Warn("no etherscan api key: creation info and funding provenance are unavailable")
	}
	ledger := etherscan.NewClient(cfg.EtherscanAPIKey,
		etherscan.WithBaseURL(cfg.EtherscanURL),
		etherscan.WithChainID(cfg.ChainID),
		etherscan.WithRateLimit(cfg.EtherscanRPS),
		etherscan.WithLogger(logger.Named("etherscan")),
		etherscan.WithMetrics(metrics),
	)

	registry := assets.Mainnet()
	resolver := token.NewResolver(client, ledger, a.stores.Tokens,
		token.WithCache(creations),
		token.WithLogger(logger.Named("token")),
	)

	detector := sniper.NewDetector(client,
		sniper.WithLogger(logger.Named("sniper")),
		sniper.WithMetrics(metrics),
	)
	a.closers = append(a.closers, detector.Close)

	tracer := funding.NewTracer(ledger,
		funding.WithDelay(cfg.FundingDelay),
		funding.WithLogger(logger.Named("funding")),
		funding.WithMetrics(metrics),
	)

	a.manager = launch.NewManager(launch.Deps{
		Gate:       a.gate,
		Registry:   registry,
		Classifier: pool.NewClassifier(registry, client),
		Resolver:   resolver,
		Detector:   detector,
		Tracer:     tracer,
		Chain:      client,
		Stores:     a.stores,
		Sink:       sink,
	},
		launch.WithFundingLevels(cfg.FundingLevels),
		launch.WithLogger(logger.Named("launch")),
		launch.WithMetrics(metrics),
	)

	a.bootstrap = bootstrap.New(bootstrap.Deps{
		Gate:      a.gate,
		Registry:  registry,
		Resolver:  resolver,
		Chain:     client,
		Contracts: a.stores.NewContracts,
	}, bootstrap.WithLogger(logger.Named("bootstrap")))
	a.closers = append(a.closers, a.bootstrap.Close)

	ok = true
	return a, nil
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
