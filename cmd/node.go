package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mezonai/starledger/api"
	"github.com/mezonai/starledger/config"
	"github.com/mezonai/starledger/events"
	"github.com/mezonai/starledger/exception"
	"github.com/mezonai/starledger/jsonrpc"
	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/mempool"
	"github.com/mezonai/starledger/monitoring"
	"github.com/mezonai/starledger/ratelimit"
	"github.com/mezonai/starledger/service"
	"github.com/mezonai/starledger/sigverify"
	"github.com/spf13/cobra"
)

var nodeConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ledger node",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&nodeConfigPath, "node-config", "config/node.yml", "path to the node listen config")
	addStoreFlags(runCmd)
}

func runNode(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	nodeCfg, err := loadNodeConfig()
	if err != nil {
		return err
	}
	mempoolCfg, err := config.LoadMempoolConfig(configPath)
	if err != nil {
		return fmt.Errorf("load mempool config: %w", err)
	}
	rlCfg, err := config.LoadRateLimitConfig(configPath)
	if err != nil {
		return fmt.Errorf("load ratelimit config: %w", err)
	}

	monitoring.InitMetrics()

	ld, bs, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer bs.Close()

	height, err := ld.Height(ctx)
	if err != nil {
		return err
	}
	monitoring.SetBlockHeight(height - 1)

	bus := events.NewEventBus()
	defer bus.Close()
	journal := events.NewJournal(events.DefaultJournalCapacity)
	stopJournal := journal.Run(bus)
	defer stopJournal()

	mp := mempool.NewMempool(sigverify.NewMessageVerifier(),
		mempool.WithWindow(mempoolCfg.Window()),
		mempool.WithOnExpire(service.OnRequestExpired(bus)),
	)
	defer mp.Close()

	svc := service.NewLedgerService(ld, mp, bus)

	limiter := ratelimit.NewGlobalRateLimiter(&ratelimit.GlobalRateLimiterConfig{
		IPConfig: &ratelimit.RateLimiterConfig{
			MaxRequests:     rlCfg.MaxRequests,
			WindowSize:      rlCfg.Window(),
			CleanupInterval: 5 * time.Minute,
		},
		WalletConfig: &ratelimit.RateLimiterConfig{
			MaxRequests:     rlCfg.MaxRequests,
			WindowSize:      rlCfg.Window(),
			CleanupInterval: 5 * time.Minute,
		},
	}, clock.New())
	defer limiter.Stop()

	cors := jsonrpc.CORSFromOrigins(nodeCfg.CORSOrigins).WithEnv()

	apiSrv := api.NewAPIServer(svc, limiter, nodeCfg.RestAddr)
	apiSrv.SetCORSConfig(cors)
	apiSrv.SetJournal(journal)
	restServer := apiSrv.Start()

	rpcSrv := jsonrpc.NewServer(nodeCfg.JSONRPCAddr, svc)
	rpcSrv.SetCORSConfig(cors)
	rpcSrv.SetJournal(journal)
	rpcServer := rpcSrv.Start()
	defer rpcSrv.Close()

	metricsServer := startMetricsServer(nodeCfg.MetricsAddr)

	logx.Info("NODE", fmt.Sprintf("Node started at height %d", height-1))
	<-ctx.Done()
	logx.Info("NODE", "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range []*http.Server{restServer, rpcServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Warn("NODE", fmt.Sprintf("Shutdown of %s: %v", srv.Addr, err))
		}
	}
	return nil
}

func loadNodeConfig() (*config.NodeConfig, error) {
	if _, err := os.Stat(nodeConfigPath); stderrors.Is(err, os.ErrNotExist) {
		logx.Warn("CONFIG", fmt.Sprintf("%s not found, using default listen addresses", nodeConfigPath))
		return config.DefaultNodeConfig(), nil
	}
	nodeCfg, err := config.LoadNodeConfig(nodeConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load node config: %w", err)
	}
	return nodeCfg, nil
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	exception.SafeGo("MetricsServer", func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logx.Error("MONITORING", fmt.Sprintf("Metrics server stopped: %v", err))
		}
	})
	return srv
}
