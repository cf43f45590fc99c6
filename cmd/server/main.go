package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/shamank/rpc-gateway/internal/adapters/chain"
	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/adapters/identity"
	relayAdapter "github.com/shamank/rpc-gateway/internal/adapters/relay"
	"github.com/shamank/rpc-gateway/internal/config"
	"github.com/shamank/rpc-gateway/internal/handlers/account"
	cronHandler "github.com/shamank/rpc-gateway/internal/handlers/cron"
	relayHandler "github.com/shamank/rpc-gateway/internal/handlers/relay"
	"github.com/shamank/rpc-gateway/internal/services/ledger"
	"github.com/shamank/rpc-gateway/internal/services/metering"
	"github.com/shamank/rpc-gateway/internal/services/payment"
	"github.com/shamank/rpc-gateway/internal/services/subscription"
	"github.com/shamank/rpc-gateway/pkg/middleware"
	"github.com/shamank/rpc-gateway/pkg/observability"
)

const serviceName = "rpc-gateway"

func main() {
	logger := initLogger()
	defer logger.Sync()

	logger.Info("starting rpc gateway", zap.String("version", "0.1.0"))

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelInit()

	dbAdapter, err := database.NewPostgreSQLAdapter(ctx, database.DefaultPostgreSQLConfig(cfg.Database.ConnectionString()), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbAdapter.Shutdown()

	logger.Info("database connection established", zap.String("database", cfg.Database.Database))

	clients, err := chain.Dial(&cfg.Relay)
	if err != nil {
		logger.Fatal("failed to dial chain providers", zap.Error(err))
	}
	defer clients.Close()

	secretManager := initSecretManager(ctx, logger)
	treasuryAddress := resolveSecret(ctx, secretManager, "rpc-gateway/treasury-address", cfg.Relay.TreasuryAddress, logger)
	if !common.IsHexAddress(treasuryAddress) {
		logger.Fatal("TREASURY_ADDRESS is not a valid address", zap.String("treasury_address", treasuryAddress))
	}
	treasury := common.HexToAddress(treasuryAddress)

	subEngine := subscription.New(dbAdapter, logger)
	led := ledger.New(dbAdapter, logger)
	verifier := payment.New(clients, led, dbAdapter.Queries(), treasury, logger)
	gate := metering.New(dbAdapter.Queries(), subEngine, logger)

	upstream := relayAdapter.NewUpstreamClient(cfg.Relay.GatewayURL)
	bridge := relayAdapter.NewBridge(cfg.Relay.GatewayURL, logger)
	relay := relayHandler.NewHandler(gate, upstream, logger)

	headerIdentity := identity.NewHeaderResolver()
	acct := account.NewHandler(verifier, subEngine, dbAdapter.Queries(), headerIdentity, logger)

	cronSecret := resolveSecret(ctx, secretManager, "rpc-gateway/cron-secret", getEnv("CRON_SECRET", "change-me-in-production"), logger)
	cron := cronHandler.NewBillingHandler(subEngine, logger, cronSecret)

	rateLimiter := middleware.NewRateLimiter(10, 20)

	mux := http.NewServeMux()
	mux.Handle("/rpc/{chain}/{apiKey}", rateLimiter.Middleware(relay))
	mux.Handle("/ws/{chain}", rateLimiter.Middleware(bridge))

	mux.Handle("/api/pay/eth", headerIdentity.Middleware(http.HandlerFunc(acct.PayEth)))
	mux.Handle("/api/upgrade", headerIdentity.Middleware(http.HandlerFunc(acct.Upgrade)))
	mux.Handle("/api/downgrade", headerIdentity.Middleware(http.HandlerFunc(acct.Downgrade)))
	mux.Handle("/api/cancel", headerIdentity.Middleware(http.HandlerFunc(acct.Cancel)))
	mux.Handle("/api/balances", headerIdentity.Middleware(http.HandlerFunc(acct.Balances)))
	mux.Handle("/api/payments", headerIdentity.Middleware(http.HandlerFunc(acct.Payments)))

	mux.HandleFunc("/cron/rollover", cron.ProcessRollover)
	mux.HandleFunc("/cron/health", cron.HealthCheck)

	checker := grpchealth.NewStaticChecker(serviceName)
	mux.Handle(grpchealth.NewHandler(checker))

	reflector := grpcreflect.NewStaticReflector(serviceName)
	mux.Handle(grpcreflect.NewHandlerV1(reflector))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector))

	logger.Info("routes registered",
		zap.Strings("chains", chainTags(&cfg.Relay)),
		zap.Bool("dev_mode", cfg.Relay.DevMode),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	healthChecker := observability.NewHealthChecker(dbAdapter.Pool())
	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker)

	go func() {
		logger.Info("gateway server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("gateway server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}

	logger.Info("servers stopped")
}

func chainTags(relay *config.RelayConfig) []string {
	tags := make([]string, 0, len(relay.ProviderURLs))
	for c := range relay.ProviderURLs {
		tags = append(tags, c.String())
	}
	return tags
}

func initLogger() *zap.Logger {
	env := getEnv("ENVIRONMENT", "development")

	if env == "production" {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		logger, _ := zapCfg.Build()
		return logger
	}

	logger, _ := zap.NewDevelopment()
	return logger
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
