package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mobile-money-ledger/config"
	"mobile-money-ledger/internal/adapter/fx"
	httpHandler "mobile-money-ledger/internal/adapter/http/handler"
	"mobile-money-ledger/internal/adapter/messaging/rabbitmq"
	"mobile-money-ledger/internal/adapter/notify"
	memStorage "mobile-money-ledger/internal/adapter/storage/memory"
	mongoStorage "mobile-money-ledger/internal/adapter/storage/mongodb"
	pgStorage "mobile-money-ledger/internal/adapter/storage/postgres"
	redisStorage "mobile-money-ledger/internal/adapter/storage/redis"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/internal/service"
	"mobile-money-ledger/pkg/logger"
	"mobile-money-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// repositories is the storage backend selected by storage.driver.
type repositories struct {
	accounts       ports.AccountRepository
	ledger         ports.LedgerRepository
	transfers      ports.TransferRepository
	idempotency    ports.IdempotencyRepository
	risk           ports.RiskRepository
	challenges     ports.ChallengeRepository
	devices        ports.DeviceRepository
	counterparties ports.CounterpartyRepository
	audit          ports.AuditRepository
	transactor     ports.DBTransactor
	health         ports.HealthChecker
	close          func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		store := memStorage.NewStore()
		return &repositories{
			accounts:       memStorage.NewAccountRepo(store),
			ledger:         memStorage.NewLedgerRepo(store),
			transfers:      memStorage.NewTransferRepo(store),
			idempotency:    memStorage.NewIdempotencyRepo(store),
			risk:           memStorage.NewRiskRepo(store),
			challenges:     memStorage.NewChallengeRepo(store),
			devices:        memStorage.NewDeviceRepo(store),
			counterparties: memStorage.NewCounterpartyRepo(store),
			audit:          memStorage.NewAuditRepo(store),
			transactor:     store,
			health:         store,
			close:          func() {},
		}, nil

	case "postgres", "":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("PostgreSQL connected")
		return &repositories{
			accounts:       pgStorage.NewAccountRepo(pool),
			ledger:         pgStorage.NewLedgerRepo(pool),
			transfers:      pgStorage.NewTransferRepo(pool),
			idempotency:    pgStorage.NewIdempotencyRepo(pool),
			risk:           pgStorage.NewRiskRepo(pool),
			challenges:     pgStorage.NewChallengeRepo(pool),
			devices:        pgStorage.NewDeviceRepo(pool),
			counterparties: pgStorage.NewCounterpartyRepo(pool),
			audit:          pgStorage.NewAuditRepo(pool),
			transactor:     pgStorage.NewTransactor(pool),
			health:         pgStorage.NewHealthCheck(pool),
			close:          pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newRateProvider(cfg config.FXConfig) (ports.RateProvider, error) {
	switch cfg.Provider {
	case "http":
		if cfg.BaseURL == "" {
			return nil, errors.New("fx.base_url is required for the http provider")
		}
		return fx.NewHTTPRateProvider(cfg.BaseURL, &http.Client{}, cfg.Timeout), nil
	case "static", "":
		return fx.NewStaticRateProvider(cfg.StaticRates)
	default:
		return nil, fmt.Errorf("unknown fx provider %q", cfg.Provider)
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Mobile Money Ledger")

	ctx := context.Background()

	treasuryOwner, err := uuid.Parse(cfg.Ledger.TreasuryOwnerID)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger.treasury_owner_id")
	}
	minConverted, err := money.Parse(cfg.Ledger.MinConvertedAmount)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger.min_converted_amount")
	}
	riskPolicy, err := service.RiskPolicyFromConfig(cfg.Risk)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid risk configuration")
	}

	// Storage
	repos, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.close()
	healthCheckers := []ports.HealthChecker{repos.health}

	if err := service.EnsureTreasuryAccounts(ctx, repos.accounts, treasuryOwner, cfg.Ledger.Currencies, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to provision treasury accounts")
	}

	// Redis (optional): caches and rate limiting
	var (
		balanceCache     ports.BalanceCache
		idempotencyCache ports.IdempotencyCache
		rateLimitStore   *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		balanceCache = redisStorage.NewBalanceCache(rdb)
		idempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Audit sink: MongoDB when configured, else the primary store
	auditRepo := repos.audit
	if cfg.Mongo.URI != "" {
		client, err := mongoStorage.Connect(ctx, cfg.Mongo)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		auditRepo = mongoStorage.NewAuditRepo(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		healthCheckers = append(healthCheckers, mongoStorage.NewHealthCheck(client))
		log.Info().Str("collection", cfg.Mongo.Collection).Msg("MongoDB audit sink connected")
	}

	// Crypto primitives
	encSvc, err := service.NewAESEncryptionService(cfg.Crypto.AESKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.StepUpExpiry, cfg.JWT.Issuer)

	// External collaborators
	rates, err := newRateProvider(cfg.FX)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate provider")
	}

	var (
		notifier  ports.Notifier
		deliverer ports.CodeDeliverer
	)
	if cfg.Notify.GatewayURL != "" {
		gw := notify.NewGateway(cfg.Notify.GatewayURL, cfg.Notify.Secret, sigSvc, &http.Client{}, cfg.Notify.Timeout, log)
		notifier, deliverer = gw, gw
	} else {
		log.Warn().Msg("notify.gateway_url not set, notifications and codes are only logged")
		ln := notify.NewLogNotifier(log)
		notifier, deliverer = ln, ln
	}

	// Post-commit side effects
	dispatcher := service.NewDispatcher(cfg.Dispatcher, log)

	// Business services
	deviceTrust := service.NewDeviceTrustService(repos.devices, cfg.DeviceCache.Size, cfg.DeviceCache.TTL, log)
	balanceSvc := service.NewBalanceService(repos.accounts, repos.ledger, balanceCache, cfg.Ledger.BalanceCacheTTL, log)
	statusSvc := service.NewAccountStatusService(repos.accounts, log)
	riskSvc := service.NewRiskService(repos.devices, repos.transfers, repos.counterparties, repos.risk, riskPolicy, log)
	challengeSvc := service.NewChallengeService(
		repos.challenges,
		repos.transactor,
		hashSvc,
		encSvc,
		tokenSvc,
		deliverer,
		deviceTrust,
		cfg.Challenge,
		log,
	)
	engine := service.NewTransferEngine(service.TransferEngineDeps{
		Accounts:   repos.accounts,
		Ledger:     repos.ledger,
		Transfers:  repos.transfers,
		Transactor: repos.transactor,
		Balances:   balanceSvc,
		Risk:       riskSvc,
		Challenges: challengeSvc,
		Rates:      rates,
		Status:     statusSvc,
		Dispatcher: dispatcher,
	}, treasuryOwner, minConverted, log)
	idempotencySvc := service.NewIdempotencyService(repos.idempotency, idempotencyCache, cfg.Ledger.IdempotencyCacheTTL, log).
		WithProcessingLease(cfg.Ledger.IdempotencyLease)
	transferSvc := service.NewTransferService(idempotencySvc, engine)
	holdSvc := service.NewHoldService(
		repos.accounts,
		repos.ledger,
		repos.transfers,
		repos.transactor,
		balanceSvc,
		dispatcher,
		treasuryOwner,
		log,
	)

	// Event handlers
	dispatcher.Register("notify", service.NotificationHandler(notifier))
	dispatcher.Register("audit", service.NewAuditService(auditRepo, log).Handle)
	dispatcher.Register("bookkeeping", service.BookkeepingHandler(repos.counterparties, deviceTrust))
	if cfg.RabbitMQ.URL != "" {
		amqpConn, err := rabbitmq.Dial(cfg.RabbitMQ)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer amqpConn.Close()
		dispatcher.Register("publish", service.PublishHandler(rabbitmq.NewPublisher(amqpConn.Channel, cfg.RabbitMQ.Exchange, log)))
		healthCheckers = append(healthCheckers, amqpConn)
		log.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("RabbitMQ connected")
	}
	dispatcher.Start()

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransferSvc:    transferSvc,
		Balances:       balanceSvc,
		Challenges:     challengeSvc,
		Holds:          holdSvc,
		Status:         statusSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain queued events after the last request has committed.
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Dispatcher stopped with pending events")
	}

	log.Info().Msg("Server exited")
}
