package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mjhoover1/Intelligent-Investing/internal/ai"
	"github.com/mjhoover1/Intelligent-Investing/internal/alert"
	"github.com/mjhoover1/Intelligent-Investing/internal/api"
	"github.com/mjhoover1/Intelligent-Investing/internal/config"
	"github.com/mjhoover1/Intelligent-Investing/internal/ledger"
	"github.com/mjhoover1/Intelligent-Investing/internal/market"
	"github.com/mjhoover1/Intelligent-Investing/internal/monitor"
	"github.com/mjhoover1/Intelligent-Investing/internal/portfolio"
	"github.com/mjhoover1/Intelligent-Investing/internal/pubsub"
	"github.com/mjhoover1/Intelligent-Investing/internal/rules"
	"github.com/mjhoover1/Intelligent-Investing/internal/storage"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting portfolio monitor",
		logger.String("port", fmt.Sprintf("%d", cfg.Server.Port)),
		logger.String("owner", cfg.Monitor.OwnerID),
		logger.Duration("interval", cfg.Monitor.Interval),
		logger.String("store", cfg.Monitor.StoreType),
		logger.String("ledger", cfg.Monitor.LedgerType),
	)

	// Open PostgreSQL when any component needs it
	var db *sql.DB
	if cfg.Monitor.StoreType == "postgres" || cfg.Monitor.LedgerType == "postgres" {
		db, err = storage.Open(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database",
				logger.ErrorField(err),
			)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnMaxLifetime)
		if err := storage.Migrate(ctx, db); err != nil {
			cancel()
			logger.Fatal("Failed to run migrations",
				logger.ErrorField(err),
			)
		}
		cancel()
	}

	// Rule and holding stores
	var ruleStore rules.Store
	var holdingStore portfolio.Store
	var alertStore storage.AlertStorage
	if cfg.Monitor.StoreType == "postgres" {
		ruleStore = rules.NewDatabaseStore(db)
		holdingStore = portfolio.NewPostgresStore(db)
		alertStore = storage.NewPostgresAlertStorage(db)
	} else {
		ruleStore = rules.NewInMemoryStore()
		holdingStore = portfolio.NewInMemoryStore()
		alertStore = storage.NewMockAlertStorage()
	}

	// Cooldown ledger
	var cooldowns ledger.Ledger
	switch cfg.Monitor.LedgerType {
	case "redis":
		redisClient, err := pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis",
				logger.ErrorField(err),
			)
		}
		defer redisClient.Close()
		cooldowns = ledger.NewRedisLedger(redisClient)
	case "postgres":
		cooldowns = ledger.NewPostgresLedger(db)
	default:
		cooldowns = ledger.NewMemoryLedger()
	}

	// Market data
	provider, err := market.NewProvider(cfg.Market)
	if err != nil {
		logger.Fatal("Failed to initialize market provider",
			logger.ErrorField(err),
		)
	}
	cache := market.NewSnapshotCache(provider, cfg.Market.CacheTTL)

	// Alert boundary
	var generator ai.Generator
	if cfg.AI.Enabled {
		generator = ai.NewOpenAIGenerator(cfg.AI)
		logger.Info("AI alert context enabled",
			logger.String("model", cfg.AI.Model),
		)
	}

	notifiers := make([]alert.Notifier, 0, len(cfg.Alert.Notifiers))
	for _, name := range cfg.Alert.Notifiers {
		switch name {
		case "telegram":
			notifiers = append(notifiers, alert.NewTelegramNotifier(cfg.Alert))
		default:
			notifiers = append(notifiers, alert.ConsoleNotifier{})
		}
	}
	emitter := alert.NewEmitter(alertStore, alert.NewMultiNotifier(notifiers...), generator, cfg.Alert.EmitTimeout)

	// Evaluation loop
	runner := monitor.NewRunner(ruleStore, holdingStore, cache, cooldowns, emitter)
	scheduler := monitor.NewScheduler(runner, cfg.Monitor.OwnerID, cfg.Monitor.Interval, cfg.Monitor.CycleTimeout)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler",
			logger.ErrorField(err),
		)
	}

	// HTTP control surface
	router := api.NewRouter(api.Deps{
		Rules:     ruleStore,
		Holdings:  holdingStore,
		Alerts:    alertStore,
		Cooldowns: cooldowns,
		Scheduler: scheduler,
		Ready: func() error {
			if db != nil {
				return db.Ping()
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down portfolio monitor")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := scheduler.Stop(ctx); err != nil {
		logger.Error("Scheduler did not stop cleanly",
			logger.ErrorField(err),
		)
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("Portfolio monitor stopped")
}
