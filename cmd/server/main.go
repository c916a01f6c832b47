package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/config"
	"github.com/beanfreaks/invoice-ingest/internal/intake"
	"github.com/beanfreaks/invoice-ingest/internal/ledger"
	"github.com/beanfreaks/invoice-ingest/internal/parser"
	"github.com/beanfreaks/invoice-ingest/internal/queue"
	"github.com/beanfreaks/invoice-ingest/internal/sage"
	"github.com/beanfreaks/invoice-ingest/internal/worker"
	"github.com/beanfreaks/invoice-ingest/pkg/database"
	"github.com/beanfreaks/invoice-ingest/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice ingest service",
		zap.Int("port", cfg.Server.Port),
		zap.String("fallback_supplier", cfg.Dispatcher.FallbackSupplier))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	store, err := queue.NewStore(db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize queue", zap.Error(err))
	}

	set := parser.NewSet(ledger.Default(), ledger.DefaultKeywords())
	dispatcher := parser.NewDispatcher(set, logger, cfg.Dispatcher.FallbackSupplier)

	handler := intake.NewHandler(dispatcher, store, cfg.Limits, logger)

	workers := worker.NewManager(logger)
	if !cfg.Sage.PostingDisabled {
		sageClient := sage.NewClient(cfg.Sage, ledgerIDs(cfg.Sage.LedgerIDs, logger), logger)
		workers.Register(worker.NewPoster(store, sageClient, cfg.Sage.PostInterval, logger))
	} else {
		logger.Info("Sage posting disabled, records stay queued")
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if err := workers.StartAll(workerCtx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(intake.RequestLogger(logger))

	handler.Register(router,
		intake.BasicAuth(cfg.Auth.Username, cfg.Auth.Password, logger),
		intake.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	workers.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// ledgerIDs converts the configured "5001" style keys to account codes.
func ledgerIDs(raw map[string]string, logger *zap.Logger) map[int]string {
	out := make(map[int]string, len(raw))
	for key, id := range raw {
		code, err := strconv.Atoi(key)
		if err != nil {
			logger.Warn("Ignoring invalid sage ledger mapping key", zap.String("key", key))
			continue
		}
		out[code] = id
	}
	return out
}
