package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ledger-engine/internal/assettype"
	"github.com/example/ledger-engine/internal/audit"
	"github.com/example/ledger-engine/internal/config"
	"github.com/example/ledger-engine/internal/engine"
	"github.com/example/ledger-engine/internal/ledger"
	"github.com/example/ledger-engine/internal/money"
	"github.com/example/ledger-engine/internal/reporting"
	"github.com/example/ledger-engine/internal/txn"
	"github.com/example/ledger-engine/internal/wallet"
	"github.com/example/ledger-engine/pkg/logger"
	"github.com/example/ledger-engine/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
	})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		panic(err)
	}
	defer func() { _ = db.Close() }()

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		panic(err)
	}
	defer func() { _ = rdb.Close() }()

	seedSpecs := make([]assettype.SeedSpec, 0, len(cfg.Assets.SeedCodes))
	for _, code := range cfg.Assets.SeedCodes {
		seedSpecs = append(seedSpecs, assettype.SeedSpec{Code: code, Name: code})
	}
	if err := assettype.Seed(ctx, db, seedSpecs, time.Now()); err != nil {
		log.Error("asset type seeding failed", "err", err)
		panic(err)
	}

	assets := assettype.NewStore(db)

	assetTypeIDs := make([]int, 0, len(cfg.Assets.SeedCodes))
	for _, code := range cfg.Assets.SeedCodes {
		a, err := assets.FindByCode(ctx, code)
		if err != nil {
			log.Error("asset type lookup failed after seeding", "err", err, "code", code)
			panic(err)
		}
		assetTypeIDs = append(assetTypeIDs, a.ID)
	}
	if err := wallet.SeedSystemWallets(ctx, db, assetTypeIDs, money.New(cfg.Assets.SystemWalletFunding), time.Now()); err != nil {
		log.Error("system wallet seeding failed", "err", err)
		panic(err)
	}
	wallets := wallet.NewStore(db)
	txns := txn.NewStore(db)
	ledgerStore := ledger.NewStore(db)
	auditLog := audit.NewService(audit.NewPostgresRepo(db))
	reportingSvc := reporting.NewService(ledgerStore)
	eng := engine.New(db, rdb, wallets, txns, ledgerStore, assets, auditLog, cfg.Engine)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, eng, assets, reportingSvc)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", "err", err)
			panic(err)
		}
		log.Info("server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
