package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/api"
	"github.com/LJTian/hotcache/internal/collector"
	"github.com/LJTian/hotcache/internal/config"
	"github.com/LJTian/hotcache/internal/logger"
	"github.com/LJTian/hotcache/internal/scheduler"
	"github.com/LJTian/hotcache/internal/section"
	"github.com/LJTian/hotcache/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logg.Sync()
	zap.ReplaceGlobals(logg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, err := storage.OpenTransport(ctx, storage.Config{
		URL:       cfg.Redis.URL,
		Transport: cfg.Store.Transport,
		CLIBin:    cfg.Store.CLIBin,
	}, logg.Named("store"))
	if err != nil {
		logg.Fatal("init store failed", zap.Error(err))
	}
	store := storage.NewStore(transport, cfg.CacheTTL(), logg.Named("store"))
	defer store.Close()

	// 运行日志可选：未配置 POSTGRES_DSN 时不启用
	var journal *storage.Journal
	if cfg.Postgres.DSN != "" {
		if journal, err = storage.OpenJournal(cfg.Postgres.DSN); err != nil {
			logg.Warn("journal disabled", zap.Error(err))
			journal = nil
		} else {
			defer journal.Close()
			// 确保各个分区存在
			for _, ch := range section.Catalog() {
				if _, err := journal.EnsureChannel(ctx, ch); err != nil {
					logg.Warn("ensure channel failed", zap.String("key", ch.Key), zap.Error(err))
				}
			}
		}
	}

	client := collector.NewClient(cfg.UserAgent(), cfg.HTTPTimeout(), logg.Named("collector"))
	refresher := scheduler.NewRefresher(collector.NewFetchers(client, cfg.NewsAPIKeys()), store, logg.Named("refresh"))
	if journal != nil {
		refresher.WithJournal(journal)
	}

	if cfg.Cron.Spec != "" {
		s, err := scheduler.New(cfg.Cron.Spec, refresher, logg)
		if err != nil {
			logg.Fatal("init scheduler failed", zap.Error(err))
		}
		s.Start()
		defer s.Stop()
		logg.Info("scheduler started", zap.String("spec", cfg.Cron.Spec))
	}

	// API
	r := gin.New()
	r.Use(gin.Recovery())

	var runs api.RunLister
	if journal != nil {
		runs = journal
	}
	api.NewServer(store, runs, cfg.FreshnessWindow(), logg.Named("api")).RegisterRoutes(r)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		logg.Info("starting api server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server exit", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Warn("server shutdown", zap.Error(err))
	}
}
