package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/collector"
	"github.com/LJTian/hotcache/internal/config"
	"github.com/LJTian/hotcache/internal/logger"
	"github.com/LJTian/hotcache/internal/scheduler"
	"github.com/LJTian/hotcache/internal/storage"
)

// 命令行入口：不带参数时执行一轮刷新后退出，适合手动触发或交给外部定时任务
var rootCmd = &cobra.Command{
	Use:           "collect",
	Short:         "Refresh every cached section once",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		client := collector.NewClient(env.cfg.UserAgent(), env.cfg.HTTPTimeout(), env.log.Named("collector"))
		refresher := scheduler.NewRefresher(collector.NewFetchers(client, env.cfg.NewsAPIKeys()), env.store, env.log.Named("refresh"))
		if env.cfg.Postgres.DSN != "" {
			journal, err := storage.OpenJournal(env.cfg.Postgres.DSN)
			if err != nil {
				env.log.Warn("journal disabled", zap.Error(err))
			} else {
				env.journal = journal
				refresher.WithJournal(journal)
			}
		}

		summary, err := refresher.Run(cmd.Context())
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(summary))
		for k := range summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", k, summary[k])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd, sectionsCmd)
}

// env 子命令共享的配置、日志与存储
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *storage.Store
	journal *storage.Journal
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logg, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	transport, err := storage.OpenTransport(ctx, storage.Config{
		URL:       cfg.Redis.URL,
		Transport: cfg.Store.Transport,
		CLIBin:    cfg.Store.CLIBin,
	}, logg.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	return &env{
		cfg:   cfg,
		log:   logg,
		store: storage.NewStore(transport, cfg.CacheTTL(), logg.Named("store")),
	}, nil
}

func (e *env) close() {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.log.Warn("close journal", zap.Error(err))
		}
	}
	_ = e.store.Close()
	_ = e.log.Sync()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		l, logErr := logger.New(logger.Config{Level: "info", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
