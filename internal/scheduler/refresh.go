package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LJTian/hotcache/internal/collector"
	"github.com/LJTian/hotcache/internal/section"
	"github.com/LJTian/hotcache/internal/storage"
)

// Summary 一次成功刷新后各分区写入的条数
type Summary map[string]int

// SectionWriter 刷新结果的落地位置，通常是 *storage.Store
type SectionWriter interface {
	Write(ctx context.Context, key string, records []section.Record) (*storage.Section, error)
}

// RunRecorder 记录每次刷新的结果，通常是 *storage.Journal
type RunRecorder interface {
	RecordRun(ctx context.Context, started, finished time.Time, summary map[string]int, runErr error) (*storage.RefreshRun, error)
}

// Refresher 并发抓取全部来源，全部成功后才整体写入缓存
type Refresher struct {
	fetchers []collector.Fetcher
	store    SectionWriter
	journal  RunRecorder
	log      *zap.Logger
}

func NewRefresher(fetchers []collector.Fetcher, store SectionWriter, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{fetchers: fetchers, store: store, log: log}
}

// WithJournal 开启运行日志；nil 表示关闭
func (r *Refresher) WithJournal(j RunRecorder) *Refresher {
	r.journal = j
	return r
}

// Run 执行一次刷新。任一来源失败时取消其余抓取，本轮不写入任何分区。
func (r *Refresher) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	r.log.Info("refresh started", zap.Int("sources", len(r.fetchers)))

	summary, err := r.run(ctx)

	finished := time.Now()
	if err != nil {
		r.log.Error("refresh failed", zap.Error(err), zap.Duration("elapsed", finished.Sub(started)))
	} else {
		r.log.Info("refresh done", zap.Any("summary", summary), zap.Duration("elapsed", finished.Sub(started)))
	}
	r.record(ctx, started, finished, summary, err)
	return summary, err
}

func (r *Refresher) run(ctx context.Context) (Summary, error) {
	results := make([][]section.Record, len(r.fetchers))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range r.fetchers {
		g.Go(func() error {
			name := f.Name()
			records, err := f.Fetch(gctx)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			r.log.Debug("fetched", zap.String("source", name), zap.Int("items", len(records)))
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make([]int, len(r.fetchers))
	wg, wctx := errgroup.WithContext(ctx)
	for i, f := range r.fetchers {
		wg.Go(func() error {
			sec, err := r.store.Write(wctx, f.Name(), results[i])
			if err != nil {
				return fmt.Errorf("write %s: %w", f.Name(), err)
			}
			counts[i] = len(sec.Data)
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	summary := make(Summary, len(r.fetchers))
	for i, f := range r.fetchers {
		summary[f.Name()] = counts[i]
	}
	return summary, nil
}

func (r *Refresher) record(ctx context.Context, started, finished time.Time, summary Summary, runErr error) {
	if r.journal == nil {
		return
	}
	// 调用方取消后仍然写入本轮结果
	ctx = context.WithoutCancel(ctx)
	if _, err := r.journal.RecordRun(ctx, started, finished, summary, runErr); err != nil {
		r.log.Warn("record refresh run failed", zap.Error(err))
	}
}
