package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// runTimeout 单次定时刷新的上限，避免挂起的上游拖住后续调度
const runTimeout = 5 * time.Minute

// DefaultStartupDelay 启动后首轮刷新的延迟，避免与首批读请求争抢资源
const DefaultStartupDelay = 15 * time.Second

type Scheduler struct {
	cron      *cron.Cron
	job       cron.Job
	refresher *Refresher
	log       *zap.Logger

	// StartupDelay 为负数时不执行启动刷新
	StartupDelay time.Duration

	mu      sync.Mutex
	startup *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

func New(spec string, r *Refresher, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cl := cronLogger{log: log.Named("cron")}
	c := cron.New(cron.WithLogger(cl))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:         c,
		refresher:    r,
		log:          log,
		StartupDelay: DefaultStartupDelay,
		ctx:          ctx,
		cancel:       cancel,
	}
	// 定时任务与启动刷新共用同一个 job，保证两者不会重叠执行
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.runOnce))

	if _, err := c.AddJob(spec, s.job); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Start 启动定时调度，并在 StartupDelay 后执行首轮刷新，空缓存不必等到第一个 cron 时刻
func (s *Scheduler) Start() {
	s.cron.Start()
	if s.StartupDelay < 0 {
		return
	}
	s.mu.Lock()
	s.startup = time.AfterFunc(s.StartupDelay, s.job.Run)
	s.mu.Unlock()
}

// Stop 停止调度并等待正在执行的定时刷新结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.startup != nil {
		s.startup.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发刷新
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	return s.refresher.Run(ctx)
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()
	// 错误已在 Refresher 中记录
	_, _ = s.refresher.Run(ctx)
}

// cronLogger 将 cron 的日志接入 zap
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
