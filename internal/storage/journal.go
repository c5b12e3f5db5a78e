package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LJTian/hotcache/internal/section"
)

// Channel 描述一个内容分区，例如 top_news / douban_hot_movies
type Channel struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:64;uniqueIndex" json:"code"` // 分区 key
	Name    string `gorm:"size:128" json:"name"`
	Route   string `gorm:"size:128" json:"route"`
	BaseURL string `gorm:"size:256" json:"baseUrl"`
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// RefreshRun 一次刷新的结果记录，只保存计数与结论，不保存内容
type RefreshRun struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	StartedAt  time.Time         `gorm:"index" json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Status     string            `gorm:"size:16;index" json:"status"`
	Error      string            `gorm:"size:1024" json:"error,omitempty"`
	Summary    datatypes.JSONMap `gorm:"type:jsonb" json:"summary"`
}

// Journal 可选的 PostgreSQL 运行日志与分区目录
type Journal struct {
	DB *gorm.DB
}

func OpenJournal(dsn string) (*Journal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Channel{}, &RefreshRun{}); err != nil {
		return nil, err
	}
	return &Journal{DB: db}, nil
}

// Close 关闭底层连接池
func (j *Journal) Close() error {
	sqlDB, err := j.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureChannel 确保某个分区存在
func (j *Journal) EnsureChannel(ctx context.Context, ch section.Channel) (*Channel, error) {
	row := &Channel{}
	err := j.DB.WithContext(ctx).Where("code = ?", ch.Key).First(row).Error
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = &Channel{
		Code:    ch.Key,
		Name:    ch.Name,
		Route:   ch.Route,
		BaseURL: ch.BaseURL,
		Status:  "active",
	}
	if err := j.DB.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// Channels 返回全部分区，按 code 排序
func (j *Journal) Channels(ctx context.Context) ([]Channel, error) {
	var list []Channel
	if err := j.DB.WithContext(ctx).Order("code ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RecordRun 写入一次刷新记录；summary 为各分区的条数
func (j *Journal) RecordRun(ctx context.Context, started, finished time.Time, summary map[string]int, runErr error) (*RefreshRun, error) {
	counts := datatypes.JSONMap{}
	for k, v := range summary {
		counts[k] = v
	}
	run := &RefreshRun{
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Status:     RunOK,
		Summary:    counts,
	}
	if runErr != nil {
		run.Status = RunFailed
		run.Error = truncateRunes(toValidUTF8(runErr.Error()), 1024)
	}
	if err := j.DB.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// RecentRuns 按开始时间倒序返回最近的刷新记录
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RefreshRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var list []RefreshRun
	if err := j.DB.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// truncateRunes 按 rune 数截断，确保不会超过数据库字段长度
func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
