package storage

import (
	"time"

	"github.com/LJTian/hotcache/internal/section"
)

// DefaultFreshnessWindow 读端判定数据新鲜的默认窗口，与缓存 TTL 无关
const DefaultFreshnessWindow = 24 * time.Hour

// isoMillis 与 JS Date#toISOString 一致的 UTC 毫秒格式
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Section 缓存中的一个分区：写入时间 + 整批记录
type Section struct {
	Key       string           `json:"-"`
	UpdatedAt string           `json:"updatedAt"`
	Data      []section.Record `json:"data"`
}

func newSection(key string, records []section.Record, now time.Time) *Section {
	if records == nil {
		records = []section.Record{}
	}
	return &Section{
		Key:       key,
		UpdatedAt: now.UTC().Format(isoMillis),
		Data:      records,
	}
}

// UpdatedTime 解析 updatedAt；缺失或无法解析时返回 false
func (s *Section) UpdatedTime() (time.Time, bool) {
	if s == nil || s.UpdatedAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s.UpdatedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FreshAt 判断分区在 now 时刻是否仍在新鲜窗口内；window <= 0 时使用 24h
func (s *Section) FreshAt(now time.Time, window time.Duration) bool {
	updated, ok := s.UpdatedTime()
	if !ok {
		return false
	}
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return now.Sub(updated) <= window
}

// IsFresh 以当前时间判断分区是否新鲜，nil 分区视为不新鲜
func IsFresh(s *Section, window time.Duration) bool {
	return s.FreshAt(time.Now(), window)
}
