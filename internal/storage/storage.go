package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LJTian/hotcache/internal/section"
)

// DefaultTTL 缓存条目的过期时间
const DefaultTTL = 86400 * time.Second

// readAllLimit ReadAll 并发读取的上限
const readAllLimit = 8

// Store 分区缓存：每个分区以 {updatedAt, data} 的 JSON 文本存入一个 key
type Store struct {
	t   Transport
	ttl time.Duration
	log *zap.Logger
	now func() time.Time
}

func NewStore(t Transport, ttl time.Duration, log *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{t: t, ttl: ttl, log: log, now: time.Now}
}

// TTL 写入时使用的过期时间
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Write 盖上当前时间戳后整体覆盖写入分区
func (s *Store) Write(ctx context.Context, key string, records []section.Record) (*Section, error) {
	sec := newSection(key, records, s.now())
	bs, err := json.Marshal(sec)
	if err != nil {
		return nil, err
	}
	// 上游可能混入 GBK 字节
	if err := s.t.SetEX(ctx, key, s.ttl, toValidUTF8(string(bs))); err != nil {
		return nil, err
	}
	return sec, nil
}

// Read 返回分区；key 不存在或内容无法解析时返回 nil, nil
func (s *Store) Read(ctx context.Context, key string) (*Section, error) {
	raw, ok, err := s.t.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.decode(key, raw), nil
}

func (s *Store) decode(key, raw string) *Section {
	sec := &Section{}
	if err := json.Unmarshal([]byte(raw), sec); err != nil {
		s.log.Warn("cached section unparsable", zap.String("key", key), zap.Error(err))
		return nil
	}
	sec.Key = key
	if sec.Data == nil {
		sec.Data = []section.Record{}
	}
	return sec
}

// ReadAll 读取存储中的全部分区，消失或无法解析的 key 被跳过
func (s *Store) ReadAll(ctx context.Context) (map[string]*Section, error) {
	keys, err := s.t.Keys(ctx, "*")
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = make(map[string]*Section, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readAllLimit)
	for _, key := range keys {
		g.Go(func() error {
			sec, err := s.Read(gctx, key)
			if err != nil {
				return err
			}
			if sec == nil {
				return nil
			}
			mu.Lock()
			out[key] = sec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Connected 报告底层连接状态
func (s *Store) Connected() ConnState {
	return s.t.State()
}

// Close 释放底层连接
func (s *Store) Close() error {
	return s.t.Close()
}

// toValidUTF8 将字符串规范为合法 UTF-8
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
