package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 3 * time.Second

// RedisTransport go-redis 原生通道。连接在首次使用时建立、健康时复用，
// 发生连接级错误后标记为 Failed，下一次调用时重建。
type RedisTransport struct {
	opts *redis.Options
	log  *zap.Logger

	mu     sync.Mutex
	state  ConnState
	client *redis.Client
}

func NewRedisTransport(url string, log *zap.Logger) (*RedisTransport, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("storage: parse redis url: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisTransport{opts: opts, log: log}, nil
}

// conn 返回可用的客户端，必要时（首次或失败后）重新连接
func (t *RedisTransport) conn(ctx context.Context) (*redis.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateConnected && t.client != nil {
		return t.client, nil
	}
	if t.client != nil {
		_ = t.client.Close()
		t.client = nil
	}

	client := redis.NewClient(t.opts)
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("connect %s: %w", t.opts.Addr, ctx.Err())
		}
		t.state = StateFailed
		return nil, fmt.Errorf("%w: connect %s: %v", ErrStoreUnavailable, t.opts.Addr, err)
	}

	t.client = client
	t.state = StateConnected
	t.log.Debug("redis connected", zap.String("addr", t.opts.Addr))
	return client, nil
}

// fail 处理命令错误：redis 返回的业务错误与调用方取消都不影响连接，其余视为连接失败。
// 只有当前仍在使用的客户端出错才会标记失败，已被替换的旧客户端上的错误忽略。
func (t *RedisTransport) fail(ctx context.Context, c *redis.Client, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		t.mu.Lock()
		if t.client == c {
			t.state = StateFailed
		}
		t.mu.Unlock()
		t.log.Warn("redis connection marked failed", zap.String("op", op), zap.Error(err))
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// Ping 建立（或确认）连接
func (t *RedisTransport) Ping(ctx context.Context) error {
	_, err := t.conn(ctx)
	return err
}

func (t *RedisTransport) Get(ctx context.Context, key string) (string, bool, error) {
	c, err := t.conn(ctx)
	if err != nil {
		return "", false, err
	}
	val, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, t.fail(ctx, c, "GET", err)
	}
	return val, true, nil
}

func (t *RedisTransport) SetEX(ctx context.Context, key string, ttl time.Duration, value string) error {
	c, err := t.conn(ctx)
	if err != nil {
		return err
	}
	if err := c.SetEx(ctx, key, value, ttl).Err(); err != nil {
		return t.fail(ctx, c, "SETEX", err)
	}
	return nil
}

func (t *RedisTransport) Keys(ctx context.Context, pattern string) ([]string, error) {
	c, err := t.conn(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := c.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, t.fail(ctx, c, "KEYS", err)
	}
	return keys, nil
}

func (t *RedisTransport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *RedisTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateUnconnected
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
