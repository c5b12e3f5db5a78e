package storage

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// ErrStoreUnavailable 存储连接或通道失败
var ErrStoreUnavailable = errors.New("storage: store unavailable")

// ConnState 存储连接状态
type ConnState int

const (
	StateUnconnected ConnState = iota
	StateConnected
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unconnected"
	}
}

// Transport 键值存储的最小原语：GET / SETEX / KEYS + 连接状态。
// 原生客户端与 redis-cli 降级通道实现同一接口，上层无需关心当前使用哪一个。
type Transport interface {
	// Get 返回 key 对应的值；key 不存在时 ok 为 false 且 err 为 nil
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetEX(ctx context.Context, key string, ttl time.Duration, value string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	State() ConnState
	Close() error
}

const (
	TransportAuto   = "auto"
	TransportNative = "native"
	TransportCLI    = "cli"
)

// Config 存储通道配置
type Config struct {
	URL       string
	Transport string
	CLIBin    string
}

// lookPath 便于测试替换
var lookPath = exec.LookPath

// OpenTransport 在启动时选定一次存储通道。auto 模式下先尝试原生连接，
// 失败且 PATH 中存在 redis-cli 时降级到命令行通道。
func OpenTransport(ctx context.Context, cfg Config, log *zap.Logger) (Transport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	bin := cfg.CLIBin
	if bin == "" {
		bin = "redis-cli"
	}

	switch cfg.Transport {
	case TransportCLI:
		log.Info("store transport selected", zap.String("transport", TransportCLI))
		return NewCLITransport(cfg.URL, bin), nil
	case TransportNative:
		log.Info("store transport selected", zap.String("transport", TransportNative))
		return NewRedisTransport(cfg.URL, log)
	case "", TransportAuto:
	default:
		return nil, fmt.Errorf("storage: unknown transport %q", cfg.Transport)
	}

	native, err := NewRedisTransport(cfg.URL, log)
	if err != nil {
		return nil, err
	}
	pingErr := native.Ping(ctx)
	if pingErr == nil {
		log.Info("store transport selected", zap.String("transport", TransportNative))
		return native, nil
	}
	if _, err := lookPath(bin); err != nil {
		log.Warn("redis unreachable and redis-cli not found, keeping native transport", zap.Error(pingErr))
		return native, nil
	}
	_ = native.Close()
	log.Warn("redis unreachable, falling back to redis-cli", zap.Error(pingErr), zap.String("bin", bin))
	return NewCLITransport(cfg.URL, bin), nil
}
