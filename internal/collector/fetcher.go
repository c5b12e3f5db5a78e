package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/section"
)

const (
	maxResponseBytes = 4 << 20 // 4MB，防止异常大的响应拖垮进程
	maxErrorDetail   = 256
)

// Fetcher 抽象每一个数据源；Name 即该数据源对应的缓存分区 key
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]section.Record, error)
}

var (
	// ErrRateLimited 上游返回 429 或等价的限流信号，只在 News API 的 key 轮换中被消化
	ErrRateLimited = errors.New("collector: rate limited")
	// ErrNoCredentials key 池为空，一次请求也不会发出
	ErrNoCredentials = errors.New("collector: no news api keys configured")
	// ErrCredentialsExhausted 所有 key 都被限流
	ErrCredentialsExhausted = errors.New("collector: all news api keys exhausted")
)

// UpstreamError 网络错误、超时、非 2xx 或无法解析的响应体
type UpstreamError struct {
	Source string
	Status int
	Detail string
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("collector: %s: status %d: %v", e.Source, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("collector: %s: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("collector: %s: unexpected status %d", e.Source, e.Status)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Client 所有数据源共享的出站 HTTP 客户端：固定标识头 + 有界超时
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Log       *zap.Logger
}

func NewClient(userAgent string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Log:       log,
	}
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// get 发出带标识头的 GET 请求；非 2xx 时同时返回响应体与 *UpstreamError
func (c *Client) get(ctx context.Context, source, endpoint string, query url.Values) ([]byte, error) {
	u := endpoint
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &UpstreamError{Source: source, Err: err}
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &UpstreamError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &UpstreamError{Source: source, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &UpstreamError{Source: source, Status: resp.StatusCode, Detail: truncate(string(body), maxErrorDetail)}
	}
	return body, nil
}

// getJSON 请求并解析 JSON 响应；响应体无法解析视为上游错误
func (c *Client) getJSON(ctx context.Context, source, endpoint string, query url.Values, v any) error {
	body, err := c.get(ctx, source, endpoint, query)
	if err != nil {
		return err
	}
	if err := decodePayload(body, v); err != nil {
		return &UpstreamError{Source: source, Err: fmt.Errorf("decode payload: %w", err)}
	}
	return nil
}

// NewFetchers 注册六个数据源
func NewFetchers(c *Client, newsAPIKeys []string) []Fetcher {
	return []Fetcher{
		&NewsAPIFetcher{Client: c, Keys: newsAPIKeys},
		&BaiduNewsFetcher{Client: c},
		&BilibiliFetcher{Client: c},
		&BaiduHotFetcher{Client: c},
		&ToutiaoFetcher{Client: c},
		&DoubanFetcher{Client: c},
	}
}

func endpointOr(endpoint, def string) string {
	if endpoint != "" {
		return endpoint
	}
	return def
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
