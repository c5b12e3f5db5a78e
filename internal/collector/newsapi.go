package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/section"
)

const (
	newsAPIEndpoint = "https://newsapi.org/v2/top-headlines"
	newsAPICountry  = "cn"
)

// NewsAPIFetcher 拉取 News API 头条；遇到限流时按顺序轮换 key 池中的下一个 key
type NewsAPIFetcher struct {
	Client *Client
	// Keys 只读 key 池，运行期间只有下标前进
	Keys     []string
	Endpoint string
	Country  string
}

func (n *NewsAPIFetcher) Name() string {
	return section.TopNews
}

type newsAPIPayload struct {
	Status   string          `json:"status"`
	Code     string          `json:"code"`
	Articles json.RawMessage `json:"articles"`
}

func (n *NewsAPIFetcher) Fetch(ctx context.Context) ([]section.Record, error) {
	if len(n.Keys) == 0 {
		return nil, ErrNoCredentials
	}

	log := n.Client.logger().With(zap.String("source", n.Name()))
	for i, key := range n.Keys {
		records, err := n.fetchWithKey(ctx, key)
		if err == nil {
			return records, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		log.Warn("news api key rate limited, rotating", zap.Int("keyIndex", i), zap.Int("poolSize", len(n.Keys)))
	}
	return nil, fmt.Errorf("%w (%d keys tried)", ErrCredentialsExhausted, len(n.Keys))
}

func (n *NewsAPIFetcher) fetchWithKey(ctx context.Context, key string) ([]section.Record, error) {
	country := n.Country
	if country == "" {
		country = newsAPICountry
	}
	query := url.Values{"country": {country}, "apiKey": {key}}

	var payload newsAPIPayload
	err := n.Client.getJSON(ctx, n.Name(), endpointOr(n.Endpoint, newsAPIEndpoint), query, &payload)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, err
	}
	if payload.Code == "rateLimited" {
		return nil, ErrRateLimited
	}

	articles, ok := decodeList[section.Record](payload.Articles)
	if !ok {
		n.Client.logger().Warn("news api payload has no articles", zap.String("source", n.Name()))
		return []section.Record{}, nil
	}
	return articles, nil
}

// isRateLimited 429，或响应体中带有“Too Many Requests”/rateLimited
func isRateLimited(err error) bool {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	if ue.Status == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(ue.Detail, "Too Many Requests") || strings.Contains(ue.Detail, `"rateLimited"`)
}
