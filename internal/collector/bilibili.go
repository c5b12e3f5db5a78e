package collector

import (
	"context"
	"net/url"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/section"
)

const bilibiliEndpoint = "https://api.bilibili.com/x/web-interface/dynamic/region"

// BilibiliFetcher 拉取 B 站分区动态（热门视频），archives 原样透传
type BilibiliFetcher struct {
	Client   *Client
	Endpoint string
}

func (b *BilibiliFetcher) Name() string {
	return section.BilibiliTrending
}

func (b *BilibiliFetcher) Fetch(ctx context.Context) ([]section.Record, error) {
	query := url.Values{"jsonp": {"jsonp"}, "ps": {"10"}, "rid": {"1"}}

	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := b.Client.getJSON(ctx, b.Name(), endpointOr(b.Endpoint, bilibiliEndpoint), query, &payload); err != nil {
		return nil, err
	}

	var data struct {
		Archives json.RawMessage `json:"archives"`
	}
	if !decodeObject(payload.Data, &data) {
		b.Client.logger().Warn("bilibili payload has no data", zap.String("source", b.Name()))
		return []section.Record{}, nil
	}
	archives, ok := decodeList[section.Record](data.Archives)
	if !ok {
		b.Client.logger().Warn("bilibili payload has no archives", zap.String("source", b.Name()))
		return []section.Record{}, nil
	}
	return archives, nil
}
