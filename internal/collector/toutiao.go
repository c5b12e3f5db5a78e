package collector

import (
	"context"
	"net/url"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/section"
)

const toutiaoEndpoint = "https://i.snssdk.com/hot-event/hot-board/"

// ToutiaoFetcher 拉取今日头条热榜
type ToutiaoFetcher struct {
	Client   *Client
	Endpoint string
}

func (t *ToutiaoFetcher) Name() string {
	return section.ToutiaoHotBoard
}

type toutiaoItem struct {
	Title     json.RawMessage `json:"Title"`
	QueryWord json.RawMessage `json:"QueryWord"`
	URL       json.RawMessage `json:"Url"`
	HotValue  json.RawMessage `json:"HotValue"`
	Label     flexString      `json:"Label"`
	LabelDesc flexString      `json:"LabelDesc"`
	Image     json.RawMessage `json:"Image"`
}

func (t *ToutiaoFetcher) Fetch(ctx context.Context) ([]section.Record, error) {
	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	query := url.Values{"origin": {"toutiao_pc"}}
	if err := t.Client.getJSON(ctx, t.Name(), endpointOr(t.Endpoint, toutiaoEndpoint), query, &payload); err != nil {
		return nil, err
	}

	items, ok := decodeList[toutiaoItem](payload.Data)
	if !ok {
		t.Client.logger().Warn("toutiao payload has no data", zap.String("source", t.Name()))
		return []section.Record{}, nil
	}

	records := make([]section.Record, 0, len(items))
	for _, it := range items {
		rec := section.Record{
			"hotValue": numberOrNil(it.HotValue),
			"label":    toutiaoLabel(it),
		}
		putRaw(rec, "title", it.Title)
		putRaw(rec, "query", it.QueryWord)
		putRaw(rec, "url", it.URL)

		var image struct {
			URL json.RawMessage `json:"url"`
		}
		if decodeObject(it.Image, &image) {
			putRaw(rec, "image", image.URL)
		}
		records = append(records, rec)
	}
	return records, nil
}

// toutiaoLabel Label 优先，其次 LabelDesc，都为空时为 null
func toutiaoLabel(it toutiaoItem) any {
	if it.Label != "" {
		return string(it.Label)
	}
	if it.LabelDesc != "" {
		return string(it.LabelDesc)
	}
	return nil
}
