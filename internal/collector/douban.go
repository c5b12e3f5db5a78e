package collector

import (
	"context"
	"net/url"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/section"
)

const doubanEndpoint = "https://movie.douban.com/j/search_subjects"

// doubanQuery 固定查询：热门电影，按推荐排序，第一页 10 条
var doubanQuery = url.Values{
	"type":       {"movie"},
	"tag":        {"热门"},
	"sort":       {"recommend"},
	"page_limit": {"10"},
	"page_start": {"0"},
}

// DoubanFetcher 拉取豆瓣热门电影
type DoubanFetcher struct {
	Client   *Client
	Endpoint string
}

func (d *DoubanFetcher) Name() string {
	return section.DoubanHotMovies
}

type doubanSubject struct {
	ID    json.RawMessage `json:"id"`
	Title json.RawMessage `json:"title"`
	Rate  json.RawMessage `json:"rate"`
	URL   json.RawMessage `json:"url"`
	Cover json.RawMessage `json:"cover"`
	IsNew json.RawMessage `json:"is_new"`
}

func (d *DoubanFetcher) Fetch(ctx context.Context) ([]section.Record, error) {
	var payload struct {
		Subjects json.RawMessage `json:"subjects"`
	}
	if err := d.Client.getJSON(ctx, d.Name(), endpointOr(d.Endpoint, doubanEndpoint), doubanQuery, &payload); err != nil {
		return nil, err
	}

	subjects, ok := decodeList[doubanSubject](payload.Subjects)
	if !ok {
		d.Client.logger().Warn("douban payload has no subjects", zap.String("source", d.Name()))
		return []section.Record{}, nil
	}

	records := make([]section.Record, 0, len(subjects))
	for _, s := range subjects {
		rec := section.Record{
			"rating": doubanRating(s.Rate),
			"isNew":  truthy(s.IsNew),
		}
		putRaw(rec, "id", s.ID)
		putRaw(rec, "title", s.Title)
		putRaw(rec, "url", s.URL)
		putRaw(rec, "cover", s.Cover)
		records = append(records, rec)
	}
	return records, nil
}

// doubanRating rate 缺失或为空时为 null，否则按数值转换（非数值同样为 null）
func doubanRating(raw json.RawMessage) any {
	if !truthy(raw) {
		return nil
	}
	f, ok := looseNumber(raw)
	if !ok {
		return nil
	}
	return f
}
