package collector

import (
	"context"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/section"
)

const (
	baiduHotEndpoint = "https://top.baidu.com/api/board?platform=pc&tab=realtime"
	hotListComponent = "hotList"
)

// BaiduHotFetcher 拉取百度实时热搜榜（board 接口）
type BaiduHotFetcher struct {
	Client   *Client
	Endpoint string
}

func (b *BaiduHotFetcher) Name() string {
	return section.BaiduRealtimeHotSearch
}

type hotSearchCard struct {
	Component flexString      `json:"component"`
	Content   json.RawMessage `json:"content"`
}

type hotSearchItem struct {
	Word      *flexString     `json:"word"`
	Desc      *flexString     `json:"desc"`
	URL       *flexString     `json:"url"`
	RawURL    *flexString     `json:"rawUrl"`
	HotScore  json.RawMessage `json:"hotScore"`
	Img       *flexString     `json:"img"`
	HotTag    *flexString     `json:"hotTag"`
	HotTagImg *flexString     `json:"hotTagImg"`
}

func (b *BaiduHotFetcher) Fetch(ctx context.Context) ([]section.Record, error) {
	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := b.Client.getJSON(ctx, b.Name(), endpointOr(b.Endpoint, baiduHotEndpoint), nil, &payload); err != nil {
		return nil, err
	}
	return normalizeHotSearch(payload.Data, b.Client.logger().With(zap.String("source", b.Name()))), nil
}

func normalizeHotSearch(data json.RawMessage, log *zap.Logger) []section.Record {
	var board struct {
		Cards json.RawMessage `json:"cards"`
	}
	if !decodeObject(data, &board) {
		log.Warn("hot search payload has no data")
		return []section.Record{}
	}
	cards, _ := decodeList[hotSearchCard](board.Cards)
	card, ok := pickHotListCard(cards)
	if !ok {
		log.Warn("hot search payload has no cards")
		return []section.Record{}
	}
	if string(card.Component) != hotListComponent {
		// 没有 hotList 卡片时沿用第一张卡片，可能并不是热搜榜
		log.Warn("hotList card not found, falling back to first card", zap.String("component", string(card.Component)))
	}

	items, _ := decodeList[hotSearchItem](card.Content)
	records := make([]section.Record, 0, len(items))
	for _, it := range items {
		title := str(it.Word)
		link := str(it.URL)
		if link == "" {
			link = str(it.RawURL)
		}
		if title == "" || link == "" {
			continue
		}

		rec := section.Record{
			"title":    title,
			"url":      link,
			"hotScore": numberOrNil(it.HotScore),
		}
		putString(rec, "summary", it.Desc)
		putString(rec, "image", it.Img)
		putString(rec, "tag", it.HotTag)
		putString(rec, "tagImage", it.HotTagImg)
		records = append(records, rec)
	}
	return records
}

// pickHotListCard 优先 component 为 hotList 的卡片，否则第一张
func pickHotListCard(cards []hotSearchCard) (hotSearchCard, bool) {
	for _, c := range cards {
		if string(c.Component) == hotListComponent {
			return c, true
		}
	}
	if len(cards) > 0 {
		return cards[0], true
	}
	return hotSearchCard{}, false
}
