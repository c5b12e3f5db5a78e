package collector

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/section"
)

const (
	baiduNewsEndpoint = "https://news.baidu.com/"
	hotNewsSelector   = ".hotnews"
)

// BaiduNewsFetcher 抓取百度新闻首页的热点新闻区块
type BaiduNewsFetcher struct {
	Client   *Client
	Endpoint string
}

func (b *BaiduNewsFetcher) Name() string {
	return section.BaiduHotNews
}

func (b *BaiduNewsFetcher) Fetch(ctx context.Context) ([]section.Record, error) {
	c := colly.NewCollector(colly.UserAgent(b.Client.UserAgent))
	if b.Client.HTTP != nil {
		if b.Client.HTTP.Timeout > 0 {
			c.SetRequestTimeout(b.Client.HTTP.Timeout)
		}
		if b.Client.HTTP.Transport != nil {
			c.WithTransport(b.Client.HTTP.Transport)
		}
	}

	records := make([]section.Record, 0, 32)
	found := false
	status := 0

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	// 只取第一个热点区块，区块内所有链接按文档顺序输出
	c.OnHTML(hotNewsSelector, func(e *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		e.DOM.Find("a").Each(func(_ int, a *goquery.Selection) {
			title := strings.TrimSpace(a.Text())
			link, _ := a.Attr("href")
			if title == "" || link == "" {
				return
			}
			records = append(records, section.Record{"title": title, "link": link})
		})
	})

	err := c.Visit(endpointOr(b.Endpoint, baiduNewsEndpoint))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &UpstreamError{Source: b.Name(), Err: ctxErr}
	}
	if err != nil {
		return nil, &UpstreamError{Source: b.Name(), Status: status, Err: err}
	}

	if !found {
		b.Client.logger().Warn("hot news container not found", zap.String("source", b.Name()))
	}
	return records, nil
}
