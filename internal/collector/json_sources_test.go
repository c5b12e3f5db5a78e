package collector

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/hotcache/internal/section"
)

func TestBilibiliReturnsArchives(t *testing.T) {
	var req *http.Request
	srv := serveJSON(t, "application/json", `{"code":0,"data":{"archives":[{"aid":1,"title":"Video"}]}}`, &req)
	f := &BilibiliFetcher{Client: newTestClient(), Endpoint: srv.URL}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []section.Record{{"aid": float64(1), "title": "Video"}}, got)

	q := req.URL.Query()
	assert.Equal(t, "jsonp", q.Get("jsonp"))
	assert.Equal(t, "10", q.Get("ps"))
	assert.Equal(t, "1", q.Get("rid"))
}

func TestBilibiliAcceptsJSONPBody(t *testing.T) {
	srv := serveJSON(t, "application/javascript", `jsonp({"data":{"archives":[{"bvid":"BV1xx411c7mD"}]}});`, nil)
	f := &BilibiliFetcher{Client: newTestClient(), Endpoint: srv.URL}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []section.Record{{"bvid": "BV1xx411c7mD"}}, got)
}

func TestBilibiliMissingArchivesIsEmpty(t *testing.T) {
	srv := serveJSON(t, "application/json", `{"code":-412,"message":"request was banned"}`, nil)
	f := &BilibiliFetcher{Client: newTestClient(), Endpoint: srv.URL}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestToutiaoNormalizesHotBoard(t *testing.T) {
	var req *http.Request
	body := `{"data":[
		{"Title":"今日头条热点","QueryWord":"测试词","Url":"https://toutiao.com/a","HotValue":"5678","Label":"hot","Image":{"url":"https://img.com/tt.png"}},
		{"Title":"第二条","Url":"https://toutiao.com/b","HotValue":"n/a","Label":"","LabelDesc":"新"},
		{"Title":"第三条","HotValue":0}
	]}`
	srv := serveJSON(t, "application/json", body, &req)
	f := &ToutiaoFetcher{Client: newTestClient(), Endpoint: srv.URL}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []section.Record{
		{
			"title":    "今日头条热点",
			"query":    "测试词",
			"url":      "https://toutiao.com/a",
			"hotValue": float64(5678),
			"label":    "hot",
			"image":    "https://img.com/tt.png",
		},
		{"title": "第二条", "url": "https://toutiao.com/b", "hotValue": nil, "label": "新"},
		{"title": "第三条", "hotValue": nil, "label": nil},
	}, got)
	assert.Equal(t, "toutiao_pc", req.URL.Query().Get("origin"))
}

func TestDoubanNormalizesSubjects(t *testing.T) {
	var req *http.Request
	body := `{"subjects":[
		{"id":"123","title":"豆瓣热映","rate":"8.5","url":"https://movie.douban.com/subject/123/","cover":"https://img.doubanio.com/a.jpg","is_new":true},
		{"id":"456","title":"暂无评分","rate":"","url":"https://movie.douban.com/subject/456/","cover":"https://img.doubanio.com/b.jpg","is_new":false}
	]}`
	srv := serveJSON(t, "application/json", body, &req)
	f := &DoubanFetcher{Client: newTestClient(), Endpoint: srv.URL}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []section.Record{
		{
			"id":     "123",
			"title":  "豆瓣热映",
			"rating": 8.5,
			"url":    "https://movie.douban.com/subject/123/",
			"cover":  "https://img.doubanio.com/a.jpg",
			"isNew":  true,
		},
		{
			"id":     "456",
			"title":  "暂无评分",
			"rating": nil,
			"url":    "https://movie.douban.com/subject/456/",
			"cover":  "https://img.doubanio.com/b.jpg",
			"isNew":  false,
		},
	}, got)

	q := req.URL.Query()
	assert.Equal(t, "movie", q.Get("type"))
	assert.Equal(t, "热门", q.Get("tag"))
	assert.Equal(t, "recommend", q.Get("sort"))
	assert.Equal(t, "10", q.Get("page_limit"))
	assert.Equal(t, "0", q.Get("page_start"))
}

func TestJSONSourcesPropagateUpstreamErrors(t *testing.T) {
	srv := serveJSON(t, "application/json", `{}`, nil)
	srv.Close()

	c := newTestClient()
	for _, f := range []Fetcher{
		&BilibiliFetcher{Client: c, Endpoint: srv.URL},
		&BaiduHotFetcher{Client: c, Endpoint: srv.URL},
		&ToutiaoFetcher{Client: c, Endpoint: srv.URL},
		&DoubanFetcher{Client: c, Endpoint: srv.URL},
	} {
		_, err := f.Fetch(context.Background())
		var ue *UpstreamError
		assert.ErrorAs(t, err, &ue, f.Name())
	}
}

func TestNewFetchersCoversEverySection(t *testing.T) {
	fetchers := NewFetchers(newTestClient(), []string{"k"})
	names := make([]string, 0, len(fetchers))
	for _, f := range fetchers {
		names = append(names, f.Name())
	}
	assert.ElementsMatch(t, section.Keys(), names)
}

func TestDoubanKeepsUpstreamFieldTypes(t *testing.T) {
	body := `{"subjects":[
		42,
		{"id":123,"title":"数字编号","rate":"7.0","is_new":1}
	]}`
	srv := serveJSON(t, "application/json", body, nil)
	f := &DoubanFetcher{Client: newTestClient(), Endpoint: srv.URL}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []section.Record{
		{"id": float64(123), "title": "数字编号", "rating": 7.0, "isNew": true},
	}, got)
}

func TestToutiaoSkipsNonObjectItems(t *testing.T) {
	body := `{"data":["junk",{"Title":"保留","Url":"https://toutiao.com/c","HotValue":10}]}`
	srv := serveJSON(t, "application/json", body, nil)
	f := &ToutiaoFetcher{Client: newTestClient(), Endpoint: srv.URL}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []section.Record{
		{"title": "保留", "url": "https://toutiao.com/c", "hotValue": float64(10), "label": nil},
	}, got)
}
