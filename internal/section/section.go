package section

// Record 是一条归一化后的记录：字段名到标量值（或透传的上游对象）
type Record = map[string]any

// 六个固定的缓存分区，一个数据源对应一个
const (
	TopNews                = "top_news"
	BaiduHotNews           = "baidu_hot_news"
	BilibiliTrending       = "bilibili_trending"
	BaiduRealtimeHotSearch = "baidu_realtime_hot_search"
	ToutiaoHotBoard        = "toutiao_hot_board"
	DoubanHotMovies        = "douban_hot_movies"
)

// Channel 描述一个分区对外的读路由与展示信息
type Channel struct {
	Key     string
	Route   string
	Name    string
	BaseURL string
}

var catalog = []Channel{
	{Key: TopNews, Route: "/top-news/", Name: "News API 头条", BaseURL: "https://newsapi.org"},
	{Key: BaiduHotNews, Route: "/baidu/hot-news/", Name: "百度新闻热点", BaseURL: "https://news.baidu.com/"},
	{Key: BilibiliTrending, Route: "/bilibili/trending/", Name: "哔哩哔哩热门", BaseURL: "https://www.bilibili.com"},
	{Key: BaiduRealtimeHotSearch, Route: "/baidu/hot-search/", Name: "百度实时热搜", BaseURL: "https://top.baidu.com/board?tab=realtime"},
	{Key: ToutiaoHotBoard, Route: "/toutiao/hot-board/", Name: "今日头条热榜", BaseURL: "https://www.toutiao.com"},
	{Key: DoubanHotMovies, Route: "/douban/hot-movies/", Name: "豆瓣热门电影", BaseURL: "https://movie.douban.com"},
}

// Catalog 返回全部分区（固定顺序），调用方可随意修改返回的切片
func Catalog() []Channel {
	out := make([]Channel, len(catalog))
	copy(out, catalog)
	return out
}

// Keys 返回六个分区 key
func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for _, c := range catalog {
		keys = append(keys, c.Key)
	}
	return keys
}

// Lookup 按 key 查找分区
func Lookup(key string) (Channel, bool) {
	for _, c := range catalog {
		if c.Key == key {
			return c, true
		}
	}
	return Channel{}, false
}

// Samples 每个分区一条示例数据，用于在没有上游访问时填充缓存
func Samples() map[string][]Record {
	return map[string][]Record{
		TopNews: {
			{"title": "Sample headline A", "url": "https://example.com/a"},
		},
		BaiduHotNews: {
			{"title": "百度热搜示例", "link": "https://news.example.cn/b"},
		},
		BilibiliTrending: {
			{"title": "Bilibili trending demo", "bvid": "BV1xx411c7mD"},
		},
		BaiduRealtimeHotSearch: {
			{"title": "实时热搜示例", "summary": "Some description", "url": "https://baidu.example.com/hot"},
		},
		ToutiaoHotBoard: {
			{"title": "今日头条热点", "url": "https://toutiao.example.com"},
		},
		DoubanHotMovies: {
			{"title": "豆瓣热映示例", "url": "https://movie.example.com", "rating": 9.1},
		},
	}
}
