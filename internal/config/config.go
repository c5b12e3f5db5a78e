package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/LJTian/hotcache/internal/logger"
)

const (
	DefaultCacheTTL        = 86400 * time.Second
	DefaultFreshnessWindow = 24 * time.Hour
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultUserAgent       = "what-up-china-server/1.0 (+https://github.com/James-Sangalli/what-up-china)"
)

// DefaultNewsAPIKeys 未配置 NEWS_API_KEYS 时使用的内置 key 池
var DefaultNewsAPIKeys = []string{
	"6d7709b0ec234faab6e438466941c2ae",
	"15e281928b994633ab09b55784ce35cd",
	"0e9d878eeb994e5087ad30e40e5706db",
	"220c2dd1a5e549e7beab64f259af5675",
}

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	NewsAPI  NewsAPIConfig  `mapstructure:"news_api"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Cron     CronConfig     `mapstructure:"cron"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Log      logger.Config  `mapstructure:"log"`
}

type AppConfig struct {
	Port string `mapstructure:"port" default:"9000"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" default:"redis://127.0.0.1:6379"`
}

type StoreConfig struct {
	// Transport 存储通道：auto / native / cli
	Transport string `mapstructure:"transport" default:"auto"`
	// CLIBin 降级通道使用的 redis-cli 可执行文件
	CLIBin string `mapstructure:"cli_bin" default:"redis-cli"`
}

type CacheConfig struct {
	TTLSeconds      int           `mapstructure:"ttl_seconds" default:"86400"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window" default:"24h"`
}

type NewsAPIConfig struct {
	// Keys 逗号分隔的 key 列表
	Keys string `mapstructure:"keys" default:""`
}

type HTTPConfig struct {
	UserAgent string        `mapstructure:"user_agent" default:""`
	Timeout   time.Duration `mapstructure:"timeout" default:"10s"`
}

type CronConfig struct {
	// Spec 为空时 cmd/api 不启动定时刷新
	Spec string `mapstructure:"spec" default:"0 * * * *"`
}

type PostgresConfig struct {
	// DSN 为空时不启用刷新日志
	DSN string `mapstructure:"dsn" default:""`
}

// Load 从环境变量（以及当前目录下可选的 .env）加载配置
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile 与 Load 相同，但显式指定 .env 路径；文件不存在时忽略
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Overload(envFile)
	}

	v := viper.New()
	bindValues(v, Config{}, "")

	// 环境变量映射到嵌套 key，例如 CACHE_TTL_SECONDS -> cache.ttl_seconds
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		emptyDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// emptyDurationHook 空字符串的时长视为未配置（0），由各 helper 回退到默认值
func emptyDurationHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) || from.Kind() != reflect.String {
		return data, nil
	}
	if strings.TrimSpace(data.(string)) == "" {
		return time.Duration(0), nil
	}
	return data, nil
}

// bindValues 按 mapstructure/default tag 递归注册默认值，使 AutomaticEnv 能识别每个 key
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// Addr 返回 API 监听地址
func (c *Config) Addr() string {
	port := c.App.Port
	if port == "" {
		port = "9000"
	}
	return ":" + port
}

// CacheTTL 返回分区过期时间；未配置或非法时为 86400 秒
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return DefaultCacheTTL
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// FreshnessWindow 返回读端判定新鲜度的窗口，与 TTL 相互独立
func (c *Config) FreshnessWindow() time.Duration {
	if c.Cache.FreshnessWindow <= 0 {
		return DefaultFreshnessWindow
	}
	return c.Cache.FreshnessWindow
}

// NewsAPIKeys 解析 key 池，去掉空白项；结果为空时回退到内置 key 池
func (c *Config) NewsAPIKeys() []string {
	var keys []string
	for _, k := range strings.Split(c.NewsAPI.Keys, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		keys = append(keys, DefaultNewsAPIKeys...)
	}
	return keys
}

// UserAgent 返回所有出站请求附带的标识头
func (c *Config) UserAgent() string {
	if ua := strings.TrimSpace(c.HTTP.UserAgent); ua != "" {
		return ua
	}
	return DefaultUserAgent
}

func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTP.Timeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.HTTP.Timeout
}
