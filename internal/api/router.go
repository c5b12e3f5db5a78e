package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LJTian/hotcache/internal/section"
	"github.com/LJTian/hotcache/internal/storage"
)

// SectionReader 只读访问分区缓存，通常是 *storage.Store
type SectionReader interface {
	Read(ctx context.Context, key string) (*storage.Section, error)
	ReadAll(ctx context.Context) (map[string]*storage.Section, error)
	Connected() storage.ConnState
}

// RunLister 查询最近的刷新记录，通常是 *storage.Journal
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]storage.RefreshRun, error)
}

type Server struct {
	store  SectionReader
	runs   RunLister
	window time.Duration
	log    *zap.Logger
}

// NewServer runs 可以为 nil，此时 /api/v1/runs 返回 404
func NewServer(store SectionReader, runs RunLister, window time.Duration, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: store, runs: runs, window: window, log: log}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.Use(allowAllOrigins())
	r.GET("/health", s.health)

	for _, ch := range section.Catalog() {
		r.GET(ch.Route, s.sectionHandler(ch.Key))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/sections", s.listSections)
		v1.GET("/runs", s.listRuns)
	}
}

// allowAllOrigins 所有响应都允许跨域读取
func allowAllOrigins() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"store":  s.store.Connected().String(),
	})
}

// sectionHandler 返回某个分区的记录；数据缺失或过期时返回 503
func (s *Server) sectionHandler(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sec, err := s.store.Read(c.Request.Context(), key)
		if err != nil {
			s.log.Error("read section failed", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": fmt.Sprintf("Failed to read cache for %s", key),
			})
			return
		}
		if !storage.IsFresh(sec, s.window) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": fmt.Sprintf("Cached data for %s is unavailable or stale.", key),
			})
			return
		}
		c.JSON(http.StatusOK, sec.Data)
	}
}

type sectionInfo struct {
	Key       string `json:"key"`
	Route     string `json:"route,omitempty"`
	UpdatedAt string `json:"updatedAt"`
	Count     int    `json:"count"`
	Fresh     bool   `json:"fresh"`
}

func (s *Server) listSections(c *gin.Context) {
	all, err := s.store.ReadAll(c.Request.Context())
	if err != nil {
		s.log.Error("read all sections failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	now := time.Now()
	items := make([]sectionInfo, 0, len(all))
	for key, sec := range all {
		info := sectionInfo{
			Key:       key,
			UpdatedAt: sec.UpdatedAt,
			Count:     len(sec.Data),
			Fresh:     sec.FreshAt(now, s.window),
		}
		if ch, ok := section.Lookup(key); ok {
			info.Route = ch.Route
		}
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "run journal disabled",
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := s.runs.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("list runs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    runs,
	})
}
