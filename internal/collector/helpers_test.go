package collector

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

const testUserAgent = "trendinghub-test/1.0"

func newTestClient() *Client {
	return NewClient(testUserAgent, 5*time.Second, zap.NewNop())
}

// serveJSON 启动一个返回固定响应体的上游，并记录最后一次请求
func serveJSON(t *testing.T, contentType, body string, last **http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if last != nil {
			*last = r
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}
