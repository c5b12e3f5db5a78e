package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/hotcache/internal/section"
)

// newsAPIStub 对 limited 中的 key 返回 429，其余返回 body，并按顺序记录收到的 key
type newsAPIStub struct {
	mu      sync.Mutex
	keys    []string
	limited map[string]bool
	status  int
	body    string
}

func (s *newsAPIStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("apiKey")
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if s.limited[key] {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"Too Many Requests"}`))
		return
	}
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	_, _ = w.Write([]byte(s.body))
}

func (s *newsAPIStub) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

func newNewsAPI(t *testing.T, stub *newsAPIStub, keys ...string) *NewsAPIFetcher {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return &NewsAPIFetcher{Client: newTestClient(), Keys: keys, Endpoint: srv.URL + "/v2/top-headlines"}
}

func TestNewsAPIReturnsArticles(t *testing.T) {
	var req *http.Request
	srv := serveJSON(t, "application/json", `{"status":"ok","articles":[{"title":"Test","url":"https://example.com"}]}`, &req)
	f := &NewsAPIFetcher{Client: newTestClient(), Keys: []string{"test-key-1"}, Endpoint: srv.URL}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []section.Record{{"title": "Test", "url": "https://example.com"}}, got)

	require.NotNil(t, req)
	assert.Equal(t, "cn", req.URL.Query().Get("country"))
	assert.Equal(t, "test-key-1", req.URL.Query().Get("apiKey"))
	assert.Equal(t, testUserAgent, req.Header.Get("User-Agent"))
	assert.Equal(t, section.TopNews, f.Name())
}

func TestNewsAPIRotatesKeysOnRateLimit(t *testing.T) {
	stub := &newsAPIStub{
		limited: map[string]bool{"k1": true, "k2": true},
		body:    `{"status":"ok","articles":[{"title":"A"}]}`,
	}
	f := newNewsAPI(t, stub, "k1", "k2", "k3")

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []section.Record{{"title": "A"}}, got)
	assert.Equal(t, []string{"k1", "k2", "k3"}, stub.seen())
}

func TestNewsAPIAllKeysExhausted(t *testing.T) {
	stub := &newsAPIStub{limited: map[string]bool{"k1": true, "k2": true, "k3": true}}
	f := newNewsAPI(t, stub, "k1", "k2", "k3")

	got, err := f.Fetch(context.Background())
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrCredentialsExhausted)
	assert.Equal(t, []string{"k1", "k2", "k3"}, stub.seen())
}

func TestNewsAPIEmptyPoolMakesNoRequest(t *testing.T) {
	stub := &newsAPIStub{body: `{"articles":[]}`}
	f := newNewsAPI(t, stub)

	_, err := f.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Empty(t, stub.seen())
}

func TestNewsAPIOtherFailuresDoNotRotate(t *testing.T) {
	stub := &newsAPIStub{status: http.StatusUnauthorized, body: `{"status":"error","code":"apiKeyInvalid"}`}
	f := newNewsAPI(t, stub, "k1", "k2")

	_, err := f.Fetch(context.Background())
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.False(t, errors.Is(err, ErrCredentialsExhausted))
	assert.Equal(t, []string{"k1"}, stub.seen())
}

func TestNewsAPIMissingArticlesIsEmpty(t *testing.T) {
	stub := &newsAPIStub{body: `{"status":"ok"}`}
	f := newNewsAPI(t, stub, "k1")

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
