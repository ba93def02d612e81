package driver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient builds a client against a mock API server; mutate runs on the
// validated config before the client is built.
func testClient(t *testing.T, server *httptest.Server, mutate func(c *Config)) *Client {
	t.Helper()

	config := &Config{APIKey: "o.testtoken"}
	require.NoError(t, config.Validate())
	if mutate != nil {
		mutate(config)
	}

	client := NewClient(config)
	client.baseURL = server.URL
	return client
}

func TestClient_FetchPage_AuthAndQuery(t *testing.T) {
	var mu sync.Mutex
	var captured []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		captured = append(captured, r.Clone(context.Background()))
		mu.Unlock()
		fmt.Fprint(w, `{"chats": [{"iden": "chat1", "modified": 1.5}], "cursor": "next-page"}`)
	}))
	defer server.Close()

	client := testClient(t, server, nil)
	page, err := client.FetchPage(context.Background(), &PageRequest{
		Path:          chatsPath,
		Stream:        "chats",
		ModifiedAfter: 1412047948.5,
		Params:        map[string]string{"active": "true"},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, captured, 1)
	request := captured[0]
	assert.Equal(t, "/v2/chats", request.URL.Path)
	assert.Equal(t, "o.testtoken", request.Header.Get("Access-Token"))
	assert.Equal(t, "tap-pushbullet/0.2.1", request.Header.Get("User-Agent"))

	query := request.URL.Query()
	assert.Equal(t, "100", query.Get("limit"), "page size should default to 100")
	assert.Equal(t, "1412047948.5", query.Get("modified_after"))
	assert.Equal(t, "true", query.Get("active"))
	assert.Empty(t, query.Get("cursor"), "first page must not carry a cursor")

	require.Len(t, page.Records, 1)
	assert.Equal(t, "chat1", page.Records[0]["iden"])
	assert.Equal(t, "next-page", page.Cursor)
}

func TestClient_RetriesRateLimitedRequests(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			// reset already passed, the retry wait clamps to zero
			w.Header().Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Unix()-5, 10))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"devices": [{"iden": "dev1"}]}`)
	}))
	defer server.Close()

	client := testClient(t, server, nil)
	page, err := client.FetchPage(context.Background(), &PageRequest{Path: devicesPath, Stream: "devices"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, calls.Load(), "a 429 should cost exactly one retry")
	assert.Len(t, page.Records, 1)
}

func TestClient_FailsFastOnClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "invalid access token"}}`)
	}))
	defer server.Close()

	client := testClient(t, server, nil)
	_, err := client.UsersMe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid access token")
	assert.EqualValues(t, 1, calls.Load(), "a 401 must not be retried")
}

func TestClient_SurfacesExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Unix(), 10))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server, func(c *Config) { c.MaxRetries = 2 })
	_, err := client.UsersMe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	assert.EqualValues(t, 3, calls.Load(), "budget of 2 retries means 3 attempts")
}

func TestClient_UsersMe(t *testing.T) {
	var mu sync.Mutex
	paths := []string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		fmt.Fprint(w, `{"iden": "ujpah72o0", "email": "user@example.com"}`)
	}))
	defer server.Close()

	client := testClient(t, server, nil)
	user, err := client.UsersMe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ujpah72o0", user["iden"])
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/v2/users/me"}, paths)
}

func TestClient_ResponseCacheServesRepeats(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"chats": [{"iden": "chat1"}]}`)
	}))
	defer server.Close()

	client := testClient(t, server, nil)
	request := &PageRequest{Path: chatsPath, Stream: "chats"}

	first, err := client.FetchPage(context.Background(), request)
	require.NoError(t, err)
	second, err := client.FetchPage(context.Background(), request)
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls.Load(), "identical request within the TTL should not hit the API twice")
	assert.Equal(t, first.Records, second.Records)
}

func TestClient_ResponseCacheDisabled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"chats": []}`)
	}))
	defer server.Close()

	off := 0
	client := testClient(t, server, func(c *Config) { c.CacheTTL = &off })
	request := &PageRequest{Path: chatsPath, Stream: "chats"}

	_, err := client.FetchPage(context.Background(), request)
	require.NoError(t, err)
	_, err = client.FetchPage(context.Background(), request)
	require.NoError(t, err)

	assert.EqualValues(t, 2, calls.Load(), "cache_ttl 0 must disable the response cache")
}

func TestResponseCache_Expiry(t *testing.T) {
	cache := newResponseCache(10 * time.Millisecond)
	cache.put("https://api.example.com/v2/chats", []byte(`{}`))

	_, found := cache.get("https://api.example.com/v2/chats")
	assert.True(t, found)

	time.Sleep(20 * time.Millisecond)
	_, found = cache.get("https://api.example.com/v2/chats")
	assert.False(t, found, "entries past the TTL must not be served")
}

func TestWaitFromHeaders(t *testing.T) {
	futureReset := http.Header{}
	futureReset.Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Unix()+30, 10))
	assert.InDelta(t, 30*time.Second, waitFromHeaders(futureReset), float64(2*time.Second))

	staleReset := http.Header{}
	staleReset.Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Unix()-30, 10))
	assert.Equal(t, time.Duration(0), waitFromHeaders(staleReset), "a reset in the past means no wait")

	retryAfter := http.Header{}
	retryAfter.Set("Retry-After", "2")
	assert.Equal(t, 2*time.Second, waitFromHeaders(retryAfter))

	both := http.Header{}
	both.Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Unix()+30, 10))
	both.Set("Retry-After", "2")
	assert.InDelta(t, 30*time.Second, waitFromHeaders(both), float64(2*time.Second), "the reset header wins over Retry-After")

	assert.Equal(t, time.Minute, waitFromHeaders(http.Header{}), "no headers falls back to a minute")
}

func TestDecodePage(t *testing.T) {
	page, err := decodePage("pushes", []byte(`{"pushes": [{"iden": "p1"}, {"iden": "p2"}], "cursor": "abc"}`))
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, "abc", page.Cursor)

	page, err = decodePage("pushes", []byte(`{"pushes": []}`))
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, page.Cursor, "a missing cursor decodes as the empty string")

	page, err = decodePage("pushes", []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, page.Records, "a page without the stream key holds no records")

	_, err = decodePage("pushes", []byte(`not json`))
	require.Error(t, err)
}

func TestFormatQueryValue(t *testing.T) {
	assert.Equal(t, "1412047948.5", formatQueryValue(1412047948.5))
	assert.Equal(t, "1000000000", formatQueryValue(float64(1000000000)), "whole floats must not pick up exponent notation")
	assert.Equal(t, "7", formatQueryValue(int64(7)))
	assert.Equal(t, "abc", formatQueryValue("abc"))
}
