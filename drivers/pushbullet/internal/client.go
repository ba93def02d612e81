package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jpillora/backoff"
	"github.com/mitchellh/hashstructure"
	"golang.org/x/time/rate"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// Client talks to the Pushbullet v2 API: header auth, cursor pagination,
// retry with rate limit awareness and an optional response cache.
type Client struct {
	config  *Config
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	cache   *responseCache
}

func NewClient(config *Config) *Client {
	client := &Client{
		config:  config,
		baseURL: constants.APIBaseURL,
		http: &http.Client{
			Timeout: time.Duration(config.RequestTimeout) * time.Second,
		},
	}
	if config.RateLimit > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	if ttl := *config.CacheTTL; ttl > 0 {
		client.cache = newResponseCache(time.Duration(ttl) * time.Second)
	}

	return client
}

// PageRequest names one resource page. Params carries query parameters a
// stream pins on top of the shared limit/cursor/modified_after set.
type PageRequest struct {
	Path          string
	Stream        string
	Cursor        string
	ModifiedAfter any
	Params        map[string]string
}

// Page is one decoded response page; records sit under a top level key named
// after the stream, the cursor points at the following page.
type Page struct {
	Records []map[string]any
	Cursor  string
}

// FetchPage requests one page of a resource stream.
func (c *Client) FetchPage(ctx context.Context, request *PageRequest) (*Page, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.config.PageSize))
	if request.Cursor != "" {
		query.Set("cursor", request.Cursor)
	}
	if request.ModifiedAfter != nil {
		query.Set("modified_after", formatQueryValue(request.ModifiedAfter))
	}
	for key, value := range request.Params {
		query.Set(key, value)
	}

	body, err := c.get(ctx, request.Path, query)
	if err != nil {
		return nil, err
	}

	return decodePage(request.Stream, body)
}

// UsersMe fetches the authenticated user, the cheapest proof the key works.
func (c *Client) UsersMe(ctx context.Context) (map[string]any, error) {
	body, err := c.get(ctx, usersMePath, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %s", err)
	}

	user := map[string]any{}
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode current user: %s", err)
	}

	return user, nil
}

func decodePage(stream string, body []byte) (*Page, error) {
	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response envelope: %s", err)
	}

	page := &Page{Records: []map[string]any{}}
	if raw, found := envelope["cursor"]; found {
		if err := json.Unmarshal(raw, &page.Cursor); err != nil {
			return nil, fmt.Errorf("failed to decode cursor: %s", err)
		}
	}
	if raw, found := envelope[stream]; found {
		if err := json.Unmarshal(raw, &page.Records); err != nil {
			return nil, fmt.Errorf("failed to decode %s records: %s", stream, err)
		}
	}

	return page, nil
}

// formatQueryValue renders cursor values the way the API expects; unix float
// seconds must not pick up exponent notation.
func formatQueryValue(value any) string {
	switch typed := value.(type) {
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// get runs one GET with retries. Retriable failures are transport errors and
// 429/5xx responses; the wait honors what the API asks for when it says.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	if c.cache != nil {
		if body, found := c.cache.get(endpoint); found {
			logger.Debugf("response cache hit for %s", path)
			return body, nil
		}
	}

	policy := &backoff.Backoff{Min: time.Second, Max: constants.DefaultRateLimitWait, Factor: 2, Jitter: true}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := retryWait(lastErr, policy)
			logger.Warnf("retrying %s in %s (attempt %d/%d): %s", path, wait.Round(time.Millisecond), attempt, c.config.MaxRetries, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := c.do(ctx, endpoint)
		if err == nil {
			if c.cache != nil {
				c.cache.put(endpoint, body)
			}
			return body, nil
		}
		lastErr = err

		var failure *apiError
		if errors.As(err, &failure) && !failure.retriable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request to %s failed after %d retries: %s", path, c.config.MaxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %s", err)
	}
	req.Header.Set(constants.AccessTokenKey, c.config.APIKey)
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %s", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return body, nil
	}

	failure := &apiError{
		status:    resp.StatusCode,
		body:      truncate(string(body), 256),
		retriable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError,
	}
	if failure.retriable {
		failure.wait = waitFromHeaders(resp.Header)
	}

	return nil, failure
}

// apiError is a non-2xx response; retriable ones carry the wait the API
// implied through its rate limit headers.
type apiError struct {
	status    int
	body      string
	wait      time.Duration
	retriable bool
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.status, e.body)
}

// retryWait prefers the wait the API asked for; transport errors fall back
// to the exponential schedule.
func retryWait(err error, policy *backoff.Backoff) time.Duration {
	var failure *apiError
	if errors.As(err, &failure) {
		return failure.wait
	}

	return policy.Duration()
}

// waitFromHeaders derives the retry wait from X-Ratelimit-Reset, an absolute
// unix timestamp, or a Retry-After duration in seconds. Falls back to a
// minute when the API says neither.
func waitFromHeaders(header http.Header) time.Duration {
	if reset := header.Get(constants.RateLimitReset); reset != "" {
		if resetAt, err := strconv.ParseFloat(reset, 64); err == nil {
			wait := time.Duration((resetAt - float64(time.Now().Unix())) * float64(time.Second))
			if wait < 0 {
				wait = 0
			}
			return wait
		}
	}

	if retryAfter := header.Get(constants.RetryAfterHeader); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, 64); err == nil && seconds >= 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}

	return constants.DefaultRateLimitWait
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}

// responseCache keeps successful response bodies for the configured TTL so
// repeated identical requests within a run short circuit the API.
type responseCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[uint64]cacheEntry
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

type requestKey struct {
	Method string
	URL    string
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: map[uint64]cacheEntry{},
	}
}

func (r *responseCache) get(endpoint string) ([]byte, bool) {
	key, err := hashstructure.Hash(requestKey{Method: http.MethodGet, URL: endpoint}, nil)
	if err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, found := r.entries[key]
	if !found {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(r.entries, key)
		return nil, false
	}

	return entry.body, true
}

func (r *responseCache) put(endpoint string, body []byte) {
	key, err := hashstructure.Hash(requestKey{Method: http.MethodGet, URL: endpoint}, nil)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[key] = cacheEntry{body: body, expiresAt: time.Now().Add(r.ttl)}
}
