package feedclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/recruitfeed/internal/model"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc, cfg HTTPFetcherConfig) (*HTTPFetcher, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	f := NewHTTPFetcher(srv.Client(), testLogger(), cfg)
	var waits []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return f, &waits
}

func TestHTTPFetcher_FetchPage_BuildsQuery(t *testing.T) {
	var gotPath, gotCookie string
	var gotQuery map[string][]string
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		if c, err := r.Cookie("session_id"); err == nil {
			gotCookie = c.Value
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"p1"}],"pagination":{"page":2,"limit":5,"total":6,"totalPages":2,"hasMore":false}}`))
	}, HTTPFetcherConfig{SessionID: "sess-1", Limit: 5, StatusBucket: "completed", Sort: "deadline"})

	page, err := f.FetchPage(context.Background(), NewTabKey(model.FeedTypeAuthored, model.SubFilterExpired), 2)
	require.NoError(t, err)

	assert.Equal(t, "/api/feed", gotPath)
	assert.Equal(t, "sess-1", gotCookie)
	assert.Equal(t, []string{"authored"}, gotQuery["type"])
	assert.Equal(t, []string{"expired"}, gotQuery["sub"])
	assert.Equal(t, []string{"completed"}, gotQuery["status"])
	assert.Equal(t, []string{"deadline"}, gotQuery["sort"])
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"5"}, gotQuery["limit"])

	require.Len(t, page.Items, 1)
	assert.Equal(t, "p1", page.Items[0].Post.ID)
	assert.Equal(t, 6, page.Pagination.Total)
}

func TestHTTPFetcher_FetchPage_OmitsUnsetParams(t *testing.T) {
	var gotQuery map[string][]string
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"items":[],"pagination":{}}`))
	}, HTTPFetcherConfig{})

	_, err := f.FetchPage(context.Background(), globalTab, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"global"}, gotQuery["type"])
	assert.NotContains(t, gotQuery, "sub")
	assert.NotContains(t, gotQuery, "status")
	assert.NotContains(t, gotQuery, "sort")
	assert.NotContains(t, gotQuery, "limit")
}

func TestHTTPFetcher_FetchPage_RetriesServerErrors(t *testing.T) {
	var calls int32
	f, waits := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"items":[{"id":"p1"}],"pagination":{"hasMore":true}}`))
	}, HTTPFetcherConfig{Retry: RetryPolicy{MaxAttempts: 3, InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}})

	page, err := f.FetchPage(context.Background(), globalTab, 1)
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *waits)
	assert.True(t, page.Pagination.HasMore)
}

func TestHTTPFetcher_FetchPage_HonorsRetryAfter(t *testing.T) {
	var calls int32
	f, waits := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"code":"RATE_LIMITED","message":"slow down"}`))
			return
		}
		w.Write([]byte(`{"items":[],"pagination":{}}`))
	}, HTTPFetcherConfig{Retry: RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond}})

	_, err := f.FetchPage(context.Background(), globalTab, 1)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second}, *waits)
}

func TestHTTPFetcher_FetchPage_RetryAfterIsCappedByMaxBackoff(t *testing.T) {
	var calls int32
	f, waits := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "3600")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"items":[],"pagination":{}}`))
	}, HTTPFetcherConfig{Retry: RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Second}})

	_, err := f.FetchPage(context.Background(), globalTab, 1)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second}, *waits)
}

func TestHTTPFetcher_FetchPage_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	f, waits := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","message":"認証が必要です。","category":"auth","action":"ログインしてください。"}`))
	}, HTTPFetcherConfig{Retry: DefaultRetryPolicy()})

	_, err := f.FetchPage(context.Background(), NewTabKey(model.FeedTypeApplied, model.SubFilterNone), 1)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, model.ErrCodeUnauthorized, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *waits)
}

func TestHTTPFetcher_FetchPage_ReturnsLastErrorAfterRetries(t *testing.T) {
	var calls int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":"RATE_LIMITED"}`))
	}, HTTPFetcherConfig{Retry: RetryPolicy{MaxAttempts: 2}})

	_, err := f.FetchPage(context.Background(), globalTab, 1)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, model.ErrCodeRateLimited, se.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_FetchPage_StopsOnCancel(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}, HTTPFetcherConfig{Retry: RetryPolicy{MaxAttempts: 5}})

	_, err := f.FetchPage(ctx, globalTab, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_FetchPage_InvalidTab(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}, HTTPFetcherConfig{})

	_, err := f.FetchPage(context.Background(), TabKey("bogus"), 1)
	assert.Error(t, err)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, retryableStatus(http.StatusTooManyRequests))
	assert.True(t, retryableStatus(http.StatusInternalServerError))
	assert.True(t, retryableStatus(http.StatusBadGateway))
	assert.False(t, retryableStatus(http.StatusBadRequest))
	assert.False(t, retryableStatus(http.StatusNotFound))
	assert.False(t, retryableStatus(http.StatusUnauthorized))
}
