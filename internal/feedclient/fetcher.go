package feedclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const sessionCookieName = "session_id"

// StatusError はAPIがエラーステータスを返した場合のエラー。
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("フィードAPIがステータス %d を返しました", e.StatusCode)
	}
	return fmt.Sprintf("フィードAPIがステータス %d を返しました: [%s] %s", e.StatusCode, e.Code, e.Message)
}

// HTTPFetcherConfig はHTTPFetcherの設定。
type HTTPFetcherConfig struct {
	// BaseURL はAPIサーバーのURL。例: http://localhost:8080
	BaseURL string
	// SessionID が空でなければsession_id Cookieとして送信する。
	SessionID string
	// Limit は1ページあたりの件数。0ならサーバー既定値。
	Limit int
	// StatusBucket はactive, completed, allのいずれか。空ならサーバー既定値。
	StatusBucket string
	// Sort はlatestまたはdeadline。空ならサーバー既定値。
	Sort string
	// Retry は再試行方針。
	Retry RetryPolicy
}

// HTTPFetcher はフィードAPIからページを取得するFetcher実装。
type HTTPFetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        HTTPFetcherConfig
	sleep      func(ctx context.Context, d time.Duration) error // テスト用に差し替え可能
}

// NewHTTPFetcher はHTTPFetcherを生成する。
func NewHTTPFetcher(httpClient *http.Client, logger *slog.Logger, cfg HTTPFetcherConfig) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: httpClient,
		logger:     logger,
		cfg:        cfg,
		sleep:      sleepContext,
	}
}

// FetchPage はタブの指定ページを取得する。
// ネットワークエラー、429、5xxは再試行し、コンテキストがキャンセルされた時点で中断する。
func (f *HTTPFetcher) FetchPage(ctx context.Context, key TabKey, page int) (*Page, error) {
	reqURL, err := f.pageURL(key, page)
	if err != nil {
		return nil, err
	}

	attempts := f.cfg.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := f.cfg.Retry.Backoff(attempt - 1)
			var se *retryAfterError
			if errors.As(lastErr, &se) {
				wait = se.after
				if maxWait := f.cfg.Retry.MaxBackoff; maxWait > 0 && wait > maxWait {
					wait = maxWait
				}
			}
			f.logger.Info("retrying feed fetch",
				slog.String("tab", string(key)),
				slog.Int("page", page),
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait),
			)
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		result, retry, err := f.fetchOnce(ctx, reqURL)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !retry {
			break
		}
	}

	var ra *retryAfterError
	if errors.As(lastErr, &ra) {
		return nil, ra.err
	}
	return nil, lastErr
}

// retryAfterError はRetry-Afterで待機時間が指定された失敗。
type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

// fetchOnce は1回分のリクエストを行う。retryは再試行可能な失敗かどうか。
func (f *HTTPFetcher) fetchOnce(ctx context.Context, reqURL string) (*Page, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "recruitfeed-client/1.0")
	if f.cfg.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: f.cfg.SessionID})
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Error("フィードAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		f.logger.Error("フィードAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil {
			statusErr.Code = apiErr.Code
			statusErr.Message = apiErr.Message
		}
		if !retryableStatus(resp.StatusCode) {
			return nil, false, statusErr
		}
		if after, ok := retryAfter(resp.Header); ok {
			return nil, true, &retryAfterError{err: statusErr, after: after}
		}
		return nil, true, statusErr
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		f.logger.Error("フィードAPIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, false, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return &page, false, nil
}

// pageURL はタブとページ番号からリクエストURLを組み立てる。
func (f *HTTPFetcher) pageURL(key TabKey, page int) (string, error) {
	feedType, sub, err := key.Parse()
	if err != nil {
		return "", err
	}

	u, err := url.Parse(strings.TrimRight(f.cfg.BaseURL, "/") + "/api/feed")
	if err != nil {
		return "", fmt.Errorf("ベースURLのパースに失敗しました: %w", err)
	}

	q := u.Query()
	q.Set("type", string(feedType))
	if sub != "" {
		q.Set("sub", string(sub))
	}
	if f.cfg.StatusBucket != "" {
		q.Set("status", f.cfg.StatusBucket)
	}
	if f.cfg.Sort != "" {
		q.Set("sort", f.cfg.Sort)
	}
	q.Set("page", strconv.Itoa(page))
	if f.cfg.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.cfg.Limit))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// compile-time interface check
var _ Fetcher = (*HTTPFetcher)(nil)
