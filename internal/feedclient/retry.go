package feedclient

import (
	"net/http"
	"strconv"
	"time"
)

// RetryPolicy は取得失敗時の再試行方針。
type RetryPolicy struct {
	// MaxAttempts は初回を含む最大試行回数。1以下なら再試行しない。
	MaxAttempts int
	// InitialBackoff は初回の再試行待ち時間。
	InitialBackoff time.Duration
	// MaxBackoff は再試行待ち時間の上限。
	MaxBackoff time.Duration
}

// DefaultRetryPolicy は既定の再試行方針を返す。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// Backoff はattempt回目（0始まり）の失敗後の待ち時間を返す。
// InitialBackoffから2倍ずつ増加し、MaxBackoffで頭打ちになる。
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := p.InitialBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxBackoff > 0 && delay > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

// retryableStatus は再試行すべきHTTPステータスかどうかを返す。
// 429と5xxのみ再試行し、4xxは即座に失敗とする。
func retryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// retryAfter はRetry-Afterヘッダーの秒数を返す。
// 日付形式や不正値は無視する。
func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
