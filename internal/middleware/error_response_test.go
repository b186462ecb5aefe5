package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/recruitfeed/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// TestWriteAPIError_StatusFollowsCode はエラーコードからステータスが決まることを検証する。
func TestWriteAPIError_StatusFollowsCode(t *testing.T) {
	tests := []struct {
		name     string
		apiErr   *model.APIError
		status   int
		category string
	}{
		{"未認証", model.NewUnauthorizedError(), http.StatusUnauthorized, "auth"},
		{"CSRF", model.NewCSRFError(), http.StatusForbidden, "auth"},
		{"フィード条件", model.NewInvalidFeedRequestError("bad sub"), http.StatusBadRequest, "validation"},
		{"重複応募", model.NewDuplicateApplicationError(), http.StatusConflict, "post"},
		{"レート制限", model.NewRateLimitedError(), http.StatusTooManyRequests, "system"},
		{"内部エラー", model.NewInternalError(), http.StatusInternalServerError, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteAPIError(w, tt.apiErr)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			body := decodeErrorBody(t, w)
			if body.Code != tt.apiErr.Code {
				t.Errorf("code = %q, want %q", body.Code, tt.apiErr.Code)
			}
			if body.Category != tt.category {
				t.Errorf("category = %q, want %q", body.Category, tt.category)
			}
			if body.Message == "" || body.Action == "" {
				t.Errorf("message and action should be set: %+v", body)
			}
		})
	}
}

// TestWriteError_WrappedAPIError はラップされたAPIErrorがそのまま返ることを検証する。
func TestWriteError_WrappedAPIError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	w := httptest.NewRecorder()
	WriteError(w, logger, fmt.Errorf("apply: %w", model.NewPostNotOpenError()))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodePostNotOpen {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodePostNotOpen)
	}
	if buf.Len() != 0 {
		t.Errorf("API errors should not be logged, got %s", buf.String())
	}
}

// TestWriteError_HidesInternalDetails は内部エラーの詳細がログのみに残ることを検証する。
func TestWriteError_HidesInternalDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	w := httptest.NewRecorder()
	WriteError(w, logger, errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
	if strings.Contains(body.Message, "pq:") {
		t.Errorf("message should not leak internal error: %q", body.Message)
	}
	if !strings.Contains(buf.String(), "pq: connection refused") {
		t.Errorf("log should contain the internal error, got %s", buf.String())
	}
}

// TestErrorResponseBody_AllFieldsPresent は全フィールドがJSONレスポンスに含まれることを検証する。
func TestErrorResponseBody_AllFieldsPresent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	var raw map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	for _, field := range []string{"code", "message", "category", "action"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("response should contain %q field", field)
		}
	}
}
