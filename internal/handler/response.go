package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/recruitfeed/internal/middleware"
	"github.com/hitoshi/recruitfeed/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIError は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	middleware.WriteAPIError(w, apiErr)
}

// handleServiceError はサービス層から返されたエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, nil, err)
}
