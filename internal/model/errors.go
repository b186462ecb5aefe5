// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/http"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeInvalidFeedRequest   = "INVALID_FEED_REQUEST"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodePostNotFound         = "POST_NOT_FOUND"
	ErrCodeApplicationNotFound  = "APPLICATION_NOT_FOUND"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeDuplicateApplication = "DUPLICATE_APPLICATION"
	ErrCodeDuplicateFavorite    = "DUPLICATE_FAVORITE"
	ErrCodePostNotOpen          = "POST_NOT_OPEN"
	ErrCodeOwnPost              = "OWN_POST"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeCSRFInvalid          = "CSRF_TOKEN_INVALID"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// HTTPStatus はエラーコードに対応するHTTPステータスコードを返す。
// 未知のコードは500として扱う。
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeCSRFInvalid:
		return http.StatusForbidden
	case ErrCodeProfileNotFound, ErrCodePostNotFound, ErrCodeApplicationNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidFeedRequest, ErrCodeInvalidRequest, ErrCodeInvalidStatus:
		return http.StatusBadRequest
	case ErrCodeDuplicateApplication, ErrCodeDuplicateFavorite:
		return http.StatusConflict
	case ErrCodePostNotOpen, ErrCodeOwnPost:
		return http.StatusUnprocessableEntity
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "auth",
		Action:   "プロフィールを作成してから再度お試しください。",
	}
}

// NewInvalidFeedRequestError はフィード取得パラメータの検証エラーを生成する。
func NewInvalidFeedRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFeedRequest,
		Message:  fmt.Sprintf("無効なフィード取得条件です: %s", reason),
		Category: "validation",
		Action:   "type、status、sort、sub、page、limitの組み合わせを確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディの検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "post",
		Action:   "投稿IDを確認してください。",
	}
}

// NewApplicationNotFoundError は応募未検出エラーを生成する。
func NewApplicationNotFoundError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("指定された応募が見つかりません: %s", applicationID),
		Category: "post",
		Action:   "応募IDを確認してください。",
	}
}

// NewForbiddenError は権限エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "投稿者本人のアカウントで操作してください。",
	}
}

// NewDuplicateApplicationError は同一投稿への重複応募エラーを生成する。
func NewDuplicateApplicationError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateApplication,
		Message:  "この投稿には既に応募しています。",
		Category: "post",
		Action:   "応募一覧から該当の応募を確認してください。",
	}
}

// NewDuplicateFavoriteError は重複お気に入り登録エラーを生成する。
func NewDuplicateFavoriteError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateFavorite,
		Message:  "この投稿は既にお気に入りに登録されています。",
		Category: "post",
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewPostNotOpenError は募集中でない投稿への応募エラーを生成する。
func NewPostNotOpenError() *APIError {
	return &APIError{
		Code:     ErrCodePostNotOpen,
		Message:  "この投稿は募集を終了しています。",
		Category: "post",
		Action:   "募集中の投稿に応募してください。",
	}
}

// NewOwnPostError は自分の投稿への応募エラーを生成する。
func NewOwnPostError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnPost,
		Message:  "自分の投稿には応募できません。",
		Category: "post",
		Action:   "他のユーザーの投稿に応募してください。",
	}
}

// NewInvalidStatusError は無効な状態遷移エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な募集状態です: %s", status),
		Category: "validation",
		Action:   "completed または cancelled を指定してください。",
	}
}

// NewCSRFError はCSRFトークン検証エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに残す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
