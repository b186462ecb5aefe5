package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recruitfeed/internal/middleware"
	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// CreatePost は投稿を作成する。
	CreatePost(ctx context.Context, userID string, in post.CreatePostInput) (*model.Post, error)
	// ChangeStatus は募集状態をcompletedまたはcancelledに変更する。
	ChangeStatus(ctx context.Context, userID, postID string, status model.PostStatus) (*model.Post, error)
	// DeletePost は投稿を論理削除する。
	DeletePost(ctx context.Context, userID, postID string) error
	// Apply は投稿に応募する。
	Apply(ctx context.Context, userID, postID, message string) (*model.Application, error)
	// Withdraw は応募を取り下げる。
	Withdraw(ctx context.Context, userID, applicationID string) error
	// AddFavorite は投稿をお気に入りに登録する。
	AddFavorite(ctx context.Context, userID, postID string) (*model.Favorite, error)
	// RemoveFavorite はお気に入りを解除する。
	RemoveFavorite(ctx context.Context, userID, postID string) error
}

// PostHandler は投稿・応募・お気に入りの書き込みHTTPハンドラー。
type PostHandler struct {
	service   PostServiceInterface
	validator *requestValidator
	now       func() time.Time
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{
		service:   service,
		validator: newRequestValidator(),
		now:       time.Now,
	}
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Title    string     `json:"title" validate:"required,max=100"`
	Body     string     `json:"body" validate:"max=10000"`
	Deadline *time.Time `json:"deadline" validate:"required"`
}

// changeStatusRequest は募集状態変更リクエストのボディ。
type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// applyRequest は応募リクエストのボディ。
type applyRequest struct {
	Message string `json:"message" validate:"max=1000"`
}

type applicationResponse struct {
	ID                 string    `json:"id"`
	PostID             string    `json:"postId"`
	ApplicantProfileID string    `json:"applicantProfileId"`
	Message            string    `json:"message"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
}

type favoriteResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreatePost は投稿を作成する。
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	p, err := h.service.CreatePost(r.Context(), userID, post.CreatePostInput{
		Title:    req.Title,
		Body:     req.Body,
		Deadline: *req.Deadline,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(p, h.now()))
}

// ChangeStatus は募集状態を変更する。
// PATCH /api/posts/{id}/status
func (h *PostHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, ok := h.postIDParam(w, r)
	if !ok {
		return
	}

	var req changeStatusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	p, err := h.service.ChangeStatus(r.Context(), userID, postID, model.PostStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(p, h.now()))
}

// DeletePost は投稿を削除する。
// DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, ok := h.postIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), userID, postID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Apply は投稿に応募する。
// POST /api/posts/{id}/applications
func (h *PostHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, ok := h.postIDParam(w, r)
	if !ok {
		return
	}

	var req applyRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	app, err := h.service.Apply(r.Context(), userID, postID, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, applicationResponse{
		ID:                 app.ID,
		PostID:             app.PostID,
		ApplicantProfileID: app.ApplicantProfileID,
		Message:            app.Message,
		Status:             string(app.Status),
		CreatedAt:          app.CreatedAt,
	})
}

// Withdraw は応募を取り下げる。
// DELETE /api/applications/{id}
func (h *PostHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	applicationID := chi.URLParam(r, "id")
	if h.validator.validate.Var(applicationID, "required,uuid") != nil {
		writeAPIError(w, model.NewApplicationNotFoundError(applicationID))
		return
	}

	if err := h.service.Withdraw(r.Context(), userID, applicationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddFavorite は投稿をお気に入りに登録する。
// PUT /api/posts/{id}/favorite
func (h *PostHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, ok := h.postIDParam(w, r)
	if !ok {
		return
	}

	fav, err := h.service.AddFavorite(r.Context(), userID, postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, favoriteResponse{
		ID:        fav.ID,
		PostID:    fav.PostID,
		CreatedAt: fav.CreatedAt,
	})
}

// RemoveFavorite はお気に入りを解除する。登録されていない場合も成功とする。
// DELETE /api/posts/{id}/favorite
func (h *PostHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, ok := h.postIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveFavorite(r.Context(), userID, postID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// requireUserID はコンテキストから認証済みユーザーIDを取り出す。
// 未認証の場合は401を書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// postIDParam はURLの投稿IDを取り出す。UUID形式でない場合は404を書き込む。
func (h *PostHandler) postIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	postID := chi.URLParam(r, "id")
	if h.validator.validate.Var(postID, "required,uuid") != nil {
		writeAPIError(w, model.NewPostNotFoundError(postID))
		return "", false
	}
	return postID, true
}

// decodeBody はJSONボディを読み込み検証する。失敗時は400を書き込みfalseを返す。
func (h *PostHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		writeAPIError(w, model.NewInvalidRequestError(err.Error()))
		return false
	}
	return true
}
