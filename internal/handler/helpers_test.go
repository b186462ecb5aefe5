package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recruitfeed/internal/middleware"
	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/post"
)

const (
	testPostID        = "11111111-1111-4111-8111-111111111111"
	testApplicationID = "22222222-2222-4222-8222-222222222222"
	testProfileID     = "33333333-3333-4333-8333-333333333333"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// --- モック定義 ---

// mockFeedService はFeedServiceInterfaceのモック実装。
type mockFeedService struct {
	listFn func(ctx context.Context, userID string, req model.FeedRequest) (*model.FeedPage, error)

	lastUserID  string
	lastRequest model.FeedRequest
	calls       int
}

func (m *mockFeedService) List(ctx context.Context, userID string, req model.FeedRequest) (*model.FeedPage, error) {
	m.calls++
	m.lastUserID = userID
	m.lastRequest = req
	if m.listFn != nil {
		return m.listFn(ctx, userID, req)
	}
	return &model.FeedPage{FeedType: req.FeedType, Items: []model.FeedRow{}, Now: testNow}, nil
}

// mockPostService はPostServiceInterfaceのモック実装。
type mockPostService struct {
	createPostFn     func(ctx context.Context, userID string, in post.CreatePostInput) (*model.Post, error)
	changeStatusFn   func(ctx context.Context, userID, postID string, status model.PostStatus) (*model.Post, error)
	deletePostFn     func(ctx context.Context, userID, postID string) error
	applyFn          func(ctx context.Context, userID, postID, message string) (*model.Application, error)
	withdrawFn       func(ctx context.Context, userID, applicationID string) error
	addFavoriteFn    func(ctx context.Context, userID, postID string) (*model.Favorite, error)
	removeFavoriteFn func(ctx context.Context, userID, postID string) error
}

func (m *mockPostService) CreatePost(ctx context.Context, userID string, in post.CreatePostInput) (*model.Post, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, userID, in)
	}
	return &model.Post{ID: testPostID, Title: in.Title, Deadline: in.Deadline, Status: model.PostStatusActive}, nil
}

func (m *mockPostService) ChangeStatus(ctx context.Context, userID, postID string, status model.PostStatus) (*model.Post, error) {
	if m.changeStatusFn != nil {
		return m.changeStatusFn(ctx, userID, postID, status)
	}
	return &model.Post{ID: postID, Status: status}, nil
}

func (m *mockPostService) DeletePost(ctx context.Context, userID, postID string) error {
	if m.deletePostFn != nil {
		return m.deletePostFn(ctx, userID, postID)
	}
	return nil
}

func (m *mockPostService) Apply(ctx context.Context, userID, postID, message string) (*model.Application, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, userID, postID, message)
	}
	return &model.Application{ID: testApplicationID, PostID: postID, Message: message, Status: model.ApplicationStatusPending}, nil
}

func (m *mockPostService) Withdraw(ctx context.Context, userID, applicationID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID, applicationID)
	}
	return nil
}

func (m *mockPostService) AddFavorite(ctx context.Context, userID, postID string) (*model.Favorite, error) {
	if m.addFavoriteFn != nil {
		return m.addFavoriteFn(ctx, userID, postID)
	}
	return &model.Favorite{ID: "fav-1", PostID: postID}, nil
}

func (m *mockPostService) RemoveFavorite(ctx context.Context, userID, postID string) error {
	if m.removeFavoriteFn != nil {
		return m.removeFavoriteFn(ctx, userID, postID)
	}
	return nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
