package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recruitfeed/internal/middleware"
	"github.com/hitoshi/recruitfeed/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// List はフィードを1ページ取得する。未認証の場合userIDは空文字。
	List(ctx context.Context, userID string, req model.FeedRequest) (*model.FeedPage, error)
}

// FeedHandler はフィード読み取りのHTTPハンドラー。
type FeedHandler struct {
	service   FeedServiceInterface
	validator *requestValidator
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{
		service:   service,
		validator: newRequestValidator(),
	}
}

// feedQuery はフィード取得のクエリパラメータ。
// 組み合わせの検証（deadlineソートの可否など）はサービス層が行う。
type feedQuery struct {
	Type      string `query:"type" validate:"omitempty,oneof=global authored applied favorited"`
	Status    string `query:"status" validate:"omitempty,oneof=active completed all"`
	Sort      string `query:"sort" validate:"omitempty,oneof=latest deadline"`
	Sub       string `query:"sub" validate:"omitempty,oneof=in_progress expired closed"`
	ProfileID string `query:"profile_id" validate:"omitempty,uuid"`
	Page      *int   `query:"page" validate:"omitempty,min=1"`
	Limit     *int   `query:"limit" validate:"omitempty,min=1"`
}

// toRequest はクエリをサービス層のリクエストに変換する。未指定の項目はゼロ値のまま渡す。
func (q feedQuery) toRequest() model.FeedRequest {
	req := model.FeedRequest{
		FeedType:        model.FeedType(q.Type),
		StatusBucket:    model.StatusBucket(q.Status),
		Sort:            model.SortOrder(q.Sort),
		SubFilter:       model.SubFilter(q.Sub),
		TargetProfileID: q.ProfileID,
	}
	if q.Page != nil {
		req.Page = *q.Page
	}
	if q.Limit != nil {
		req.Limit = *q.Limit
	}
	return req
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID             string    `json:"id"`
	OwnerProfileID string    `json:"ownerProfileId"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Deadline       time.Time `json:"deadline"`
	Status         string    `json:"status"`
	Bucket         string    `json:"bucket"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ApplicantCount *int      `json:"applicantCount,omitempty"`
}

// appliedItemResponse はappliedフィードの1行。
type appliedItemResponse struct {
	ApplicationID      string       `json:"applicationId"`
	ApplicationMessage string       `json:"applicationMessage"`
	ApplicationStatus  string       `json:"applicationStatus"`
	AppliedAt          time.Time    `json:"appliedAt"`
	Post               postResponse `json:"post"`
}

// favoritedItemResponse はfavoritedフィードの1行。
type favoritedItemResponse struct {
	FavoriteID  string       `json:"favoriteId"`
	FavoritedAt time.Time    `json:"favoritedAt"`
	Post        postResponse `json:"post"`
}

type paginationResponse struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// feedPageResponse はフィード取得のAPIレスポンス。
type feedPageResponse struct {
	Items      []interface{}      `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

// ListFeed はフィードを取得する。
// GET /api/feed?type=&status=&sort=&page=&limit=&sub=&profile_id=
func (h *FeedHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, nil)
}

// ListProfilePosts は指定プロフィールの投稿一覧（authored）を取得する。
// UUID形式でないプロフィールIDは存在しないものとして404を返す。
// GET /api/profiles/{id}/posts
func (h *FeedHandler) ListProfilePosts(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")
	if h.validator.validate.Var(profileID, "required,uuid") != nil {
		writeAPIError(w, model.NewProfileNotFoundError())
		return
	}
	h.list(w, r, func(q *feedQuery) {
		q.Type = string(model.FeedTypeAuthored)
		q.ProfileID = profileID
	})
}

// ListMine は閲覧者本人の固定種別フィードを返すハンドラーを生成する。
// GET /api/me/posts, /api/me/applied, /api/me/favorited
func (h *FeedHandler) ListMine(feedType model.FeedType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, func(q *feedQuery) {
			q.Type = string(feedType)
			q.ProfileID = ""
		})
	}
}

func (h *FeedHandler) list(w http.ResponseWriter, r *http.Request, override func(*feedQuery)) {
	q, err := parseFeedQuery(r)
	if err != nil {
		writeAPIError(w, model.NewInvalidFeedRequestError(err.Error()))
		return
	}
	if override != nil {
		override(&q)
	}
	if err := h.validator.Struct(q); err != nil {
		writeAPIError(w, model.NewInvalidFeedRequestError(err.Error()))
		return
	}

	// 匿名アクセスは空のuserIDとして扱い、認証要否はサービス層が判定する
	userID, _ := middleware.UserIDFromContext(r.Context())

	page, err := h.service.List(r.Context(), userID, q.toRequest())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeedPageResponse(page))
}

// parseFeedQuery はURLクエリをfeedQueryに読み込む。
func parseFeedQuery(r *http.Request) (feedQuery, error) {
	values := r.URL.Query()
	q := feedQuery{
		Type:      values.Get("type"),
		Status:    values.Get("status"),
		Sort:      values.Get("sort"),
		Sub:       values.Get("sub"),
		ProfileID: values.Get("profile_id"),
	}

	var err error
	if q.Page, err = parseOptionalInt(values.Get("page"), "page"); err != nil {
		return q, err
	}
	if q.Limit, err = parseOptionalInt(values.Get("limit"), "limit"); err != nil {
		return q, err
	}
	return q, nil
}

func parseOptionalInt(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%sは整数で指定してください", name)
	}
	return &n, nil
}

// --- レスポンス変換 ---

func toFeedPageResponse(page *model.FeedPage) feedPageResponse {
	items := make([]interface{}, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toFeedItemResponse(page.FeedType, &page.Items[i], page.Now))
	}

	return feedPageResponse{
		Items: items,
		Pagination: paginationResponse{
			Page:       page.Pagination.Page,
			Limit:      page.Pagination.Limit,
			Total:      page.Pagination.Total,
			TotalPages: page.Pagination.TotalPages,
			HasMore:    page.Pagination.HasMore,
		},
	}
}

func toFeedItemResponse(feedType model.FeedType, row *model.FeedRow, now time.Time) interface{} {
	post := toPostResponse(&row.Post, now)

	switch feedType {
	case model.FeedTypeAuthored:
		count := row.ApplicantCount
		post.ApplicantCount = &count
		return post
	case model.FeedTypeApplied:
		if row.Application == nil {
			return post
		}
		return appliedItemResponse{
			ApplicationID:      row.Application.ID,
			ApplicationMessage: row.Application.Message,
			ApplicationStatus:  string(row.Application.Status),
			AppliedAt:          row.Application.CreatedAt,
			Post:               post,
		}
	case model.FeedTypeFavorited:
		if row.Favorite == nil {
			return post
		}
		return favoritedItemResponse{
			FavoriteID:  row.Favorite.ID,
			FavoritedAt: row.Favorite.CreatedAt,
			Post:        post,
		}
	default:
		return post
	}
}

// toPostResponse はmodel.PostからAPIレスポンスに変換する。bucketはnow時点の区分。
func toPostResponse(p *model.Post, now time.Time) postResponse {
	return postResponse{
		ID:             p.ID,
		OwnerProfileID: p.OwnerProfileID,
		Title:          p.Title,
		Body:           p.Body,
		Deadline:       p.Deadline,
		Status:         string(p.Status),
		Bucket:         string(p.BucketOf(now)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
