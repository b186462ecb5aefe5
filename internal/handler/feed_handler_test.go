package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/recruitfeed/internal/model"
)

func samplePost(id string, status model.PostStatus, deadline time.Time) model.Post {
	return model.Post{
		ID:             id,
		OwnerProfileID: testProfileID,
		Title:          "title-" + id,
		Body:           "body",
		Deadline:       deadline,
		Status:         status,
		CreatedAt:      testNow.Add(-time.Hour),
		UpdatedAt:      testNow.Add(-time.Hour),
	}
}

func TestFeedHandler_ListFeed_PassesQueryToService(t *testing.T) {
	svc := &mockFeedService{}
	h := NewFeedHandler(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/api/feed?type=authored&status=completed&sort=deadline&page=2&limit=10&sub=expired&profile_id="+testProfileID, nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.ListFeed(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	want := model.FeedRequest{
		FeedType:        model.FeedTypeAuthored,
		StatusBucket:    model.StatusBucketCompleted,
		Sort:            model.SortDeadline,
		Page:            2,
		Limit:           10,
		SubFilter:       model.SubFilterExpired,
		TargetProfileID: testProfileID,
	}
	if svc.lastRequest != want {
		t.Errorf("request = %+v, want %+v", svc.lastRequest, want)
	}
	if svc.lastUserID != "user-123" {
		t.Errorf("userID = %q, want %q", svc.lastUserID, "user-123")
	}
}

func TestFeedHandler_ListFeed_AnonymousUsesEmptyUserIDAndDefaults(t *testing.T) {
	svc := &mockFeedService{}
	h := NewFeedHandler(svc)

	w := httptest.NewRecorder()
	h.ListFeed(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if svc.lastUserID != "" {
		t.Errorf("userID = %q, want empty", svc.lastUserID)
	}
	// 既定値の補完はサービス層で行うため、未指定はゼロ値のまま渡る
	if svc.lastRequest != (model.FeedRequest{}) {
		t.Errorf("request = %+v, want zero value", svc.lastRequest)
	}
}

func TestFeedHandler_ListFeed_InvalidQuery_Returns400WithoutServiceCall(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"未知の種別", "type=bookmarked"},
		{"未知の区分", "status=expired"},
		{"未知の並び順", "sort=popular"},
		{"未知のサブフィルタ", "type=authored&sub=archived"},
		{"pageが整数でない", "page=abc"},
		{"pageが0", "page=0"},
		{"limitが負数", "limit=-5"},
		{"profile_idがUUIDでない", "type=authored&profile_id=not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFeedService{}
			h := NewFeedHandler(svc)

			w := httptest.NewRecorder()
			h.ListFeed(w, httptest.NewRequest(http.MethodGet, "/api/feed?"+tt.query, nil))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if errResp := parseAPIErrorResponse(t, w); errResp["code"] != model.ErrCodeInvalidFeedRequest {
				t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidFeedRequest)
			}
			if svc.calls != 0 {
				t.Errorf("service called %d times, want 0", svc.calls)
			}
		})
	}
}

func TestFeedHandler_ListFeed_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"未認証", model.NewUnauthorizedError(), http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"プロフィールなし", model.NewProfileNotFoundError(), http.StatusNotFound, model.ErrCodeProfileNotFound},
		{"検証エラー", model.NewInvalidFeedRequestError("limit"), http.StatusBadRequest, model.ErrCodeInvalidFeedRequest},
		{"読み取り失敗", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFeedService{
				listFn: func(_ context.Context, _ string, _ model.FeedRequest) (*model.FeedPage, error) {
					return nil, tt.err
				},
			}
			h := NewFeedHandler(svc)

			w := httptest.NewRecorder()
			h.ListFeed(w, httptest.NewRequest(http.MethodGet, "/api/feed?type=applied", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if errResp := parseAPIErrorResponse(t, w); errResp["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", errResp["code"], tt.wantCode)
			}
		})
	}
}

func TestFeedHandler_ListFeed_GlobalResponseShape(t *testing.T) {
	svc := &mockFeedService{
		listFn: func(_ context.Context, _ string, req model.FeedRequest) (*model.FeedPage, error) {
			return &model.FeedPage{
				FeedType: model.FeedTypeGlobal,
				Items: []model.FeedRow{
					{Post: samplePost("p-open", model.PostStatusActive, testNow.Add(time.Hour))},
					{Post: samplePost("p-late", model.PostStatusActive, testNow.Add(-time.Hour))},
				},
				Pagination: model.Pagination{Page: 1, Limit: 10, Total: 25, TotalPages: 3, HasMore: true},
				Now:        testNow,
			}, nil
		},
	}
	h := NewFeedHandler(svc)

	w := httptest.NewRecorder()
	h.ListFeed(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body struct {
		Items      []map[string]interface{} `json:"items"`
		Pagination struct {
			Page       int  `json:"page"`
			Limit      int  `json:"limit"`
			Total      int  `json:"total"`
			TotalPages int  `json:"totalPages"`
			HasMore    bool `json:"hasMore"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(body.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(body.Items))
	}
	if body.Items[0]["id"] != "p-open" || body.Items[0]["bucket"] != "active" {
		t.Errorf("items[0] = %v, want id=p-open bucket=active", body.Items[0])
	}
	// 締切を過ぎたactiveはcompleted区分として返る
	if body.Items[1]["bucket"] != "completed" || body.Items[1]["status"] != "active" {
		t.Errorf("items[1] = %v, want status=active bucket=completed", body.Items[1])
	}
	if _, ok := body.Items[0]["applicantCount"]; ok {
		t.Error("global rows should not include applicantCount")
	}
	if body.Pagination.Total != 25 || body.Pagination.TotalPages != 3 || !body.Pagination.HasMore {
		t.Errorf("pagination = %+v, want total=25 totalPages=3 hasMore=true", body.Pagination)
	}
}

func TestFeedHandler_ListFeed_EmptyItemsIsArray(t *testing.T) {
	h := NewFeedHandler(&mockFeedService{})

	w := httptest.NewRecorder()
	h.ListFeed(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	var body map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(body["items"]) != "[]" {
		t.Errorf("items = %s, want []", body["items"])
	}
}

func TestFeedHandler_RowShapesPerFeedType(t *testing.T) {
	p := samplePost("p-1", model.PostStatusCompleted, testNow.Add(24*time.Hour))
	appliedAt := testNow.Add(-10 * time.Minute)
	favoritedAt := testNow.Add(-5 * time.Minute)

	tests := []struct {
		name     string
		feedType model.FeedType
		row      model.FeedRow
		check    func(t *testing.T, item map[string]interface{})
	}{
		{
			name:     "authored",
			feedType: model.FeedTypeAuthored,
			row:      model.FeedRow{Post: p, ApplicantCount: 0},
			check: func(t *testing.T, item map[string]interface{}) {
				// 0件でもapplicantCountは省略しない
				if item["applicantCount"] != float64(0) {
					t.Errorf("applicantCount = %v, want 0", item["applicantCount"])
				}
			},
		},
		{
			name:     "applied",
			feedType: model.FeedTypeApplied,
			row: model.FeedRow{Post: p, Application: &model.Application{
				ID: "app-1", Message: "hello", Status: model.ApplicationStatusPending, CreatedAt: appliedAt,
			}},
			check: func(t *testing.T, item map[string]interface{}) {
				if item["applicationId"] != "app-1" || item["applicationMessage"] != "hello" || item["applicationStatus"] != "pending" {
					t.Errorf("item = %v, want application fields", item)
				}
				if item["appliedAt"] != appliedAt.Format(time.RFC3339) {
					t.Errorf("appliedAt = %v, want %s", item["appliedAt"], appliedAt.Format(time.RFC3339))
				}
				nested, ok := item["post"].(map[string]interface{})
				if !ok || nested["id"] != "p-1" || nested["bucket"] != "completed" {
					t.Errorf("post = %v, want nested post p-1 with bucket=completed", item["post"])
				}
			},
		},
		{
			name:     "favorited",
			feedType: model.FeedTypeFavorited,
			row:      model.FeedRow{Post: p, Favorite: &model.Favorite{ID: "fav-1", CreatedAt: favoritedAt}},
			check: func(t *testing.T, item map[string]interface{}) {
				if item["favoriteId"] != "fav-1" {
					t.Errorf("favoriteId = %v, want fav-1", item["favoriteId"])
				}
				if item["favoritedAt"] != favoritedAt.Format(time.RFC3339) {
					t.Errorf("favoritedAt = %v, want %s", item["favoritedAt"], favoritedAt.Format(time.RFC3339))
				}
				if nested, ok := item["post"].(map[string]interface{}); !ok || nested["id"] != "p-1" {
					t.Errorf("post = %v, want nested post p-1", item["post"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFeedService{
				listFn: func(_ context.Context, _ string, _ model.FeedRequest) (*model.FeedPage, error) {
					return &model.FeedPage{FeedType: tt.feedType, Items: []model.FeedRow{tt.row}, Now: testNow}, nil
				},
			}
			h := NewFeedHandler(svc)

			w := httptest.NewRecorder()
			h.ListFeed(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/feed?type="+string(tt.feedType), nil), "user-1"))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var body struct {
				Items []map[string]interface{} `json:"items"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(body.Items) != 1 {
				t.Fatalf("items = %d, want 1", len(body.Items))
			}
			tt.check(t, body.Items[0])
		})
	}
}

func TestFeedHandler_ListProfilePosts_ForcesAuthoredTarget(t *testing.T) {
	svc := &mockFeedService{}
	h := NewFeedHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/"+testProfileID+"/posts?type=global&status=active", nil)
	req = withChiURLParam(withUserID(req, "user-1"), "id", testProfileID)
	w := httptest.NewRecorder()

	h.ListProfilePosts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if svc.lastRequest.FeedType != model.FeedTypeAuthored {
		t.Errorf("FeedType = %q, want %q", svc.lastRequest.FeedType, model.FeedTypeAuthored)
	}
	if svc.lastRequest.TargetProfileID != testProfileID {
		t.Errorf("TargetProfileID = %q, want %q", svc.lastRequest.TargetProfileID, testProfileID)
	}
	if svc.lastRequest.StatusBucket != model.StatusBucketActive {
		t.Errorf("StatusBucket = %q, want %q", svc.lastRequest.StatusBucket, model.StatusBucketActive)
	}
}

func TestFeedHandler_ListProfilePosts_InvalidProfileID_Returns404(t *testing.T) {
	svc := &mockFeedService{}
	h := NewFeedHandler(svc)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/profiles/bad/posts", nil), "id", "bad")
	w := httptest.NewRecorder()

	h.ListProfilePosts(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if code := parseAPIErrorResponse(t, w)["code"]; code != model.ErrCodeProfileNotFound {
		t.Errorf("code = %q, want %q", code, model.ErrCodeProfileNotFound)
	}
	if svc.calls != 0 {
		t.Errorf("service called %d times, want 0", svc.calls)
	}
}

func TestFeedHandler_ListMine_IgnoresTypeAndProfileID(t *testing.T) {
	for _, feedType := range []model.FeedType{model.FeedTypeAuthored, model.FeedTypeApplied, model.FeedTypeFavorited} {
		t.Run(string(feedType), func(t *testing.T) {
			svc := &mockFeedService{}
			h := NewFeedHandler(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/me/x?type=global&profile_id="+testProfileID, nil)
			w := httptest.NewRecorder()
			h.ListMine(feedType)(w, withUserID(req, "user-1"))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if svc.lastRequest.FeedType != feedType {
				t.Errorf("FeedType = %q, want %q", svc.lastRequest.FeedType, feedType)
			}
			if svc.lastRequest.TargetProfileID != "" {
				t.Errorf("TargetProfileID = %q, want empty", svc.lastRequest.TargetProfileID)
			}
		})
	}
}
