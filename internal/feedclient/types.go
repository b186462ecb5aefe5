// Package feedclient はフィードAPIのクライアント側キャッシュを提供する。
// タブ（フィード種別とサブフィルタの組）ごとに取得済みページを保持し、
// 重複取得の抑止と古い応答の破棄を行う。
package feedclient

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/recruitfeed/internal/model"
)

// TabKey はキャッシュのキー。"feedType" または "feedType:subFilter" の形式。
type TabKey string

// NewTabKey はフィード種別とサブフィルタからTabKeyを組み立てる。
func NewTabKey(feedType model.FeedType, sub model.SubFilter) TabKey {
	if sub == model.SubFilterNone {
		return TabKey(feedType)
	}
	return TabKey(string(feedType) + ":" + string(sub))
}

// Parse はTabKeyをフィード種別とサブフィルタに分解する。
func (k TabKey) Parse() (model.FeedType, model.SubFilter, error) {
	feedType, sub, _ := strings.Cut(string(k), ":")
	switch model.FeedType(feedType) {
	case model.FeedTypeGlobal, model.FeedTypeAuthored, model.FeedTypeApplied, model.FeedTypeFavorited:
	default:
		return "", "", fmt.Errorf("未知のフィード種別です: %q", k)
	}
	return model.FeedType(feedType), model.SubFilter(sub), nil
}

// Post はAPIが返す投稿。
type Post struct {
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

// Item はフィードの1行。appliedとfavoritedでは投稿がpostにネストされる。
type Item struct {
	Post Post `json:"post"`

	ApplicationID      string     `json:"applicationId,omitempty"`
	ApplicationMessage string     `json:"applicationMessage,omitempty"`
	ApplicationStatus  string     `json:"applicationStatus,omitempty"`
	AppliedAt          *time.Time `json:"appliedAt,omitempty"`

	FavoriteID  string     `json:"favoriteId,omitempty"`
	FavoritedAt *time.Time `json:"favoritedAt,omitempty"`
}

// UnmarshalJSON は投稿がネストされた行とフラットな行の両方を読み込む。
func (it *Item) UnmarshalJSON(b []byte) error {
	var wrapped struct {
		Post               *Post      `json:"post"`
		ApplicationID      string     `json:"applicationId"`
		ApplicationMessage string     `json:"applicationMessage"`
		ApplicationStatus  string     `json:"applicationStatus"`
		AppliedAt          *time.Time `json:"appliedAt"`
		FavoriteID         string     `json:"favoriteId"`
		FavoritedAt        *time.Time `json:"favoritedAt"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}

	if wrapped.Post == nil {
		*it = Item{}
		return json.Unmarshal(b, &it.Post)
	}

	*it = Item{
		Post:               *wrapped.Post,
		ApplicationID:      wrapped.ApplicationID,
		ApplicationMessage: wrapped.ApplicationMessage,
		ApplicationStatus:  wrapped.ApplicationStatus,
		AppliedAt:          wrapped.AppliedAt,
		FavoriteID:         wrapped.FavoriteID,
		FavoritedAt:        wrapped.FavoritedAt,
	}
	return nil
}

// Pagination はAPIが返すページ情報。
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// Page はフィード1ページ分の応答。
type Page struct {
	Items      []Item     `json:"items"`
	Pagination Pagination `json:"pagination"`
}
