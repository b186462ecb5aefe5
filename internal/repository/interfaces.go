// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/recruitfeed/internal/model"
)

// PostFilter は投稿読み取りの述語。各条件はANDで結合される。
// OR条件は表現できないため、completed区分は呼び出し側で2クエリの和集合として組み立てる。
// 論理削除された行（投稿およびJOIN先の応募・お気に入り）は常に除外される。
type PostFilter struct {
	// FeedType は読み取り元リレーション。
	FeedType model.FeedType
	// ProfileID はauthoredでは投稿者、appliedでは応募者、favoritedでは登録者。
	ProfileID string

	// StatusEq が空でなければ status = StatusEq。
	StatusEq model.PostStatus
	// StatusNe が空でなければ status <> StatusNe。
	StatusNe model.PostStatus
	// DeadlineAtOrAfter がnilでなければ deadline >= 値。
	DeadlineAtOrAfter *time.Time
	// DeadlineBefore がnilでなければ deadline < 値。
	DeadlineBefore *time.Time
}

// Range はオフセット方式の取得範囲。
type Range struct {
	Offset int
	Limit  int
}

// PostReader は述語ベースの投稿読み取りインターフェース。
type PostReader interface {
	// ReadPosts はフィルタに一致する行をsort順に返す。
	// タイブレークは常に行ID降順。rngがnilの場合は全件を返す。
	ReadPosts(ctx context.Context, filter PostFilter, sort model.SortOrder, rng *Range) ([]model.FeedRow, error)

	// CountPosts はフィルタに一致する行数を返す。
	CountPosts(ctx context.Context, filter PostFilter) (int, error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	PostReader

	// FindByID は指定IDの投稿を取得する。見つからない場合または論理削除済みの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// UpdateStatus は投稿の募集状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.PostStatus, updatedAt time.Time) error

	// SoftDelete は投稿を論理削除する。
	SoftDelete(ctx context.Context, id string, updatedAt time.Time) error
}

// ApplicationRepository は応募データの永続化インターフェース。
type ApplicationRepository interface {
	// FindByID は指定IDの応募を取得する。見つからない場合または論理削除済みの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Application, error)

	// ExistsActive は(投稿, 応募者)の組で論理削除されていない応募が存在するかを返す。
	ExistsActive(ctx context.Context, postID, applicantProfileID string) (bool, error)

	// Create は応募を作成する。部分ユニークインデックス違反時はErrDuplicateを返す。
	Create(ctx context.Context, app *model.Application) error

	// SoftDelete は応募を論理削除する。
	SoftDelete(ctx context.Context, id string) error

	// CountPendingByPostIDs は指定投稿ごとの審査待ち応募数を1クエリで集計する。
	// 応募がない投稿はマップに含まれない。
	CountPendingByPostIDs(ctx context.Context, postIDs []string) (map[string]int, error)
}

// FavoriteRepository はお気に入りデータの永続化インターフェース。
type FavoriteRepository interface {
	// FindActive は(投稿, プロフィール)の組で論理削除されていないお気に入りを取得する。
	// 見つからない場合はnilを返す。
	FindActive(ctx context.Context, postID, profileID string) (*model.Favorite, error)

	// Create はお気に入りを作成する。部分ユニークインデックス違反時はErrDuplicateを返す。
	Create(ctx context.Context, fav *model.Favorite) error

	// SoftDelete はお気に入りを論理削除する。
	SoftDelete(ctx context.Context, id string) error
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByUserID はユーザーIDに紐付くプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

// SessionRepository はセッションデータの参照インターフェース。
// セッションの発行は外部の認証基盤が行う。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}
