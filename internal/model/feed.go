package model

import "time"

// FeedType はフィードの読み取り元リレーションを表す。
type FeedType string

const (
	// FeedTypeGlobal は削除されていない全投稿。
	FeedTypeGlobal FeedType = "global"
	// FeedTypeAuthored は指定プロフィールが投稿したもの。
	FeedTypeAuthored FeedType = "authored"
	// FeedTypeApplied は指定プロフィールが応募したもの（applications JOIN）。
	FeedTypeApplied FeedType = "applied"
	// FeedTypeFavorited は指定プロフィールがお気に入り登録したもの（favorites JOIN）。
	FeedTypeFavorited FeedType = "favorited"
)

// RequiresProfile は認証済みプロフィールが必要なフィードかどうかを返す。
func (t FeedType) RequiresProfile() bool {
	return t != FeedTypeGlobal
}

// StatusBucket はリクエストで指定する区分フィルタ。
type StatusBucket string

const (
	StatusBucketActive    StatusBucket = "active"
	StatusBucketCompleted StatusBucket = "completed"
	StatusBucketAll       StatusBucket = "all"
)

// SortOrder はフィードの並び順。
type SortOrder string

const (
	// SortLatest は作成日時（応募・お気に入りは登録日時）の降順。
	SortLatest SortOrder = "latest"
	// SortDeadline は締切の昇順。global/authoredのみ対応。
	SortDeadline SortOrder = "deadline"
)

// SubFilter はauthoredフィード専用の絞り込み。指定時はStatusBucketより優先する。
// in_progress・expired・closedの3つでauthoredの全投稿を重複なく分割する。
type SubFilter string

const (
	SubFilterNone SubFilter = ""
	// SubFilterInProgress は募集中（status=active かつ 締切 >= now）。
	SubFilterInProgress SubFilter = "in_progress"
	// SubFilterExpired は締切切れ（status=active かつ 締切 < now）。
	SubFilterExpired SubFilter = "expired"
	// SubFilterClosed は投稿者が終了させたもの（status != active）。
	SubFilterClosed SubFilter = "closed"
)

// FeedRequest はフィード取得リクエストを表す。
type FeedRequest struct {
	FeedType        FeedType
	StatusBucket    StatusBucket
	Sort            SortOrder
	Page            int
	Limit           int
	SubFilter       SubFilter
	TargetProfileID string // authoredで他人の投稿一覧を見る場合のみ指定
}

// FeedRow はフィードの1行。FeedTypeに応じてApplication/Favoriteが設定される。
type FeedRow struct {
	Post           Post
	Application    *Application
	Favorite       *Favorite
	ApplicantCount int
}

// RowID は同一時刻時のタイブレークに使用する行の識別子を返す。
func (r *FeedRow) RowID() string {
	switch {
	case r.Application != nil:
		return r.Application.ID
	case r.Favorite != nil:
		return r.Favorite.ID
	default:
		return r.Post.ID
	}
}

// SortTime はlatestソートで使用する時刻を返す。
func (r *FeedRow) SortTime() time.Time {
	switch {
	case r.Application != nil:
		return r.Application.CreatedAt
	case r.Favorite != nil:
		return r.Favorite.CreatedAt
	default:
		return r.Post.CreatedAt
	}
}

// Pagination はページ情報を表す。
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasMore    bool
}

// FeedPage はフィード取得結果。
// Nowは区分判定に使用した基準時刻。行のBucketOfにはこの値を渡す。
type FeedPage struct {
	FeedType   FeedType
	Items      []FeedRow
	Pagination Pagination
	Now        time.Time
}
