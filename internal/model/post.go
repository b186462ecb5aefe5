// Package model はドメインモデルを定義する。
package model

import "time"

// Post は募集投稿を表す。
// ライフサイクル区分（Bucket）は保存せず、読み取り時にClassifyで導出する。
type Post struct {
	ID             string
	OwnerProfileID string
	Title          string
	Body           string
	Deadline       time.Time
	Status         PostStatus
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PostStatus は投稿者が明示的に設定する募集状態を表す。締切とは独立している。
type PostStatus string

const (
	// PostStatusActive は募集中。
	PostStatusActive PostStatus = "active"
	// PostStatusCompleted は募集完了。
	PostStatusCompleted PostStatus = "completed"
	// PostStatusCancelled は募集取消。
	PostStatusCancelled PostStatus = "cancelled"
)

// Valid はPostStatusが定義済みの値かどうかを返す。
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusActive, PostStatusCompleted, PostStatusCancelled:
		return true
	}
	return false
}

// Application は投稿への応募を表す。
type Application struct {
	ID                 string
	PostID             string
	ApplicantProfileID string
	Message            string
	Status             ApplicationStatus
	IsDeleted          bool
	CreatedAt          time.Time
}

// ApplicationStatus は応募の審査状態を表す。
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Favorite は投稿のお気に入り登録を表す。
type Favorite struct {
	ID        string
	PostID    string
	ProfileID string
	IsDeleted bool
	CreatedAt time.Time
}

// Profile はユーザーの公開プロフィール。投稿・応募・お気に入りの主体となる。
type Profile struct {
	ID        string
	UserID    string // 外部IDとの紐付け（users.id）
	Nickname  string
	CreatedAt time.Time
}
