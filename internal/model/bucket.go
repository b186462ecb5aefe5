package model

import "time"

// Bucket は投稿の導出ライフサイクル区分を表す。
type Bucket string

const (
	// BucketActive は募集中（status=active かつ 締切 >= now）。
	BucketActive Bucket = "active"
	// BucketCompleted はそれ以外のすべて。
	BucketCompleted Bucket = "completed"
)

// Classify は募集状態・締切・基準時刻から区分を導出する。
// 締切ちょうどの時刻は募集中として扱う（境界はactive側に含む）。
// 比較は日単位ではなくタイムスタンプの精度で行う。
// nowはリクエストごとに1回だけ取得した値を渡すこと。
func Classify(status PostStatus, deadline, now time.Time) Bucket {
	if status == PostStatusActive && !deadline.Before(now) {
		return BucketActive
	}
	return BucketCompleted
}

// BucketOf は投稿の区分を返す。
func (p *Post) BucketOf(now time.Time) Bucket {
	return Classify(p.Status, p.Deadline, now)
}
