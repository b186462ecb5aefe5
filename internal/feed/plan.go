package feed

import (
	"fmt"
	"time"

	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/repository"
)

// plan は1リクエスト分の読み取り計画。
// filtersが2件以上の場合は和集合として扱い、ページングは統合後に行う。
type plan struct {
	filters []repository.PostFilter
}

func (p plan) isUnion() bool {
	return len(p.filters) > 1
}

// baseFilter はフィード種別と対象プロフィールからリレーションを選ぶ。
func baseFilter(feedType model.FeedType, profileID string) repository.PostFilter {
	return repository.PostFilter{FeedType: feedType, ProfileID: profileID}
}

// buildPlan は区分またはサブフィルタから読み取り計画を組み立てる。
// サブフィルタが指定されている場合は区分より優先する。
func buildPlan(base repository.PostFilter, bucket model.StatusBucket, sub model.SubFilter, now time.Time) (plan, error) {
	if sub != model.SubFilterNone {
		f, err := subFilterFilter(base, sub, now)
		if err != nil {
			return plan{}, err
		}
		return plan{filters: []repository.PostFilter{f}}, nil
	}

	filters, err := bucketFilters(base, bucket, now)
	if err != nil {
		return plan{}, err
	}
	return plan{filters: filters}, nil
}

// bucketFilters は区分を述語に変換する。
// completedは「締切 < now」と「status != active かつ 締切 >= now」の2つに分かれる。
func bucketFilters(base repository.PostFilter, bucket model.StatusBucket, now time.Time) ([]repository.PostFilter, error) {
	switch bucket {
	case model.StatusBucketAll:
		return []repository.PostFilter{base}, nil
	case model.StatusBucketActive:
		f := base
		f.StatusEq = model.PostStatusActive
		f.DeadlineAtOrAfter = timePtr(now)
		return []repository.PostFilter{f}, nil
	case model.StatusBucketCompleted:
		elapsed := base
		elapsed.DeadlineBefore = timePtr(now)

		closedEarly := base
		closedEarly.StatusNe = model.PostStatusActive
		closedEarly.DeadlineAtOrAfter = timePtr(now)

		return []repository.PostFilter{elapsed, closedEarly}, nil
	default:
		return nil, fmt.Errorf("未知の区分です: %s", bucket)
	}
}

// subFilterFilter はauthoredのサブフィルタを述語に変換する。
func subFilterFilter(base repository.PostFilter, sub model.SubFilter, now time.Time) (repository.PostFilter, error) {
	f := base
	switch sub {
	case model.SubFilterInProgress:
		f.StatusEq = model.PostStatusActive
		f.DeadlineAtOrAfter = timePtr(now)
	case model.SubFilterExpired:
		f.StatusEq = model.PostStatusActive
		f.DeadlineBefore = timePtr(now)
	case model.SubFilterClosed:
		f.StatusNe = model.PostStatusActive
	default:
		return repository.PostFilter{}, fmt.Errorf("未知のサブフィルタです: %s", sub)
	}
	return f, nil
}

// matchesPost はフィルタの投稿述語を投稿1件に適用する。
// リレーション条件（所有者・JOIN）と論理削除は評価しない。
func matchesPost(f repository.PostFilter, p *model.Post) bool {
	if f.StatusEq != "" && p.Status != f.StatusEq {
		return false
	}
	if f.StatusNe != "" && p.Status == f.StatusNe {
		return false
	}
	if f.DeadlineAtOrAfter != nil && p.Deadline.Before(*f.DeadlineAtOrAfter) {
		return false
	}
	if f.DeadlineBefore != nil && !p.Deadline.Before(*f.DeadlineBefore) {
		return false
	}
	return true
}

// verifyPlans は区分とサブフィルタの述語がClassifyと一致することを全組み合わせで確認する。
//   - active区分の述語はClassify==activeの投稿にだけ一致する
//   - completed区分の和集合はClassify==completedの投稿にだけ一致する
//   - in_progress・expired・closedはちょうど1つだけが一致する
func verifyPlans() error {
	now := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	base := baseFilter(model.FeedTypeAuthored, "verify")

	statuses := []model.PostStatus{model.PostStatusActive, model.PostStatusCompleted, model.PostStatusCancelled}
	offsets := []time.Duration{-time.Second, -time.Nanosecond, 0, time.Nanosecond, time.Second}

	active, err := bucketFilters(base, model.StatusBucketActive, now)
	if err != nil {
		return err
	}
	completed, err := bucketFilters(base, model.StatusBucketCompleted, now)
	if err != nil {
		return err
	}

	subs := []model.SubFilter{model.SubFilterInProgress, model.SubFilterExpired, model.SubFilterClosed}
	subFilters := make([]repository.PostFilter, 0, len(subs))
	for _, sub := range subs {
		f, err := subFilterFilter(base, sub, now)
		if err != nil {
			return err
		}
		subFilters = append(subFilters, f)
	}

	for _, status := range statuses {
		for _, off := range offsets {
			p := &model.Post{Status: status, Deadline: now.Add(off)}
			bucket := model.Classify(p.Status, p.Deadline, now)

			if matchesPost(active[0], p) != (bucket == model.BucketActive) {
				return fmt.Errorf("active区分の述語がClassifyと一致しません: status=%s offset=%v", status, off)
			}
			if matchesAny(completed, p) != (bucket == model.BucketCompleted) {
				return fmt.Errorf("completed区分の述語がClassifyと一致しません: status=%s offset=%v", status, off)
			}

			hits := 0
			for _, f := range subFilters {
				if matchesPost(f, p) {
					hits++
				}
			}
			if hits != 1 {
				return fmt.Errorf("サブフィルタが投稿を分割していません: status=%s offset=%v hits=%d", status, off, hits)
			}
			if matchesPost(subFilters[0], p) != (bucket == model.BucketActive) {
				return fmt.Errorf("in_progressがactive区分と一致しません: status=%s offset=%v", status, off)
			}
		}
	}
	return nil
}

func matchesAny(filters []repository.PostFilter, p *model.Post) bool {
	for _, f := range filters {
		if matchesPost(f, p) {
			return true
		}
	}
	return false
}

func timePtr(t time.Time) *time.Time {
	return &t
}
