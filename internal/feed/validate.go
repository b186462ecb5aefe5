package feed

import (
	"fmt"
	"math"

	"github.com/hitoshi/recruitfeed/internal/model"
)

// Limits はページサイズの既定値と上限。
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultLimits は既定のページサイズ設定。
var DefaultLimits = Limits{DefaultLimit: 20, MaxLimit: 100}

// Normalize は未指定の項目に既定値を補い、組み合わせを検証する。
// 検証エラーは*model.APIError（INVALID_FEED_REQUEST）で返し、読み取りは行わない。
func Normalize(req model.FeedRequest, limits Limits) (model.FeedRequest, error) {
	if req.FeedType == "" {
		req.FeedType = model.FeedTypeGlobal
	}
	if req.StatusBucket == "" {
		req.StatusBucket = model.StatusBucketAll
	}
	if req.Sort == "" {
		req.Sort = model.SortLatest
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Limit == 0 {
		req.Limit = limits.DefaultLimit
	}

	switch req.FeedType {
	case model.FeedTypeGlobal, model.FeedTypeAuthored, model.FeedTypeApplied, model.FeedTypeFavorited:
	default:
		return req, model.NewInvalidFeedRequestError(fmt.Sprintf("未知のフィード種別です: %s", req.FeedType))
	}

	switch req.StatusBucket {
	case model.StatusBucketActive, model.StatusBucketCompleted, model.StatusBucketAll:
	default:
		return req, model.NewInvalidFeedRequestError(fmt.Sprintf("未知の区分です: %s", req.StatusBucket))
	}

	switch req.Sort {
	case model.SortLatest:
	case model.SortDeadline:
		if req.FeedType != model.FeedTypeGlobal && req.FeedType != model.FeedTypeAuthored {
			return req, model.NewInvalidFeedRequestError("deadlineソートはglobalとauthoredのみ指定できます")
		}
	default:
		return req, model.NewInvalidFeedRequestError(fmt.Sprintf("未知の並び順です: %s", req.Sort))
	}

	switch req.SubFilter {
	case model.SubFilterNone:
	case model.SubFilterInProgress, model.SubFilterExpired, model.SubFilterClosed:
		if req.FeedType != model.FeedTypeAuthored {
			return req, model.NewInvalidFeedRequestError("subはauthoredのみ指定できます")
		}
	default:
		return req, model.NewInvalidFeedRequestError(fmt.Sprintf("未知のサブフィルタです: %s", req.SubFilter))
	}

	if req.TargetProfileID != "" && req.FeedType != model.FeedTypeAuthored {
		return req, model.NewInvalidFeedRequestError("profile_idはauthoredのみ指定できます")
	}

	if req.Page < 1 {
		return req, model.NewInvalidFeedRequestError("pageは1以上を指定してください")
	}
	if req.Limit < 1 || req.Limit > limits.MaxLimit {
		return req, model.NewInvalidFeedRequestError(fmt.Sprintf("limitは1から%dの範囲で指定してください", limits.MaxLimit))
	}
	// page*limitがintに収まらないページは取得範囲を表せない
	if req.Page > math.MaxInt/req.Limit {
		return req, model.NewInvalidFeedRequestError("pageが大きすぎます")
	}

	return req, nil
}
