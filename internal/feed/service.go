// Package feed は投稿フィードの区分判定・和集合解決・ページングを提供する。
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/recruitfeed/internal/metrics"
	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/repository"
)

// Service はフィード取得のサービス層。
// 検証 → 閲覧者の解決 → 基準時刻の取得 → 計画 → 読み取り → 応募数付与の順に処理する。
type Service struct {
	source   *Source
	counter  *ApplicantCounter
	profiles repository.ProfileRepository
	limits   Limits
	now      func() time.Time
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。
// 区分・サブフィルタの述語がClassifyと矛盾する場合はエラーを返す。
func NewService(
	reader repository.PostReader,
	pending PendingCounter,
	profiles repository.ProfileRepository,
	limits Limits,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) (*Service, error) {
	if err := verifyPlans(); err != nil {
		return nil, fmt.Errorf("フィード述語の検証に失敗しました: %w", err)
	}

	return &Service{
		source:   NewSource(reader),
		counter:  NewApplicantCounter(pending, logger, collector),
		profiles: profiles,
		limits:   limits,
		now:      time.Now,
		logger:   logger,
		metrics:  collector,
	}, nil
}

// SetClock は基準時刻の取得関数を差し替える。テスト用。
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List はフィードを1ページ取得する。
// userIDは認証済みユーザーのID。未認証の場合は空文字を渡す。
func (s *Service) List(ctx context.Context, userID string, req model.FeedRequest) (*model.FeedPage, error) {
	req, err := Normalize(req, s.limits)
	if err != nil {
		return nil, err
	}

	profileID, err := s.resolveTarget(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	// timestamptzはマイクロ秒精度のため、SQLとGoの判定を同じ時刻に揃える
	now := s.now().Truncate(time.Microsecond)

	p, err := buildPlan(baseFilter(req.FeedType, profileID), req.StatusBucket, req.SubFilter, now)
	if err != nil {
		return nil, model.NewInvalidFeedRequestError(err.Error())
	}

	rows, pagination, err := s.source.Read(ctx, p, req.Sort, req.Page, req.Limit)
	if err != nil {
		return nil, err
	}

	if req.FeedType == model.FeedTypeAuthored {
		s.counter.Annotate(ctx, rows)
	}

	bucketLabel := string(req.StatusBucket)
	if req.SubFilter != model.SubFilterNone {
		bucketLabel = string(req.SubFilter)
	}
	s.metrics.RecordFeedRequest(string(req.FeedType), bucketLabel)
	s.metrics.RecordFeedLatency(string(req.FeedType), time.Since(start))

	if rows == nil {
		rows = []model.FeedRow{}
	}
	return &model.FeedPage{
		FeedType:   req.FeedType,
		Items:      rows,
		Pagination: pagination,
		Now:        now,
	}, nil
}

// resolveTarget はフィードの対象プロフィールIDを決定する。
// globalは対象を持たない。authoredはTargetProfileIDで他人を指定でき、
// applied/favoritedは常に閲覧者本人を対象とする。
func (s *Service) resolveTarget(ctx context.Context, userID string, req model.FeedRequest) (string, error) {
	if !req.FeedType.RequiresProfile() {
		return "", nil
	}
	if userID == "" {
		return "", model.NewUnauthorizedError()
	}

	viewer, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if viewer == nil {
		return "", model.NewProfileNotFoundError()
	}

	if req.FeedType != model.FeedTypeAuthored || req.TargetProfileID == "" || req.TargetProfileID == viewer.ID {
		return viewer.ID, nil
	}

	target, err := s.profiles.FindByID(ctx, req.TargetProfileID)
	if err != nil {
		return "", fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if target == nil {
		return "", model.NewProfileNotFoundError()
	}
	return target.ID, nil
}
