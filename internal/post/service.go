// Package post は募集投稿・応募・お気に入りの書き込み操作を提供する。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/recruitfeed/internal/metrics"
	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/repository"
	"github.com/hitoshi/recruitfeed/internal/security"
)

const (
	maxTitleLength   = 100
	maxBodyLength    = 10000
	maxMessageLength = 1000
)

// CreatePostInput は投稿作成の入力。
type CreatePostInput struct {
	Title    string
	Body     string
	Deadline time.Time
}

// Service は投稿・応募・お気に入りの書き込みサービス。
// すべての操作は認証済みユーザーのプロフィールを主体として行う。
type Service struct {
	posts        repository.PostRepository
	applications repository.ApplicationRepository
	favorites    repository.FavoriteRepository
	profiles     repository.ProfileRepository
	sanitizer    security.ContentSanitizer
	now          func() time.Time
	logger       *slog.Logger
	metrics      metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	posts repository.PostRepository,
	applications repository.ApplicationRepository,
	favorites repository.FavoriteRepository,
	profiles repository.ProfileRepository,
	sanitizer security.ContentSanitizer,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		posts:        posts,
		applications: applications,
		favorites:    favorites,
		profiles:     profiles,
		sanitizer:    sanitizer,
		now:          time.Now,
		logger:       logger,
		metrics:      collector,
	}
}

// SetClock は現在時刻の取得関数を差し替える。テスト用。
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreatePost は投稿を作成する。投稿者は呼び出し元のプロフィール。
func (s *Service) CreatePost(ctx context.Context, userID string, in CreatePostInput) (p *model.Post, err error) {
	defer s.record("create_post", &err)

	viewer, err := s.viewer(ctx, userID)
	if err != nil {
		return nil, err
	}

	title := s.sanitizer.SanitizeText(in.Title)
	body := s.sanitizer.SanitizeBody(in.Body)
	now := s.now()

	switch {
	case title == "":
		return nil, model.NewInvalidRequestError("タイトルを入力してください")
	case utf8.RuneCountInString(title) > maxTitleLength:
		return nil, model.NewInvalidRequestError(fmt.Sprintf("タイトルは%d文字以内で入力してください", maxTitleLength))
	case utf8.RuneCountInString(body) > maxBodyLength:
		return nil, model.NewInvalidRequestError(fmt.Sprintf("本文は%d文字以内で入力してください", maxBodyLength))
	case in.Deadline.Before(now):
		return nil, model.NewInvalidRequestError("締切には現在以降の日時を指定してください")
	}

	p = &model.Post{
		ID:             uuid.New().String(),
		OwnerProfileID: viewer.ID,
		Title:          title,
		Body:           body,
		Deadline:       in.Deadline,
		Status:         model.PostStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}

	s.logger.Info("投稿を作成しました",
		slog.String("post_id", p.ID),
		slog.String("profile_id", viewer.ID),
	)
	return p, nil
}

// ChangeStatus は投稿者本人が募集をcompletedまたはcancelledに変更する。
// 既に募集を終了している投稿は変更できない。
func (s *Service) ChangeStatus(ctx context.Context, userID, postID string, status model.PostStatus) (p *model.Post, err error) {
	defer s.record("change_status", &err)

	if status != model.PostStatusCompleted && status != model.PostStatusCancelled {
		return nil, model.NewInvalidStatusError(string(status))
	}

	viewer, p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PostStatusActive {
		return nil, model.NewPostNotOpenError()
	}

	now := s.now()
	if err := s.posts.UpdateStatus(ctx, p.ID, status, now); err != nil {
		return nil, fmt.Errorf("募集状態の更新に失敗しました: %w", err)
	}
	p.Status = status
	p.UpdatedAt = now

	s.logger.Info("募集状態を変更しました",
		slog.String("post_id", p.ID),
		slog.String("profile_id", viewer.ID),
		slog.String("status", string(status)),
	)
	return p, nil
}

// DeletePost は投稿者本人が投稿を論理削除する。
func (s *Service) DeletePost(ctx context.Context, userID, postID string) (err error) {
	defer s.record("delete_post", &err)

	_, p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if err := s.posts.SoftDelete(ctx, p.ID, s.now()); err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	return nil
}

// Apply は投稿に応募する。
// 自分の投稿・募集中でない投稿には応募できず、同一投稿への有効な応募は1件まで。
// 存在確認をすり抜けた同時応募はストレージの一意制約で重複エラーになる。
func (s *Service) Apply(ctx context.Context, userID, postID, message string) (app *model.Application, err error) {
	defer s.record("apply", &err)

	viewer, err := s.viewer(ctx, userID)
	if err != nil {
		return nil, err
	}

	message = s.sanitizer.SanitizeText(message)
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("メッセージは%d文字以内で入力してください", maxMessageLength))
	}

	p, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.OwnerProfileID == viewer.ID {
		return nil, model.NewOwnPostError()
	}

	now := s.now()
	if p.BucketOf(now) != model.BucketActive {
		return nil, model.NewPostNotOpenError()
	}

	exists, err := s.applications.ExistsActive(ctx, p.ID, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("応募の確認に失敗しました: %w", err)
	}
	if exists {
		return nil, model.NewDuplicateApplicationError()
	}

	app = &model.Application{
		ID:                 uuid.New().String(),
		PostID:             p.ID,
		ApplicantProfileID: viewer.ID,
		Message:            message,
		Status:             model.ApplicationStatusPending,
		CreatedAt:          now,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateApplicationError()
		}
		return nil, fmt.Errorf("応募の保存に失敗しました: %w", err)
	}

	s.logger.Info("応募しました",
		slog.String("application_id", app.ID),
		slog.String("post_id", p.ID),
		slog.String("profile_id", viewer.ID),
	)
	return app, nil
}

// Withdraw は応募者本人が応募を取り下げる（論理削除）。
func (s *Service) Withdraw(ctx context.Context, userID, applicationID string) (err error) {
	defer s.record("withdraw", &err)

	viewer, err := s.viewer(ctx, userID)
	if err != nil {
		return err
	}

	app, err := s.applications.FindByID(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	if app == nil {
		return model.NewApplicationNotFoundError(applicationID)
	}
	if app.ApplicantProfileID != viewer.ID {
		return model.NewForbiddenError()
	}

	if err := s.applications.SoftDelete(ctx, app.ID); err != nil {
		return fmt.Errorf("応募の取り下げに失敗しました: %w", err)
	}
	return nil
}

// AddFavorite は投稿をお気に入りに登録する。
func (s *Service) AddFavorite(ctx context.Context, userID, postID string) (fav *model.Favorite, err error) {
	defer s.record("favorite", &err)

	viewer, err := s.viewer(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	existing, err := s.favorites.FindActive(ctx, p.ID, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateFavoriteError()
	}

	fav = &model.Favorite{
		ID:        uuid.New().String(),
		PostID:    p.ID,
		ProfileID: viewer.ID,
		CreatedAt: s.now(),
	}
	if err := s.favorites.Create(ctx, fav); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateFavoriteError()
		}
		return nil, fmt.Errorf("お気に入りの保存に失敗しました: %w", err)
	}
	return fav, nil
}

// RemoveFavorite はお気に入りを解除する。登録されていない場合は何もしない。
func (s *Service) RemoveFavorite(ctx context.Context, userID, postID string) (err error) {
	defer s.record("unfavorite", &err)

	viewer, err := s.viewer(ctx, userID)
	if err != nil {
		return err
	}

	existing, err := s.favorites.FindActive(ctx, postID, viewer.ID)
	if err != nil {
		return fmt.Errorf("お気に入りの確認に失敗しました: %w", err)
	}
	if existing == nil {
		return nil
	}
	if err := s.favorites.SoftDelete(ctx, existing.ID); err != nil {
		return fmt.Errorf("お気に入りの解除に失敗しました: %w", err)
	}
	return nil
}

// viewer は認証済みユーザーのプロフィールを返す。
func (s *Service) viewer(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, model.NewUnauthorizedError()
	}
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return profile, nil
}

func (s *Service) findPost(ctx context.Context, postID string) (*model.Post, error) {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return p, nil
}

// ownedPost は呼び出し元が投稿者である投稿を返す。
func (s *Service) ownedPost(ctx context.Context, userID, postID string) (*model.Profile, *model.Post, error) {
	viewer, err := s.viewer(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if p.OwnerProfileID != viewer.ID {
		return nil, nil, model.NewForbiddenError()
	}
	return viewer, p, nil
}

// record は操作結果をメトリクスに記録する。
// APIErrorは利用者起因の拒否、それ以外のエラーは内部エラーとして分類する。
func (s *Service) record(operation string, errp *error) {
	outcome := "success"
	if err := *errp; err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			outcome = "rejected"
		} else {
			outcome = "error"
			s.logger.Error("書き込み操作に失敗しました",
				slog.String("operation", operation),
				slog.String("error", err.Error()),
			)
		}
	}
	s.metrics.RecordWriteOperation(operation, outcome)
}
