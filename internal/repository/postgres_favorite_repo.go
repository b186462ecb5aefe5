package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/recruitfeed/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// FindActive は(投稿, プロフィール)の組で論理削除されていないお気に入りを取得する。
func (r *PostgresFavoriteRepo) FindActive(ctx context.Context, postID, profileID string) (*model.Favorite, error) {
	fav := &model.Favorite{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, post_id, profile_id, is_deleted, created_at
		 FROM favorites
		 WHERE post_id = $1 AND profile_id = $2 AND is_deleted = false`,
		postID, profileID,
	).Scan(&fav.ID, &fav.PostID, &fav.ProfileID, &fav.IsDeleted, &fav.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}
	return fav, nil
}

// Create はお気に入りを作成する。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, fav *model.Favorite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (id, post_id, profile_id, is_deleted, created_at)
		 VALUES ($1, $2, $3, false, $4)`,
		fav.ID, fav.PostID, fav.ProfileID, fav.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	return nil
}

// SoftDelete はお気に入りを論理削除する。
func (r *PostgresFavoriteRepo) SoftDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE favorites SET is_deleted = true WHERE id = $1 AND is_deleted = false`,
		id,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return requireAffected(result, "お気に入り", id)
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
