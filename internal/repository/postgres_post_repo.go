package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/recruitfeed/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
// フィードの述語ベース読み取り（PostReader）も提供する。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// ReadPosts はフィルタに一致する行をsort順に返す。
func (r *PostgresPostRepo) ReadPosts(ctx context.Context, filter PostFilter, sort model.SortOrder, rng *Range) ([]model.FeedRow, error) {
	q, err := buildPostQuery(filter)
	if err != nil {
		return nil, err
	}
	query := q.selectSQL(sort, rng)

	rows, err := r.db.QueryContext(ctx, query, q.args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []model.FeedRow
	for rows.Next() {
		var row model.FeedRow
		dest := []interface{}{
			&row.Post.ID, &row.Post.OwnerProfileID, &row.Post.Title, &row.Post.Body,
			&row.Post.Deadline, &row.Post.Status, &row.Post.IsDeleted,
			&row.Post.CreatedAt, &row.Post.UpdatedAt,
		}

		switch filter.FeedType {
		case model.FeedTypeApplied:
			row.Application = &model.Application{ApplicantProfileID: filter.ProfileID}
			dest = append(dest,
				&row.Application.ID, &row.Application.Message,
				&row.Application.Status, &row.Application.CreatedAt,
			)
		case model.FeedTypeFavorited:
			row.Favorite = &model.Favorite{ProfileID: filter.ProfileID}
			dest = append(dest, &row.Favorite.ID, &row.Favorite.CreatedAt)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		if row.Application != nil {
			row.Application.PostID = row.Post.ID
		}
		if row.Favorite != nil {
			row.Favorite.PostID = row.Post.ID
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}

	return result, nil
}

// CountPosts はフィルタに一致する行数を返す。
func (r *PostgresPostRepo) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	q, err := buildPostQuery(filter)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, q.countSQL(), q.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("投稿数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合または論理削除済みの場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	p := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_profile_id, title, body, deadline, status,
		        is_deleted, created_at, updated_at
		 FROM posts WHERE id = $1 AND is_deleted = false`,
		id,
	).Scan(
		&p.ID, &p.OwnerProfileID, &p.Title, &p.Body, &p.Deadline, &p.Status,
		&p.IsDeleted, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	return p, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, p *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, owner_profile_id, title, body, deadline, status,
		                    is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8)`,
		p.ID, p.OwnerProfileID, p.Title, p.Body, p.Deadline, string(p.Status),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateStatus は投稿の募集状態を更新する。
func (r *PostgresPostRepo) UpdateStatus(ctx context.Context, id string, status model.PostStatus, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status = $2, updated_at = $3 WHERE id = $1 AND is_deleted = false`,
		id, string(status), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("募集状態の更新に失敗しました: %w", err)
	}
	return requireAffected(result, "投稿", id)
}

// SoftDelete は投稿を論理削除する。
func (r *PostgresPostRepo) SoftDelete(ctx context.Context, id string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET is_deleted = true, updated_at = $2 WHERE id = $1 AND is_deleted = false`,
		id, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	return requireAffected(result, "投稿", id)
}

// requireAffected は更新対象が1件以上存在したことを確認する。
func requireAffected(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%sが見つかりません: %s", kind, id)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
