package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/recruitfeed/internal/model"
)

// PostgresApplicationRepo はPostgreSQLを使用した応募リポジトリ。
type PostgresApplicationRepo struct {
	db *sql.DB
}

// NewPostgresApplicationRepo はPostgresApplicationRepoを生成する。
func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

// FindByID は指定IDの応募を取得する。見つからない場合または論理削除済みの場合はnilを返す。
func (r *PostgresApplicationRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	app := &model.Application{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, post_id, applicant_profile_id, message, status, is_deleted, created_at
		 FROM applications WHERE id = $1 AND is_deleted = false`,
		id,
	).Scan(&app.ID, &app.PostID, &app.ApplicantProfileID, &app.Message, &app.Status, &app.IsDeleted, &app.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	return app, nil
}

// ExistsActive は(投稿, 応募者)の組で論理削除されていない応募が存在するかを返す。
func (r *PostgresApplicationRepo) ExistsActive(ctx context.Context, postID, applicantProfileID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM applications
		     WHERE post_id = $1 AND applicant_profile_id = $2 AND is_deleted = false
		 )`,
		postID, applicantProfileID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("応募の存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create は応募を作成する。
// 存在確認と挿入の間に同一組の応募が挿入された場合は、部分ユニークインデックスにより
// ErrDuplicateを返す。
func (r *PostgresApplicationRepo) Create(ctx context.Context, app *model.Application) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (id, post_id, applicant_profile_id, message, status, is_deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6)`,
		app.ID, app.PostID, app.ApplicantProfileID, app.Message, string(app.Status), app.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("応募の作成に失敗しました: %w", err)
	}
	return nil
}

// SoftDelete は応募を論理削除する。
func (r *PostgresApplicationRepo) SoftDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE applications SET is_deleted = true WHERE id = $1 AND is_deleted = false`,
		id,
	)
	if err != nil {
		return fmt.Errorf("応募の削除に失敗しました: %w", err)
	}
	return requireAffected(result, "応募", id)
}

// CountPendingByPostIDs は指定投稿ごとの審査待ち応募数を1クエリで集計する。
func (r *PostgresApplicationRepo) CountPendingByPostIDs(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id, COUNT(*)
		 FROM applications
		 WHERE post_id = ANY($1) AND is_deleted = false AND status = $2
		 GROUP BY post_id`,
		pq.Array(postIDs), string(model.ApplicationStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("応募数の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		var cnt int
		if err := rows.Scan(&postID, &cnt); err != nil {
			return nil, fmt.Errorf("応募数の行読み取りに失敗しました: %w", err)
		}
		counts[postID] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("応募数の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// compile-time interface check
var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
