package repository

import (
	"fmt"
	"strings"

	"github.com/hitoshi/recruitfeed/internal/model"
)

// postColumns は全リレーション共通の投稿カラム。
const postColumns = `p.id, p.owner_profile_id, p.title, p.body, p.deadline, p.status,
		       p.is_deleted, p.created_at, p.updated_at`

// postQuery はPostFilterから組み立てたSQL断片。
type postQuery struct {
	selectCols string
	from       string
	where      []string
	args       []interface{}
	timeCol    string // latestソートで使用する時刻カラム
	idCol      string // タイブレーク用の行IDカラム
}

// bind は引数を追加し、そのプレースホルダを返す。
func (q *postQuery) bind(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// buildPostQuery はPostFilterをリレーション別のFROM句とWHERE句に変換する。
func buildPostQuery(filter PostFilter) (*postQuery, error) {
	q := &postQuery{}

	switch filter.FeedType {
	case model.FeedTypeGlobal, "":
		q.selectCols = postColumns
		q.from = "posts p"
		q.timeCol, q.idCol = "p.created_at", "p.id"
	case model.FeedTypeAuthored:
		if filter.ProfileID == "" {
			return nil, fmt.Errorf("authoredの読み取りにはprofile IDが必要です")
		}
		q.selectCols = postColumns
		q.from = "posts p"
		q.timeCol, q.idCol = "p.created_at", "p.id"
		q.where = append(q.where, "p.owner_profile_id = "+q.bind(filter.ProfileID))
	case model.FeedTypeApplied:
		if filter.ProfileID == "" {
			return nil, fmt.Errorf("appliedの読み取りにはprofile IDが必要です")
		}
		q.selectCols = postColumns + `,
		       a.id, a.message, a.status, a.created_at`
		q.from = "applications a JOIN posts p ON p.id = a.post_id"
		q.timeCol, q.idCol = "a.created_at", "a.id"
		q.where = append(q.where,
			"a.is_deleted = false",
			"a.applicant_profile_id = "+q.bind(filter.ProfileID),
		)
	case model.FeedTypeFavorited:
		if filter.ProfileID == "" {
			return nil, fmt.Errorf("favoritedの読み取りにはprofile IDが必要です")
		}
		q.selectCols = postColumns + `,
		       f.id, f.created_at`
		q.from = "favorites f JOIN posts p ON p.id = f.post_id"
		q.timeCol, q.idCol = "f.created_at", "f.id"
		q.where = append(q.where,
			"f.is_deleted = false",
			"f.profile_id = "+q.bind(filter.ProfileID),
		)
	default:
		return nil, fmt.Errorf("未知のフィード種別です: %s", filter.FeedType)
	}

	q.where = append(q.where, "p.is_deleted = false")

	if filter.StatusEq != "" {
		q.where = append(q.where, "p.status = "+q.bind(string(filter.StatusEq)))
	}
	if filter.StatusNe != "" {
		q.where = append(q.where, "p.status <> "+q.bind(string(filter.StatusNe)))
	}
	if filter.DeadlineAtOrAfter != nil {
		q.where = append(q.where, "p.deadline >= "+q.bind(*filter.DeadlineAtOrAfter))
	}
	if filter.DeadlineBefore != nil {
		q.where = append(q.where, "p.deadline < "+q.bind(*filter.DeadlineBefore))
	}

	return q, nil
}

// orderBy はソート順に応じたORDER BY句を返す。タイブレークは常に行ID降順。
func (q *postQuery) orderBy(sort model.SortOrder) string {
	if sort == model.SortDeadline {
		return fmt.Sprintf("ORDER BY p.deadline ASC, %s DESC", q.idCol)
	}
	return fmt.Sprintf("ORDER BY %s DESC, %s DESC", q.timeCol, q.idCol)
}

// selectSQL は行取得用のSQLを組み立てる。
func (q *postQuery) selectSQL(sort model.SortOrder, rng *Range) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s\n\t\t FROM %s\n\t\t WHERE %s\n\t\t %s",
		q.selectCols, q.from, strings.Join(q.where, " AND "), q.orderBy(sort))
	if rng != nil {
		fmt.Fprintf(&b, " LIMIT %s OFFSET %s", q.bind(rng.Limit), q.bind(rng.Offset))
	}
	return b.String()
}

// countSQL は件数取得用のSQLを組み立てる。
func (q *postQuery) countSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", q.from, strings.Join(q.where, " AND "))
}
