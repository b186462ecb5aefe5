package feed

import (
	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/repository"
)

// Paginate は整列済みの行からページを切り出す。
// hasMoreは件数ではなく総数との比較（page*limit < total）で判定する。
func Paginate(rows []model.FeedRow, page, limit int) ([]model.FeedRow, model.Pagination) {
	pagination := NewPagination(page, limit, len(rows))
	// 範囲外のページは乗算せずに判定し、巨大なpageでも溢れないようにする
	if page < 1 || limit < 1 || page > pagination.TotalPages {
		return rows[:0], pagination
	}
	start := (page - 1) * limit
	end := len(rows)
	if end-start > limit {
		end = start + limit
	}
	return rows[start:end], pagination
}

// NewPagination は総数からページ情報を計算する。
// hasMoreはpage*limit < totalと同値なpage < totalPagesで求める。
func NewPagination(page, limit, total int) model.Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = total / limit
		if total%limit != 0 {
			totalPages++
		}
	}
	return model.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// pageRange はページ番号をオフセット方式の取得範囲に変換する。
// page*limitがintに収まることはNormalizeで検証済みとする。
func pageRange(page, limit int) *repository.Range {
	return &repository.Range{Offset: (page - 1) * limit, Limit: limit}
}
