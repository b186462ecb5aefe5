package feed

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hitoshi/recruitfeed/internal/model"
)

func fixtureRows(n int) []model.FeedRow {
	rows := make([]model.FeedRow, n)
	for i := range rows {
		rows[i] = model.FeedRow{Post: model.Post{ID: fmt.Sprintf("post-%02d", i)}}
	}
	return rows
}

func TestPaginate_TwentyFiveItems(t *testing.T) {
	rows := fixtureRows(25)

	page1, p1 := Paginate(rows, 1, 10)
	assert.Equal(t, rowIDs(rows[0:10]), rowIDs(page1))
	assert.True(t, p1.HasMore)
	assert.Equal(t, model.Pagination{Page: 1, Limit: 10, Total: 25, TotalPages: 3, HasMore: true}, p1)

	page2, p2 := Paginate(rows, 2, 10)
	assert.Equal(t, rowIDs(rows[10:20]), rowIDs(page2))
	assert.True(t, p2.HasMore)

	page3, p3 := Paginate(rows, 3, 10)
	assert.Len(t, page3, 5)
	assert.Equal(t, rowIDs(rows[20:25]), rowIDs(page3))
	assert.False(t, p3.HasMore)
}

// TestPaginate_ExactlyFullLastPage はちょうど埋まった最終ページでhasMoreがfalseになることを検証する。
func TestPaginate_ExactlyFullLastPage(t *testing.T) {
	rows := fixtureRows(20)

	page2, p2 := Paginate(rows, 2, 10)

	assert.Len(t, page2, 10)
	assert.False(t, p2.HasMore)
	assert.Equal(t, 2, p2.TotalPages)
}

func TestPaginate_PageBeyondRange(t *testing.T) {
	rows := fixtureRows(5)

	page, p := Paginate(rows, 3, 10)

	assert.Empty(t, page)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasMore)
}

// TestPaginate_HugePageDoesNotOverflow はpage*limitがintを超えるページでも空ページを返すことを検証する。
func TestPaginate_HugePageDoesNotOverflow(t *testing.T) {
	rows := fixtureRows(10)

	for _, page := range []int{1 << 62, math.MaxInt / 4, math.MaxInt} {
		t.Run(fmt.Sprintf("page%d", page), func(t *testing.T) {
			var (
				slice []model.FeedRow
				p     model.Pagination
			)
			assert.NotPanics(t, func() { slice, p = Paginate(rows, page, 4) })
			assert.Empty(t, slice)
			assert.Equal(t, 10, p.Total)
			assert.Equal(t, 3, p.TotalPages)
			assert.False(t, p.HasMore)
		})
	}
}

func TestPaginate_Empty(t *testing.T) {
	page, p := Paginate(nil, 1, 20)

	assert.Empty(t, page)
	assert.Equal(t, model.Pagination{Page: 1, Limit: 20, Total: 0, TotalPages: 0, HasMore: false}, p)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, limit, total int
		wantPages          int
		wantMore           bool
	}{
		{1, 10, 0, 0, false},
		{1, 10, 1, 1, false},
		{1, 10, 10, 1, false},
		{1, 10, 11, 2, true},
		{2, 10, 20, 2, false},
		{2, 10, 21, 3, true},
		{3, 10, 25, 3, false},
		{4, 10, 25, 3, false},
		{1 << 62, 4, 10, 3, false},
		{math.MaxInt, 100, math.MaxInt, math.MaxInt/100 + 1, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page%d_limit%d_total%d", tt.page, tt.limit, tt.total), func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantMore, p.HasMore)
		})
	}
}

func TestPageRange(t *testing.T) {
	r := pageRange(3, 10)
	assert.Equal(t, 20, r.Offset)
	assert.Equal(t, 10, r.Limit)
}
