package feed

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/repository"
)

// UnionResolver は複数の述語による読み取りを投稿IDで統合する。
// 各サブクエリはページングせずに全件を読み、統合・整列の後にページングする。
type UnionResolver struct {
	reader repository.PostReader
}

// NewUnionResolver はUnionResolverを生成する。
func NewUnionResolver(reader repository.PostReader) *UnionResolver {
	return &UnionResolver{reader: reader}
}

// Resolve はfiltersを並行に読み取り、重複を除いて整列した行を返す。
// いずれかの読み取りが失敗した場合は全体を失敗とする。
func (u *UnionResolver) Resolve(ctx context.Context, filters []repository.PostFilter, sort model.SortOrder) ([]model.FeedRow, error) {
	results := make([][]model.FeedRow, len(filters))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range filters {
		i, f := i, f
		g.Go(func() error {
			rows, err := u.reader.ReadPosts(gctx, f, sort, nil)
			if err != nil {
				return fmt.Errorf("サブクエリ%dの読み取りに失敗しました: %w", i+1, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeRows(sort, results...), nil
}

// mergeRows は投稿IDで重複を除いて結合し、sort順に整列する。
// 同じ投稿が複数の集合に含まれる場合は先に現れた行を残す。
func mergeRows(sort model.SortOrder, sets ...[]model.FeedRow) []model.FeedRow {
	size := 0
	for _, s := range sets {
		size += len(s)
	}

	seen := make(map[string]struct{}, size)
	merged := make([]model.FeedRow, 0, size)
	for _, s := range sets {
		for _, row := range s {
			if _, ok := seen[row.Post.ID]; ok {
				continue
			}
			seen[row.Post.ID] = struct{}{}
			merged = append(merged, row)
		}
	}

	sortRows(merged, sort)
	return merged
}

// sortRows は行をsort順に整列する。同値の場合は行ID降順。
func sortRows(rows []model.FeedRow, sort model.SortOrder) {
	slices.SortStableFunc(rows, func(a, b model.FeedRow) int {
		return compareRows(&a, &b, sort)
	})
}

func compareRows(a, b *model.FeedRow, sort model.SortOrder) int {
	if sort == model.SortDeadline {
		if c := a.Post.Deadline.Compare(b.Post.Deadline); c != 0 {
			return c
		}
	} else {
		if c := b.SortTime().Compare(a.SortTime()); c != 0 {
			return c
		}
	}
	return strings.Compare(b.RowID(), a.RowID())
}
