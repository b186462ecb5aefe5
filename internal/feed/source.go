package feed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/repository"
)

// Source は読み取り計画を実行し、1ページ分の行とページ情報を返す。
// 単一述語はストア側でページングし、和集合はUnionResolverで統合してからページングする。
type Source struct {
	reader repository.PostReader
	union  *UnionResolver
}

// NewSource はSourceを生成する。
func NewSource(reader repository.PostReader) *Source {
	return &Source{
		reader: reader,
		union:  NewUnionResolver(reader),
	}
}

// Read は計画に従って1ページを読み取る。
func (s *Source) Read(ctx context.Context, p plan, sort model.SortOrder, page, limit int) ([]model.FeedRow, model.Pagination, error) {
	if p.isUnion() {
		rows, err := s.union.Resolve(ctx, p.filters, sort)
		if err != nil {
			return nil, model.Pagination{}, err
		}
		slice, pagination := Paginate(rows, page, limit)
		return slice, pagination, nil
	}

	filter := p.filters[0]
	var (
		rows  []model.FeedRow
		total int
	)

	// 行と総数は別々の文で読むため同一スナップショットではない。
	// 間に書き込みが入るとhasMoreが行と一時的にずれることは許容する。
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.reader.ReadPosts(gctx, filter, sort, pageRange(page, limit))
		if err != nil {
			return fmt.Errorf("フィードの読み取りに失敗しました: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = s.reader.CountPosts(gctx, filter)
		if err != nil {
			return fmt.Errorf("フィード件数の取得に失敗しました: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, model.Pagination{}, err
	}

	return rows, NewPagination(page, limit, total), nil
}
