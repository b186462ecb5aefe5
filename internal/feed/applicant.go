package feed

import (
	"context"
	"log/slog"

	"github.com/hitoshi/recruitfeed/internal/metrics"
	"github.com/hitoshi/recruitfeed/internal/model"
)

// PendingCounter は投稿ごとの審査待ち応募数を集計するインターフェース。
type PendingCounter interface {
	CountPendingByPostIDs(ctx context.Context, postIDs []string) (map[string]int, error)
}

// ApplicantCounter はauthoredフィードの行に審査待ち応募数を付与する。
type ApplicantCounter struct {
	counter PendingCounter
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewApplicantCounter はApplicantCounterを生成する。
func NewApplicantCounter(counter PendingCounter, logger *slog.Logger, collector metrics.MetricsCollector) *ApplicantCounter {
	return &ApplicantCounter{
		counter: counter,
		logger:  logger,
		metrics: collector,
	}
}

// Annotate はページ内の投稿IDをまとめて1回で集計し、各行のApplicantCountを設定する。
// 集計に失敗してもエラーは返さず、全行を0件として警告ログを出す。
func (c *ApplicantCounter) Annotate(ctx context.Context, rows []model.FeedRow) {
	if len(rows) == 0 {
		return
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].Post.ID
	}

	counts, err := c.counter.CountPendingByPostIDs(ctx, ids)
	if err != nil {
		c.logger.Warn("応募数の集計に失敗したため0件で代替します",
			slog.Int("post_count", len(ids)),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordApplicantCountFailure()
		counts = nil
	}

	for i := range rows {
		rows[i].ApplicantCount = counts[rows[i].Post.ID]
	}
}
