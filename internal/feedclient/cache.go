package feedclient

import (
	"context"
	"log/slog"
	"sync"
)

// Fetcher はフィードの1ページを取得する。
type Fetcher interface {
	FetchPage(ctx context.Context, key TabKey, page int) (*Page, error)
}

// tabState はタブごとのキャッシュ状態。
// nextPageは次に取得するページ番号で、1は未取得を意味する。
type tabState struct {
	items      []Item
	nextPage   int
	hasMore    bool
	inFlight   bool
	generation uint64
	lastErr    error
}

// Snapshot は描画用のタブ状態のコピー。
type Snapshot struct {
	Key     TabKey
	Items   []Item
	Pages   int
	HasMore bool
	Loading bool
	Err     error // 直近の取得エラー。再試行の表示に使う
}

// Cache はタブごとのフィードキャッシュ。
// 同一タブへの取得は同時に1つまでに制限し、ForceRefreshで世代を進めて
// 以前の世代の応答は到着時に破棄する。取得処理自体はロックを保持せずに行う。
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.Mutex
	tabs   map[TabKey]*tabState
	active TabKey
}

// NewCache はCacheを生成する。
func NewCache(fetcher Fetcher, logger *slog.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		tabs:    make(map[TabKey]*tabState),
	}
}

// EnsureLoaded は未取得かつ取得中でなければ1ページ目を取得する。
func (c *Cache) EnsureLoaded(ctx context.Context, key TabKey) error {
	gen, page, ok := c.begin(key, func(st *tabState) bool {
		return st.nextPage == 1 && !st.inFlight
	})
	if !ok {
		return nil
	}
	return c.fetch(ctx, key, gen, page)
}

// LoadMore は次のページを取得して末尾に追加する。
// 続きがない場合、取得中の場合、1ページ目が未取得の場合は何もしない。
func (c *Cache) LoadMore(ctx context.Context, key TabKey) error {
	gen, page, ok := c.begin(key, func(st *tabState) bool {
		return st.hasMore && !st.inFlight && st.nextPage > 1
	})
	if !ok {
		return nil
	}
	return c.fetch(ctx, key, gen, page)
}

// ForceRefresh は取得済みの内容を破棄して1ページ目から取得し直す。
// 取得中の古い要求があっても新しい世代で取得を開始し、古い応答は破棄される。
func (c *Cache) ForceRefresh(ctx context.Context, key TabKey) error {
	gen, page, _ := c.begin(key, func(st *tabState) bool {
		st.generation++
		st.items = nil
		st.nextPage = 1
		st.hasMore = false
		st.inFlight = false
		st.lastErr = nil
		return true
	})
	return c.fetch(ctx, key, gen, page)
}

// SwitchTab はアクティブなタブを切り替える。他のタブの内容は保持する。
// refreshがtrueの場合はForceRefresh、falseの場合はEnsureLoadedを行う。
func (c *Cache) SwitchTab(ctx context.Context, key TabKey, refresh bool) error {
	c.mu.Lock()
	c.active = key
	c.mu.Unlock()

	if refresh {
		return c.ForceRefresh(ctx, key)
	}
	return c.EnsureLoaded(ctx, key)
}

// Active は現在アクティブなタブを返す。
func (c *Cache) Active() TabKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Snapshot はタブの状態のコピーを返す。
func (c *Cache) Snapshot(key TabKey) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stateLocked(key)
	items := make([]Item, len(st.items))
	copy(items, st.items)
	return Snapshot{
		Key:     key,
		Items:   items,
		Pages:   st.nextPage - 1,
		HasMore: st.hasMore,
		Loading: st.inFlight,
		Err:     st.lastErr,
	}
}

// begin はロック下で取得開始の可否を判定し、取得中フラグを立てる。
// 判定と設定を同じロック区間で行うため、同一タブの取得が二重に走ることはない。
func (c *Cache) begin(key TabKey, shouldFetch func(*tabState) bool) (gen uint64, page int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stateLocked(key)
	if !shouldFetch(st) {
		return 0, 0, false
	}
	st.inFlight = true
	return st.generation, st.nextPage, true
}

// fetch はロックを保持せずにページを取得し、結果を反映する。
func (c *Cache) fetch(ctx context.Context, key TabKey, gen uint64, page int) error {
	result, err := c.fetcher.FetchPage(ctx, key, page)

	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stateLocked(key)
	if st.generation != gen {
		c.logger.Debug("discarding stale feed page",
			slog.String("tab", string(key)),
			slog.Int("page", page),
			slog.Uint64("generation", gen),
			slog.Uint64("current_generation", st.generation),
		)
		return nil
	}

	st.inFlight = false
	if err != nil {
		st.lastErr = err
		c.logger.Warn("failed to fetch feed page",
			slog.String("tab", string(key)),
			slog.Int("page", page),
			slog.String("error", err.Error()),
		)
		return err
	}

	if page == 1 {
		st.items = nil
	}
	st.items = append(st.items, result.Items...)
	st.nextPage = page + 1
	st.hasMore = result.Pagination.HasMore
	st.lastErr = nil
	return nil
}

func (c *Cache) stateLocked(key TabKey) *tabState {
	st, ok := c.tabs[key]
	if !ok {
		st = &tabState{nextPage: 1}
		c.tabs[key] = st
	}
	return st
}
