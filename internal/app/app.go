package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/recruitfeed/internal/config"
	"github.com/hitoshi/recruitfeed/internal/database"
	"github.com/hitoshi/recruitfeed/internal/feed"
	"github.com/hitoshi/recruitfeed/internal/feedclient"
	"github.com/hitoshi/recruitfeed/internal/handler"
	"github.com/hitoshi/recruitfeed/internal/logger"
	"github.com/hitoshi/recruitfeed/internal/metrics"
	"github.com/hitoshi/recruitfeed/internal/middleware"
	"github.com/hitoshi/recruitfeed/internal/post"
	"github.com/hitoshi/recruitfeed/internal/repository"
	"github.com/hitoshi/recruitfeed/internal/security"
	"github.com/hitoshi/recruitfeed/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envファイルと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envファイルがあれば読み込む
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck とfeedは軽量サブコマンドのため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	case CommandFeed:
		logger.SetupDefault(os.Stderr)
		return runFeed(context.Background(), w, args[1:])
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, args[1:])
	default:
		return fmt.Errorf("unsupported command %q", cmd)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	postRepo := repository.NewPostgresPostRepo(db)
	appRepo := repository.NewPostgresApplicationRepo(db)
	favRepo := repository.NewPostgresFavoriteRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 4. ドメインサービスの初期化
	feedService, err := feed.NewService(
		postRepo, appRepo, profileRepo,
		feed.Limits{DefaultLimit: cfg.FeedDefaultLimit, MaxLimit: cfg.FeedMaxLimit},
		slog.Default(), collector,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize feed service: %w", err)
	}

	postService := post.NewService(
		postRepo, appRepo, favRepo, profileRepo,
		security.NewContentSanitizer(),
		slog.Default(), collector,
	)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			MaxAge:       cfg.SessionMaxAge,
		},
		RateLimiter:    rateLimiter,
		Logger:         slog.Default(),
		StatusRecorder: collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		FeedService: feedService,
		PostService: postService,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れセッションのクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), collector)

	// 3. メトリクスの公開（WORKER_METRICS_PORT指定時のみ）
	var metricsServer *http.Server
	if cfg.WorkerMetricsPort != "" {
		metricsServer = &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           metrics.SetupMetricsRoute(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("worker metrics server error", slog.String("error", err.Error()))
			}
		}()
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("worker metrics server shutdown failed", slog.String("error", err.Error()))
		}
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 引数なしまたはupの場合はすべての未適用マイグレーションを適用し、
// downの場合は直近のマイグレーションを1つ取り消す。
func runMigrate(cfg *config.Config, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	slog.Info("running database migrations",
		slog.String("direction", direction),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	var (
		version uint
		err     error
	)
	switch direction {
	case "up":
		version, err = database.RunMigrations(cfg.DatabaseURL)
	case "down":
		version, err = database.RollbackMigration(cfg.DatabaseURL)
	default:
		return fmt.Errorf("unknown migrate direction: %q (want up or down)", direction)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// openDB は設定のプール値でDB接続を開く。
func openDB(cfg *config.Config) (*sql.DB, error) {
	return database.Open(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// runFeed はAPIサーバーからフィードを取得してJSONで出力する。
//
//	feed <tab> [pages]
//
// tabはglobal, authored:expired などのTabKey。pagesは取得するページ数（既定1）。
// 接続先はFEED_API_URL（既定: http://localhost:8080）、セッションはFEED_SESSION_ID。
func runFeed(ctx context.Context, w io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: feed <tab> [pages]")
	}
	key := feedclient.TabKey(args[0])
	if _, _, err := key.Parse(); err != nil {
		return err
	}

	pages := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid page count: %q", args[1])
		}
		pages = n
	}

	baseURL := os.Getenv("FEED_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	fetcher := feedclient.NewHTTPFetcher(
		&http.Client{Timeout: 10 * time.Second},
		slog.Default(),
		feedclient.HTTPFetcherConfig{
			BaseURL:      baseURL,
			SessionID:    os.Getenv("FEED_SESSION_ID"),
			StatusBucket: os.Getenv("FEED_STATUS"),
			Sort:         os.Getenv("FEED_SORT"),
			Retry:        feedclient.DefaultRetryPolicy(),
		},
	)
	cache := feedclient.NewCache(fetcher, slog.Default())

	if err := cache.SwitchTab(ctx, key, false); err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}
	for i := 1; i < pages && cache.Snapshot(key).HasMore; i++ {
		if err := cache.LoadMore(ctx, key); err != nil {
			return fmt.Errorf("failed to load more: %w", err)
		}
	}

	active := cache.Active()
	snap := cache.Snapshot(active)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Tab     feedclient.TabKey `json:"tab"`
		Pages   int               `json:"pages"`
		HasMore bool              `json:"hasMore"`
		Items   []feedclient.Item `json:"items"`
	}{active, snap.Pages, snap.HasMore, snap.Items})
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
