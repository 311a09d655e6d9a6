package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/api/caller"
	"github.com/sanosuguru/go-nearby-events/internal/api/handler"
	"github.com/sanosuguru/go-nearby-events/internal/api/middleware"
	"github.com/sanosuguru/go-nearby-events/internal/api/router"
	"github.com/sanosuguru/go-nearby-events/internal/application"
	"github.com/sanosuguru/go-nearby-events/internal/config"
	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/catalog"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/eventrepo"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/memory"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-nearby-events/internal/infrastructure/redis"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
	"github.com/sanosuguru/go-nearby-events/internal/worker"
)

func main() {
	// .env がなくても環境変数だけで起動できる
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env, cfg.LogLevel))
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("設定が不正です", zap.Error(err))
	}

	if err := run(cfg); err != nil {
		logger.Fatal("起動に失敗しました", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.Init()
	closers := make([]func() error, 0, 4)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("リソースの解放に失敗しました", zap.Error(err))
			}
		}
	}()
	checks := make(map[string]handler.Checker)

	// ユーザー作成イベントの保存先
	store, closeStore, err := newUserEventStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	// Redis はキャッシュと参加ロックで共有する
	var rdb *redis.Client
	if cfg.Cache.Backend == config.BackendRedis || cfg.Attendance.Lock == config.BackendRedis {
		rdb = redisinfra.NewClient(&cfg.Redis)
		if err := redisinfra.Ping(ctx, rdb); err != nil {
			return err
		}
		closers = append(closers, rdb.Close)
		checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, rdb) }
		logger.Info("Redisに接続しました", zap.String("addr", cfg.Redis.Addr()))
	}

	var cache eventrepo.Cache = eventrepo.NewMemoryCache()
	if cfg.Cache.Backend == config.BackendRedis {
		cache = redisinfra.NewEventCache(rdb)
	}

	catalogSource := catalog.New(cfg.Catalog)
	if !cfg.Catalog.Enabled() {
		logger.Warn("外部カタログが未設定のため、ユーザー作成イベントのみ検索します")
	}
	repo := eventrepo.NewCachedRepository(
		eventrepo.NewCompositeRepository(catalogSource, store, m),
		cache,
		m,
	)

	var publisher event.LifecyclePublisher = event.NoopPublisher{}
	if cfg.Messaging.Enabled() {
		p, err := rabbitmq.NewPublisher(cfg.Messaging.AMQPURL, cfg.Messaging.Exchange)
		if err != nil {
			return err
		}
		closers = append(closers, p.Close)
		publisher = p
		logger.Info("ライフサイクル通知を有効化しました", zap.String("exchange", cfg.Messaging.Exchange))
	}

	var locker application.AttendanceLocker
	if cfg.Attendance.Lock == config.BackendRedis {
		locker = redisinfra.NewAttendanceLocker(rdb, cfg.Attendance.LockTTL)
	}

	eventService := application.NewEventService(repo, caller.Identity{}, caller.CurrentLocation{}, publisher)
	attendanceService := application.NewAttendanceService(repo, caller.Identity{}, locker, m)
	searchService := application.NewSearchService(repo)

	var verifier *middleware.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = middleware.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		logger.Warn("JWT_SECRET が未設定のため X-User-ID ヘッダーで呼び出し元を識別します")
	}

	e := router.New(router.Services{
		Events:     eventService,
		Attendance: attendanceService,
		Search:     searchService,
	}, router.Options{
		Verifier:     verifier,
		Metrics:      m,
		MetricsAuth:  cfg.Metrics,
		HealthChecks: checks,
	})

	cleaner := worker.NewFinishedEventCleaner(eventService, cfg.Cleanup.Interval, cfg.Cleanup.Retention)
	go cleaner.Start(ctx)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	addr := ":" + cfg.Server.Port

	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバーを起動します", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("サーバー起動エラー: %w", err)
	case <-ctx.Done():
	}

	logger.Info("サーバーをシャットダウンしています...")
	cleaner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}

// newUserEventStore は STORE_BACKEND に応じたストアを返す。postgres の場合は解放関数も返す
func newUserEventStore(ctx context.Context, cfg *config.Config, checks map[string]handler.Checker) (event.UserEventStore, func() error, error) {
	if cfg.Store.Backend == config.BackendMemory {
		logger.Warn("インメモリストアを使用します（再起動でデータは失われます）")
		return memory.NewUserEventStore(), nil, nil
	}

	db, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	notifier := postgres.NewNotifier(cfg.Database.DSN())
	if err := notifier.Start(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	checks["postgres"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	logger.Info("PostgreSQLに接続しました", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	store := postgres.NewUserEventStore(db, postgres.NewTxManager(db), notifier, cfg.Observe.PollInterval)
	return store, func() error {
		return errors.Join(notifier.Close(), db.Close())
	}, nil
}
