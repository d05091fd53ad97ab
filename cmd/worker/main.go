// Package main - точка входа фонового процесса платформы курсов.
//
// Worker поднимает весь стек: PostgreSQL с миграциями, Redis-кеш,
// шину событий, обработчики команд и планировщик фоновых задач
// (сметание просроченных предложений по смене стоимости, обновление
// кеша настроек).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edu-hub/course-platform-core/config"
	"github.com/edu-hub/course-platform-core/internal/application/command"
	"github.com/edu-hub/course-platform-core/internal/application/eventhandler"
	"github.com/edu-hub/course-platform-core/internal/domain/settings"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/internal/infrastructure/messaging"
	"github.com/edu-hub/course-platform-core/internal/infrastructure/persistence/postgres"
	"github.com/edu-hub/course-platform-core/internal/infrastructure/persistence/redis"
	"github.com/edu-hub/course-platform-core/internal/infrastructure/scheduler"
	"github.com/edu-hub/course-platform-core/internal/infrastructure/service"
	"github.com/edu-hub/course-platform-core/pkg/logger"
	"github.com/edu-hub/course-platform-core/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting course platform worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. РЕПОЗИТОРИИ
	// ─────────────────────────────────────────────────────────────────────────
	courseRepo := postgres.NewCourseRepository(dbConn)
	groupRepo := postgres.NewGroupRepository(dbConn)
	sectionRepo := postgres.NewSectionRepository(dbConn)
	contentRepo := postgres.NewContentRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	paymentRepo := postgres.NewPaymentRepository(dbConn)
	contentGradeRepo := postgres.NewContentGradeRepository(dbConn)
	sectionGradeRepo := postgres.NewSectionGradeRepository(dbConn)
	certificateRepo := postgres.NewCertificateRepository(dbConn)
	pendingRepo := postgres.NewPendingChangeRepository(dbConn)
	recordRepo := postgres.NewRecordRepository(dbConn)
	settingsRepo := postgres.NewSettingsRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var settingsCache settings.Cache = postgres.NewSettingsPassthrough(settingsRepo)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			settingsCache = redis.NewSettingsCache(redisCache, settingsRepo, log)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ШИНА СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	eventBus, err := buildEventBus(cfg, redisCache, log)
	if err != nil {
		return fmt.Errorf("failed to build event bus: %w", err)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. СЕРВИСЫ И ОБРАБОТЧИКИ КОМАНД
	// ─────────────────────────────────────────────────────────────────────────
	idGen := service.NewUUIDGenerator()

	var notifier shared.NotificationSender
	if cfg.Notifications.WebhookURL != "" {
		notifier = service.NewWebhookNotifier(cfg.Notifications.WebhookURL, log)
	} else {
		notifier = service.NewLogNotifier(log)
	}

	cancelHandler := command.NewCancelCostChangeHandler(courseRepo, pendingRepo, eventBus, log)

	// Остальные обработчики собираются здесь же: их потребитель -
	// транспортный слой, который живёт в отдельном сервисе.
	_ = command.NewResolveSectionPaymentHandler(paymentRepo, enrollmentRepo, sectionRepo, idGen, eventBus, log)
	_ = command.NewRecordContentGradeHandler(contentRepo, contentGradeRepo, sectionGradeRepo, eventBus, log)
	_ = command.NewRequestCertificateHandler(enrollmentRepo, courseRepo, contentRepo, contentGradeRepo, certificateRepo, settingsCache, idGen, eventBus, log)
	_ = command.NewIssueCertificateHandler(certificateRepo, courseRepo, eventBus, log)
	_ = command.NewProposeCostChangeHandler(courseRepo, sectionRepo, pendingRepo, recordRepo, idGen, eventBus, log)
	_ = command.NewConfirmCostChangeHandler(courseRepo, sectionRepo, pendingRepo, recordRepo, dbConn, idGen, eventBus, log)
	_ = command.NewDeleteCourseHandler(courseRepo, groupRepo, sectionRepo, contentRepo, enrollmentRepo, paymentRepo, contentGradeRepo, sectionGradeRepo, certificateRepo, pendingRepo, recordRepo, dbConn, eventBus, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	dispatcher := messaging.NewDispatcher(eventBus, log)
	if err := dispatcher.Register(messaging.Handlers{
		CertificateGranted:  eventhandler.NewOnCertificateGranted(notifier, log),
		CostChangeConfirmed: eventhandler.NewOnCostChangeConfirmed(enrollmentRepo, notifier, log),
	}); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled {
		schedConfig := scheduler.DefaultSchedulerConfig()
		schedConfig.Logger = log
		schedConfig.Timezone = cfg.App.Location
		sched := scheduler.NewScheduler(schedConfig)

		expireJob := scheduler.NewExpirePendingChangesJob(pendingRepo, cancelHandler, log)
		if err := sched.Register(expireJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ExpireSweepInterval)); err != nil {
			return fmt.Errorf("failed to register expire job: %w", err)
		}

		if redisCache != nil {
			refreshSchedule, err := scheduler.ParseCronExpression(cfg.Scheduler.SettingsRefreshCron)
			if err != nil {
				return fmt.Errorf("invalid settings refresh cron: %w", err)
			}
			refreshJob := scheduler.NewRefreshSettingsCacheJob(settingsCache, log)
			if err := sched.Register(refreshJob, refreshSchedule); err != nil {
				return fmt.Errorf("failed to register refresh job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("course platform worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)

	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}

	return logger.New(opts)
}

// connectDatabase открывает пул соединений: из DATABASE_URL, если он
// задан, иначе из отдельных полей конфигурации. На старте база может
// подниматься параллельно с worker'ом, поэтому подключение идёт через
// retry с бэкоффом.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	var conn *postgres.Connection
	err := retry.DatabaseRetrier().Do(ctx, func(ctx context.Context) error {
		var dialErr error
		conn, dialErr = openDatabase(ctx, cfg)
		if dialErr != nil {
			return retry.Retryable(dialErr)
		}
		return nil
	})
	return conn, err
}

func openDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = cfg.Database.Host
	pgCfg.Port = cfg.Database.Port
	pgCfg.User = cfg.Database.User
	pgCfg.Password = cfg.Database.Password
	pgCfg.Database = cfg.Database.Name
	pgCfg.SSLMode = cfg.Database.SSLMode
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	return postgres.NewConnection(ctx, pgCfg)
}

// buildEventBus собирает шину событий согласно конфигурации.
func buildEventBus(cfg *config.Config, redisCache *redis.Cache, log *logger.Logger) (messaging.Bus, error) {
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.WorkerPoolSize = cfg.EventBus.WorkerPoolSize

	if cfg.EventBus.Mode == "redis" {
		if redisCache == nil {
			return nil, fmt.Errorf("redis event bus requires a Redis connection")
		}

		return messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redisCache.Client(),
			ChannelName:    cfg.EventBus.Channel,
			InstanceID:     cfg.EventBus.InstanceID,
			LocalBusConfig: busConfig,
			Logger:         log,
		})
	}

	return messaging.NewInMemoryEventBus(busConfig), nil
}
