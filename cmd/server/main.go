package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/focusmate/settlement/api/handler"
	"github.com/focusmate/settlement/internal/config"
	"github.com/focusmate/settlement/internal/infrastructure/monitor"
	"github.com/focusmate/settlement/internal/infrastructure/notify"
	"github.com/focusmate/settlement/internal/infrastructure/outbox"
	pgInfra "github.com/focusmate/settlement/internal/infrastructure/postgres"
	redisInfra "github.com/focusmate/settlement/internal/infrastructure/redis"
	"github.com/focusmate/settlement/internal/infrastructure/rewards"
	"github.com/focusmate/settlement/internal/middleware"
	"github.com/focusmate/settlement/internal/router"
	"github.com/focusmate/settlement/internal/services"
	"github.com/focusmate/settlement/internal/services/lifecycle"
	"github.com/focusmate/settlement/pkg/httpcontext"
	"github.com/focusmate/settlement/pkg/logger"
	"github.com/focusmate/settlement/repository"
	"github.com/focusmate/settlement/repository/postgres"
	redisRepo "github.com/focusmate/settlement/repository/redis"
	"github.com/focusmate/settlement/usecase"
	historyUC "github.com/focusmate/settlement/usecase/history"
	reminderUC "github.com/focusmate/settlement/usecase/reminder"
	settlementUC "github.com/focusmate/settlement/usecase/settlement"
	taskUC "github.com/focusmate/settlement/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	// Redis only backs the settlement lock; the coordinator degrades to
	// local locking if it is missing.
	var taskLock repository.TaskLock
	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Warn("redis unavailable, settlement locks are process-local", zap.Error(err))
	} else {
		taskLock = redisRepo.NewSettlementLock(redisClient, cfg.Settlement.LockTTL)
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	outboxStore, err := outbox.Open(cfg.Outbox.Path, "credits")
	if err != nil {
		zapLogger.Fatal("failed to open credit outbox", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outboxStore.Close()
	})

	mon := monitor.New(pool, redisClient, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)

	rewardsClient := rewards.NewClient(rewards.Config{
		BaseURL:        cfg.Rewards.BaseURL,
		RequestTimeout: cfg.Rewards.RequestTimeout,
		MaxAttempts:    cfg.Rewards.MaxAttempts,
		BackoffBase:    cfg.Rewards.BackoffBase,
	}, zapLogger)

	creditDrainer := services.NewCreditDrainer(
		outboxStore,
		rewardsClient,
		mon,
		zapLogger,
		services.DrainerConfig{
			Interval:   cfg.Outbox.DrainInterval,
			BatchSize:  cfg.Outbox.BatchSize,
			MaxRetries: cfg.Outbox.MaxRetries,
		},
	)
	creditDrainer.Start()
	manager.Register("credit_drainer", func(ctx context.Context) error {
		creditDrainer.Stop(ctx)
		return nil
	})

	var notifier usecase.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(notify.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, zapLogger)
		manager.Register("notifier", func(ctx context.Context) error {
			return kafkaNotifier.Close()
		})
		notifier = kafkaNotifier
	} else {
		notifier = notify.NewLogNotifier(zapLogger)
	}

	settleUseCase := settlementUC.New(taskRepo, ledgerRepo, taskLock,
		services.NewCreditBridge(creditDrainer), zapLogger,
		settlementUC.Config{
			StoreRetries: cfg.Settlement.StoreRetries,
			RetryBackoff: cfg.Settlement.RetryBackoff,
		})
	taskUseCase := taskUC.New(taskRepo, zapLogger)
	historyUseCase := historyUC.New(ledgerRepo, zapLogger)
	reminderUseCase := reminderUC.New(taskRepo, notifier, zapLogger, reminderUC.Config{
		Grace:       cfg.Reminder.Grace,
		Lookahead:   cfg.Reminder.Lookahead,
		Parallelism: cfg.Reminder.Parallelism,
	})

	sweeper := services.NewReminderSweeper(reminderUseCase, zapLogger, services.SweeperConfig{
		Interval: cfg.Reminder.Interval,
	})
	sweeper.Start()
	manager.Register("reminder_sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:       apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger, cfg.Reminder.Lookahead),
		Settlement: apiHandler.NewSettlementHandler(settleUseCase, ctxAdapter, zapLogger),
		History:    apiHandler.NewHistoryHandler(historyUseCase, ctxAdapter, zapLogger),
		Reminder:   apiHandler.NewReminderHandler(sweeper, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
