package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sendlater/sendlater/pkg/config"
	"github.com/sendlater/sendlater/pkg/httpapi"
	"github.com/sendlater/sendlater/pkg/httpserver"
	"github.com/sendlater/sendlater/pkg/logger"
	"github.com/sendlater/sendlater/pkg/mailer"
	"github.com/sendlater/sendlater/pkg/pg"
	"github.com/sendlater/sendlater/pkg/queue"
	"github.com/sendlater/sendlater/pkg/ratelimit"
	"github.com/sendlater/sendlater/pkg/redis"
	"github.com/sendlater/sendlater/pkg/scheduler"
	"github.com/sendlater/sendlater/pkg/storage"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"sendlater"`
}

func main() {
	_ = config.LoadEnv()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName))
	logger.SetAsDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pgCfg    pg.Config
		redisCfg redis.Config
		httpCfg  httpserver.Config
		mailCfg  mailer.Config
		limitCfg ratelimit.Config
		queueCfg queue.Config
	)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&mailCfg)
	config.MustLoad(&limitCfg)
	config.MustLoad(&queueCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close() //nolint:errcheck

	emails := storage.NewEmailStore(pool)
	senders := storage.NewSenderStore(pool)

	queueStorage := queue.NewRedisStorage(redisClient, queue.WithRetention(queueCfg.Retention()))
	q, err := queue.New(queueStorage,
		queue.WithMaxAttempts(queueCfg.MaxAttempts),
		queue.WithBackoff(queueCfg.Backoff))
	if err != nil {
		return err
	}

	limiter, err := ratelimit.New(ratelimit.NewRedisStore(redisClient), limitCfg)
	if err != nil {
		return err
	}

	mail, err := mailer.New(mailCfg, log)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(emails, senders, q, log)
	processor := scheduler.NewProcessor(emails, limiter, mail, q, log,
		scheduler.WithSendDelay(queueCfg.MinSendInterval))

	// Repair queue/database drift before the worker starts claiming.
	reconciler := scheduler.NewReconciler(emails, senders, q, log)
	if err := reconciler.Run(ctx); err != nil {
		return err
	}

	worker, err := queue.NewWorker(queueStorage, processor.Process,
		queue.WithConcurrency(queueCfg.Concurrency),
		queue.WithPullInterval(queueCfg.PullInterval),
		queue.WithLockTimeout(queueCfg.LockTimeout),
		queue.WithMinSendInterval(queueCfg.MinSendInterval),
		queue.WithWorkerLogger(log))
	if err != nil {
		return err
	}
	if err := worker.Start(ctx); err != nil {
		return err
	}
	defer worker.Stop() //nolint:errcheck

	router := httpapi.NewRouter(httpapi.Deps{
		Scheduler:  sched,
		Emails:     emails,
		Senders:    senders,
		Queue:      q,
		PGCheck:    pg.Healthcheck(pool),
		RedisCheck: redis.Healthcheck(redisClient),
		Logger:     log,
	})

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}
