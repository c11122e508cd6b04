package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"autopost-bot/internal/adapters/repo"
	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/cache"
	"autopost-bot/internal/infra/config"
	"autopost-bot/internal/infra/db"
	apphttp "autopost-bot/internal/infra/http"
	applog "autopost-bot/internal/infra/log"
	"autopost-bot/internal/infra/metrics"
	"autopost-bot/internal/infra/queue"
	"autopost-bot/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("scheduler: неизвестная таймзона")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	var publishQueue domain.PublishQueue
	switch {
	case cfg.RabbitURL != "":
		rabbit, err := queue.NewRabbitPublishQueue(cfg.RabbitURL, cfg.Queues.Publish)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать очередь RabbitMQ")
		}
		defer rabbit.Close()
		publishQueue = rabbit
	case redisClient != nil:
		logger.Warn().Msg("scheduler: RabbitMQ не настроен, очередь работает через Redis")
		publishQueue = queue.NewRedisPublishQueue(redisClient, cfg.Queues.Publish)
	default:
		logger.Fatal().Msg("scheduler: не настроена очередь (RABBITMQ_URL или REDIS_ADDR)")
	}

	var slotCache domain.Cache
	if redisClient != nil {
		slotCache = cache.NewRedis(redisClient)
	} else {
		logger.Warn().Msg("scheduler: Redis не настроен, дедупликация слотов отключена")
	}

	registry := schedule.NewRegistry(repoAdapter, publishQueue, slotCache, logger, loc, cfg.Publisher.SlotDedupe)
	if err := registry.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось запустить реестр расписаний")
	}
	defer registry.Stop()

	srv := apphttp.NewServer(logger)
	srv.Router.Post("/internal/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := registry.Reload(r.Context()); err != nil {
			logger.Error().Err(err).Msg("scheduler: перезагрузка по запросу не удалась")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv.Router.Get("/internal/jobs", func(w http.ResponseWriter, r *http.Request) {
		for _, j := range registry.Jobs() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", j.ScheduleID, j.Slot, j.Spec, j.JobID)
		}
	})

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("scheduler: HTTP сервер остановлен")
		}
	}()

	logger.Info().Msg("scheduler: запущен")
	<-ctx.Done()
	logger.Info().Msg("scheduler: остановка")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
