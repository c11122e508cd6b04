package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"autopost-bot/internal/adapters/bot"
	"autopost-bot/internal/adapters/repo"
	"autopost-bot/internal/domain"
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

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var publishQueue domain.PublishQueue
	switch {
	case cfg.RabbitURL != "":
		rabbit, err := queue.NewRabbitPublishQueue(cfg.RabbitURL, cfg.Queues.Publish)
		if err != nil {
			logger.Fatal().Err(err).Msg("gateway: не удалось инициализировать очередь RabbitMQ")
		}
		defer rabbit.Close()
		publishQueue = rabbit
	case cfg.RedisAddr != "":
		logger.Warn().Msg("gateway: RabbitMQ не настроен, очередь работает через Redis")
		publishQueue = queue.NewRedisPublishQueue(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.Queues.Publish)
	default:
		logger.Fatal().Msg("gateway: не настроена очередь (RABBITMQ_URL или REDIS_ADDR)")
	}

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("gateway: не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: не удалось создать бота")
	}

	scheduleService := schedule.NewService(repoAdapter, reloadHook(cfg.SchedulerURL), logger)
	handler := bot.NewHandler(botAPI, logger, scheduleService, repoAdapter, repoAdapter, repoAdapter, publishQueue)

	srv := apphttp.NewServer(logger)
	srv.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		handler.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	if cfg.Telegram.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("gateway: некорректный адрес вебхука")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Fatal().Err(err).Msg("gateway: не удалось установить вебхук")
		}
	}

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("gateway: HTTP сервер остановлен")
		}
	}()

	logger.Info().Msg("gateway: запущен")
	<-ctx.Done()
	logger.Info().Msg("gateway: остановка")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// reloadHook дёргает планировщик после изменения расписаний. Без
// настроенного адреса изменения подхватятся при следующем его reload.
func reloadHook(schedulerURL string) schedule.ReloadHook {
	if schedulerURL == "" {
		return nil
	}
	client := &http.Client{Timeout: 5 * time.Second}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, schedulerURL+"/internal/reload", nil)
		if err != nil {
			return err
		}
		start := time.Now()
		resp, err := client.Do(req)
		metrics.ObserveNetworkRequest("scheduler", "reload", "admin", start, err)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("scheduler reload: статус %d", resp.StatusCode)
		}
		return nil
	}
}
