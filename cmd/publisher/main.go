package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"autopost-bot/internal/adapters/generator"
	"autopost-bot/internal/adapters/notifier"
	"autopost-bot/internal/adapters/platform"
	"autopost-bot/internal/adapters/repo"
	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/config"
	"autopost-bot/internal/infra/db"
	applog "autopost-bot/internal/infra/log"
	"autopost-bot/internal/infra/metrics"
	"autopost-bot/internal/infra/openai"
	"autopost-bot/internal/infra/queue"
	"autopost-bot/internal/usecase/publish"
)

const platformTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("publisher: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var publishQueue domain.PublishQueue
	switch {
	case cfg.RabbitURL != "":
		rabbit, err := queue.NewRabbitPublishQueue(cfg.RabbitURL, cfg.Queues.Publish)
		if err != nil {
			logger.Fatal().Err(err).Msg("publisher: не удалось инициализировать очередь RabbitMQ")
		}
		defer rabbit.Close()
		publishQueue = rabbit
	case cfg.RedisAddr != "":
		logger.Warn().Msg("publisher: RabbitMQ не настроен, очередь работает через Redis")
		publishQueue = queue.NewRedisPublishQueue(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.Queues.Publish)
	default:
		logger.Fatal().Msg("publisher: не настроена очередь (RABBITMQ_URL или REDIS_ADDR)")
	}

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("publisher: не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("publisher: не удалось создать бота")
	}

	var contentGenerator domain.ContentGenerator
	if cfg.OpenAI.APIKey != "" {
		openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		contentGenerator = generator.NewOpenAI(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	} else {
		logger.Warn().Msg("publisher: ключ OpenAI не задан, используется шаблонный генератор")
		contentGenerator = generator.NewSimple()
	}

	reporter := publish.NewReporter(notifier.NewTelegram(botAPI), logger)
	service := publish.NewService(
		repoAdapter,
		repoAdapter,
		repoAdapter,
		repoAdapter,
		repoAdapter,
		contentGenerator,
		repoAdapter,
		reporter,
		logger,
	)

	publishers := []publish.Publisher{
		publish.NewWebsitePublisher(platform.NewWebsite(platformTimeout)),
		publish.NewTelegramPublisher(platform.NewTelegram(botAPI)),
		publish.NewPinterestPublisher(platform.NewPinterest(platformTimeout)),
		publish.NewVKPublisher(platform.NewVK(cfg.VK.APIVersion, platformTimeout)),
	}

	dispatcher := publish.NewDispatcher(
		publishQueue,
		service,
		publishers,
		cfg.Publisher.Workers,
		cfg.Publisher.MaxAttempts,
		logger,
	)

	logger.Info().Int("workers", cfg.Publisher.Workers).Msg("publisher: запуск обработки очереди")
	dispatcher.Run(ctx)
	logger.Info().Msg("publisher: остановлен")
}
