package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Moscow"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	// Адрес админ-эндпоинта планировщика для перезагрузки расписаний.
	SchedulerURL string `envconfig:"SCHEDULER_URL"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"90s"`
	} `envconfig:""`

	VK struct {
		APIVersion string `envconfig:"VK_API_VERSION" default:"5.199"`
	} `envconfig:""`

	Publisher struct {
		Workers     int           `envconfig:"PUBLISH_WORKERS" default:"4"`
		MaxAttempts int           `envconfig:"PUBLISH_MAX_ATTEMPTS" default:"3"`
		SlotDedupe  time.Duration `envconfig:"PUBLISH_SLOT_DEDUPE_TTL" default:"10m"`
	} `envconfig:""`

	Queues struct {
		Publish string `envconfig:"PUBLISH_QUEUE_KEY" default:"publish_jobs"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
