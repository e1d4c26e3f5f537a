package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment   string `envconfig:"ENV" default:"development"`
	HTTPAddr      string `envconfig:"HTTP_ADDR" default:":8080"`
	DBDSN         string `envconfig:"DB_DSN" required:"true"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	DefaultZone    string        `envconfig:"DEFAULT_ZONE" default:"Asia/Seoul"`
	MeetingBaseURL string        `envconfig:"MEETING_BASE_URL" default:""`
	HoldTTL        time.Duration `envconfig:"HOLD_TTL" default:"15m"`
	ExpirySchedule string        `envconfig:"EXPIRY_SCHEDULE" default:"@every 1m"`
	// Оформлять заказ только на опубликованный консультантом слот
	RequirePublishedSlot bool `envconfig:"REQUIRE_PUBLISHED_SLOT" default:"false"`

	PortOneBaseURL   string        `envconfig:"PORTONE_BASE_URL" default:"https://api.iamport.kr"`
	PortOneAPIKey    string        `envconfig:"PORTONE_API_KEY"`
	PortOneAPISecret string        `envconfig:"PORTONE_API_SECRET"`
	PortOneTimeout   time.Duration `envconfig:"PORTONE_TIMEOUT" default:"10s"`

	// Пустой адрес: токен шлюза кэшируется в памяти процесса
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Пустой адрес: события не публикуются в брокер
	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"consult.events"`

	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`

	CORSOrigins      []string `envconfig:"CORS_ORIGINS" default:"*"`
	WebhookPerMinute int      `envconfig:"WEBHOOK_RATE_PER_MINUTE" default:"120"`
	WebhookBurst     int      `envconfig:"WEBHOOK_BURST" default:"20"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфиг только из переменных окружения
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	// required не срабатывает на пустую, но заданную переменную
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.HoldTTL <= 0 {
		return nil, fmt.Errorf("HOLD_TTL must be positive, got %s", cfg.HoldTTL)
	}
	if _, err := time.LoadLocation(cfg.DefaultZone); err != nil {
		return nil, fmt.Errorf("DEFAULT_ZONE: %w", err)
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PortOneConfigured заданы ли ключи шлюза
func (c *Config) PortOneConfigured() bool {
	return c.PortOneAPIKey != "" && c.PortOneAPISecret != ""
}
