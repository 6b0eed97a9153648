package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the affiliate relay
type Config struct {
	Telegram   TelegramConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Service    ServiceConfig
	Poller     PollerConfig
	Dispatcher DispatcherConfig
	Targets    TargetsConfig
	Kafka      KafkaConfig
	S3         S3Config
}

// TelegramConfig holds MTProto user credentials and the Bot API token
type TelegramConfig struct {
	APIID     int
	APIHash   string
	Phone     string
	Password  string
	BotToken  string
	RateLimit float64 // MTProto requests per second
}

// DatabaseConfig holds storage configuration
type DatabaseConfig struct {
	Driver   string // "sqlite" or "postgres"
	Path     string // sqlite file
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name string
	Port string
}

// PollerConfig holds source polling configuration
type PollerConfig struct {
	Interval        time.Duration
	PageSize        int
	ChatPause       time.Duration
	Timeout         time.Duration
	RateLimitMargin time.Duration
}

// DispatcherConfig holds delivery configuration
type DispatcherConfig struct {
	Interval         time.Duration
	BatchSize        int
	MaxDestinations  int
	DestinationDelay time.Duration
	LinkDelay        time.Duration
	ImageTimeout     time.Duration
	Timeout          time.Duration
	RateLimitMargin  time.Duration
}

// TargetsConfig holds chat classification configuration
type TargetsConfig struct {
	Policy          string // "permissive" or "admin"
	RefreshInterval time.Duration
	ListLimit       int
}

// KafkaConfig holds event publishing configuration. Empty Brokers disables publishing.
type KafkaConfig struct {
	Brokers         []string
	TopicTracked    string
	TopicDispatched string
}

// S3Config holds the product image mirror configuration. Empty Endpoint disables it.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether event publishing is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Enabled reports whether the image mirror is configured
func (s S3Config) Enabled() bool {
	return s.Endpoint != ""
}

// Result provides config parts for fx dependency injection using fx.Out pattern
type Result struct {
	fx.Out

	Config     *Config
	Telegram   *TelegramConfig
	Database   *DatabaseConfig
	Logging    *LoggingConfig
	Service    *ServiceConfig
	Poller     *PollerConfig
	Dispatcher *DispatcherConfig
	Targets    *TargetsConfig
	Kafka      *KafkaConfig
	S3         *S3Config
}

// Out loads configuration and returns Result for fx injection
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:     cfg,
		Telegram:   &cfg.Telegram,
		Database:   &cfg.Database,
		Logging:    &cfg.Logging,
		Service:    &cfg.Service,
		Poller:     &cfg.Poller,
		Dispatcher: &cfg.Dispatcher,
		Targets:    &cfg.Targets,
		Kafka:      &cfg.Kafka,
		S3:         &cfg.S3,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	p := &parser{}

	cfg := &Config{
		Telegram: TelegramConfig{
			APIID:     p.int("TELEGRAM_API_ID", 0),
			APIHash:   getEnv("TELEGRAM_API_HASH", ""),
			Phone:     getEnv("TELEGRAM_PHONE", ""),
			Password:  getEnv("TELEGRAM_PASSWORD", ""),
			BotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
			RateLimit: p.float("TELEGRAM_RATE_LIMIT", 10),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "affiliate.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "affiliate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "affiliate-relay"),
			Port: getEnv("SERVICE_PORT", "8080"),
		},
		Poller: PollerConfig{
			Interval:        p.duration("POLL_INTERVAL", 60*time.Second),
			PageSize:        p.int("POLL_PAGE_SIZE", 30),
			ChatPause:       p.duration("POLL_CHAT_PAUSE", 2*time.Second),
			Timeout:         p.duration("POLL_TIMEOUT", 5*time.Minute),
			RateLimitMargin: p.duration("RATE_LIMIT_MARGIN", 5*time.Second),
		},
		Dispatcher: DispatcherConfig{
			Interval:         p.duration("DISPATCH_INTERVAL", 30*time.Second),
			BatchSize:        p.int("DISPATCH_BATCH_SIZE", 5),
			MaxDestinations:  p.int("MAX_DESTINATIONS", 3),
			DestinationDelay: p.duration("DESTINATION_DELAY", 20*time.Second),
			LinkDelay:        p.duration("LINK_DELAY", 5*time.Second),
			ImageTimeout:     p.duration("IMAGE_TIMEOUT", 10*time.Second),
			Timeout:          p.duration("DISPATCH_TIMEOUT", 10*time.Minute),
			RateLimitMargin:  p.duration("RATE_LIMIT_MARGIN", 5*time.Second),
		},
		Targets: TargetsConfig{
			Policy:          strings.ToLower(getEnv("TARGET_POLICY", "permissive")),
			RefreshInterval: p.duration("TARGET_REFRESH_INTERVAL", 10*time.Minute),
			ListLimit:       p.int("TARGET_LIST_LIMIT", 200),
		},
		Kafka: KafkaConfig{
			Brokers:         splitList(getEnv("KAFKA_BROKERS", "")),
			TopicTracked:    getEnv("KAFKA_TOPIC_TRACKED", "links.tracked"),
			TopicDispatched: getEnv("KAFKA_TOPIC_DISPATCHED", "links.dispatched"),
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "affiliate-images"),
			UseSSL:    p.bool("S3_USE_SSL", false),
		},
	}

	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 {
		return fmt.Errorf("TELEGRAM_API_ID is required")
	}
	if c.Telegram.APIHash == "" {
		return fmt.Errorf("TELEGRAM_API_HASH is required")
	}
	if c.Telegram.Phone == "" {
		return fmt.Errorf("TELEGRAM_PHONE is required")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.RateLimit <= 0 {
		return fmt.Errorf("TELEGRAM_RATE_LIMIT must be positive")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite driver")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Poller.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.Poller.PageSize <= 0 {
		return fmt.Errorf("POLL_PAGE_SIZE must be positive")
	}
	if c.Dispatcher.Interval <= 0 {
		return fmt.Errorf("DISPATCH_INTERVAL must be positive")
	}
	if c.Dispatcher.BatchSize <= 0 {
		return fmt.Errorf("DISPATCH_BATCH_SIZE must be positive")
	}
	if c.Dispatcher.MaxDestinations <= 0 {
		return fmt.Errorf("MAX_DESTINATIONS must be positive")
	}
	if c.Dispatcher.DestinationDelay < 0 || c.Dispatcher.LinkDelay < 0 {
		return fmt.Errorf("DESTINATION_DELAY and LINK_DELAY must not be negative")
	}

	if c.Targets.Policy != "permissive" && c.Targets.Policy != "admin" {
		return fmt.Errorf("TARGET_POLICY must be permissive or admin, got %q", c.Targets.Policy)
	}

	if c.S3.Enabled() && (c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
	}

	return nil
}

// parser keeps the first conversion error so Load can report it once
type parser struct {
	err error
}

func (p *parser) int(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

// duration accepts Go durations ("90s") and bare seconds ("90")
func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
