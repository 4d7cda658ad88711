package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	PushDriverKafka    = "kafka"
	PushDriverRabbitMQ = "rabbitmq"
	PushDriverLog      = "log"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Push     PushConfig     `yaml:"push"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	App      AppConfig      `yaml:"app"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" env:"HTTP_ADDRESS"`
	SwaggerDir string `yaml:"swagger_dir" env:"HTTP_SWAGGER_DIR"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver" env:"DB_DRIVER"`
	Host       string `yaml:"host" env:"DB_HOST"`
	Port       int    `yaml:"port" env:"DB_PORT"`
	User       string `yaml:"user" env:"DB_USER"`
	Password   string `yaml:"password" env:"DB_PASSWORD"`
	Name       string `yaml:"name" env:"DB_NAME"`
	SSLMode    string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	SQLitePath string `yaml:"sqlite_path" env:"DB_SQLITE_PATH"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	BookingEventsTopic string   `yaml:"booking_events_topic" env:"KAFKA_BOOKING_EVENTS_TOPIC"`
	PushTopic          string   `yaml:"push_topic" env:"KAFKA_PUSH_TOPIC"`
	GroupID            string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env:"RABBITMQ_EXCHANGE"`
}

type PushConfig struct {
	Driver string `yaml:"driver" env:"PUSH_DRIVER"`
}

type BookingConfig struct {
	DailyAttemptLimit int `yaml:"daily_attempt_limit" env:"BOOKING_DAILY_ATTEMPT_LIMIT"`
	SessionsCacheTTL  int `yaml:"sessions_cache_ttl_seconds" env:"BOOKING_SESSIONS_CACHE_TTL_SECONDS"`
	TxMaxAttempts     int `yaml:"tx_max_attempts" env:"BOOKING_TX_MAX_ATTEMPTS"`
}

func (b BookingConfig) SessionsCacheTTLDuration() time.Duration {
	return time.Duration(b.SessionsCacheTTL) * time.Second
}

type WorkerConfig struct {
	ReminderIntervalMinutes  int    `yaml:"reminder_interval_minutes" env:"WORKER_REMINDER_INTERVAL_MINUTES"`
	ReminderLookaheadMinutes int    `yaml:"reminder_lookahead_minutes" env:"WORKER_REMINDER_LOOKAHEAD_MINUTES"`
	SendConcurrency          int    `yaml:"send_concurrency" env:"WORKER_SEND_CONCURRENCY"`
	ReminderLocale           string `yaml:"reminder_locale" env:"WORKER_REMINDER_LOCALE"`
}

func (w WorkerConfig) ReminderInterval() time.Duration {
	return time.Duration(w.ReminderIntervalMinutes) * time.Minute
}

type AppConfig struct {
	Timezone string `yaml:"timezone" env:"APP_TIMEZONE"`
}

// Location resolves the configured IANA zone, UTC when unset.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

func defaults() Config {
	return Config{
		HTTP:     HTTPConfig{Address: ":8080", SwaggerDir: "api/swagger"},
		Database: DatabaseConfig{Driver: DriverPostgres, Port: 5432, SSLMode: "disable", SQLitePath: "classbooking.db"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{
			BookingEventsTopic: "booking-events",
			PushTopic:          "push-notifications",
			GroupID:            "classbooking-worker",
		},
		RabbitMQ: RabbitMQConfig{Exchange: "notifications"},
		Push:     PushConfig{Driver: PushDriverLog},
		Booking:  BookingConfig{DailyAttemptLimit: 5, SessionsCacheTTL: 60, TxMaxAttempts: 5},
		Worker:   WorkerConfig{ReminderIntervalMinutes: 30, ReminderLookaheadMinutes: 120, SendConcurrency: 8, ReminderLocale: "en"},
		Tracing:  TracingConfig{ServiceName: "classbooking"},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults, then
// applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Push.Driver {
	case PushDriverKafka, PushDriverLog:
	case PushDriverRabbitMQ:
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("push driver %q requires rabbitmq.url", c.Push.Driver)
		}
	default:
		return fmt.Errorf("unknown push driver %q", c.Push.Driver)
	}
	if c.Worker.ReminderIntervalMinutes <= 0 {
		return fmt.Errorf("worker.reminder_interval_minutes must be positive")
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	return nil
}
