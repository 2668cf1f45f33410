package config

import (
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/bancoapp/banco-ledger/pkg/logger"
)

var config *Config

// Config holds every environment-sourced setting. Nothing else in the
// codebase reads env vars directly.
type Config struct {
	AppEnv   string `env:"APP_ENV" default:"dev"`
	AppName  string `env:"APP_NAME" default:"banco_ledger"`
	AppDebug bool   `env:"APP_DEBUG" default:"1"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	PostgresMaxOpenConns int `env:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	PostgresMaxIdleConns int `env:"POSTGRES_MAX_IDLE_CONNS" default:"5"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace       string `env:"PROM_NAMESPACE"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR" default:":9100"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI" default:"/metrics"`

	QueueName              string        `env:"QUEUE_NAME" default:"movements:events"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP" default:"notifier"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ"`

	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
	NotifyWorkers    int    `env:"NOTIFY_WORKERS" default:"4"`
}

// Load reads the optional dotenv file at path, then maps the environment
// onto the Config struct.
func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.New("failed to map env variables to Configuration object error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
