package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bancoapp/banco-ledger/internal/config"
	"github.com/bancoapp/banco-ledger/internal/notifier"
	"github.com/bancoapp/banco-ledger/pkg/logger"
	"github.com/bancoapp/banco-ledger/pkg/prom"
	"github.com/bancoapp/banco-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	webhook := notifier.NewWebhookClient(notifier.WebhookConfig{
		URL:            config.Get().NotifyWebhookURL,
		RequestTimeout: 5 * time.Second,
		MaxAttempts:    3,
		RetryBackoff:   200 * time.Millisecond,
	})

	idempotency := notifier.NewIdempotencyService(redisAdap, notifier.DefaultIdempotencyConfig())

	service, err := notifier.NewNotifierService(redisAdap, config.Get().NotifyWorkers)
	if err != nil {
		logger.Error("failed to create notifier service", "error", err)
		return
	}
	service.RegisterDispatcher(notifier.NewMovementNotifier(webhook, idempotency))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServe(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
	}()

	go func() {
		if err := service.Start(); err != nil {
			logger.Error("failed to start notifier", "error", err)
		}
	}()

	logger.Info("notifier started", "version", version, "commit", commit, "built", date)

	<-c
	service.Stop()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
