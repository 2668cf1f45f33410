package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bancoapp/banco-ledger/internal/config"
	"github.com/bancoapp/banco-ledger/internal/handlers"
	"github.com/bancoapp/banco-ledger/internal/queue"
	"github.com/bancoapp/banco-ledger/internal/repository"
	"github.com/bancoapp/banco-ledger/internal/services"
	xhttp "github.com/bancoapp/banco-ledger/pkg/http"
	"github.com/bancoapp/banco-ledger/pkg/logger"
	"github.com/bancoapp/banco-ledger/pkg/pg"
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

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:         config.Get().PostgresReadUser,
		Host:         config.Get().PostgresReadHost,
		Port:         config.Get().PostgresReadPort,
		Password:     config.Get().PostgresReadPassword,
		Database:     config.Get().PostgresReadDatabase,
		MaxOpenConns: config.Get().PostgresMaxOpenConns,
		MaxIdleConns: config.Get().PostgresMaxIdleConns,
	}
	writeConf := pg.Config{
		User:         config.Get().PostgresWriteUser,
		Host:         config.Get().PostgresWriteHost,
		Port:         config.Get().PostgresWritePort,
		Password:     config.Get().PostgresWritePassword,
		Database:     config.Get().PostgresWriteDatabase,
		MaxOpenConns: config.Get().PostgresMaxOpenConns,
		MaxIdleConns: config.Get().PostgresMaxIdleConns,
	}

	pgDebug := config.Get().AppEnv == "dev"
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
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

	movementQueue, err := queue.New(redisAdap, queue.Config{
		Stream:            config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating movement queue", "error", err)
		return
	}

	accountRepo := repository.NewAccountRepository(db)
	movementRepo := repository.NewMovementRepository(db)

	ledgerService := services.NewLedgerService(accountRepo, movementRepo, movementQueue)
	accountService := services.NewAccountService(accountRepo)
	authService := services.NewAuthService(accountRepo)

	movementHandler := handlers.NewMovementHandler(ledgerService)
	accountHandler := handlers.NewAccountHandler(accountService)
	authHandler := handlers.NewAuthHandler(authService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterMovementRoutes(g, movementHandler)
	handlers.RegisterAccountRoutes(g, accountHandler)
	handlers.RegisterAuthRoutes(g, authHandler)
	handlers.RegisterHealthRoutes(s.Router)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(config.Get().HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	logger.Info("api started", "addr", config.Get().HttpListenAddr, "version", version, "commit", commit, "built", date)

	<-c
	s.Shutdown()
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
