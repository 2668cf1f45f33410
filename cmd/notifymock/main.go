package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MovementNotification is the payload the notifier posts for every
// committed ledger movement.
type MovementNotification struct {
	MovementID       int64      `json:"movement_id" binding:"required"`
	AccountID        int64      `json:"account_id" binding:"required"`
	Kind             string     `json:"kind" binding:"required"`
	Direction        string     `json:"direction"`
	Amount           string     `json:"amount"`
	Memo             string     `json:"memo"`
	RelatedAccountID *int64     `json:"related_account_id"`
	CommittedAt      *time.Time `json:"committed_at"`
}

type receivedNotification struct {
	MovementNotification
	ReceivedAt time.Time `json:"received_at"`
}

// MockReceiver simulates a downstream notification consumer: it accepts a
// configurable fraction of webhooks and answers with a configurable delay,
// which exercises the notifier's retry and idempotency paths.
type MockReceiver struct {
	acceptRate float64
	minDelay   time.Duration
	maxDelay   time.Duration
	receiverID string
	rng        *rand.Rand

	mu       sync.Mutex
	received []receivedNotification
}

func NewMockReceiver(acceptRate float64, minDelay, maxDelay time.Duration) *MockReceiver {
	return &MockReceiver{
		acceptRate: acceptRate,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		receiverID: "MOCK_RECEIVER_" + uuid.New().String()[:8],
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockReceiver) randomDelay() time.Duration {
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	delta := m.maxDelay - m.minDelay
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockReceiver) shouldAccept() bool {
	return m.rng.Float64() < m.acceptRate
}

func (m *MockReceiver) record(n MovementNotification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, receivedNotification{
		MovementNotification: n,
		ReceivedAt:           time.Now(),
	})
}

func (m *MockReceiver) snapshot() []receivedNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]receivedNotification, len(m.received))
	copy(out, m.received)
	return out
}

type Handler struct {
	receiver *MockReceiver
}

func NewHandler(receiver *MockReceiver) *Handler {
	return &Handler{receiver: receiver}
}

// Receive handles a movement webhook.
func (h *Handler) Receive(c *gin.Context) {
	var req MovementNotification

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	time.Sleep(h.receiver.randomDelay())

	if !h.receiver.shouldAccept() {
		log.Warn().
			Int64("movement_id", req.MovementID).
			Str("kind", req.Kind).
			Msg("Rejecting notification (simulated outage)")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Receiver temporarily unavailable",
		})
		return
	}

	h.receiver.record(req)

	log.Info().
		Int64("movement_id", req.MovementID).
		Int64("account_id", req.AccountID).
		Str("kind", req.Kind).
		Str("amount", req.Amount).
		Msg("Notification accepted")

	c.JSON(http.StatusOK, gin.H{
		"status":      "accepted",
		"receiver_id": h.receiver.receiverID,
		"received_at": time.Now(),
	})
}

// ListReceived dumps everything accepted so far, for test assertions.
func (h *Handler) ListReceived(c *gin.Context) {
	received := h.receiver.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"count":         len(received),
		"notifications": received,
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"receiver_id": h.receiver.receiverID,
		"timestamp":   time.Now(),
		"accept_rate": h.receiver.acceptRate,
	})
}

// UpdateConfig changes the accept rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		AcceptRate *float64 `json:"accept_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.AcceptRate != nil && *config.AcceptRate >= 0 && *config.AcceptRate <= 1.0 {
		h.receiver.acceptRate = *config.AcceptRate
		log.Info().Float64("rate", *config.AcceptRate).Msg("Updated accept rate")
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Configuration updated",
		"accept_rate": h.receiver.acceptRate,
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/notifications", handler.Receive)
		v1.GET("/notifications", handler.ListReceived)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	acceptRate := getEnvFloat("ACCEPT_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 10*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 200*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("accept_rate", acceptRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting mock notification receiver")

	receiver := NewMockReceiver(acceptRate, minDelay, maxDelay)
	handler := NewHandler(receiver)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
