package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceMetrics_RecordSuccess(t *testing.T) {
	metrics := NewServiceMetrics()

	metrics.RecordSuccess(100 * time.Millisecond)
	metrics.RecordSuccess(200 * time.Millisecond)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats["total_dispatched"])
	assert.Equal(t, int64(0), stats["total_failed"])
	assert.Equal(t, int64(150), stats["avg_duration_ms"])
}

func TestServiceMetrics_RecordFailure(t *testing.T) {
	metrics := NewServiceMetrics()

	metrics.RecordSuccess(100 * time.Millisecond)
	metrics.RecordFailure()
	metrics.RecordFailure()

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats["total_dispatched"])
	assert.Equal(t, int64(2), stats["total_failed"])
}

func TestServiceMetrics_Reset(t *testing.T) {
	metrics := NewServiceMetrics()

	metrics.RecordSuccess(100 * time.Millisecond)
	metrics.RecordFailure()
	metrics.Reset()

	stats := metrics.GetStats()
	assert.Equal(t, int64(0), stats["total_dispatched"])
	assert.Equal(t, int64(0), stats["total_failed"])
	assert.Equal(t, int64(0), stats["avg_duration_ms"])
}

func TestNewWebhookClient_Defaults(t *testing.T) {
	client := NewWebhookClient(WebhookConfig{URL: "http://localhost:8082/api/v1/notifications"})

	assert.Equal(t, 5*time.Second, client.config.RequestTimeout)
	assert.Equal(t, 3, client.config.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, client.config.RetryBackoff)
}

func TestNewWebhookClient_ExplicitConfig(t *testing.T) {
	client := NewWebhookClient(WebhookConfig{
		URL:            "http://localhost:8082/api/v1/notifications",
		RequestTimeout: time.Second,
		MaxAttempts:    5,
		RetryBackoff:   50 * time.Millisecond,
	})

	assert.Equal(t, time.Second, client.config.RequestTimeout)
	assert.Equal(t, 5, client.config.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, client.config.RetryBackoff)
}
