package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/bancoapp/banco-ledger/internal/model"
)

var ErrWebhookRejected = errors.New("webhook endpoint rejected the event")

type WebhookConfig struct {
	URL            string
	RequestTimeout time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
}

// WebhookClient posts movement events to the configured notification
// endpoint. Retries here cover transient network failures inside one
// dispatch; cross-dispatch retries are the queue's job.
type WebhookClient struct {
	config WebhookConfig
	client *fasthttp.Client
}

func NewWebhookClient(config WebhookConfig) *WebhookClient {
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 5 * time.Second
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = 200 * time.Millisecond
	}

	return &WebhookClient{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:         config.RequestTimeout,
			WriteTimeout:        config.RequestTimeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

func (c *WebhookClient) Deliver(ctx context.Context, event *model.MovementEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = c.post(body)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrWebhookRejected) {
			// A 4xx will not succeed on retry.
			return lastErr
		}

		if attempt < c.config.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryBackoff * time.Duration(attempt)):
			}
		}
	}

	return fmt.Errorf("deliver event after %d attempts: %w", c.config.MaxAttempts, lastErr)
}

func (c *WebhookClient) post(body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := c.client.DoTimeout(req, resp, c.config.RequestTimeout); err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: status %d", ErrWebhookRejected, status)
	default:
		return fmt.Errorf("webhook returned status %d", status)
	}
}
