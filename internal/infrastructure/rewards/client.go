package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/focusmate/settlement/domain"
)

// Config describes how to reach the external reward ledger.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
}

// Client delivers reward credits to the ledger service over HTTP. The ledger
// de-duplicates by the Idempotency-Key header, so redelivery after a timeout
// is safe.
type Client struct {
	http   *fasthttp.Client
	cfg    Config
	logger *zap.Logger
}

type creditRequest struct {
	OwnerEmail string `json:"owner_email"`
	Points     int    `json:"points"`
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &fasthttp.Client{
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Credit posts one reward credit, retrying transient failures with bounded
// exponential backoff. Exhausting the attempts yields ErrLedgerUnavailable.
func (c *Client) Credit(ctx context.Context, credit domain.RewardCredit) error {
	if credit.OwnerEmail == "" || credit.IdempotencyKey == "" {
		return domain.ErrInvalidPayload
	}

	body, err := json.Marshal(creditRequest{
		OwnerEmail: credit.OwnerEmail,
		Points:     credit.Points,
	})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.BackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.post(credit.IdempotencyKey, body); err != nil {
			lastErr = err
			c.logger.Warn("reward credit attempt failed",
				zap.String("idempotency_key", credit.IdempotencyKey),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		return nil
	}
	return domain.WrapError(domain.ErrCodeUnavailable, "reward ledger unavailable", lastErr)
}

func (c *Client) post(idempotencyKey string, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + "/api/users/rewards/credit")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	req.SetBody(body)

	if err := c.http.DoTimeout(req, resp, c.cfg.RequestTimeout); err != nil {
		return err
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return fmt.Errorf("ledger returned status %d", status)
	}
	return nil
}
