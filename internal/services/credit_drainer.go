package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/internal/infrastructure/outbox"
)

// CreditSender abstracts the reward-ledger client.
type CreditSender interface {
	Credit(ctx context.Context, credit domain.RewardCredit) error
}

// LedgerHealth abstracts the connection monitor functionality.
type LedgerHealth interface {
	IsOnline() bool
}

// DrainerConfig controls how frequently the outbox is drained.
type DrainerConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// CreditDrainer delivers queued reward credits to the external ledger.
// Settlement submits credits here; delivery happens off the request path, is
// retried on a schedule, and is abandoned with a warning after MaxRetries.
type CreditDrainer struct {
	store   *outbox.Store
	sender  CreditSender
	monitor LedgerHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     DrainerConfig
}

func NewCreditDrainer(
	store *outbox.Store,
	sender CreditSender,
	monitor LedgerHealth,
	logger *zap.Logger,
	cfg DrainerConfig,
) *CreditDrainer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &CreditDrainer{
		store:   store,
		sender:  sender,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = d.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := d.Drain(ctx); err != nil {
			d.logger.Error("credit drain failed", zap.Error(err))
		}
	})

	return d
}

// Start launches the cron scheduler.
func (d *CreditDrainer) Start() {
	if d == nil || d.cron == nil {
		return
	}
	d.cron.Start()
	d.logger.Info("credit drainer started")
}

// Stop gracefully stops the scheduler.
func (d *CreditDrainer) Stop(ctx context.Context) {
	if d == nil || d.cron == nil {
		return
	}
	stopCtx := d.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	d.logger.Info("credit drainer stopped")
}

// Submit persists the credit and kicks off an immediate delivery attempt off
// the caller's path. A concurrent scheduled drain delivering the same credit
// is harmless: the ledger de-duplicates by idempotency key.
func (d *CreditDrainer) Submit(ctx context.Context, credit domain.RewardCredit) error {
	if d == nil || d.store == nil {
		return fmt.Errorf("credit drainer not configured")
	}
	if err := d.store.Put(outbox.Entry{Credit: credit}); err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Interval)
		defer cancel()
		if err := d.deliver(ctx, outbox.Entry{Credit: credit}); err != nil {
			d.logger.Warn("immediate credit delivery failed, left in outbox",
				zap.String("idempotency_key", credit.IdempotencyKey),
				zap.Error(err))
		}
	}()
	return nil
}

// Drain processes queued credits synchronously.
func (d *CreditDrainer) Drain(ctx context.Context) error {
	if d == nil || d.store == nil {
		return nil
	}
	if d.monitor != nil && !d.monitor.IsOnline() {
		d.logger.Debug("skipping credit drain (offline)")
		return nil
	}

	entries, err := d.store.Batch(d.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := d.deliver(ctx, entry); err != nil {
			entry.Attempts++
			if entry.Attempts >= d.cfg.MaxRetries {
				d.logger.Warn("abandoning reward credit (max retries reached)",
					zap.String("idempotency_key", entry.Credit.IdempotencyKey),
					zap.String("owner", entry.Credit.OwnerEmail),
					zap.Int("points", entry.Credit.Points))
				_ = d.store.Remove(entry.Credit.IdempotencyKey)
				continue
			}
			if err := d.store.Put(entry); err != nil {
				d.logger.Error("failed to requeue credit", zap.Error(err))
			}
		}
	}
	return nil
}

// Size returns the number of queued credits.
func (d *CreditDrainer) Size() int {
	if d == nil || d.store == nil {
		return 0
	}
	size, err := d.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (d *CreditDrainer) deliver(ctx context.Context, entry outbox.Entry) error {
	if d.sender == nil {
		return fmt.Errorf("no credit sender configured")
	}
	if err := d.sender.Credit(ctx, entry.Credit); err != nil {
		return err
	}
	if err := d.store.Remove(entry.Credit.IdempotencyKey); err != nil {
		d.logger.Warn("failed to purge delivered credit", zap.Error(err))
	}
	return nil
}
