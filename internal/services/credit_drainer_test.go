package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/internal/infrastructure/outbox"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []domain.RewardCredit
	failAll bool
}

func (s *fakeSender) Credit(_ context.Context, credit domain.RewardCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("ledger unreachable")
	}
	s.sent = append(s.sent, credit)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type onlineHealth bool

func (h onlineHealth) IsOnline() bool { return bool(h) }

func newTestDrainer(t *testing.T, sender CreditSender, health LedgerHealth) (*CreditDrainer, *outbox.Store) {
	t.Helper()
	store, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.db"), "credits")
	if err != nil {
		t.Fatalf("outbox.Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewCreditDrainer(store, sender, health, nil, DrainerConfig{
		Interval:   time.Minute,
		BatchSize:  10,
		MaxRetries: 3,
	}), store
}

func seed(t *testing.T, store *outbox.Store, entries ...outbox.Entry) {
	t.Helper()
	for _, entry := range entries {
		if err := store.Put(entry); err != nil {
			t.Fatalf("seeding outbox: %v", err)
		}
	}
}

func TestDrainDeliversAndPurges(t *testing.T) {
	sender := &fakeSender{}
	drainer, store := newTestDrainer(t, sender, onlineHealth(true))
	seed(t, store,
		outbox.Entry{Credit: domain.RewardCredit{OwnerEmail: "ada@example.com", Points: 50, IdempotencyKey: "t1"}},
		outbox.Entry{Credit: domain.RewardCredit{OwnerEmail: "bob@example.com", Points: 10, IdempotencyKey: "t2"}},
	)

	if err := drainer.Drain(context.Background()); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}

	if sender.count() != 2 {
		t.Errorf("delivered = %d, want 2", sender.count())
	}
	if drainer.Size() != 0 {
		t.Errorf("outbox size = %d, want 0", drainer.Size())
	}
}

func TestDrainRequeuesFailedDelivery(t *testing.T) {
	sender := &fakeSender{failAll: true}
	drainer, store := newTestDrainer(t, sender, onlineHealth(true))
	seed(t, store, outbox.Entry{Credit: domain.RewardCredit{OwnerEmail: "ada@example.com", Points: 30, IdempotencyKey: "t1"}})

	if err := drainer.Drain(context.Background()); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}

	entries, err := store.Batch(10)
	if err != nil {
		t.Fatalf("Batch returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 (still queued)", len(entries))
	}
	if entries[0].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", entries[0].Attempts)
	}
}

func TestDrainAbandonsAfterMaxRetries(t *testing.T) {
	sender := &fakeSender{failAll: true}
	drainer, store := newTestDrainer(t, sender, onlineHealth(true))
	seed(t, store, outbox.Entry{
		Credit:   domain.RewardCredit{OwnerEmail: "ada@example.com", Points: 30, IdempotencyKey: "t1"},
		Attempts: 2,
	})

	if err := drainer.Drain(context.Background()); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}

	if drainer.Size() != 0 {
		t.Errorf("outbox size = %d, want 0 after abandoning", drainer.Size())
	}
	if sender.count() != 0 {
		t.Errorf("delivered = %d, want 0", sender.count())
	}
}

func TestDrainSkipsWhileOffline(t *testing.T) {
	sender := &fakeSender{}
	drainer, store := newTestDrainer(t, sender, onlineHealth(false))
	seed(t, store, outbox.Entry{Credit: domain.RewardCredit{OwnerEmail: "ada@example.com", Points: 10, IdempotencyKey: "t1"}})

	if err := drainer.Drain(context.Background()); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}

	if sender.count() != 0 {
		t.Errorf("delivered = %d while offline, want 0", sender.count())
	}
	if drainer.Size() != 1 {
		t.Errorf("outbox size = %d, want 1", drainer.Size())
	}
}

func TestSubmitPersistsBeforeDelivery(t *testing.T) {
	sender := &fakeSender{failAll: true}
	drainer, _ := newTestDrainer(t, sender, onlineHealth(true))

	err := drainer.Submit(context.Background(), domain.RewardCredit{
		OwnerEmail:     "ada@example.com",
		Points:         50,
		IdempotencyKey: "t1",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	// Immediate delivery fails; the credit must survive in the outbox for
	// the scheduled drain.
	deadline := time.Now().Add(2 * time.Second)
	for drainer.Size() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if drainer.Size() != 1 {
		t.Errorf("outbox size = %d, want 1", drainer.Size())
	}
}
