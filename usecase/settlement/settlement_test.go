package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/repository"
)

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.Task

	getFailures    int
	deleteFailures int
}

func newFakeTaskRepo(tasks ...domain.Task) *fakeTaskRepo {
	r := &fakeTaskRepo{tasks: make(map[string]domain.Task)}
	for _, t := range tasks {
		r.tasks[t.ID] = t
	}
	return r
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getFailures > 0 {
		r.getFailures--
		return nil, errors.New("connection reset")
	}
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &task, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteFailures > 0 {
		r.deleteFailures--
		return errors.New("connection reset")
	}
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	return ok
}

func (r *fakeTaskRepo) List(context.Context, repository.TaskFilter) ([]domain.Task, error) {
	return nil, nil
}
func (r *fakeTaskRepo) ListDueSoon(context.Context, string, time.Time) ([]domain.Task, error) {
	return nil, nil
}
func (r *fakeTaskRepo) ListDueReminders(context.Context, repository.ReminderWindow) ([]domain.Task, error) {
	return nil, nil
}
func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	return task, nil
}
func (r *fakeTaskRepo) Update(context.Context, *domain.Task) error { return nil }
func (r *fakeTaskRepo) MarkReminderFired(context.Context, string, time.Time) error {
	return nil
}

type fakeLedger struct {
	mu       sync.Mutex
	records  map[string]domain.CompletedTask
	failures int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]domain.CompletedTask)}
}

func (l *fakeLedger) Insert(_ context.Context, record *domain.CompletedTask) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures > 0 {
		l.failures--
		return errors.New("connection reset")
	}
	if _, ok := l.records[record.SourceTaskID]; ok {
		return domain.ErrAlreadySettled
	}
	l.records[record.SourceTaskID] = *record
	return nil
}

func (l *fakeLedger) GetBySourceTaskID(_ context.Context, id string) (*domain.CompletedTask, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.records[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &record, nil
}

func (l *fakeLedger) List(context.Context, repository.LedgerFilter) ([]domain.CompletedTask, error) {
	return nil, nil
}
func (l *fakeLedger) TotalPoints(context.Context, string) (int, error) { return 0, nil }

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type fakeCredits struct {
	mu      sync.Mutex
	credits []domain.RewardCredit
	err     error
}

func (c *fakeCredits) EnqueueCredit(_ context.Context, credit domain.RewardCredit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.credits = append(c.credits, credit)
	return nil
}

func (c *fakeCredits) all() []domain.RewardCredit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.RewardCredit(nil), c.credits...)
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string) (func(), error) {
	return nil, domain.ErrLockHeld
}

func newTask(id, priority string) domain.Task {
	return domain.Task{
		ID:         id,
		OwnerEmail: "ada@example.com",
		Name:       "task " + id,
		Priority:   priority,
	}
}

func newCoordinator(tasks *fakeTaskRepo, ledger *fakeLedger, credits *fakeCredits) *UseCase {
	return New(tasks, ledger, nil, credits, nil, Config{
		StoreRetries: 3,
		RetryBackoff: time.Millisecond,
	})
}

func TestSettleAwardsPointsByPriority(t *testing.T) {
	tests := []struct {
		priority string
		want     int
	}{
		{domain.PriorityLow, 10},
		{domain.PriorityMedium, 30},
		{domain.PriorityHigh, 50},
		{"", 10},
		{"whenever", 10},
	}
	for _, tt := range tests {
		tasks := newFakeTaskRepo(newTask("t1", tt.priority))
		uc := newCoordinator(tasks, newFakeLedger(), &fakeCredits{})

		points, err := uc.Settle(context.Background(), "t1", "ada@example.com")
		if err != nil {
			t.Fatalf("Settle(%q priority) returned error: %v", tt.priority, err)
		}
		if points != tt.want {
			t.Errorf("Settle(%q priority) = %d points, want %d", tt.priority, points, tt.want)
		}
	}
}

func TestSettleMovesTaskToLedger(t *testing.T) {
	tasks := newFakeTaskRepo(newTask("t1", domain.PriorityHigh))
	ledger := newFakeLedger()
	credits := &fakeCredits{}
	uc := newCoordinator(tasks, ledger, credits)

	points, err := uc.Settle(context.Background(), "t1", "ada@example.com")
	if err != nil {
		t.Fatalf("Settle returned error: %v", err)
	}
	if points != 50 {
		t.Errorf("points = %d, want 50", points)
	}

	if tasks.has("t1") {
		t.Error("task still present in active store after settlement")
	}
	record, err := ledger.GetBySourceTaskID(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if record.PointsAwarded != 50 {
		t.Errorf("ledger PointsAwarded = %d, want 50", record.PointsAwarded)
	}

	got := credits.all()
	if len(got) != 1 {
		t.Fatalf("credits queued = %d, want 1", len(got))
	}
	if got[0].IdempotencyKey != "t1" {
		t.Errorf("idempotency key = %q, want t1", got[0].IdempotencyKey)
	}
	if got[0].Points != 50 {
		t.Errorf("credit points = %d, want 50", got[0].Points)
	}
}

func TestSettleTwiceReturnsNotFound(t *testing.T) {
	tasks := newFakeTaskRepo(newTask("t1", domain.PriorityMedium))
	ledger := newFakeLedger()
	credits := &fakeCredits{}
	uc := newCoordinator(tasks, ledger, credits)

	if _, err := uc.Settle(context.Background(), "t1", "ada@example.com"); err != nil {
		t.Fatalf("first Settle returned error: %v", err)
	}

	_, err := uc.Settle(context.Background(), "t1", "ada@example.com")
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("second Settle error = %v, want not-found", err)
	}

	if ledger.count() != 1 {
		t.Errorf("ledger records = %d, want 1", ledger.count())
	}
	if len(credits.all()) != 1 {
		t.Errorf("credits queued = %d, want 1", len(credits.all()))
	}
}

func TestSettleConcurrentSameTask(t *testing.T) {
	tasks := newFakeTaskRepo(newTask("t1", domain.PriorityHigh))
	ledger := newFakeLedger()
	credits := &fakeCredits{}
	uc := newCoordinator(tasks, ledger, credits)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = uc.Settle(context.Background(), "t1", "ada@example.com")
		}(i)
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case domain.IsDomainError(err, domain.ErrCodeNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || notFound != 1 {
		t.Errorf("got %d successes and %d not-found, want 1 and 1", ok, notFound)
	}
	if ledger.count() != 1 {
		t.Errorf("ledger records = %d, want 1", ledger.count())
	}
	if len(credits.all()) != 1 {
		t.Errorf("credits queued = %d, want 1", len(credits.all()))
	}
}

func TestSettleSucceedsWhenCreditQueueFails(t *testing.T) {
	tasks := newFakeTaskRepo(newTask("t1", domain.PriorityMedium))
	ledger := newFakeLedger()
	credits := &fakeCredits{err: errors.New("outbox full")}
	uc := newCoordinator(tasks, ledger, credits)

	points, err := uc.Settle(context.Background(), "t1", "ada@example.com")
	if err != nil {
		t.Fatalf("Settle returned error: %v", err)
	}
	if points != 30 {
		t.Errorf("points = %d, want 30", points)
	}
	if tasks.has("t1") {
		t.Error("task still present despite successful settlement")
	}
	if ledger.count() != 1 {
		t.Errorf("ledger records = %d, want 1", ledger.count())
	}
}

func TestSettleEmptyIDIsInvalid(t *testing.T) {
	uc := newCoordinator(newFakeTaskRepo(), newFakeLedger(), &fakeCredits{})
	_, err := uc.Settle(context.Background(), "", "ada@example.com")
	if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("error = %v, want invalid", err)
	}
}

func TestSettleRetriesTransientStoreErrors(t *testing.T) {
	tasks := newFakeTaskRepo(newTask("t1", domain.PriorityLow))
	tasks.getFailures = 2
	uc := newCoordinator(tasks, newFakeLedger(), &fakeCredits{})

	points, err := uc.Settle(context.Background(), "t1", "ada@example.com")
	if err != nil {
		t.Fatalf("Settle returned error after transient failures: %v", err)
	}
	if points != 10 {
		t.Errorf("points = %d, want 10", points)
	}
}

func TestSettleGivesUpAfterRepeatedStoreErrors(t *testing.T) {
	tasks := newFakeTaskRepo(newTask("t1", domain.PriorityLow))
	tasks.getFailures = 10
	uc := newCoordinator(tasks, newFakeLedger(), &fakeCredits{})

	_, err := uc.Settle(context.Background(), "t1", "ada@example.com")
	if !domain.IsDomainError(err, domain.ErrCodeInternal) {
		t.Fatalf("error = %v, want internal", err)
	}
}

func TestSettleRecoversHalfFinishedSettlement(t *testing.T) {
	// Simulate a crash after the ledger write but before the task removal:
	// the record exists and the task is still in the active store.
	task := newTask("t1", domain.PriorityHigh)
	tasks := newFakeTaskRepo(task)
	ledger := newFakeLedger()
	if err := ledger.Insert(context.Background(), domain.NewCompletedTask(&task, time.Now())); err != nil {
		t.Fatalf("seeding ledger: %v", err)
	}
	credits := &fakeCredits{}
	uc := newCoordinator(tasks, ledger, credits)

	_, err := uc.Settle(context.Background(), "t1", "ada@example.com")
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("error = %v, want not-found", err)
	}
	if tasks.has("t1") {
		t.Error("stale active task not cleaned up")
	}
	if ledger.count() != 1 {
		t.Errorf("ledger records = %d, want 1", ledger.count())
	}
	if len(credits.all()) != 0 {
		t.Errorf("credits queued = %d, want 0", len(credits.all()))
	}
}

func TestSettleLockHeldReportsNotFound(t *testing.T) {
	tasks := newFakeTaskRepo(newTask("t1", domain.PriorityLow))
	uc := New(tasks, newFakeLedger(), heldLock{}, &fakeCredits{}, nil, Config{})

	_, err := uc.Settle(context.Background(), "t1", "ada@example.com")
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("error = %v, want not-found", err)
	}
}
