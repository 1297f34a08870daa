package outbox

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/focusmate/settlement/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "outbox.db"), "credits")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func credit(key string, points int) domain.RewardCredit {
	return domain.RewardCredit{
		OwnerEmail:     "ada@example.com",
		Points:         points,
		IdempotencyKey: key,
	}
}

func TestPutAndBatch(t *testing.T) {
	store := openStore(t)

	if err := store.Put(Entry{Credit: credit("t1", 10)}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := store.Put(Entry{Credit: credit("t2", 50)}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	entries, err := store.Batch(10)
	if err != nil {
		t.Fatalf("Batch returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Batch returned %d entries, want 2", len(entries))
	}

	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size returned error: %v", err)
	}
	if size != 2 {
		t.Errorf("Size = %d, want 2", size)
	}
}

func TestPutOverwritesByIdempotencyKey(t *testing.T) {
	store := openStore(t)

	if err := store.Put(Entry{Credit: credit("t1", 10)}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := store.Put(Entry{Credit: credit("t1", 10), Attempts: 2}); err != nil {
		t.Fatalf("second Put returned error: %v", err)
	}

	entries, err := store.Batch(10)
	if err != nil {
		t.Fatalf("Batch returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 (same key must not duplicate)", len(entries))
	}
	if entries[0].Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", entries[0].Attempts)
	}
}

func TestPutRejectsMissingKey(t *testing.T) {
	store := openStore(t)
	err := store.Put(Entry{Credit: domain.RewardCredit{OwnerEmail: "ada@example.com", Points: 10}})
	if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("error = %v, want invalid", err)
	}
}

func TestRemove(t *testing.T) {
	store := openStore(t)

	if err := store.Put(Entry{Credit: credit("t1", 10)}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := store.Remove("t1"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if err := store.Remove("t1"); err != nil {
		t.Fatalf("second Remove returned error: %v", err)
	}

	size, _ := store.Size()
	if size != 0 {
		t.Errorf("Size = %d, want 0", size)
	}
}

func TestCleanupDropsOldEntries(t *testing.T) {
	store := openStore(t)

	old := Entry{Credit: credit("old", 10), EnqueuedAt: time.Now().Add(-48 * time.Hour)}
	fresh := Entry{Credit: credit("fresh", 30)}
	if err := store.Put(old); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := store.Put(fresh); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if err := store.Cleanup(time.Now().Add(-24 * time.Hour)); err != nil {
		t.Fatalf("Cleanup returned error: %v", err)
	}

	entries, err := store.Batch(10)
	if err != nil {
		t.Fatalf("Batch returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Credit.IdempotencyKey != "fresh" {
		t.Errorf("entries after cleanup = %+v, want only 'fresh'", entries)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outbox.db")

	store, err := Open(path, "credits")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.Put(Entry{Credit: credit("t1", 50)}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := Open(path, "credits")
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.Batch(10)
	if err != nil {
		t.Fatalf("Batch returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Credit.Points != 50 {
		t.Errorf("entries after reopen = %+v, want the queued credit", entries)
	}
}
