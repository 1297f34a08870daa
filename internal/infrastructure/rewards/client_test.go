package rewards

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/focusmate/settlement/domain"
)

type ledgerStub struct {
	mu       sync.Mutex
	requests []receivedCredit
	status   int
}

type receivedCredit struct {
	OwnerEmail     string
	Points         int
	IdempotencyKey string
}

func (s *ledgerStub) handler(ctx *fasthttp.RequestCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body creditRequest
	_ = json.Unmarshal(ctx.PostBody(), &body)
	s.requests = append(s.requests, receivedCredit{
		OwnerEmail:     body.OwnerEmail,
		Points:         body.Points,
		IdempotencyKey: string(ctx.Request.Header.Peek("Idempotency-Key")),
	})
	ctx.SetStatusCode(s.status)
}

func (s *ledgerStub) received() []receivedCredit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]receivedCredit(nil), s.requests...)
}

func startLedger(t *testing.T, stub *ledgerStub) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := &fasthttp.Server{Handler: stub.handler}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() {
		_ = server.Shutdown()
		_ = ln.Close()
	})
	return "http://" + ln.Addr().String()
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:        baseURL,
		RequestTimeout: time.Second,
		MaxAttempts:    3,
		BackoffBase:    time.Millisecond,
	}, nil)
}

func TestCreditDeliversWithIdempotencyKey(t *testing.T) {
	stub := &ledgerStub{status: fasthttp.StatusOK}
	client := newTestClient(startLedger(t, stub))

	err := client.Credit(context.Background(), domain.RewardCredit{
		OwnerEmail:     "ada@example.com",
		Points:         50,
		IdempotencyKey: "t1",
	})
	if err != nil {
		t.Fatalf("Credit returned error: %v", err)
	}

	got := stub.received()
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if got[0].IdempotencyKey != "t1" {
		t.Errorf("Idempotency-Key = %q, want t1", got[0].IdempotencyKey)
	}
	if got[0].OwnerEmail != "ada@example.com" || got[0].Points != 50 {
		t.Errorf("payload = %+v, want ada@example.com / 50", got[0])
	}
}

func TestCreditRetriesThenGivesUp(t *testing.T) {
	stub := &ledgerStub{status: fasthttp.StatusInternalServerError}
	client := newTestClient(startLedger(t, stub))

	err := client.Credit(context.Background(), domain.RewardCredit{
		OwnerEmail:     "ada@example.com",
		Points:         10,
		IdempotencyKey: "t1",
	})
	if !domain.IsDomainError(err, domain.ErrCodeUnavailable) {
		t.Fatalf("error = %v, want unavailable", err)
	}

	if got := len(stub.received()); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestCreditRejectsIncompletePayload(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	err := client.Credit(context.Background(), domain.RewardCredit{Points: 10})
	if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("error = %v, want invalid", err)
	}
}

func TestCreditHonorsContextCancellation(t *testing.T) {
	stub := &ledgerStub{status: fasthttp.StatusInternalServerError}
	client := NewClient(Config{
		BaseURL:        startLedger(t, stub),
		RequestTimeout: time.Second,
		MaxAttempts:    5,
		BackoffBase:    time.Hour, // force the retry wait to dominate
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := client.Credit(ctx, domain.RewardCredit{
		OwnerEmail:     "ada@example.com",
		Points:         10,
		IdempotencyKey: "t1",
	})
	if err != context.Canceled {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
