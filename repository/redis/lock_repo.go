package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/repository"
)

type settlementLock struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewSettlementLock creates a Redis-backed per-task lock. The TTL bounds how
// long a crashed holder can block other coordinators.
func NewSettlementLock(client *redislib.Client, ttl time.Duration) repository.TaskLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &settlementLock{
		client: client,
		prefix: "settle:",
		ttl:    ttl,
	}
}

func (l *settlementLock) Acquire(ctx context.Context, taskID string) (func(), error) {
	if taskID == "" {
		return nil, domain.ErrInvalidPayload
	}

	key := l.key(taskID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	release := func() {
		// Compare-and-delete so an expired lease taken over by another
		// holder is never released by us.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = releaseScript.Run(ctx, l.client, []string{key}, token).Result()
	}
	return release, nil
}

var releaseScript = redislib.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *settlementLock) key(taskID string) string {
	return fmt.Sprintf("%s%s", l.prefix, taskID)
}
