package redisclient

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinichub/scheduling-engine/internal/scheduling"
)

const (
	lockAcquireAttempts = 4
	lockRetryDelay      = 20 * time.Millisecond
)

// lockClient is the slice of the redis client the locker needs.
type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

type practitionerLocker struct {
	client lockClient
	ttl    time.Duration
}

// NewPractitionerLocker creates a locker keyed per practitioner, used to
// serialize calendar writes across service instances before they reach the
// transactional conflict check. A held lock is retried a few times with
// jitter, so writers at non-overlapping times rarely see each other.
func NewPractitionerLocker(client *redis.Client, ttl time.Duration) scheduling.Locker {
	return &practitionerLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *practitionerLocker) WithPractitionerLock(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:practitioner:%s", practitionerID.String())
	token := uuid.NewString()

	for attempt := 1; ; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			// A dead lock backend must not block writes; the DB transaction
			// still serializes conflicting ranges.
			return fn(ctx)
		}
		if ok {
			break
		}
		if attempt == lockAcquireAttempts {
			return scheduling.ErrLockNotAcquired
		}

		delay := lockRetryDelay + time.Duration(rand.Intn(20))*time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *practitionerLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release practitioner lock: %w", err)
	}
	return nil
}
