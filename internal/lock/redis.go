package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/usher2/u2dumpsync/internal/logger"
)

const (
	releaseTimeout   = 5 * time.Second
	renewTimeout     = 5 * time.Second
	minRenewInterval = time.Second
	renewFraction    = 3
)

var (
	holderCounter atomic.Uint64

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)
)

// Redis - lock shared by every instance using the same key.
// The key expires after ttl so a crashed holder does not block forever,
// a live holder extends it every ttl/3.
type Redis struct {
	client     redis.UniversalClient
	key        string
	ttl        time.Duration
	renewEvery time.Duration
}

// NewRedis - lock on key.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: key, ttl: ttl, renewEvery: renewInterval(ttl)}
}

// NewRedisURL - lock on key with a client built from a redis:// URL.
func NewRedisURL(url, key string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return NewRedis(redis.NewClient(opts), key, ttl), nil
}

func (r *Redis) Acquire(ctx context.Context) (context.Context, func(), error) {
	if r.ttl <= 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidTTL, r.ttl)
	}

	value := holderID()

	ok, err := r.client.SetNX(ctx, r.key, value, r.ttl).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("setnx %s: %w", r.key, err)
	}

	if !ok {
		return nil, nil, ErrLocked
	}

	held, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		r.renewLoop(held, cancel, value, stop)
	}()

	var once sync.Once

	release := func() {
		once.Do(func() {
			close(stop)
			<-done
			cancel(nil)

			rctx, rcancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer rcancel()

			_, err := releaseScript.Run(rctx, r.client, []string{r.key}, value).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				logger.Warning.Printf("Lock %s: release failed: %s\n", r.key, err)
			}
		})
	}

	return held, release, nil
}

func (r *Redis) renewLoop(ctx context.Context, lost context.CancelCauseFunc, value string, stop <-chan struct{}) {
	ticker := time.NewTicker(r.renewEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.renew(ctx, value); err != nil {
				logger.Warning.Printf("Lock %s: %s\n", r.key, err)
				lost(err)

				return
			}
		}
	}
}

func (r *Redis) renew(ctx context.Context, value string) error {
	ctx, cancel := context.WithTimeout(ctx, renewTimeout)
	defer cancel()

	res, err := renewScript.Run(ctx, r.client, []string{r.key}, value, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: renew: %w", ErrLockLost, err)
	}

	if res == 0 {
		return ErrLockLost
	}

	return nil
}

// Close - close the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func renewInterval(ttl time.Duration) time.Duration {
	return max(ttl/renewFraction, minRenewInterval)
}

func holderID() string {
	host, _ := os.Hostname()

	return fmt.Sprintf("%s-%d-%d-%d", host, os.Getpid(), time.Now().UnixNano(), holderCounter.Add(1))
}
