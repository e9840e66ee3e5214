package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "lock held by another owner")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return 0
`)

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	retryCount       int
	watchdogInterval time.Duration
}

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetry(count int, delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryCount, c.retryDelay = count, delay }
}

// WithWatchdog keeps extending a held lock every interval until Unlock.
func WithWatchdog(interval time.Duration) LockOption {
	return func(c *lockConfig) { c.watchdogInterval = interval }
}

// DistributedLock is a single-owner SET NX lock identified by a random
// token, so only the holder can release or extend it.
type DistributedLock struct {
	client *Client
	key    string
	token  string
	config lockConfig
	logger logging.Logger

	mu      sync.Mutex
	stopDog context.CancelFunc
	dogDone chan struct{}
}

func NewDistributedLock(client *Client, name string, log logging.Logger, opts ...LockOption) *DistributedLock {
	if log == nil {
		log = logging.NewNopLogger()
	}
	cfg := lockConfig{ttl: 30 * time.Second, retryDelay: 100 * time.Millisecond, retryCount: 30}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &DistributedLock{
		client: client,
		key:    client.Key("lock", name),
		token:  uuid.NewString(),
		config: cfg,
		logger: log.Named("lock").With(logging.String("lock", name)),
	}
}

// TryLock makes one acquisition attempt.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.token, l.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed")
	}
	if ok {
		l.startWatchdog()
	}
	return ok, nil
}

// Lock retries TryLock until it succeeds, the retries run out or ctx ends.
func (l *DistributedLock) Lock(ctx context.Context) error {
	for i := 0; i < l.config.retryCount; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.config.retryDelay):
		}
	}
	return ErrLockNotAcquired
}

// Unlock releases the lock if this owner still holds it.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	l.stopWatchdog()
	n, err := unlockScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend resets the expiry if this owner still holds the lock.
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, l.client.rdb, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock extend failed")
	}
	return n == 1, nil
}

func (l *DistributedLock) startWatchdog() {
	if l.config.watchdogInterval <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopDog != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.stopDog = cancel
	l.dogDone = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(l.config.watchdogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := l.Extend(ctx, l.config.ttl)
				if err != nil || !ok {
					l.logger.Warn("lock watchdog stopped", logging.Bool("held", ok))
					return
				}
			}
		}
	}(l.dogDone)
}

func (l *DistributedLock) stopWatchdog() {
	l.mu.Lock()
	cancel, done := l.stopDog, l.dogDone
	l.stopDog, l.dogDone = nil, nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

//Personal.AI order the ending
