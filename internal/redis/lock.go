package redis

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix     = "imageqa:lock:"
	lockRetryInterval = 50 * time.Millisecond
	minRenewInterval  = 10 * time.Millisecond
)

// only the holder's token may delete the lock
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// only the holder's token may push the expiry forward
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// AcquireLock tries once to take key for ttl and returns the holder token.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if c == nil || c.inner == nil {
		return "", false, errors.New("redis client not initialized")
	}
	token := uuid.NewString()
	ok, err := c.inner.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, errors.Wrap(err, "acquire lock")
	}
	return token, ok, nil
}

// ReleaseLock drops key if token still holds it.
func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	if c == nil || c.inner == nil {
		return errors.New("redis client not initialized")
	}
	if err := releaseScript.Run(ctx, c.inner, []string{lockKeyPrefix + key}, token).Err(); err != nil {
		return errors.Wrap(err, "release lock")
	}
	return nil
}

// ExtendLock resets the expiry of key to ttl if token still holds it.
func (c *Client) ExtendLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if c == nil || c.inner == nil {
		return false, errors.New("redis client not initialized")
	}
	n, err := extendScript.Run(ctx, c.inner, []string{lockKeyPrefix + key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, errors.Wrap(err, "extend lock")
	}
	return n == 1, nil
}

// Locker shares storage key locks between processes writing the same save directory.
type Locker struct {
	client *Client
	ttl    time.Duration
}

func NewLocker(client *Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

// Lock polls until the key is free or ctx ends. While held, the lock is
// renewed every third of its ttl until released.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		token, ok, err := l.client.AcquireLock(ctx, key, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return l.hold(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) hold(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(max(l.ttl/3, minRenewInterval))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				held, err := l.client.ExtendLock(context.Background(), key, token, l.ttl)
				if err == nil && !held {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// the caller's ctx may be done by now
			_ = l.client.ReleaseLock(context.Background(), key, token)
		})
	}
}
