package lock

import (
	"context"
	"time"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey = "mongo-index-creator:lock"
	DefaultTTL = 10 * time.Minute
)

// ErrLocked is returned when another run holds the lock
var ErrLocked = errors.New("another index run is in progress")

// Release frees a held lock
type Release func(ctx context.Context) error

// Locker prevents concurrent runs against the same databases
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// NopLocker always grants the lock
type NopLocker struct{}

func (NopLocker) Acquire(context.Context) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

// RedisClient is the subset of the redis client the locker needs
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// Deletes the key only when it still holds our token, so an expired lock taken over
// by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single instance redis lock with expiration
type RedisLocker struct {
	client RedisClient
	key    string
	ttl    time.Duration
}

func NewRedisLocker(client RedisClient, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisLocker{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Errorf("failed to acquire lock %s: %v", l.key, err)
	}

	if !acquired {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return errors.Errorf("failed to release lock %s: %v", l.key, err)
		}
		return nil
	}, nil
}

// WithLock runs fn while holding the lock
func WithLock(ctx context.Context, locker Locker, fn func(ctx context.Context) error) (err error) {
	if locker == nil {
		locker = NopLocker{}
	}

	release, err := locker.Acquire(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	return fn(ctx)
}
