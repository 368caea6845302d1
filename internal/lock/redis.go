package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog"
)

const retryInterval = 25 * time.Millisecond

// Redis layers a redislock lease over a Local lock so that several server
// instances sharing one database still serialize per table.
type Redis struct {
	local  *Local
	client *redislock.Client
	ttl    time.Duration
	prefix string
	log    zerolog.Logger
}

// NewRedis builds a distributed locker. ttl bounds how long a crashed holder
// can block a table.
func NewRedis(rdb redislock.RedisClient, ttl time.Duration, log zerolog.Logger) *Redis {
	return &Redis{
		local:  NewLocal(),
		client: redislock.New(rdb),
		ttl:    ttl,
		prefix: "parlor:lock:table:",
		log:    log.With().Str("component", "lock").Logger(),
	}
}

// Lock takes the in-process lock first, then the Redis lease. If ctx has no
// deadline, waiting for the lease is bounded by the ttl.
func (r *Redis) Lock(ctx context.Context, tableID int64) (func(), error) {
	unlockLocal, err := r.local.Lock(ctx, tableID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s%d", r.prefix, tableID)
	lease, err := r.client.Obtain(ctx, key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		unlockLocal()
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	} else if err != nil {
		unlockLocal()
		return nil, fmt.Errorf("obtain %s: %w", key, err)
	}

	return func() {
		// Release on a fresh context: the caller's may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.log.Warn().Err(err).Str("key", key).Msg("failed to release redis lock")
		}
		unlockLocal()
	}, nil
}
