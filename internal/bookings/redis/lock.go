package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes booking confirmations. Stripe redelivers webhook events,
// and a redelivery racing the first delivery must not decrement inventory
// twice; the SETNX lock makes the second delivery wait its turn so the
// idempotency check in the service sees the committed state.
type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

// getConfirmLockDuration returns the lock TTL, overridable via environment
// variable. The TTL bounds how long a crashed confirmation can block
// redeliveries for the same booking.
func (r *Redis) getConfirmLockDuration() time.Duration {
	defaultDuration := 30 * time.Second

	ttlStr := os.Getenv("CONFIRM_LOCK_TTL_SECONDS")
	if ttlStr == "" {
		return defaultDuration
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil || ttlSec <= 0 {
		return defaultDuration
	}
	return time.Duration(ttlSec) * time.Second
}

// LockConfirm claims the confirmation lock for a booking. Returns false when
// another confirmation for the same booking is in flight.
func (r *Redis) LockConfirm(ctx context.Context, bookingID string) (bool, error) {
	key := "confirm_lock:" + bookingID
	return r.Client.SetNX(ctx, key, "1", r.getConfirmLockDuration()).Result()
}

// UnlockConfirm releases the confirmation lock.
func (r *Redis) UnlockConfirm(ctx context.Context, bookingID string) error {
	key := fmt.Sprintf("confirm_lock:%s", bookingID)
	_, err := r.Client.Del(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	return err
}
