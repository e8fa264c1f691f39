package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when releasing a lock that expired or was taken over.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the key only if it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held lease on a key.
type Lock struct {
	Key   string
	Token string
}

// LockStore hands out short-lived locks backed by SET NX.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// TripLockKey is the lock guarding lifecycle changes of a trip.
func TripLockKey(tripID string) string {
	return "lock:trip:" + tripID
}

// DriverLockKey is the lock guarding a driver taking on a trip.
func DriverLockKey(driverID string) string {
	return "lock:driver:" + driverID
}

// Acquire attempts to take the lock. A nil Lock with a nil error means it is held elsewhere.
func (s *LockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return &Lock{Key: key, Token: token}, nil
}

// Release gives the lock back if the caller still owns it.
func (s *LockStore) Release(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}

	n, err := releaseScript.Run(ctx, s.client, []string{lock.Key}, lock.Token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
