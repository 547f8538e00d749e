package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseIfOwner deletes KEYS[1] only while it still holds the caller's token,
// so an expired lease never frees a key someone else took over.
var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var (
	ErrLockNotConfigured = errors.New("lock client not configured")
	ErrEmptyKey          = errors.New("lock key is empty")
	ErrInvalidTTL        = errors.New("lock ttl must be positive")

	// ErrHeld is returned by Acquire when another holder owns the key.
	ErrHeld = errors.New("lock held")
)

// Locker hands out single-holder leases on redis keys.
type Locker struct {
	client *redis.Client
}

// NewLocker returns nil for a nil client; a nil Locker reports
// ErrLockNotConfigured from Acquire.
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// Lease is one successful acquisition. It expires on its own after its ttl.
type Lease struct {
	Key        string
	token      string
	client     *redis.Client
	acquiredAt time.Time
}

// Acquire takes key for ttl or returns ErrHeld.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLockNotConfigured
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lease{Key: key, token: token, client: l.client, acquiredAt: time.Now()}, nil
}

// Held reports how long the lease has been held.
func (l *Lease) Held() time.Duration {
	if l == nil {
		return 0
	}
	return time.Since(l.acquiredAt)
}

// Release frees the key if this lease still owns it. Releasing a nil lease
// is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	return releaseIfOwner.Run(ctx, l.client, []string{l.Key}, l.token).Err()
}
