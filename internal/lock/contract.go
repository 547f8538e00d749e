package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/config"
	"go.uber.org/zap"
)

const keyContractEdit = "milestone:contract:%s:edit"

// ErrContractBusy is returned when another edit of the same contract holds the lock.
var ErrContractBusy = errors.New("contract_busy")

// ContractLock serializes milestone edits per contract. A nil or disabled
// ContractLock runs the callback without locking.
type ContractLock struct {
	locker *Locker
	ttl    time.Duration
	log    *zap.Logger
}

func NewContractLock(cfg config.Config, locker *Locker, log *zap.Logger) *ContractLock {
	ttl := time.Duration(cfg.Redis.LockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ContractLock{
		locker: locker,
		ttl:    ttl,
		log:    log.Named("lock.contract"),
	}
}

func (c *ContractLock) Enabled() bool {
	return c != nil && c.locker != nil
}

// WithContract runs fn while holding the edit lock of contractID.
func (c *ContractLock) WithContract(ctx context.Context, contractID snowflake.ID, fn func(ctx context.Context) error) error {
	if !c.Enabled() {
		return fn(ctx)
	}

	lease, err := c.locker.Acquire(ctx, ContractKey(contractID), c.ttl)
	if errors.Is(err, ErrHeld) {
		return ErrContractBusy
	}
	if err != nil {
		return fmt.Errorf("acquire contract lock: %w", err)
	}
	defer func() {
		// Release with a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			c.log.Warn("failed to release contract lock",
				zap.String("contract_id", contractID.String()),
				zap.Duration("held", lease.Held()),
				zap.Error(err),
			)
		}
	}()

	return fn(ctx)
}

func ContractKey(contractID snowflake.ID) string {
	return fmt.Sprintf(keyContractEdit, contractID.String())
}
