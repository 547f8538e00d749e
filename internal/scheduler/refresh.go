package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/lock"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	"github.com/smallbiznis/milestone/internal/reconcile"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type refreshStats struct {
	payments  int
	contracts int
	busy      int
}

// RefreshStatusesJob persists statuses that changed only because the date
// moved on, such as a scheduled payment turning overdue. Contracts held by an
// edit are left for the next run.
func (s *Scheduler) RefreshStatusesJob(ctx context.Context) error {
	today := clock.Today(s.clock)

	payments, err := s.paymentRepo.ListAll(ctx, s.db)
	if err != nil {
		return err
	}
	contracts, err := s.contractRepo.List(ctx, s.db, contractdomain.ListContractFilter{})
	if err != nil {
		return err
	}
	grouped := reconcile.GroupByContract(payments)

	var stats refreshStats
	var errs error
	for _, c := range contracts {
		if c == nil || !drifted(*c, grouped[c.ID], today) {
			continue
		}
		id := c.ID
		err := s.contractLock.WithContract(ctx, id, func(ctx context.Context) error {
			return s.refreshContract(ctx, id, today, &stats)
		})
		switch {
		case errors.Is(err, lock.ErrContractBusy):
			stats.busy++
		case err != nil:
			errs = errors.Join(errs, err)
		}
		if ctx.Err() != nil {
			return errors.Join(errs, ctx.Err())
		}
	}

	s.metrics.AddStatusRefresh("payment", stats.payments)
	s.metrics.AddStatusRefresh("contract", stats.contracts)
	if stats.payments > 0 || stats.contracts > 0 || stats.busy > 0 {
		s.log.Info("statuses refreshed",
			zap.Int("payments", stats.payments),
			zap.Int("contracts", stats.contracts),
			zap.Int("busy", stats.busy),
		)
	}
	return errs
}

// refreshContract reloads one contract inside a transaction so a concurrent
// edit that finished before the lock was taken is not overwritten.
func (s *Scheduler) refreshContract(ctx context.Context, id snowflake.ID, today time.Time, stats *refreshStats) error {
	now := s.clock.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := s.contractRepo.FindByID(ctx, tx, id)
		if err != nil || contract == nil {
			return err
		}
		payments, err := s.paymentRepo.ListByContract(ctx, tx, id)
		if err != nil {
			return err
		}

		for i := range payments {
			status := reconcile.PaymentStatus(payments[i], today)
			if status == payments[i].Status {
				continue
			}
			payments[i].Status = status
			payments[i].UpdatedAt = now
			if err := s.paymentRepo.Update(ctx, tx, &payments[i]); err != nil {
				return err
			}
			stats.payments++
		}

		next := reconcile.Recompute(*contract, payments, today)
		if !metricsDiffer(*contract, next) {
			return nil
		}
		next.UpdatedAt = now
		if err := s.contractRepo.UpdateMetrics(ctx, tx, &next); err != nil {
			return err
		}
		stats.contracts++
		return nil
	})
}

func drifted(c contractdomain.Contract, payments []paymentdomain.Payment, today time.Time) bool {
	for _, p := range payments {
		if reconcile.PaymentStatus(p, today) != p.Status {
			return true
		}
	}
	return metricsDiffer(c, reconcile.Recompute(c, payments, today))
}

func metricsDiffer(a, b contractdomain.Contract) bool {
	return a.Status != b.Status ||
		a.AccumulatedPayment != b.AccumulatedPayment ||
		a.Balance != b.Balance ||
		a.RegisteredBalance != b.RegisteredBalance
}
