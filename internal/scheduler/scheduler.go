package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/lock"
	obsmetrics "github.com/smallbiznis/milestone/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	worklistdomain "github.com/smallbiznis/milestone/internal/worklist/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	jobRefreshStatuses = "refresh_statuses"
	jobPublishWorklist = "publish_worklist"

	keyJobLock = "milestone:scheduler:%s"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	PaymentRepo  paymentdomain.Repository
	ContractRepo contractdomain.Repository
	Worklist     worklistdomain.Service       `optional:"true"`
	ContractLock *lock.ContractLock           `optional:"true"`
	Locker       *lock.Locker                 `optional:"true"`
	Reconcile    *obsmetrics.ReconcileMetrics `optional:"true"`
	Config       Config                       `optional:"true"`
}

// Scheduler keeps stored statuses in step with the calendar. Payment and
// contract statuses depend on today's date, so rows go stale overnight even
// when nobody edits them.
type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	paymentRepo  paymentdomain.Repository
	contractRepo contractdomain.Repository
	worklist     worklistdomain.Service
	contractLock *lock.ContractLock
	locker       *lock.Locker
	metrics      *obsmetrics.ReconcileMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.PaymentRepo == nil || p.ContractRepo == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		paymentRepo:  p.PaymentRepo,
		contractRepo: p.ContractRepo,
		worklist:     p.Worklist,
		contractLock: p.ContractLock,
		locker:       p.Locker,
		metrics:      p.Reconcile,
	}, nil
}

// runJob runs fn under timeout. With redis configured only one replica runs a
// given job at a time; the others skip it. A timeout is logged, not returned.
func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	log := s.log.With(zap.String("job", name))

	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, fmt.Sprintf(keyJobLock, name), timeout)
		if errors.Is(err, lock.ErrHeld) {
			log.Debug("job held by another instance")
			s.metrics.ObserveJob(name, obsmetrics.JobOutcomeSkipped, 0)
			return nil
		}
		if err != nil {
			s.metrics.ObserveJob(name, obsmetrics.JobOutcomeFailed, time.Since(start))
			return fmt.Errorf("%s: acquire lock: %w", name, err)
		}
		defer func() {
			if err := lease.Release(context.Background()); err != nil {
				log.Warn("release job lock failed", zap.Error(err))
			}
		}()
	}

	err := fn(ctx)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		s.metrics.ObserveJob(name, obsmetrics.JobOutcomeSuccess, elapsed)
		log.Debug("job finished", zap.Duration("duration", elapsed))
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.metrics.ObserveJob(name, obsmetrics.JobOutcomeTimeout, elapsed)
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	default:
		s.metrics.ObserveJob(name, obsmetrics.JobOutcomeFailed, elapsed)
		return fmt.Errorf("%s: %w", name, err)
	}
}

// RunOnce refreshes drifted statuses and then republishes the worklist gauges.
func (s *Scheduler) RunOnce(parent context.Context) error {
	err := s.runJob(parent, jobRefreshStatuses, s.cfg.JobTimeout, s.RefreshStatusesJob)
	if s.worklist != nil {
		err = errors.Join(err, s.runJob(parent, jobPublishWorklist, s.cfg.JobTimeout, func(ctx context.Context) error {
			_, err := s.worklist.Build(ctx, worklistdomain.WorklistRequest{})
			return err
		}))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
