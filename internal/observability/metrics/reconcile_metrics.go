package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	EditOutcomeApplied  = "applied"
	EditOutcomeReverted = "reverted"
	EditOutcomeRejected = "rejected"
	EditOutcomeFailed   = "failed"
)

const (
	JobOutcomeSuccess = "success"
	JobOutcomeTimeout = "timeout"
	JobOutcomeFailed  = "failed"
	JobOutcomeSkipped = "skipped"
)

const (
	EditReasonDeadlineExceeded     = "deadline_exceeded"
	EditReasonDBLockTimeout        = "db_lock_timeout"
	EditReasonSerializationFailure = "serialization_failure"
	EditReasonUniqueViolation      = "unique_violation"
	EditReasonDB                   = "db"
	EditReasonUnknown              = "unknown"
)

// ReconcileMetrics captures milestone edit and worklist health signals.
type ReconcileMetrics struct {
	paymentEdits       *prometheus.CounterVec
	sequenceViolations *prometheus.CounterVec
	editErrors         *prometheus.CounterVec
	editDuration       prometheus.Histogram
	cascadeSize        prometheus.Histogram
	worklistItems      *prometheus.GaugeVec
	worklistUrgent     prometheus.Gauge
	jobRuns            *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
	statusRefreshes    *prometheus.CounterVec
}

var (
	reconcileMetricsOnce sync.Once
	reconcileMetrics     *ReconcileMetrics
)

// Reconcile returns the process-wide reconcile metrics registered on the
// default prometheus registry.
func Reconcile() *ReconcileMetrics {
	return ReconcileWithConfig(Config{})
}

func ReconcileWithConfig(cfg Config) *ReconcileMetrics {
	reconcileMetricsOnce.Do(func() {
		reconcileMetrics = NewReconcileMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcileMetrics
}

// NewReconcileMetrics registers the instruments on registerer.
func NewReconcileMetrics(registerer prometheus.Registerer, cfg Config) *ReconcileMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "milestone"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &ReconcileMetrics{
		paymentEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "milestone_payment_edits_total",
			Help:        "Payment milestone edits by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		sequenceViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "milestone_sequence_violations_total",
			Help:        "Completions rejected because an earlier milestone is still open.",
			ConstLabels: constLabels,
		}, []string{"blocking_item"}),
		editErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "milestone_payment_edit_errors_total",
			Help:        "Payment edits that failed to persist, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		editDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "milestone_payment_edit_duration_seconds",
			Help:        "Latency of the compute-then-persist payment edit unit.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		}),
		cascadeSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "milestone_payment_edit_changed_milestones",
			Help:        "Number of milestones persisted per edit.",
			Buckets:     []float64{1, 2, 3, 5, 8, 13},
			ConstLabels: constLabels,
		}),
		worklistItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "milestone_worklist_items",
			Help:        "Open payments per triage bucket at the last worklist build.",
			ConstLabels: constLabels,
		}, []string{"bucket"}),
		worklistUrgent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "milestone_worklist_urgent_amount",
			Help:        "Sum of urgent payment amounts at the last worklist build.",
			ConstLabels: constLabels,
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "milestone_scheduler_job_runs_total",
			Help:        "Background job runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "milestone_scheduler_job_duration_seconds",
			Help:        "Background job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			ConstLabels: constLabels,
		}, []string{"job"}),
		statusRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "milestone_status_refresh_rows_total",
			Help:        "Rows rewritten because their derived status drifted with the calendar.",
			ConstLabels: constLabels,
		}, []string{"entity"}),
	}

	registerer.MustRegister(
		m.paymentEdits,
		m.sequenceViolations,
		m.editErrors,
		m.editDuration,
		m.cascadeSize,
		m.worklistItems,
		m.worklistUrgent,
		m.jobRuns,
		m.jobDuration,
		m.statusRefreshes,
	)
	return m
}

func (m *ReconcileMetrics) IncPaymentEdit(outcome string) {
	if m == nil {
		return
	}
	m.paymentEdits.WithLabelValues(outcome).Inc()
}

func (m *ReconcileMetrics) IncSequenceViolation(blockingItem string) {
	if m == nil {
		return
	}
	m.paymentEdits.WithLabelValues(EditOutcomeRejected).Inc()
	m.sequenceViolations.WithLabelValues(blockingItem).Inc()
}

func (m *ReconcileMetrics) IncEditError(err error) {
	if m == nil || err == nil {
		return
	}
	m.paymentEdits.WithLabelValues(EditOutcomeFailed).Inc()
	m.editErrors.WithLabelValues(ClassifyEditError(err)).Inc()
}

func (m *ReconcileMetrics) ObserveEdit(duration time.Duration, changed int) {
	if m == nil {
		return
	}
	m.editDuration.Observe(duration.Seconds())
	if changed > 0 {
		m.cascadeSize.Observe(float64(changed))
	}
}

// SetWorklist publishes the bucket sizes of the latest worklist build.
func (m *ReconcileMetrics) SetWorklist(counts map[string]int, urgentAmount int64) {
	if m == nil {
		return
	}
	for bucket, count := range counts {
		m.worklistItems.WithLabelValues(bucket).Set(float64(count))
	}
	m.worklistUrgent.Set(float64(urgentAmount))
}

// ObserveJob records one background job run.
func (m *ReconcileMetrics) ObserveJob(job, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	if outcome != JobOutcomeSkipped {
		m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	}
}

// AddStatusRefresh counts rows whose stored status was brought up to date.
func (m *ReconcileMetrics) AddStatusRefresh(entity string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.statusRefreshes.WithLabelValues(entity).Add(float64(rows))
}

// ClassifyEditError maps persistence errors to low-cardinality reasons.
func ClassifyEditError(err error) string {
	switch {
	case err == nil:
		return EditReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return EditReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return EditReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return EditReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return EditReasonUniqueViolation
	case isDBError(err):
		return EditReasonDB
	default:
		return EditReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrInvalidValue) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
