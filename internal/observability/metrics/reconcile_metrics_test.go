package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyEditError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: EditReasonUnknown},
		{name: "deadline", err: context.DeadlineExceeded, want: EditReasonDeadlineExceeded},
		{name: "lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: EditReasonDBLockTimeout},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: EditReasonSerializationFailure},
		{name: "unique", err: gorm.ErrDuplicatedKey, want: EditReasonUniqueViolation},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: EditReasonDB},
		{name: "invalid_txn", err: gorm.ErrInvalidTransaction, want: EditReasonDB},
		{name: "unknown", err: errors.New("boom"), want: EditReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyEditError(tc.err))
		})
	}
}

func TestReconcileMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewReconcileMetrics(registry, Config{ServiceName: "milestone", Environment: "test"})

	m.IncPaymentEdit(EditOutcomeApplied)
	m.IncSequenceViolation("progress")
	m.IncSequenceViolation("progress")
	m.IncEditError(gorm.ErrDuplicatedKey)
	m.ObserveEdit(10*time.Millisecond, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentEdits.WithLabelValues(EditOutcomeApplied)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.paymentEdits.WithLabelValues(EditOutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentEdits.WithLabelValues(EditOutcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sequenceViolations.WithLabelValues("progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.editErrors.WithLabelValues(EditReasonUniqueViolation)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.editDuration))
}

func TestReconcileMetricsWorklist(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewReconcileMetrics(registry, Config{})

	m.SetWorklist(map[string]int{"urgent": 2, "important": 1, "upcoming": 0}, 750_000)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.worklistItems.WithLabelValues("urgent")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.worklistItems.WithLabelValues("upcoming")))
	assert.Equal(t, 750_000.0, testutil.ToFloat64(m.worklistUrgent))
}

func TestNilReconcileMetricsIsSafe(t *testing.T) {
	var m *ReconcileMetrics
	m.IncPaymentEdit(EditOutcomeApplied)
	m.IncSequenceViolation("deposit")
	m.IncEditError(errors.New("boom"))
	m.ObserveEdit(time.Second, 1)
	m.SetWorklist(map[string]int{"urgent": 1}, 1)
}
