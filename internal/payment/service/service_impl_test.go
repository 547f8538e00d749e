package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	activityrepo "github.com/smallbiznis/milestone/internal/activity/repository"
	activityservice "github.com/smallbiznis/milestone/internal/activity/service"
	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	contractrepo "github.com/smallbiznis/milestone/internal/contract/repository"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	"github.com/smallbiznis/milestone/internal/payment/domain"
	"github.com/smallbiznis/milestone/internal/payment/repository"
	"github.com/smallbiznis/milestone/internal/reconcile"
	"github.com/smallbiznis/milestone/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	registry *prometheus.Registry
	contract contractdomain.Contract
}

// setup seeds a 1,000,000 sales contract. The fake clock sits on Wednesday
// 2026-03-04.
func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t,
		&contractdomain.Contract{},
		&domain.Payment{},
		&activitydomain.Activity{},
	)
	clk := clock.NewFakeClock(time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	node := testutil.NewNode(t)
	log := zaptest.NewLogger(t)
	registry := prometheus.NewRegistry()

	contract := contractdomain.Contract{
		ID:                node.Generate(),
		Name:              "Phase 1 build",
		ProjectID:         node.Generate(),
		CustomerID:        node.Generate(),
		Category:          contractdomain.CategorySales,
		Type:              contractdomain.TypeDevelopment,
		Amount:            1_000_000,
		Balance:           1_000_000,
		RegisteredBalance: 1_000_000,
		Status:            contractdomain.StatusPreparing,
		CreatedAt:         clk.Now(),
		UpdatedAt:         clk.Now(),
	}
	require.NoError(t, db.Create(&contract).Error)

	activity := activityservice.New(activityservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  activityrepo.Provide(),
	})
	reconcileMetrics := metrics.NewReconcileMetrics(registry, metrics.Config{ServiceName: "milestone", Environment: "test"})

	svc := New(Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         repository.Provide(),
		ContractRepo: contractrepo.Provide(),
		Activity:     activity,
		Reconcile:    reconcileMetrics,
	})
	return &fixture{svc: svc, db: db, clock: clk, registry: registry, contract: contract}
}

func day(offset int) *time.Time {
	d := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

func (f *fixture) create(t *testing.T, item domain.Item, amount int64, scheduled int) domain.Payment {
	t.Helper()
	p, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		ContractID: f.contract.ID.String(),
		PaymentFields: domain.PaymentFields{
			Item:          item,
			Amount:        amount,
			ScheduledDate: day(scheduled),
		},
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) complete(t *testing.T, p domain.Payment, on int) domain.EditResponse {
	t.Helper()
	resp, err := f.svc.Update(context.Background(), domain.UpdatePaymentRequest{
		ID:            p.ID.String(),
		PaymentFields: fieldsOf(p, day(on-1), day(on)),
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) storedContract(t *testing.T) contractdomain.Contract {
	t.Helper()
	var c contractdomain.Contract
	require.NoError(t, f.db.First(&c, "id = ?", f.contract.ID).Error)
	return c
}

func fieldsOf(p domain.Payment, invoice, completion *time.Time) domain.PaymentFields {
	return domain.PaymentFields{
		Item:           p.Item,
		Amount:         p.Amount,
		ScheduledDate:  &p.ScheduledDate,
		InvoiceDate:    invoice,
		CompletionDate: completion,
	}
}

func TestCreateValidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.create(t, domain.ItemDeposit, 300_000, 5)

	tests := []struct {
		name string
		req  domain.CreatePaymentRequest
		want error
	}{
		{
			name: "bad contract id",
			req:  domain.CreatePaymentRequest{ContractID: "x", PaymentFields: domain.PaymentFields{Item: domain.ItemProgress, Amount: 1, ScheduledDate: day(1)}},
			want: domain.ErrInvalidContract,
		},
		{
			name: "unknown contract",
			req:  domain.CreatePaymentRequest{ContractID: "99", PaymentFields: domain.PaymentFields{Item: domain.ItemProgress, Amount: 1, ScheduledDate: day(1)}},
			want: domain.ErrContractNotFound,
		},
		{
			name: "unknown item",
			req:  domain.CreatePaymentRequest{ContractID: f.contract.ID.String(), PaymentFields: domain.PaymentFields{Item: "bonus", Amount: 1, ScheduledDate: day(1)}},
			want: domain.ErrInvalidItem,
		},
		{
			name: "zero amount",
			req:  domain.CreatePaymentRequest{ContractID: f.contract.ID.String(), PaymentFields: domain.PaymentFields{Item: domain.ItemProgress, ScheduledDate: day(1)}},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "missing scheduled date",
			req:  domain.CreatePaymentRequest{ContractID: f.contract.ID.String(), PaymentFields: domain.PaymentFields{Item: domain.ItemProgress, Amount: 1}},
			want: domain.ErrInvalidScheduledDate,
		},
		{
			name: "second deposit",
			req:  domain.CreatePaymentRequest{ContractID: f.contract.ID.String(), PaymentFields: domain.PaymentFields{Item: domain.ItemDeposit, Amount: 1, ScheduledDate: day(1)}},
			want: domain.ErrDuplicateDeposit,
		},
		{
			name: "over registered balance",
			req:  domain.CreatePaymentRequest{ContractID: f.contract.ID.String(), PaymentFields: domain.PaymentFields{Item: domain.ItemProgress, Amount: 700_001, ScheduledDate: day(1)}},
			want: domain.ErrExceedsRegisteredBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateUpdatesContractMetrics(t *testing.T) {
	f := setup(t)

	deposit := f.create(t, domain.ItemDeposit, 300_000, 5)
	assert.Equal(t, domain.StatusScheduled, deposit.Status)
	assert.Equal(t, f.contract.ID, deposit.ContractID)

	c := f.storedContract(t)
	assert.Equal(t, int64(700_000), c.RegisteredBalance)
	assert.Equal(t, int64(1_000_000), c.Balance)
	assert.Equal(t, int64(0), c.AccumulatedPayment)
}

func TestCreateCompletedRespectsSequence(t *testing.T) {
	f := setup(t)
	f.create(t, domain.ItemDeposit, 300_000, -5)

	_, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		ContractID: f.contract.ID.String(),
		PaymentFields: domain.PaymentFields{
			Item:           domain.ItemProgress,
			Amount:         200_000,
			ScheduledDate:  day(-1),
			CompletionDate: day(0),
		},
	})
	var violation *reconcile.SequenceViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, domain.ItemDeposit, violation.Blocking)

	var count int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateRejectsOutOfSequenceCompletion(t *testing.T) {
	f := setup(t)
	f.create(t, domain.ItemDeposit, 300_000, -10)
	progress := f.create(t, domain.ItemProgress, 300_000, -3)

	_, err := f.svc.Update(context.Background(), domain.UpdatePaymentRequest{
		ID:            progress.ID.String(),
		PaymentFields: fieldsOf(progress, nil, day(0)),
	})
	require.ErrorIs(t, err, reconcile.ErrSequenceViolation)

	var violation *reconcile.SequenceViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, domain.ItemDeposit, violation.Blocking)
	assert.Equal(t, domain.ItemProgress, violation.Target)

	got, err := f.svc.GetByID(context.Background(), progress.ID.String())
	require.NoError(t, err)
	assert.Nil(t, got.CompletionDate)
	assert.Equal(t, domain.StatusOverdue, got.Status)

	expected := `
# HELP milestone_sequence_violations_total Completions rejected because an earlier milestone is still open.
# TYPE milestone_sequence_violations_total counter
milestone_sequence_violations_total{blocking_item="deposit",env="test",service="milestone"} 1
`
	assert.NoError(t, promtestutil.GatherAndCompare(f.registry, strings.NewReader(expected), "milestone_sequence_violations_total"))
}

func TestUpdateCompletesInOrder(t *testing.T) {
	f := setup(t)
	deposit := f.create(t, domain.ItemDeposit, 300_000, -10)
	progress := f.create(t, domain.ItemProgress, 300_000, -3)

	resp := f.complete(t, deposit, -8)
	assert.Equal(t, domain.StatusCompleted, resp.Payment.Status)
	assert.False(t, resp.Reverted)

	// Completing through status alone stamps today.
	fields := fieldsOf(progress, nil, nil)
	fields.Status = domain.StatusCompleted
	resp, err := f.svc.Update(context.Background(), domain.UpdatePaymentRequest{ID: progress.ID.String(), PaymentFields: fields})
	require.NoError(t, err)
	require.NotNil(t, resp.Payment.CompletionDate)
	assert.Equal(t, *day(0), *resp.Payment.CompletionDate)

	c := f.storedContract(t)
	assert.Equal(t, int64(600_000), c.AccumulatedPayment)
	assert.Equal(t, int64(400_000), c.Balance)
	assert.Equal(t, int64(400_000), c.RegisteredBalance)
}

func TestUpdateRevertCascades(t *testing.T) {
	f := setup(t)
	deposit := f.create(t, domain.ItemDeposit, 300_000, -20)
	progress := f.create(t, domain.ItemProgress, 300_000, -10)
	final := f.create(t, domain.ItemFinalBalance, 400_000, -2)
	f.complete(t, deposit, -19)
	f.complete(t, progress, -9)
	f.complete(t, final, -1)
	require.Equal(t, contractdomain.StatusClosed, f.storedContract(t).Status)

	resp, err := f.svc.Update(context.Background(), domain.UpdatePaymentRequest{
		ID:            progress.ID.String(),
		PaymentFields: fieldsOf(progress, day(-10), nil),
	})
	require.NoError(t, err)
	assert.True(t, resp.Reverted)
	require.Len(t, resp.Changed, 2)
	assert.Equal(t, progress.ID, resp.Changed[0].ID)
	assert.Equal(t, final.ID, resp.Changed[1].ID)

	list, err := f.svc.ListByContract(context.Background(), f.contract.ID.String())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, domain.StatusCompleted, list[0].Status)
	assert.NotNil(t, list[0].CompletionDate)
	for _, p := range list[1:] {
		assert.Nil(t, p.CompletionDate)
		assert.Nil(t, p.InvoiceDate)
		assert.Equal(t, domain.StatusOverdue, p.Status)
	}

	c := f.storedContract(t)
	assert.Equal(t, int64(300_000), c.AccumulatedPayment)
	assert.Equal(t, int64(700_000), c.Balance)
	assert.Equal(t, contractdomain.StatusPreparing, c.Status)

	expected := `
# HELP milestone_payment_edits_total Payment milestone edits by outcome.
# TYPE milestone_payment_edits_total counter
milestone_payment_edits_total{env="test",outcome="applied",service="milestone"} 3
milestone_payment_edits_total{env="test",outcome="reverted",service="milestone"} 1
`
	assert.NoError(t, promtestutil.GatherAndCompare(f.registry, strings.NewReader(expected), "milestone_payment_edits_total"))
}

func TestUpdateEchoedCompletedStatusStillReverts(t *testing.T) {
	f := setup(t)
	deposit := f.create(t, domain.ItemDeposit, 300_000, -20)
	progress := f.create(t, domain.ItemProgress, 300_000, -10)
	f.complete(t, deposit, -19)
	f.complete(t, progress, -9)

	fields := fieldsOf(progress, day(-10), nil)
	fields.Status = domain.StatusCompleted
	resp, err := f.svc.Update(context.Background(), domain.UpdatePaymentRequest{
		ID:            progress.ID.String(),
		PaymentFields: fields,
	})
	require.NoError(t, err)
	assert.True(t, resp.Reverted)

	stored, err := f.svc.GetByID(context.Background(), progress.ID.String())
	require.NoError(t, err)
	assert.Nil(t, stored.CompletionDate)
	assert.Equal(t, domain.StatusOverdue, stored.Status)
	assert.Equal(t, int64(300_000), f.storedContract(t).AccumulatedPayment)
}

func TestUpdateCapacity(t *testing.T) {
	f := setup(t)
	f.create(t, domain.ItemDeposit, 300_000, 5)
	progress := f.create(t, domain.ItemProgress, 500_000, 10)

	// 200,000 unregistered plus the milestone's own 500,000.
	fields := fieldsOf(progress, nil, nil)
	fields.Amount = 700_001
	_, err := f.svc.Update(context.Background(), domain.UpdatePaymentRequest{ID: progress.ID.String(), PaymentFields: fields})
	assert.ErrorIs(t, err, domain.ErrExceedsRegisteredBalance)

	fields.Amount = 700_000
	resp, err := f.svc.Update(context.Background(), domain.UpdatePaymentRequest{ID: progress.ID.String(), PaymentFields: fields})
	require.NoError(t, err)
	assert.Equal(t, int64(700_000), resp.Payment.Amount)
	assert.Equal(t, int64(0), f.storedContract(t).RegisteredBalance)

	fields.Item = domain.ItemDeposit
	_, err = f.svc.Update(context.Background(), domain.UpdatePaymentRequest{ID: progress.ID.String(), PaymentFields: fields})
	assert.ErrorIs(t, err, domain.ErrDuplicateDeposit)

	_, err = f.svc.Update(context.Background(), domain.UpdatePaymentRequest{ID: snowflake.ID(5).String(), PaymentFields: fields})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteReaggregates(t *testing.T) {
	f := setup(t)
	deposit := f.create(t, domain.ItemDeposit, 300_000, -10)
	progress := f.create(t, domain.ItemProgress, 300_000, -3)
	f.complete(t, deposit, -9)
	f.complete(t, progress, -2)

	// Deletion skips the sequencing guard and leaves later milestones alone.
	require.NoError(t, f.svc.Delete(context.Background(), deposit.ID.String()))

	list, err := f.svc.ListByContract(context.Background(), f.contract.ID.String())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, progress.ID, list[0].ID)
	assert.Equal(t, domain.StatusCompleted, list[0].Status)

	c := f.storedContract(t)
	assert.Equal(t, int64(300_000), c.AccumulatedPayment)
	assert.Equal(t, int64(700_000), c.RegisteredBalance)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), deposit.ID.String()), domain.ErrNotFound)
}

func TestListByContractOrdersMilestones(t *testing.T) {
	f := setup(t)
	final := f.create(t, domain.ItemFinalBalance, 400_000, 3)
	second := f.create(t, domain.ItemProgress, 100_000, 20)
	first := f.create(t, domain.ItemProgress, 100_000, 10)
	deposit := f.create(t, domain.ItemDeposit, 300_000, 30)

	list, err := f.svc.ListByContract(context.Background(), f.contract.ID.String())
	require.NoError(t, err)

	ids := make([]snowflake.ID, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []snowflake.ID{deposit.ID, first.ID, second.ID, final.ID}, ids)

	_, err = f.svc.ListByContract(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidContract)
}
