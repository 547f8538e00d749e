package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	contractrepo "github.com/smallbiznis/milestone/internal/contract/repository"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/milestone/internal/payment/repository"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	projectrepo "github.com/smallbiznis/milestone/internal/project/repository"
	"github.com/smallbiznis/milestone/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSummaryReadsStoredRows(t *testing.T) {
	db := testutil.NewDB(t, &projectdomain.Project{}, &contractdomain.Contract{}, &paymentdomain.Payment{})
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	projects, contracts, payments := portfolio()
	for i := range projects {
		projects[i].CreatedAt, projects[i].UpdatedAt = now, now
	}
	for i := range contracts {
		contracts[i].Name = "contract"
		contracts[i].Type = contractdomain.TypeOther
		contracts[i].CreatedAt, contracts[i].UpdatedAt = now, now
	}
	for i := range payments {
		payments[i].Status = paymentdomain.StatusScheduled
		payments[i].CreatedAt, payments[i].UpdatedAt = now, now
	}
	require.NoError(t, db.Create(&projects).Error)
	require.NoError(t, db.Create(&contracts).Error)
	require.NoError(t, db.Create(&payments).Error)

	svc := New(Params{
		DB:           db,
		Log:          zaptest.NewLogger(t),
		Clock:        clock.NewFakeClock(now),
		ProjectRepo:  projectrepo.Provide(),
		ContractRepo: contractrepo.Provide(),
		PaymentRepo:  paymentrepo.Provide(),
	})

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), s.Collected)
	assert.Equal(t, 1, s.OverduePayments)
	assert.Equal(t, 2, s.ProjectCount)
	assert.Equal(t, int64(1_000_000), s.Pipeline.Total)
}
