package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/milestone/internal/activity/domain"
	"github.com/smallbiznis/milestone/internal/activity/repository"
	"github.com/smallbiznis/milestone/internal/clock"
	obscontext "github.com/smallbiznis/milestone/internal/observability/context"
	"github.com/smallbiznis/milestone/internal/testutil"
	"github.com/smallbiznis/milestone/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	db := testutil.NewDB(t, &domain.Activity{})
	clk := clock.NewFakeClock(time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: testutil.NewNode(t),
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestRecordValidates(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	err := svc.Record(ctx, domain.RecordRequest{Type: "rename", Category: domain.CategoryPayment})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	err = svc.Record(ctx, domain.RecordRequest{Type: domain.TypeCreate, Category: "invoice"})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestRecordAndListNewestFirst(t *testing.T) {
	svc, clk := setupService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-9")

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, svc.Record(ctx, domain.RecordRequest{
			Type:        domain.TypeCreate,
			Category:    domain.CategoryCustomer,
			TargetName:  name,
			Description: "created " + name,
		}))
		clk.Advance(time.Minute)
	}

	resp, err := svc.List(context.Background(), domain.ListActivityRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Activities, 3)
	assert.Equal(t, "third", resp.Activities[0].TargetName)
	assert.Equal(t, "first", resp.Activities[2].TargetName)
	assert.Equal(t, "req-9", resp.Activities[0].Metadata["request_id"])
	assert.False(t, resp.HasMore)
}

func TestListPaginates(t *testing.T) {
	svc, clk := setupService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(ctx, domain.RecordRequest{
			Type:       domain.TypeUpdate,
			Category:   domain.CategoryPayment,
			TargetName: string(rune('a' + i)),
		}))
		clk.Advance(time.Second)
	}

	first, err := svc.List(ctx, domain.ListActivityRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Activities, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "e", first.Activities[0].TargetName)

	second, err := svc.List(ctx, domain.ListActivityRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Activities, 2)
	assert.Equal(t, "c", second.Activities[0].TargetName)

	_, err = svc.List(ctx, domain.ListActivityRequest{Pagination: pagination.Pagination{PageToken: "not-a-token"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestListFiltersByCategory(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, domain.RecordRequest{Type: domain.TypeCreate, Category: domain.CategoryCustomer, TargetName: "c"}))
	require.NoError(t, svc.Record(ctx, domain.RecordRequest{Type: domain.TypeCreate, Category: domain.CategoryProject, TargetName: "p"}))

	resp, err := svc.List(ctx, domain.ListActivityRequest{Category: "project"})
	require.NoError(t, err)
	require.Len(t, resp.Activities, 1)
	assert.Equal(t, "p", resp.Activities[0].TargetName)

	_, err = svc.List(ctx, domain.ListActivityRequest{Category: "invoice"})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}
