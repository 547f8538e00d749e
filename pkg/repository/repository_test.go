package repository

import (
	"context"
	"testing"

	"github.com/smallbiznis/milestone/internal/testutil"
	"github.com/smallbiznis/milestone/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID    int64 `gorm:"primaryKey"`
	Kind  string
	Price int64
}

func newStore(t *testing.T) (*gorm.DB, Repository[widget]) {
	t.Helper()
	db := testutil.NewDB(t, &widget{})
	return db, ProvideStore[widget](db)
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	_, repo := newStore(t)

	require.NoError(t, repo.BatchCreate(ctx, []*widget{
		{ID: 1, Kind: "a", Price: 10},
		{ID: 2, Kind: "a", Price: 20},
		{ID: 3, Kind: "b", Price: 30},
	}))

	items, err := repo.Find(ctx, &widget{Kind: "a"}, option.WithSortBy(option.WithQuerySortBy("price", "desc", map[string]bool{"price": true})))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)

	missing, err := repo.FindOne(ctx, &widget{Kind: "z"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	got, err := repo.FindOne(ctx, &widget{ID: 3})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Kind)

	require.NoError(t, repo.Delete(ctx, "1"))
	count, err := repo.Count(ctx, &widget{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStoreDeleteAllInTransaction(t *testing.T) {
	ctx := context.Background()
	db, repo := newStore(t)
	require.NoError(t, repo.Create(ctx, &widget{ID: 1, Kind: "a"}))

	err := db.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTrx(tx)
		if err := txRepo.DeleteAll(ctx); err != nil {
			return err
		}
		return txRepo.Create(ctx, &widget{ID: 9, Kind: "b"})
	})
	require.NoError(t, err)

	items, err := repo.Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(9), items[0].ID)
}
