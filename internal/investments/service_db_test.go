package investments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/jewellery-tracker/internal/database"
	"gitlab.com/yelinaung/jewellery-tracker/internal/filestore"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
	"gitlab.com/yelinaung/jewellery-tracker/internal/repository"
)

func TestService_CreateWithPostgres(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	store, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := NewService(repository.NewInvestmentRepository(tx), PgxTx(tx), store)
	ctx := context.Background()

	first, second := uuid.NewString(), uuid.NewString()
	for _, id := range []string{first, second} {
		_, err := store.SaveWorking(ctx, id, "invoice.jpg", "image/jpeg", []byte(id))
		require.NoError(t, err)
	}
	amount := Number{decimal.NewNullDecimal(decimal.NewFromInt(152340))}

	inv, err := svc.Create(ctx, Input{BillID: first, Category: models.CategoryGoldJewellery, Name: "First chain", TotalAmount: amount})
	require.NoError(t, err)
	require.NotNil(t, inv.FilePath)
	require.FileExists(t, *inv.FilePath)

	_, err = svc.Create(ctx, Input{BillID: second, Category: models.CategoryGoldJewellery, Name: "Second chain", TotalAmount: amount})
	require.ErrorIs(t, err, filestore.ErrConflict)

	var n int
	require.NoError(t, tx.QueryRow(ctx, `SELECT COUNT(*) FROM investments WHERE name = 'Second chain'`).Scan(&n))
	require.Zero(t, n, "conflicting confirmation must not leave a row")

	got, found, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, first, *got.BillID)
}
