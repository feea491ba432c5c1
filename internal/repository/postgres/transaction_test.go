package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
	"github.com/generalbusiness/allodakar/internal/testutil"
)

func Test_TransactionRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create and list newest first", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := TransactionRepo{DB: tx}
			user := createTestUser(t, tx, models.RoleClient)

			first, err := r.Create(t.Context(), models.Transaction{
				UserID: user.ID, Type: models.TransactionDeposit, Amount: 1000, Status: models.TransactionCompleted, Description: "first",
			})
			require.NoError(t, err)
			_, err = tx.Exec(t.Context(), "UPDATE transactions SET created_at = created_at - interval '1 minute' WHERE id = $1", first.ID)
			require.NoError(t, err)

			second, err := r.Create(t.Context(), models.Transaction{
				UserID: user.ID, Type: models.TransactionWithdraw, Amount: 300, Status: models.TransactionCompleted, Description: "second",
			})
			require.NoError(t, err)

			list, err := r.List(t.Context(), user.ID, repository.ListTransactionsOpts{})
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, second.ID, list[0].ID)
			assert.Equal(t, first.ID, list[1].ID)

			limited, err := r.List(t.Context(), user.ID, repository.ListTransactionsOpts{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	})

	t.Run("completed total ignores pending", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := TransactionRepo{DB: tx}
			user := createTestUser(t, tx, models.RoleClient)

			total, err := r.CompletedTotal(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(0), total)

			for _, tr := range []models.Transaction{
				{UserID: user.ID, Type: models.TransactionDeposit, Amount: 1000, Status: models.TransactionCompleted},
				{UserID: user.ID, Type: models.TransactionTransferIn, Amount: 500, Status: models.TransactionCompleted},
				{UserID: user.ID, Type: models.TransactionTransferOut, Amount: 200, Status: models.TransactionCompleted},
				{UserID: user.ID, Type: models.TransactionWithdraw, Amount: 100, Status: models.TransactionCompleted},
				{UserID: user.ID, Type: models.TransactionDeposit, Amount: 9999, Status: models.TransactionPending},
			} {
				_, err := r.Create(t.Context(), tr)
				require.NoError(t, err)
			}

			total, err = r.CompletedTotal(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1200), total)
		})
	})

	t.Run("idempotency key", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := TransactionRepo{DB: tx}
			user := createTestUser(t, tx, models.RoleClient)
			other := createTestUser(t, tx, models.RoleClient)
			key := "deposit-1"

			_, found, err := r.GetByIdempotencyKey(t.Context(), user.ID, key)
			require.NoError(t, err)
			assert.False(t, found)

			created, err := r.Create(t.Context(), models.Transaction{
				UserID: user.ID, Type: models.TransactionDeposit, Amount: 1000, Status: models.TransactionCompleted, IdempotencyKey: &key,
			})
			require.NoError(t, err)

			got, found, err := r.GetByIdempotencyKey(t.Context(), user.ID, key)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, created, got)

			// Same key of another user is fine
			_, err = r.Create(t.Context(), models.Transaction{
				UserID: other.ID, Type: models.TransactionDeposit, Amount: 1000, Status: models.TransactionCompleted, IdempotencyKey: &key,
			})
			require.NoError(t, err)

			_, err = r.Create(t.Context(), models.Transaction{
				UserID: user.ID, Type: models.TransactionDeposit, Amount: 1000, Status: models.TransactionCompleted, IdempotencyKey: &key,
			})
			require.ErrorIs(t, err, apperrors.ErrIdempotencyMismatch)
		})
	})
}
