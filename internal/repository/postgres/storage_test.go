package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
	"github.com/generalbusiness/allodakar/internal/testutil"
)

func Test_StorageInTx(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("commit on success", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)
			user := createTestUser(t, tx, models.RoleClient)

			err := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.Wallet().ChangeBalance(t.Context(), user.ID, 700)
				return err
			})
			require.NoError(t, err)

			w, err := s.Wallet().GetWallet(t.Context(), user.ID, false)
			require.NoError(t, err)
			assert.Equal(t, int64(700), w.Balance)
		})
	})

	t.Run("rollback on error", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)
			user := createTestUser(t, tx, models.RoleClient)
			boom := errors.New("boom")

			err := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.Wallet().ChangeBalance(t.Context(), user.ID, 700)
				require.NoError(t, err)
				return boom
			})
			require.ErrorIs(t, err, boom)

			w, err := s.Wallet().GetWallet(t.Context(), user.ID, false)
			require.NoError(t, err)
			assert.Equal(t, int64(0), w.Balance, "change must be rolled back")
		})
	})

	t.Run("rollback after db error keeps outer tx usable", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)
			user := createTestUser(t, tx, models.RoleClient)

			err := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.User().CreateUser(t.Context(), repository.CreateUserParams{
					Phone: user.Phone, Name: "dup", HashedPassword: "x", Role: models.RoleClient,
				})
				return err
			})
			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)

			_, err = s.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err, "savepoint rollback must keep outer transaction alive")
		})
	})
}
