// Package testutil starts disposable postgres instances and seeds data for tests
package testutil

import (
	"context"
	"net"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/generalbusiness/allodakar/internal/db"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
)

const defaultPostgresImage = "postgres:17-alpine"

// Every table in dependency-free order for TRUNCATE ... CASCADE
const allTables = "ratings, bookings, transactions, wallets, vehicles, users"

// Return random free port on 127.0.0.1 address
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	return ln.Addr().(*net.TCPAddr).Port, nil
}

type PostgresContainer struct {
	DSN       string
	Pool      *pgxpool.Pool
	Terminate func()
}

// Start migrated postgres in docker
// Test is skipped when docker is not reachable and fails on any other startup error
// POSTGRES_IMAGE overrides the image
func StartPostgresContainer(t *testing.T) PostgresContainer {
	t.Helper()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	image := os.Getenv("POSTGRES_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}

	container, err := postgres.Run(t.Context(),
		image,
		postgres.WithDatabase("allodakar-test"),
		postgres.WithUsername("allodakar"),
		postgres.WithPassword("pwd"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "postgres container did not start")

	dsn, err := container.ConnectionString(t.Context(), "sslmode=disable")
	require.NoError(t, err, "no connection string for postgres container")
	t.Logf("postgres started, DSN=%v", dsn)

	pool, err := db.ConnectAndMigrate(t.Context(), dsn)
	require.NoError(t, err, "postgres schema migration failed")

	return PostgresContainer{
		DSN:  dsn,
		Pool: pool,
		Terminate: func() {
			pool.Close()
			testcontainers.CleanupContainer(t, container)
		},
	}
}

type beginner interface {
	Begin(context.Context) (pgx.Tx, error)
}

// Run testFunc inside a transaction rolled back at the end
// Nested calls on a pgx.Tx become savepoints
func WithTx(conn beginner, t *testing.T, testFunc func(tx pgx.Tx)) {
	tx, err := conn.Begin(t.Context())
	require.NoError(t, err)

	defer func() {
		require.NoError(t, tx.Rollback(t.Context()))
	}()

	testFunc(tx)
}

// Wipe every table
// For concurrent scenarios that need separate connections and so commit for real
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(t.Context(), "TRUNCATE "+allTables+" CASCADE")
	require.NoError(t, err, "truncate failed")
}

// Registered user with an empty wallet and a unique phone
func CreateUser(t *testing.T, storage repository.Storage, role models.Role) models.User {
	t.Helper()

	var user models.User
	err := storage.InTx(t.Context(), func(storage repository.Storage) error {
		var err error
		user, err = storage.User().CreateUser(t.Context(), repository.CreateUserParams{
			Phone:          "77" + uuid.NewString()[:7],
			Name:           "Test " + string(role),
			HashedPassword: "hashed",
			Role:           role,
		})
		if err != nil {
			return err
		}
		_, err = storage.Wallet().CreateWallet(t.Context(), user.ID)
		return err
	})
	require.NoError(t, err, "user not created")

	return user
}
