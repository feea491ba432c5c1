package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
)

type TransactionRepo struct {
	DB DBTX
}

const defaultListLimit = 50

const transactionColumns = `id, created_at, user_id, type, amount, status, description, method, counterpart_id, related_id, booking_id, idempotency_key`

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, user_id, type, amount, status, description, method, counterpart_id, related_id, booking_id, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + transactionColumns

func (r *TransactionRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createTransaction,
		t.ID, t.UserID, t.Type, t.Amount, t.Status, t.Description, t.Method, t.CounterpartID, t.RelatedID, t.BookingID, t.IdempotencyKey,
	)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return created, nil
	case isUniqueViolation(err, "transactions_user_id_idempotency_key_key"):
		return created, fmt.Errorf("%w: %w", apperrors.ErrIdempotencyMismatch, err)
	default:
		return created, fmt.Errorf("db error: %w", err)
	}
}

const getByIdempotencyKey = `-- name: GetByIdempotencyKey
SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = $1 AND idempotency_key = $2
`

func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (models.Transaction, bool, error) {
	rows, _ := r.DB.Query(ctx, getByIdempotencyKey, userID, key)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, false, nil
	default:
		return t, false, fmt.Errorf("db error: %w", err)
	}
}

const listTransactions = `-- name: ListTransactions
SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id
LIMIT $2
`

func (r *TransactionRepo) List(ctx context.Context, userID uuid.UUID, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, _ := r.DB.Query(ctx, listTransactions, userID, limit)
	ts, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ts, nil
}

const completedTotal = `-- name: CompletedTotal
SELECT COALESCE(SUM(
    CASE WHEN type IN ('DEPOSIT', 'TRANSFER_IN') THEN amount ELSE -amount END
), 0)::BIGINT
FROM transactions
WHERE user_id = $1 AND status = 'COMPLETED'
`

func (r *TransactionRepo) CompletedTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.DB.QueryRow(ctx, completedTotal, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Description,
		&t.Method, &t.CounterpartID, &t.RelatedID, &t.BookingID, &t.IdempotencyKey,
	)
	return t, err
}
