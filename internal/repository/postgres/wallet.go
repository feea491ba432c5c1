package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
)

type WalletRepo struct {
	DB DBTX
}

const walletColumns = `user_id, balance, pin_hash, updated_at`

const createWallet = `-- name: CreateWallet
INSERT INTO wallets (user_id)
VALUES ($1)
RETURNING ` + walletColumns

func (r *WalletRepo) CreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, createWallet, userID)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)
	if err != nil {
		return wallet, fmt.Errorf("db error: %w", err)
	}
	return wallet, nil
}

const getWallet = `-- name: GetWallet
SELECT ` + walletColumns + ` FROM wallets
WHERE user_id = $1
`

const getWalletForUpdate = getWallet + `FOR UPDATE`

func (r *WalletRepo) GetWallet(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error) {
	query := getWallet
	if forUpdate {
		query = getWalletForUpdate
	}

	rows, _ := r.DB.Query(ctx, query, userID)
	return collectWallet(rows)
}

const lockWallets = `-- name: LockWallets
SELECT ` + walletColumns + ` FROM wallets
WHERE user_id = ANY($1)
ORDER BY user_id
FOR UPDATE
`

func (r *WalletRepo) LockWallets(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, lockWallets, userIDs)
	wallets, err := pgx.CollectRows(rows, rowToWallet)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	locked := make(map[uuid.UUID]models.Wallet, len(wallets))
	for _, w := range wallets {
		locked[w.UserID] = w
	}

	for _, id := range userIDs {
		if _, ok := locked[id]; !ok {
			return nil, apperrors.ErrWalletNotFound
		}
	}

	return locked, nil
}

// Balance never goes negative: the update matches no row if it would
const changeBalance = `-- name: ChangeBalance
UPDATE wallets
SET balance = balance + $2, updated_at = now()
WHERE user_id = $1 AND balance + $2 >= 0
RETURNING ` + walletColumns

func (r *WalletRepo) ChangeBalance(ctx context.Context, userID uuid.UUID, delta int64) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, changeBalance, userID, delta)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either wallet is missing or there is not enough money. Tell which one
		if _, getErr := r.GetWallet(ctx, userID, false); getErr != nil {
			return wallet, getErr
		}
		return wallet, apperrors.ErrBalanceInsufficient
	case isOutOfRange(err):
		return wallet, apperrors.ErrAmountTooLarge
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const setPinHash = `-- name: SetPinHash
UPDATE wallets
SET pin_hash = $2, updated_at = now()
WHERE user_id = $1
`

func (r *WalletRepo) SetPinHash(ctx context.Context, userID uuid.UUID, pinHash string) error {
	tag, err := r.DB.Exec(ctx, setPinHash, userID, pinHash)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrWalletNotFound
	default:
		return nil
	}
}

func collectWallet(rows pgx.Rows) (models.Wallet, error) {
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.UserID, &w.Balance, &w.PinHash, &w.UpdatedAt)
	return w, err
}

const listWalletUserIDs = `-- name: ListWalletUserIDs
SELECT user_id FROM wallets
WHERE user_id > $1
ORDER BY user_id
LIMIT $2
`

func (r *WalletRepo) ListUserIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, _ := r.DB.Query(ctx, listWalletUserIDs, after, limit)
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}
