package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
)

type transfer struct {
	from   uuid.UUID
	to     uuid.UUID
	amount int64

	outDescription string
	inDescription  string

	// Stored on sender side only
	idempotencyKey *string
	bookingID      *uuid.UUID
}

// Debit sender, credit recipient and write both sides of the transfer
// Must be called inside db transaction: any error leaves no trace after rollback
func moveFunds(ctx context.Context, storage repository.Storage, t transfer) (out models.Transaction, in models.Transaction, err error) {
	// Both rows locked in user id order, so transfers in opposite directions can't deadlock
	wallets, err := storage.Wallet().LockWallets(ctx, t.from, t.to)
	if err != nil {
		return out, in, err
	}
	if wallets[t.from].Balance < t.amount {
		return out, in, apperrors.ErrBalanceInsufficient
	}

	if _, err = storage.Wallet().ChangeBalance(ctx, t.from, -t.amount); err != nil {
		return out, in, err
	}
	if _, err = storage.Wallet().ChangeBalance(ctx, t.to, t.amount); err != nil {
		return out, in, err
	}

	outID, inID := uuid.New(), uuid.New()

	out, err = storage.Transaction().Create(ctx, models.Transaction{
		ID:             outID,
		UserID:         t.from,
		Type:           models.TransactionTransferOut,
		Amount:         t.amount,
		Status:         models.TransactionCompleted,
		Description:    t.outDescription,
		CounterpartID:  &t.to,
		RelatedID:      &inID,
		BookingID:      t.bookingID,
		IdempotencyKey: t.idempotencyKey,
	})
	if err != nil {
		return out, in, err
	}

	in, err = storage.Transaction().Create(ctx, models.Transaction{
		ID:            inID,
		UserID:        t.to,
		Type:          models.TransactionTransferIn,
		Amount:        t.amount,
		Status:        models.TransactionCompleted,
		Description:   t.inDescription,
		CounterpartID: &t.from,
		RelatedID:     &outID,
		BookingID:     t.bookingID,
	})
	return out, in, err
}
