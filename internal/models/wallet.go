package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionDeposit     = "DEPOSIT"
	TransactionWithdraw    = "WITHDRAW"
	TransactionTransferIn  = "TRANSFER_IN"
	TransactionTransferOut = "TRANSFER_OUT"

	TransactionPending   = "PENDING"
	TransactionCompleted = "COMPLETED"
)

type Wallet struct {
	UserID    uuid.UUID
	Balance   int64
	PinHash   *string
	UpdatedAt time.Time
}

func (w Wallet) HasPin() bool {
	return w.PinHash != nil && *w.PinHash != ""
}

// Ledger entry. Created once and never changed
type Transaction struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	UserID         uuid.UUID
	Type           string
	Amount         int64
	Status         string
	Description    string
	Method         *string
	CounterpartID  *uuid.UUID // other user of transfer
	RelatedID      *uuid.UUID // paired transfer transaction
	BookingID      *uuid.UUID // booking paid with wallet
	IdempotencyKey *string
}

// Signed effect of the transaction on the wallet balance
func (t Transaction) Signed() int64 {
	if t.Status != TransactionCompleted {
		return 0
	}

	switch t.Type {
	case TransactionDeposit, TransactionTransferIn:
		return t.Amount
	case TransactionWithdraw, TransactionTransferOut:
		return -t.Amount
	default:
		return 0
	}
}

// Result of comparing wallet balance with its ledger
type Reconciliation struct {
	UserID      uuid.UUID
	Balance     int64
	LedgerTotal int64
}

func (r Reconciliation) Consistent() bool {
	return r.Balance == r.LedgerTotal
}
