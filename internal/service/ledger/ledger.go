package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/metrics"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
	"github.com/generalbusiness/allodakar/internal/service/auth"
	"github.com/generalbusiness/allodakar/internal/service/payment"
	"github.com/generalbusiness/allodakar/internal/service/validate"
)

const (
	defaultHistoryLimit  = 50
	maxHistoryLimit      = 200
	maxIdempotencyKeyLen = 100

	// Single operation limit in XOF
	MaxAmount int64 = 1_000_000_000_000
)

// Operation names as seen in metrics
const (
	opDeposit    = "deposit"
	opWithdraw   = "withdraw"
	opTransfer   = "transfer"
	opSettlement = "settlement"
)

// Wallets and their append-only transactions log
// Every balance change is written together with its transaction in one db transaction
type LedgerService struct {
	storage repository.Storage
	hasher  auth.PasswordHasher
	gateway payment.Gateway
	logger  logger.Logger
}

func NewService(storage repository.Storage, hasher auth.PasswordHasher, gateway payment.Gateway, l logger.Logger) *LedgerService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	if gateway == nil {
		gateway = payment.NewStub(l)
	}

	return &LedgerService{
		storage: storage,
		hasher:  hasher,
		gateway: gateway,
		logger:  l.With("component", "ledger"),
	}
}

func (s *LedgerService) Balance(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	return s.storage.Wallet().GetWallet(ctx, userID, false)
}

// Credit wallet right away: the gateway confirms collection synchronously
func (s *LedgerService) Deposit(ctx context.Context, userID uuid.UUID, amount int64, method string, idemKey string) (models.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}
	if err := payment.ValidateMethod(method); err != nil {
		return models.Transaction{}, err
	}

	request := models.Transaction{
		UserID:      userID,
		Type:        models.TransactionDeposit,
		Amount:      amount,
		Status:      models.TransactionCompleted,
		Description: "Deposit via " + method,
		Method:      &method,
	}

	t, replayed, err := s.idempotent(ctx, idemKey, request, func(storage repository.Storage, key *string) (models.Transaction, error) {
		if _, err := storage.Wallet().ChangeBalance(ctx, userID, amount); err != nil {
			return models.Transaction{}, err
		}
		request.IdempotencyKey = key
		return storage.Transaction().Create(ctx, request)
	}, func() error {
		return s.gateway.Collect(ctx, userID, amount, method)
	})
	s.record(opDeposit, amount, replayed, err)
	if err != nil {
		return t, fmt.Errorf("deposit failed: %w", err)
	}

	if !replayed {
		s.logger.Info("deposit completed", "user_id", userID, "amount", amount, "method", method, "transaction_id", t.ID)
	}
	return t, nil
}

// Debit wallet if it has enough money and pay out after commit
func (s *LedgerService) Withdraw(ctx context.Context, userID uuid.UUID, amount int64, method string, idemKey string) (models.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}
	if err := payment.ValidateMethod(method); err != nil {
		return models.Transaction{}, err
	}

	request := models.Transaction{
		UserID:      userID,
		Type:        models.TransactionWithdraw,
		Amount:      amount,
		Status:      models.TransactionCompleted,
		Description: "Withdrawal via " + method,
		Method:      &method,
	}

	t, replayed, err := s.idempotent(ctx, idemKey, request, func(storage repository.Storage, key *string) (models.Transaction, error) {
		if _, err := storage.Wallet().ChangeBalance(ctx, userID, -amount); err != nil {
			return models.Transaction{}, err
		}
		request.IdempotencyKey = key
		return storage.Transaction().Create(ctx, request)
	}, nil)
	s.record(opWithdraw, amount, replayed, err)
	if err != nil {
		return t, fmt.Errorf("withdraw failed: %w", err)
	}
	if replayed {
		return t, nil
	}

	// Money already left the wallet, the record stays even if provider fails
	if err := s.gateway.Payout(ctx, userID, amount, method); err != nil {
		s.logger.Error("payout failed", "user_id", userID, "transaction_id", t.ID, "error", err)
	}

	s.logger.Info("withdraw completed", "user_id", userID, "amount", amount, "method", method, "transaction_id", t.ID)
	return t, nil
}

// Move money between two wallets. Returns sender side of the transfer
func (s *LedgerService) Transfer(ctx context.Context, from uuid.UUID, to uuid.UUID, amount int64, idemKey string) (models.Transaction, error) {
	if from == to {
		return models.Transaction{}, apperrors.ErrSelfTransfer
	}
	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}
	if _, err := s.storage.User().GetUserByID(ctx, to); err != nil {
		return models.Transaction{}, fmt.Errorf("recipient: %w", err)
	}

	request := models.Transaction{
		UserID:        from,
		Type:          models.TransactionTransferOut,
		Amount:        amount,
		Status:        models.TransactionCompleted,
		CounterpartID: &to,
	}

	t, replayed, err := s.idempotent(ctx, idemKey, request, func(storage repository.Storage, key *string) (models.Transaction, error) {
		out, _, err := moveFunds(ctx, storage, transfer{
			from:           from,
			to:             to,
			amount:         amount,
			outDescription: "Transfer sent",
			inDescription:  "Transfer received",
			idempotencyKey: key,
		})
		return out, err
	}, nil)
	s.record(opTransfer, amount, replayed, err)
	if err != nil {
		return t, fmt.Errorf("transfer failed: %w", err)
	}

	if !replayed {
		s.logger.Info("transfer completed", "from", from, "to", to, "amount", amount, "transaction_id", t.ID)
	}
	return t, nil
}

// Pay completed booking from client wallet to driver wallet
// Runs in storage given by caller, so it commits or rolls back together with the booking change
func (s *LedgerService) SettleInTx(ctx context.Context, storage repository.Storage, booking models.Booking, amount int64) error {
	if booking.DriverID == nil {
		return fmt.Errorf("booking has no driver to pay: %w", apperrors.ErrBookingInvalid)
	}
	if amount == 0 {
		return nil
	}

	bookingID := booking.ID
	_, _, err := moveFunds(ctx, storage, transfer{
		from:           booking.ClientID,
		to:             *booking.DriverID,
		amount:         amount,
		outDescription: "Booking payment",
		inDescription:  "Booking earnings",
		bookingID:      &bookingID,
	})
	s.record(opSettlement, amount, false, err)
	if err != nil {
		return fmt.Errorf("booking settlement failed: %w", err)
	}

	s.logger.Info("booking settled", "booking_id", booking.ID, "amount", amount)
	return nil
}

func (s *LedgerService) SetPin(ctx context.Context, userID uuid.UUID, pin string) error {
	if err := validate.Pin(pin); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrPinFormat, err.Error())
	}

	hash, err := s.hasher.Hash(pin)
	if err != nil {
		return fmt.Errorf("can't hash pin. Err: %w", err)
	}

	if err := s.storage.Wallet().SetPinHash(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Info("wallet pin set", "user_id", userID)
	return nil
}

func (s *LedgerService) VerifyPin(ctx context.Context, userID uuid.UUID, pin string) error {
	wallet, err := s.storage.Wallet().GetWallet(ctx, userID, false)
	if err != nil {
		return err
	}
	if !wallet.HasPin() {
		return apperrors.ErrPinNotSet
	}

	if err := s.hasher.Compare(*wallet.PinHash, pin); err != nil {
		return apperrors.ErrPinInvalid
	}
	return nil
}

// Check pin only if wallet is protected with one
func (s *LedgerService) AuthorizeDebit(ctx context.Context, userID uuid.UUID, pin string) error {
	wallet, err := s.storage.Wallet().GetWallet(ctx, userID, false)
	if err != nil {
		return err
	}
	if !wallet.HasPin() {
		return nil
	}
	if pin == "" {
		return apperrors.ErrPinInvalid
	}

	if err := s.hasher.Compare(*wallet.PinHash, pin); err != nil {
		return apperrors.ErrPinInvalid
	}
	return nil
}

// Latest transactions, newest first
func (s *LedgerService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	return s.storage.Transaction().List(ctx, userID, repository.ListTransactionsOpts{Limit: limit})
}

// Compare stored balance with the sum of completed transactions
func (s *LedgerService) Reconcile(ctx context.Context, userID uuid.UUID) (models.Reconciliation, error) {
	var r models.Reconciliation

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		// Row lock keeps balance and log from moving between the two reads
		wallet, err := storage.Wallet().GetWallet(ctx, userID, true)
		if err != nil {
			return err
		}

		total, err := storage.Transaction().CompletedTotal(ctx, userID)
		if err != nil {
			return err
		}

		r = models.Reconciliation{UserID: userID, Balance: wallet.Balance, LedgerTotal: total}
		return nil
	})
	if err != nil {
		return r, err
	}

	if !r.Consistent() {
		s.logger.Error("wallet balance does not match ledger", "user_id", userID, "balance", r.Balance, "ledger_total", r.LedgerTotal)
	}
	return r, nil
}

// Replay safe execution of a money movement
// If key was used already the original transaction is returned and nothing is executed again
// before runs outside of db transaction only when the operation is executed for real
func (s *LedgerService) idempotent(
	ctx context.Context,
	idemKey string,
	request models.Transaction,
	run func(storage repository.Storage, key *string) (models.Transaction, error),
	before func() error,
) (models.Transaction, bool, error) {
	if len(idemKey) > maxIdempotencyKeyLen {
		return models.Transaction{}, false, apperrors.ErrIdempotencyKey
	}

	var key *string
	if idemKey != "" {
		key = &idemKey

		prev, found, err := s.storage.Transaction().GetByIdempotencyKey(ctx, request.UserID, idemKey)
		if err != nil {
			return prev, false, err
		}
		if found {
			return replay(prev, request)
		}
	}

	if before != nil {
		if err := before(); err != nil {
			return models.Transaction{}, false, err
		}
	}

	var t models.Transaction
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		t, err = run(storage, key)
		return err
	})

	// Concurrent request with the same key won the insert: return what it recorded
	if key != nil && errors.Is(err, apperrors.ErrIdempotencyMismatch) {
		prev, found, getErr := s.storage.Transaction().GetByIdempotencyKey(ctx, request.UserID, idemKey)
		if getErr != nil {
			return prev, false, getErr
		}
		if found {
			return replay(prev, request)
		}
	}

	return t, false, err
}

func replay(prev models.Transaction, request models.Transaction) (models.Transaction, bool, error) {
	same := prev.Type == request.Type &&
		prev.Amount == request.Amount &&
		sameUUID(prev.CounterpartID, request.CounterpartID)
	if !same {
		return models.Transaction{}, false, apperrors.ErrIdempotencyMismatch
	}
	return prev, true, nil
}

func (s *LedgerService) record(op string, amount int64, replayed bool, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case replayed:
		outcome = metrics.OutcomeReplayed
	case err != nil && apperrors.KindOf(err) == apperrors.KindInternal:
		outcome = metrics.OutcomeFailed
	case err != nil:
		outcome = metrics.OutcomeRejected
	}
	metrics.RecordLedgerOperation(op, outcome, amount)
}

func checkAmount(amount int64) error {
	switch {
	case amount <= 0:
		return apperrors.ErrAmountInvalid
	case amount > MaxAmount:
		return apperrors.ErrAmountTooLarge
	default:
		return nil
	}
}

func sameUUID(a, b *uuid.UUID) bool {
	switch {
	case a == nil || b == nil:
		return a == nil && b == nil
	default:
		return *a == *b
	}
}
