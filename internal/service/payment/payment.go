package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
)

// External mobile money provider
type Gateway interface {
	// Take money from user outside of the app. Called before wallet is credited
	Collect(ctx context.Context, userID uuid.UUID, amount int64, method string) error

	// Send money to user outside of the app. Called after wallet is debited
	Payout(ctx context.Context, userID uuid.UUID, amount int64, method string) error
}

// Check method is one of mobile money providers
// Wallet is not a method to fund the wallet itself
func ValidateMethod(method string) error {
	switch method {
	case models.PaymentWave, models.PaymentOM, models.PaymentYass:
		return nil
	default:
		return fmt.Errorf("method %q: %w", method, apperrors.ErrPaymentMethod)
	}
}

// Gateway that approves everything immediately
// No real provider integrated yet
type Stub struct {
	logger logger.Logger
}

func NewStub(l logger.Logger) *Stub {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &Stub{logger: l.With("component", "payment_stub")}
}

func (s *Stub) Collect(_ context.Context, userID uuid.UUID, amount int64, method string) error {
	if err := ValidateMethod(method); err != nil {
		return err
	}
	s.logger.Info("payment collected", "user_id", userID, "amount", amount, "method", method)
	return nil
}

func (s *Stub) Payout(_ context.Context, userID uuid.UUID, amount int64, method string) error {
	if err := ValidateMethod(method); err != nil {
		return err
	}
	s.logger.Info("payout sent", "user_id", userID, "amount", amount, "method", method)
	return nil
}
