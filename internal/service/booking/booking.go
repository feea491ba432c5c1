package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/metrics"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
)

const (
	listLimit     = 50
	openListLimit = 100
)

// Pays completed booking with wallet money inside the caller's db transaction
type Settler interface {
	SettleInTx(ctx context.Context, storage repository.Storage, booking models.Booking, amount int64) error
}

type CreateParams struct {
	Type              string
	Pickup            models.Location
	Dropoff           models.Location
	DepartureTime     time.Time
	EstimatedDuration *int
	Seats             int
	RecipientName     *string
	RecipientPhone    *string
	ParcelDescription *string
	ParcelWeight      *decimal.Decimal
	PaymentMethod     string
	EstimatedPrice    int64
}

type BookingService struct {
	storage repository.Storage
	settler Settler
	logger  logger.Logger

	now func() time.Time
}

func NewService(storage repository.Storage, settler Settler, l logger.Logger) *BookingService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &BookingService{
		storage: storage,
		settler: settler,
		logger:  l.With("component", "booking"),
		now:     time.Now,
	}
}

// Create booking in WAITING status. Only clients book
func (s *BookingService) Create(ctx context.Context, session models.Session, p CreateParams) (models.Booking, error) {
	if err := requireRole(session, models.RoleClient); err != nil {
		return models.Booking{}, err
	}
	if err := normalize(&p); err != nil {
		return models.Booking{}, err
	}

	b, err := s.storage.Booking().Create(ctx, repository.CreateBookingParams{
		ClientID:          session.UserID,
		Type:              p.Type,
		Pickup:            p.Pickup,
		Dropoff:           p.Dropoff,
		DepartureTime:     p.DepartureTime,
		EstimatedDuration: p.EstimatedDuration,
		Seats:             p.Seats,
		RecipientName:     p.RecipientName,
		RecipientPhone:    p.RecipientPhone,
		ParcelDescription: p.ParcelDescription,
		ParcelWeight:      p.ParcelWeight,
		PaymentMethod:     p.PaymentMethod,
		EstimatedPrice:    p.EstimatedPrice,
	})
	if err != nil {
		return b, fmt.Errorf("can't create booking. Err: %w", err)
	}

	metrics.RecordBookingTransition(b.Type, b.Status)
	s.logger.Info("booking created", "booking_id", b.ID, "client_id", b.ClientID, "type", b.Type)
	return b, nil
}

// First driver to accept wins, every other gets ErrBookingAlreadyAccepted.
// Cancelled booking can't be accepted at all
func (s *BookingService) Accept(ctx context.Context, session models.Session, bookingID uuid.UUID) (models.Booking, error) {
	if err := requireRole(session, models.RoleDriver); err != nil {
		return models.Booking{}, err
	}

	b, changed, err := s.storage.Booking().Accept(ctx, bookingID, session.UserID, s.now())
	if err != nil {
		return b, err
	}
	if !changed {
		// Tell missing or cancelled booking from lost race
		current, err := s.storage.Booking().Get(ctx, bookingID, false)
		if err != nil {
			return models.Booking{}, err
		}
		if current.Status == models.BookingCancelled {
			return models.Booking{}, apperrors.ErrBookingTransition
		}
		return models.Booking{}, apperrors.ErrBookingAlreadyAccepted
	}

	metrics.RecordBookingTransition(b.Type, b.Status)
	s.logger.Info("booking accepted", "booking_id", b.ID, "driver_id", session.UserID)
	return b, nil
}

// Complete accepted booking
// finalPrice defaults to the estimate; wallet bookings are paid within the same db transaction
func (s *BookingService) Complete(ctx context.Context, session models.Session, bookingID uuid.UUID, finalPrice *int64) (models.Booking, error) {
	if finalPrice != nil && *finalPrice < 0 {
		return models.Booking{}, fmt.Errorf("final price can't be negative: %w", apperrors.ErrBookingInvalid)
	}

	var (
		b       models.Booking
		changed bool
	)
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		current, err := storage.Booking().Get(ctx, bookingID, true)
		if err != nil {
			return err
		}
		if !current.IsParty(session.UserID) {
			return apperrors.ErrNotBookingParty
		}

		switch current.Status {
		case models.BookingCompleted:
			b = current
			return nil
		case models.BookingWaiting, models.BookingCancelled:
			return fmt.Errorf("can't complete %s booking: %w", strings.ToLower(current.Status), apperrors.ErrBookingTransition)
		}

		b, changed, err = storage.Booking().Complete(ctx, bookingID, finalPrice, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return apperrors.ErrBookingTransition
		}

		if b.PaymentMethod == models.PaymentWallet && b.FinalPrice != nil && *b.FinalPrice > 0 {
			if s.settler == nil {
				return errors.New("wallet settlement is not configured")
			}
			return s.settler.SettleInTx(ctx, storage, b, *b.FinalPrice)
		}
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}

	if changed {
		metrics.RecordBookingTransition(b.Type, b.Status)
		s.logger.Info("booking completed", "booking_id", b.ID, "final_price", *b.FinalPrice, "payment_method", b.PaymentMethod)
	}
	return b, nil
}

// Cancel not yet completed booking
func (s *BookingService) Cancel(ctx context.Context, session models.Session, bookingID uuid.UUID) (models.Booking, error) {
	var (
		b       models.Booking
		changed bool
	)
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		current, err := storage.Booking().Get(ctx, bookingID, true)
		if err != nil {
			return err
		}
		if !current.IsParty(session.UserID) {
			return apperrors.ErrNotBookingParty
		}

		switch current.Status {
		case models.BookingCancelled:
			b = current
			return nil
		case models.BookingCompleted:
			return fmt.Errorf("can't cancel completed booking: %w", apperrors.ErrBookingTransition)
		}

		b, changed, err = storage.Booking().Cancel(ctx, bookingID, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return apperrors.ErrBookingTransition
		}
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}

	if changed {
		metrics.RecordBookingTransition(b.Type, b.Status)
		s.logger.Info("booking cancelled", "booking_id", b.ID, "by", session.UserID)
	}
	return b, nil
}

// Booking as seen by one of its parties
// Drivers may look at any waiting booking before accepting it
func (s *BookingService) Get(ctx context.Context, session models.Session, bookingID uuid.UUID) (models.Booking, error) {
	b, err := s.storage.Booking().Get(ctx, bookingID, false)
	if err != nil {
		return b, err
	}

	if b.IsParty(session.UserID) {
		return b, nil
	}
	if session.Role == models.RoleDriver && b.Status == models.BookingWaiting {
		return b, nil
	}
	return models.Booking{}, apperrors.ErrNotBookingParty
}

// Client sees bookings it made, driver sees bookings it accepted
func (s *BookingService) List(ctx context.Context, session models.Session) ([]models.Booking, error) {
	opts := repository.ListBookingsOpts{Limit: listLimit}

	switch session.Role {
	case models.RoleClient:
		opts.ClientID = &session.UserID
	case models.RoleDriver:
		opts.DriverID = &session.UserID
	default:
		return nil, fmt.Errorf("unknown role %q: %w", session.Role, apperrors.ErrRoleNotAllowed)
	}

	return s.storage.Booking().List(ctx, opts)
}

// Waiting bookings a driver may accept, soonest departure first
func (s *BookingService) ListOpen(ctx context.Context, session models.Session) ([]models.Booking, error) {
	if err := requireRole(session, models.RoleDriver); err != nil {
		return nil, err
	}

	return s.storage.Booking().List(ctx, repository.ListBookingsOpts{
		Statuses:    []string{models.BookingWaiting},
		Limit:       openListLimit,
		ByDeparture: true,
	})
}

func requireRole(session models.Session, want models.Role) error {
	switch session.Role {
	case models.RoleClient, models.RoleDriver:
		if session.Role != want {
			return fmt.Errorf("%s can't do this, only %s: %w", strings.ToLower(string(session.Role)), strings.ToLower(string(want)), apperrors.ErrRoleNotAllowed)
		}
		return nil
	default:
		return fmt.Errorf("unknown role %q: %w", session.Role, apperrors.ErrRoleNotAllowed)
	}
}
