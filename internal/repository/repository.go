package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/generalbusiness/allodakar/internal/models"
)

// Storage is the handle every service gets injected
// InTx runs fn with storage bound to a single db transaction: committed if fn returns nil, rolled back otherwise
type Storage interface {
	User() UserRepo
	Wallet() WalletRepo
	Transaction() TransactionRepo
	Booking() BookingRepo
	Rating() RatingRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Phone          string
	Name           string
	Email          *string
	HashedPassword string
	Role           models.Role
}

type UpdateProfileParams struct {
	Name         *string
	Email        *string
	ProfileImage *string
}

type UserRepo interface {
	// Create user
	// If user with the phone exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id or phone
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (models.User, error)

	// Update only not nil fields
	UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (models.User, error)

	// Lock user row until the end of the transaction
	// Serializes writers of per-user aggregates. If user not found must return apperrors.ErrUserNotFound
	LockUser(ctx context.Context, userID uuid.UUID) error

	// Store recomputed rating aggregate
	SetRating(ctx context.Context, userID uuid.UUID, average decimal.Decimal, count int) error

	// Delete user with everything it owns. Return false if nothing deleted
	DeleteByPhone(ctx context.Context, phone string) (uuid.UUID, bool, error)

	UpsertVehicle(ctx context.Context, info models.VehicleInfo) (models.VehicleInfo, error)
	GetVehicle(ctx context.Context, userID uuid.UUID) (*models.VehicleInfo, error)

	// Drivers with a vehicle having at least minSeats seats
	ListDrivers(ctx context.Context, minSeats int, limit int) ([]models.Driver, error)
}

type WalletRepo interface {
	// Create empty wallet for user
	CreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)

	// Get wallet; forUpdate locks the row until the end of the transaction
	// If wallet not found must return apperrors.ErrWalletNotFound
	GetWallet(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error)

	// Lock wallets in stable order (by user id) to not deadlock with concurrent transfers
	LockWallets(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]models.Wallet, error)

	// Add delta to balance
	// Must not let balance go below zero: return apperrors.ErrBalanceInsufficient instead
	ChangeBalance(ctx context.Context, userID uuid.UUID, delta int64) (models.Wallet, error)

	SetPinHash(ctx context.Context, userID uuid.UUID, pinHash string) error

	// Owners of wallets ordered by id, starting strictly after the given one
	// Pass uuid.Nil to start from the beginning
	ListUserIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type ListTransactionsOpts struct {
	Limit int
}

type TransactionRepo interface {
	// Append transaction to the ledger
	// If idempotency key already used by the user must return apperrors.ErrIdempotencyMismatch wrapped
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)

	// Get transaction previously created with the key
	// If not found must return (zero, false, nil)
	GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (models.Transaction, bool, error)

	// Newest first
	List(ctx context.Context, userID uuid.UUID, opts ListTransactionsOpts) ([]models.Transaction, error)

	// Signed sum of all completed transactions of the user
	CompletedTotal(ctx context.Context, userID uuid.UUID) (int64, error)
}

type CreateBookingParams struct {
	ClientID          uuid.UUID
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

type ListBookingsOpts struct {
	ClientID *uuid.UUID
	DriverID *uuid.UUID
	Statuses []string
	Limit    int

	// Soonest departure first instead of newest first
	ByDeparture bool
}

type BookingRepo interface {
	// Create booking in WAITING status without driver
	Create(ctx context.Context, params CreateBookingParams) (models.Booking, error)

	// If booking not found must return apperrors.ErrBookingNotFound
	Get(ctx context.Context, bookingID uuid.UUID, forUpdate bool) (models.Booking, error)

	List(ctx context.Context, opts ListBookingsOpts) ([]models.Booking, error)

	// Conditional transitions. Each returns (booking, true) if the row was changed
	// and (zero, false, nil) if current status did not allow the change
	Accept(ctx context.Context, bookingID uuid.UUID, driverID uuid.UUID, at time.Time) (models.Booking, bool, error)
	Complete(ctx context.Context, bookingID uuid.UUID, finalPrice *int64, at time.Time) (models.Booking, bool, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, at time.Time) (models.Booking, bool, error)
}

type RatingRepo interface {
	// If rater already rated the booking must return apperrors.ErrRatingExists
	Create(ctx context.Context, r models.Rating) (models.Rating, error)

	ListByRated(ctx context.Context, ratedID uuid.UUID) ([]models.Rating, error)
	ListByRater(ctx context.Context, raterID uuid.UUID) ([]models.Rating, error)

	// Average over all ratings received by user rounded to 2 places and their count
	// Zero count means no ratings
	Aggregate(ctx context.Context, ratedID uuid.UUID) (decimal.Decimal, int, error)
}
