package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
)

type BookingRepo struct {
	DB DBTX
}

const bookingColumns = `id, created_at, client_id, driver_id, booking_type, status,
    pickup_location, pickup_lat, pickup_lng, dropoff_location, dropoff_lat, dropoff_lng,
    departure_time, estimated_duration, seats, recipient_name, recipient_phone, parcel_description, parcel_weight,
    payment_method, estimated_price, final_price, accepted_at, completed_at, cancelled_at`

const createBooking = `-- name: CreateBooking
INSERT INTO bookings (id, client_id, booking_type, status,
    pickup_location, pickup_lat, pickup_lng, dropoff_location, dropoff_lat, dropoff_lng,
    departure_time, estimated_duration, seats, recipient_name, recipient_phone, parcel_description, parcel_weight,
    payment_method, estimated_price)
VALUES ($1, $2, $3, 'WAITING', $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING ` + bookingColumns

func (r *BookingRepo) Create(ctx context.Context, p repository.CreateBookingParams) (models.Booking, error) {
	var weight decimal.NullDecimal
	if p.ParcelWeight != nil {
		weight = decimal.NewNullDecimal(*p.ParcelWeight)
	}

	rows, _ := r.DB.Query(ctx, createBooking,
		uuid.New(), p.ClientID, p.Type,
		p.Pickup.Address, p.Pickup.Lat, p.Pickup.Lng, p.Dropoff.Address, p.Dropoff.Lat, p.Dropoff.Lng,
		p.DepartureTime, p.EstimatedDuration, p.Seats, p.RecipientName, p.RecipientPhone, p.ParcelDescription, weight,
		p.PaymentMethod, p.EstimatedPrice,
	)
	booking, err := pgx.CollectOneRow(rows, rowToBooking)
	if err != nil {
		return booking, fmt.Errorf("db error: %w", err)
	}
	return booking, nil
}

const getBooking = `-- name: GetBooking
SELECT ` + bookingColumns + ` FROM bookings
WHERE id = $1
`

const getBookingForUpdate = getBooking + `FOR UPDATE`

func (r *BookingRepo) Get(ctx context.Context, bookingID uuid.UUID, forUpdate bool) (models.Booking, error) {
	query := getBooking
	if forUpdate {
		query = getBookingForUpdate
	}

	rows, _ := r.DB.Query(ctx, query, bookingID)
	booking, err := pgx.CollectOneRow(rows, rowToBooking)

	switch {
	case err == nil:
		return booking, nil
	case errors.Is(err, pgx.ErrNoRows):
		return booking, apperrors.ErrBookingNotFound
	default:
		return booking, fmt.Errorf("db error: %w", err)
	}
}

// Every filter is optional: NULL parameter matches all rows
const listBookingsWhere = `
WHERE ($1::UUID IS NULL OR client_id = $1)
  AND ($2::UUID IS NULL OR driver_id = $2)
  AND (cardinality($3::TEXT[]) = 0 OR status = ANY($3))
`

const listBookings = `-- name: ListBookings
SELECT ` + bookingColumns + ` FROM bookings` + listBookingsWhere + `ORDER BY created_at DESC, id
LIMIT $4
`

const listBookingsByDeparture = `-- name: ListBookingsByDeparture
SELECT ` + bookingColumns + ` FROM bookings` + listBookingsWhere + `ORDER BY departure_time, id
LIMIT $4
`

func (r *BookingRepo) List(ctx context.Context, opts repository.ListBookingsOpts) ([]models.Booking, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	statuses := opts.Statuses
	if statuses == nil {
		statuses = []string{}
	}

	query := listBookings
	if opts.ByDeparture {
		query = listBookingsByDeparture
	}

	rows, _ := r.DB.Query(ctx, query, opts.ClientID, opts.DriverID, statuses, limit)
	bookings, err := pgx.CollectRows(rows, rowToBooking)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return bookings, nil
}

// Only a waiting booking without driver can be accepted. Concurrent accepts race on this row, one wins
const acceptBooking = `-- name: AcceptBooking
UPDATE bookings
SET status = 'ACCEPTED', driver_id = $2, accepted_at = $3
WHERE id = $1 AND status = 'WAITING' AND driver_id IS NULL
RETURNING ` + bookingColumns

func (r *BookingRepo) Accept(ctx context.Context, bookingID uuid.UUID, driverID uuid.UUID, at time.Time) (models.Booking, bool, error) {
	rows, _ := r.DB.Query(ctx, acceptBooking, bookingID, driverID, at)
	return collectTransition(rows)
}

const completeBooking = `-- name: CompleteBooking
UPDATE bookings
SET status = 'COMPLETED', final_price = COALESCE($2, estimated_price), completed_at = $3
WHERE id = $1 AND status = 'ACCEPTED'
RETURNING ` + bookingColumns

func (r *BookingRepo) Complete(ctx context.Context, bookingID uuid.UUID, finalPrice *int64, at time.Time) (models.Booking, bool, error) {
	rows, _ := r.DB.Query(ctx, completeBooking, bookingID, finalPrice, at)
	return collectTransition(rows)
}

const cancelBooking = `-- name: CancelBooking
UPDATE bookings
SET status = 'CANCELLED', cancelled_at = $2
WHERE id = $1 AND status IN ('WAITING', 'ACCEPTED')
RETURNING ` + bookingColumns

func (r *BookingRepo) Cancel(ctx context.Context, bookingID uuid.UUID, at time.Time) (models.Booking, bool, error) {
	rows, _ := r.DB.Query(ctx, cancelBooking, bookingID, at)
	return collectTransition(rows)
}

func collectTransition(rows pgx.Rows) (models.Booking, bool, error) {
	booking, err := pgx.CollectOneRow(rows, rowToBooking)

	switch {
	case err == nil:
		return booking, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return booking, false, nil
	default:
		return booking, false, fmt.Errorf("db error: %w", err)
	}
}

func rowToBooking(row pgx.CollectableRow) (models.Booking, error) {
	var (
		b      models.Booking
		weight decimal.NullDecimal
	)
	err := row.Scan(
		&b.ID, &b.CreatedAt, &b.ClientID, &b.DriverID, &b.Type, &b.Status,
		&b.Pickup.Address, &b.Pickup.Lat, &b.Pickup.Lng, &b.Dropoff.Address, &b.Dropoff.Lat, &b.Dropoff.Lng,
		&b.DepartureTime, &b.EstimatedDuration, &b.Seats, &b.RecipientName, &b.RecipientPhone, &b.ParcelDescription, &weight,
		&b.PaymentMethod, &b.EstimatedPrice, &b.FinalPrice, &b.AcceptedAt, &b.CompletedAt, &b.CancelledAt,
	)
	if weight.Valid {
		b.ParcelWeight = &weight.Decimal
	}
	return b, err
}
