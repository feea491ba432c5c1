package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, phone, name, email, password_hash, role, profile_image, average_rating, rating_count`

const createUser = `-- name: CreateUser
INSERT INTO users (id, phone, name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), params.Phone, params.Name, params.Email, params.HashedPassword, string(params.Role))
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case isUniqueViolation(err, "users_phone_key"):
		return user, apperrors.ErrUserAlreadyExists
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByID = `-- name: getUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByPhone = `-- name: getUserByPhone
SELECT ` + userColumns + ` FROM users
WHERE phone = $1
`

func (r *UserRepo) GetUserByPhone(ctx context.Context, phone string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByPhone, phone)
	return collectUser(rows)
}

const updateProfile = `-- name: UpdateProfile
UPDATE users
SET name = COALESCE($2, name),
    email = COALESCE($3, email),
    profile_image = COALESCE($4, profile_image)
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params repository.UpdateProfileParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateProfile, userID, params.Name, params.Email, params.ProfileImage)
	return collectUser(rows)
}

const lockUser = `-- name: LockUser
SELECT id FROM users
WHERE id = $1
FOR UPDATE
`

func (r *UserRepo) LockUser(ctx context.Context, userID uuid.UUID) error {
	rows, _ := r.DB.Query(ctx, lockUser, userID)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrUserNotFound
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	default:
		return nil
	}
}

const setRating = `-- name: SetRating
UPDATE users
SET average_rating = $2, rating_count = $3
WHERE id = $1
`

func (r *UserRepo) SetRating(ctx context.Context, userID uuid.UUID, average decimal.Decimal, count int) error {
	tag, err := r.DB.Exec(ctx, setRating, userID, average, count)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

const deleteByPhone = `-- name: DeleteByPhone
DELETE FROM users
WHERE phone = $1
RETURNING id
`

func (r *UserRepo) DeleteByPhone(ctx context.Context, phone string) (uuid.UUID, bool, error) {
	rows, _ := r.DB.Query(ctx, deleteByPhone, phone)
	id, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return id, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return uuid.Nil, false, nil
	default:
		return uuid.Nil, false, fmt.Errorf("db error: %w", err)
	}
}

const vehicleColumns = `user_id, license_plate, brand, model, color, seats, insurance_expiry, registration_expiry, updated_at`

const upsertVehicle = `-- name: UpsertVehicle
INSERT INTO vehicles (user_id, license_plate, brand, model, color, seats, insurance_expiry, registration_expiry, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (user_id) DO UPDATE
SET license_plate = EXCLUDED.license_plate,
    brand = EXCLUDED.brand,
    model = EXCLUDED.model,
    color = EXCLUDED.color,
    seats = EXCLUDED.seats,
    insurance_expiry = EXCLUDED.insurance_expiry,
    registration_expiry = EXCLUDED.registration_expiry,
    updated_at = EXCLUDED.updated_at
RETURNING ` + vehicleColumns

func (r *UserRepo) UpsertVehicle(ctx context.Context, v models.VehicleInfo) (models.VehicleInfo, error) {
	rows, _ := r.DB.Query(ctx, upsertVehicle,
		v.UserID, v.LicensePlate, v.Brand, v.Model, v.Color, v.Seats, v.InsuranceExpiry, v.RegistrationExpiry,
	)
	vehicle, err := pgx.CollectOneRow(rows, rowToVehicle)
	if err != nil {
		return vehicle, fmt.Errorf("db error: %w", err)
	}
	return vehicle, nil
}

const getVehicle = `-- name: GetVehicle
SELECT ` + vehicleColumns + ` FROM vehicles
WHERE user_id = $1
`

// Return nil if driver has no vehicle
func (r *UserRepo) GetVehicle(ctx context.Context, userID uuid.UUID) (*models.VehicleInfo, error) {
	rows, _ := r.DB.Query(ctx, getVehicle, userID)
	vehicle, err := pgx.CollectOneRow(rows, rowToVehicle)

	switch {
	case err == nil:
		return &vehicle, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	default:
		return nil, fmt.Errorf("db error: %w", err)
	}
}

const listDrivers = `-- name: ListDrivers
SELECT u.id, u.created_at, u.phone, u.name, u.email, u.password_hash, u.role, u.profile_image, u.average_rating, u.rating_count,
       v.user_id, v.license_plate, v.brand, v.model, v.color, v.seats, v.insurance_expiry, v.registration_expiry, v.updated_at
FROM users u
JOIN vehicles v ON v.user_id = u.id
WHERE u.role = 'DRIVER' AND v.seats >= $1
ORDER BY u.average_rating DESC, u.created_at
LIMIT $2
`

func (r *UserRepo) ListDrivers(ctx context.Context, minSeats int, limit int) ([]models.Driver, error) {
	rows, _ := r.DB.Query(ctx, listDrivers, minSeats, limit)
	drivers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Driver, error) {
		var (
			d    models.Driver
			v    models.VehicleInfo
			role string
		)
		err := row.Scan(
			&d.User.ID, &d.User.CreatedAt, &d.User.Phone, &d.User.Name, &d.User.Email, &d.User.HashedPassword,
			&role, &d.User.ProfileImage, &d.User.AverageRating, &d.User.RatingCount,
			&v.UserID, &v.LicensePlate, &v.Brand, &v.Model, &v.Color, &v.Seats, &v.InsuranceExpiry, &v.RegistrationExpiry, &v.UpdatedAt,
		)
		d.User.Role = models.Role(role)
		d.Vehicle = &v
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return drivers, nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var (
		u    models.User
		role string
	)
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Phone, &u.Name, &u.Email, &u.HashedPassword, &role, &u.ProfileImage, &u.AverageRating, &u.RatingCount)
	u.Role = models.Role(role)
	return u, err
}

func rowToVehicle(row pgx.CollectableRow) (models.VehicleInfo, error) {
	var v models.VehicleInfo
	err := row.Scan(&v.UserID, &v.LicensePlate, &v.Brand, &v.Model, &v.Color, &v.Seats, &v.InsuranceExpiry, &v.RegistrationExpiry, &v.UpdatedAt)
	return v, err
}
