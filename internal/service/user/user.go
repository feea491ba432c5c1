package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
	"github.com/generalbusiness/allodakar/internal/service/auth"
)

// Most drivers returned by AvailableDrivers
const availableDriversLimit = 10

type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
	logger  logger.Logger

	// Compared against when phone is unknown, so login takes the same time either way
	dummyHash string
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage, l logger.Logger) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	dummyHash, _ := hasher.Hash("dummy-password")

	return &UserService{
		hasher:    hasher,
		storage:   storage,
		logger:    l,
		dummyHash: dummyHash,
	}
}

// Create user together with its empty wallet
func (s *UserService) CreateUser(ctx context.Context, reg models.Registration) (models.User, error) {
	var user models.User

	if !reg.Role.Valid() {
		return user, fmt.Errorf("unknown role %q: %w", reg.Role, apperrors.ErrRoleNotAllowed)
	}
	if reg.Password == "" {
		return user, errors.New("can't use empty password")
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		user, err = storage.User().CreateUser(ctx, repository.CreateUserParams{
			Phone:          strings.TrimSpace(reg.Phone),
			Name:           strings.TrimSpace(reg.Name),
			Email:          reg.Email,
			HashedPassword: hash,
			Role:           reg.Role,
		})
		if err != nil {
			return err
		}

		_, err = storage.Wallet().CreateWallet(ctx, user.ID)
		return err
	})
	if err != nil {
		return models.User{}, fmt.Errorf("can't create user. Err: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Find user by phone and check password
// Unknown phone and wrong password are indistinguishable for caller
func (s *UserService) Login(ctx context.Context, phone string, password string) (models.User, error) {
	user, err := s.storage.User().GetUserByPhone(ctx, strings.TrimSpace(phone))

	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		_ = s.hasher.Compare(s.dummyHash, password)
		return models.User{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.User{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, params repository.UpdateProfileParams) (models.User, error) {
	user, err := s.storage.User().UpdateProfile(ctx, userID, params)
	if err != nil {
		return user, fmt.Errorf("can't update profile. Err: %w", err)
	}
	return user, nil
}

// Register or replace vehicle of the driver
func (s *UserService) UpsertVehicle(ctx context.Context, session models.Session, info models.VehicleInfo) (models.VehicleInfo, error) {
	switch session.Role {
	case models.RoleDriver:
	case models.RoleClient:
		return models.VehicleInfo{}, fmt.Errorf("only drivers have vehicles: %w", apperrors.ErrRoleNotAllowed)
	default:
		return models.VehicleInfo{}, fmt.Errorf("unknown role %q: %w", session.Role, apperrors.ErrRoleNotAllowed)
	}

	info.UserID = session.UserID
	vehicle, err := s.storage.User().UpsertVehicle(ctx, info)
	if err != nil {
		return vehicle, fmt.Errorf("can't save vehicle. Err: %w", err)
	}

	s.logger.Debug("vehicle saved", "user_id", session.UserID, "seats", vehicle.Seats)
	return vehicle, nil
}

// Driver with its vehicle
// Clients are not found here
func (s *UserService) Driver(ctx context.Context, driverID uuid.UUID) (models.Driver, error) {
	user, err := s.storage.User().GetUserByID(ctx, driverID)
	if err != nil {
		return models.Driver{}, err
	}

	if user.Role != models.RoleDriver {
		return models.Driver{}, apperrors.ErrUserNotFound
	}

	vehicle, err := s.storage.User().GetVehicle(ctx, driverID)
	if err != nil {
		return models.Driver{}, err
	}

	return models.Driver{User: user, Vehicle: vehicle}, nil
}

// Best rated drivers whose vehicle has at least minSeats seats
func (s *UserService) AvailableDrivers(ctx context.Context, minSeats int) ([]models.Driver, error) {
	if minSeats < 1 {
		minSeats = 1
	}
	return s.storage.User().ListDrivers(ctx, minSeats, availableDriversLimit)
}

// Remove user and everything it owns. Used by test cleanup route only
func (s *UserService) DeleteByPhone(ctx context.Context, phone string) (uuid.UUID, bool, error) {
	id, deleted, err := s.storage.User().DeleteByPhone(ctx, phone)
	if err != nil {
		return uuid.Nil, false, err
	}
	if deleted {
		s.logger.Warn("user deleted", "user_id", id)
	}
	return id, deleted, nil
}
