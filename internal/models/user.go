package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role of the user: closed set, every switch over it has to be exhaustive
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleDriver Role = "DRIVER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleDriver:
		return true
	default:
		return false
	}
}

// Average rating of user without any rating received
var DefaultAverageRating = decimal.NewFromInt(5)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Phone          string
	Name           string
	Email          *string
	HashedPassword string
	Role           Role
	ProfileImage   *string
	AverageRating  decimal.Decimal
	RatingCount    int
}

type VehicleInfo struct {
	UserID             uuid.UUID
	LicensePlate       string
	Brand              string
	Model              string
	Color              string
	Seats              int
	InsuranceExpiry    *time.Time
	RegistrationExpiry *time.Time
	UpdatedAt          time.Time
}

// Driver with its vehicle as shown to clients
type Driver struct {
	User    User
	Vehicle *VehicleInfo // nil if driver not registered a vehicle yet
}

// Data user provides on sign up
type Registration struct {
	Phone    string
	Name     string
	Email    *string
	Password string
	Role     Role
}
