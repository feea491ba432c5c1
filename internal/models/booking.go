package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BookingVoyage = "VOYAGE"
	BookingColis  = "COLIS"
)

const (
	BookingWaiting   = "WAITING"
	BookingAccepted  = "ACCEPTED"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
)

const (
	PaymentWallet = "wallet"
	PaymentWave   = "wave"
	PaymentOM     = "om"
	PaymentYass   = "yass"
)

type Location struct {
	Address string
	Lat     *float64
	Lng     *float64
}

type Booking struct {
	ID                uuid.UUID
	CreatedAt         time.Time
	ClientID          uuid.UUID
	DriverID          *uuid.UUID // nil until accepted
	Type              string
	Status            string
	Pickup            Location
	Dropoff           Location
	DepartureTime     time.Time
	EstimatedDuration *int
	Seats             int
	RecipientName     *string
	RecipientPhone    *string
	ParcelDescription *string
	ParcelWeight      *decimal.Decimal
	PaymentMethod     string
	EstimatedPrice    int64
	FinalPrice        *int64
	AcceptedAt        *time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
}

// Whether the user is the client or the assigned driver
func (b Booking) IsParty(userID uuid.UUID) bool {
	return b.ClientID == userID || (b.DriverID != nil && *b.DriverID == userID)
}

// Counterparty of the user on the booking. Returns false if user is not a party or the other side is empty
func (b Booking) Counterparty(userID uuid.UUID) (uuid.UUID, bool) {
	switch {
	case b.ClientID == userID && b.DriverID != nil:
		return *b.DriverID, true
	case b.DriverID != nil && *b.DriverID == userID:
		return b.ClientID, true
	default:
		return uuid.Nil, false
	}
}

func (b Booking) Terminal() bool {
	return b.Status == BookingCompleted || b.Status == BookingCancelled
}
