package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Rating struct {
	ID        uuid.UUID
	CreatedAt time.Time
	BookingID uuid.UUID
	RaterID   uuid.UUID
	RatedID   uuid.UUID
	Score     int
	Comment   *string
}

// Ratings received by a user
type RatingSummary struct {
	UserID  uuid.UUID
	Average decimal.Decimal
	Count   int
	Ratings []Rating
}
