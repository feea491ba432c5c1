package models

import (
	"time"

	"github.com/google/uuid"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Authenticated caller as recovered from access token
type Session struct {
	UserID uuid.UUID
	Role   Role
}
