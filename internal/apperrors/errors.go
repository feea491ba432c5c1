package apperrors

import (
	"errors"
)

// Kind groups errors the way they are reported to API clients
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindInternal          Kind = "internal"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoleNotAllowed     = errors.New("role is not allowed to perform this action")
	ErrTokenInvalid       = errors.New("access token is invalid or expired")

	ErrWalletNotFound      = errors.New("wallet not found")
	ErrBalanceInsufficient = errors.New("insufficient balance")
	ErrAmountInvalid       = errors.New("amount must be positive")
	ErrAmountTooLarge      = errors.New("amount exceeds wallet limit")
	ErrSelfTransfer        = errors.New("can't transfer to yourself")
	ErrPaymentMethod       = errors.New("payment method not supported")
	ErrPinInvalid          = errors.New("invalid pin code")
	ErrPinNotSet           = errors.New("pin code is not set")
	ErrPinFormat           = errors.New("pin must be 4 digits")
	ErrIdempotencyMismatch = errors.New("idempotency key already used for a different operation")
	ErrIdempotencyKey      = errors.New("idempotency key must be at most 100 characters")

	ErrBookingNotFound        = errors.New("booking not found")
	ErrBookingAlreadyAccepted = errors.New("booking already accepted")
	ErrBookingTransition      = errors.New("booking status does not allow this action")
	ErrBookingInvalid         = errors.New("booking data is invalid")
	ErrNotBookingParty        = errors.New("user is not a party of the booking")

	ErrRatingExists      = errors.New("booking already rated by this user")
	ErrRatingTarget      = errors.New("rated user must be the other party of the booking")
	ErrRatingScoreBounds = errors.New("rating must be between 1 and 5")
)

var kinds = map[error]Kind{
	ErrUserAlreadyExists:  KindConflict,
	ErrUserNotFound:       KindNotFound,
	ErrInvalidCredentials: KindUnauthorized,
	ErrRoleNotAllowed:     KindForbidden,
	ErrTokenInvalid:       KindUnauthorized,

	ErrWalletNotFound:      KindNotFound,
	ErrBalanceInsufficient: KindInsufficientFunds,
	ErrAmountInvalid:       KindValidation,
	ErrAmountTooLarge:      KindValidation,
	ErrSelfTransfer:        KindValidation,
	ErrPaymentMethod:       KindValidation,
	ErrPinInvalid:          KindUnauthorized,
	ErrPinNotSet:           KindUnauthorized,
	ErrPinFormat:           KindValidation,
	ErrIdempotencyMismatch: KindConflict,
	ErrIdempotencyKey:      KindValidation,

	ErrBookingNotFound:        KindNotFound,
	ErrBookingAlreadyAccepted: KindConflict,
	ErrBookingTransition:      KindConflict,
	ErrBookingInvalid:         KindValidation,
	ErrNotBookingParty:        KindUnauthorized,

	ErrRatingExists:      KindConflict,
	ErrRatingTarget:      KindValidation,
	ErrRatingScoreBounds: KindValidation,
}

// KindOf returns the kind of the first well known error found in the chain
// Unknown errors are internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}

	return KindInternal
}

// Message returns the sentinel text safe to show to API clients
// Internal errors never expose their details
func Message(err error) string {
	for sentinel := range kinds {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	return "internal server error"
}
