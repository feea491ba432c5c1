package booking

import (
	"fmt"
	"strings"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/service/validate"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), apperrors.ErrBookingInvalid)
}

// Check booking payload and fill defaults
func normalize(p *CreateParams) error {
	switch p.Type {
	case models.BookingVoyage:
		if p.Seats == 0 {
			p.Seats = 1
		}
	case models.BookingColis:
		if p.RecipientName == nil || strings.TrimSpace(*p.RecipientName) == "" {
			return invalid("parcel needs recipient name")
		}
		if p.RecipientPhone == nil || validate.Phone(*p.RecipientPhone) != nil {
			return invalid("parcel needs valid recipient phone")
		}
		if p.Seats == 0 {
			p.Seats = 1
		}
		if p.ParcelWeight != nil && !p.ParcelWeight.IsPositive() {
			return invalid("parcel weight must be positive")
		}
	default:
		return invalid("unknown booking type %q", p.Type)
	}

	if p.Seats < 1 {
		return invalid("seats must be positive")
	}

	for name, loc := range map[string]*models.Location{"pickup": &p.Pickup, "dropoff": &p.Dropoff} {
		loc.Address = strings.TrimSpace(loc.Address)
		if loc.Address == "" {
			return invalid("%s location is required", name)
		}
		if (loc.Lat == nil) != (loc.Lng == nil) {
			return invalid("%s needs both latitude and longitude", name)
		}
		if loc.Lat != nil && (*loc.Lat < -90 || *loc.Lat > 90 || *loc.Lng < -180 || *loc.Lng > 180) {
			return invalid("%s coordinates out of range", name)
		}
	}

	if p.DepartureTime.IsZero() {
		return invalid("departure time is required")
	}
	if p.EstimatedDuration != nil && *p.EstimatedDuration < 0 {
		return invalid("estimated duration can't be negative")
	}
	if p.EstimatedPrice < 0 {
		return invalid("estimated price can't be negative")
	}

	switch p.PaymentMethod {
	case "":
		p.PaymentMethod = models.PaymentWave
	case models.PaymentWallet, models.PaymentWave, models.PaymentOM, models.PaymentYass:
	default:
		return fmt.Errorf("method %q: %w", p.PaymentMethod, apperrors.ErrPaymentMethod)
	}

	return nil
}
