package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/handlers/render"
	"github.com/generalbusiness/allodakar/internal/handlers/userctx"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
)

type userResponse struct {
	ID            uuid.UUID `json:"id"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name"`
	Email         *string   `json:"email"`
	Role          string    `json:"role"`
	ProfileImage  *string   `json:"profileImage"`
	AverageRating float64   `json:"averageRating"`
	RatingCount   int       `json:"ratingCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newUserResponse(u models.User) userResponse {
	average, _ := u.AverageRating.Float64()
	return userResponse{
		ID:            u.ID,
		Phone:         u.Phone,
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		ProfileImage:  u.ProfileImage,
		AverageRating: average,
		RatingCount:   u.RatingCount,
		CreatedAt:     u.CreatedAt,
	}
}

type vehicleResponse struct {
	LicensePlate       string     `json:"licensePlate"`
	Brand              string     `json:"brand"`
	Model              string     `json:"model"`
	Color              string     `json:"color"`
	Seats              int        `json:"seats"`
	InsuranceExpiry    *time.Time `json:"insuranceExpiry"`
	RegistrationExpiry *time.Time `json:"registrationExpiry"`
}

func newVehicleResponse(v *models.VehicleInfo) *vehicleResponse {
	if v == nil {
		return nil
	}
	return &vehicleResponse{
		LicensePlate:       v.LicensePlate,
		Brand:              v.Brand,
		Model:              v.Model,
		Color:              v.Color,
		Seats:              v.Seats,
		InsuranceExpiry:    v.InsuranceExpiry,
		RegistrationExpiry: v.RegistrationExpiry,
	}
}

// Driver is shown to other users without contact details
type driverResponse struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	ProfileImage  *string          `json:"profileImage"`
	AverageRating float64          `json:"averageRating"`
	RatingCount   int              `json:"ratingCount"`
	Vehicle       *vehicleResponse `json:"vehicle"`
}

func newDriverResponse(d models.Driver) driverResponse {
	average, _ := d.User.AverageRating.Float64()
	return driverResponse{
		ID:            d.User.ID,
		Name:          d.User.Name,
		ProfileImage:  d.User.ProfileImage,
		AverageRating: average,
		RatingCount:   d.User.RatingCount,
		Vehicle:       newVehicleResponse(d.Vehicle),
	}
}

type locationResponse struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

type bookingResponse struct {
	ID                uuid.UUID        `json:"id"`
	ClientID          uuid.UUID        `json:"clientId"`
	DriverID          *uuid.UUID       `json:"driverId"`
	Type              string           `json:"type"`
	Status            string           `json:"status"`
	Pickup            locationResponse `json:"pickup"`
	Dropoff           locationResponse `json:"dropoff"`
	DepartureTime     time.Time        `json:"departureTime"`
	EstimatedDuration *int             `json:"estimatedDuration"`
	Seats             int              `json:"seats"`
	RecipientName     *string          `json:"recipientName,omitempty"`
	RecipientPhone    *string          `json:"recipientPhone,omitempty"`
	ParcelDescription *string          `json:"parcelDescription,omitempty"`
	ParcelWeight      *float64         `json:"parcelWeight,omitempty"`
	PaymentMethod     string           `json:"paymentMethod"`
	EstimatedPrice    int64            `json:"estimatedPrice"`
	FinalPrice        *int64           `json:"finalPrice"`
	CreatedAt         time.Time        `json:"createdAt"`
	AcceptedAt        *time.Time       `json:"acceptedAt"`
	CompletedAt       *time.Time       `json:"completedAt"`
	CancelledAt       *time.Time       `json:"cancelledAt"`
}

func newBookingResponse(b models.Booking) bookingResponse {
	res := bookingResponse{
		ID:                b.ID,
		ClientID:          b.ClientID,
		DriverID:          b.DriverID,
		Type:              b.Type,
		Status:            b.Status,
		Pickup:            locationResponse(b.Pickup),
		Dropoff:           locationResponse(b.Dropoff),
		DepartureTime:     b.DepartureTime,
		EstimatedDuration: b.EstimatedDuration,
		Seats:             b.Seats,
		RecipientName:     b.RecipientName,
		RecipientPhone:    b.RecipientPhone,
		ParcelDescription: b.ParcelDescription,
		PaymentMethod:     b.PaymentMethod,
		EstimatedPrice:    b.EstimatedPrice,
		FinalPrice:        b.FinalPrice,
		CreatedAt:         b.CreatedAt,
		AcceptedAt:        b.AcceptedAt,
		CompletedAt:       b.CompletedAt,
		CancelledAt:       b.CancelledAt,
	}
	if b.ParcelWeight != nil {
		weight, _ := b.ParcelWeight.Float64()
		res.ParcelWeight = &weight
	}
	return res
}

func newBookingsResponse(bs []models.Booking) []bookingResponse {
	res := make([]bookingResponse, 0, len(bs))
	for _, b := range bs {
		res = append(res, newBookingResponse(b))
	}
	return res
}

type transactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	Method      *string    `json:"method,omitempty"`
	ToUserID    *uuid.UUID `json:"toUserId,omitempty"`
	FromUserID  *uuid.UUID `json:"fromUserId,omitempty"`
	BookingID   *uuid.UUID `json:"bookingId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newTransactionResponse(t models.Transaction) transactionResponse {
	res := transactionResponse{
		ID:          t.ID,
		Type:        t.Type,
		Amount:      t.Amount,
		Status:      t.Status,
		Description: t.Description,
		Method:      t.Method,
		BookingID:   t.BookingID,
		CreatedAt:   t.CreatedAt,
	}

	switch t.Type {
	case models.TransactionTransferOut:
		res.ToUserID = t.CounterpartID
	case models.TransactionTransferIn:
		res.FromUserID = t.CounterpartID
	}
	return res
}

// Same field layout as models.Rating to allow conversion
type ratingResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	BookingID uuid.UUID `json:"bookingId"`
	RaterID   uuid.UUID `json:"raterId"`
	RatedID   uuid.UUID `json:"ratedId"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment"`
}

func newRatingsResponse(rs []models.Rating) []ratingResponse {
	res := make([]ratingResponse, 0, len(rs))
	for _, r := range rs {
		res = append(res, ratingResponse(r))
	}
	return res
}

// Session put by auth middleware. Missing session means routes are wired wrong
func sessionFrom(w http.ResponseWriter, r *http.Request, l logger.Logger) (models.Session, bool) {
	session, ok := userctx.FromContext(r.Context())
	if !ok {
		if rl, found := logger.FromContext(r.Context()); found {
			l = rl
		}
		l.Error("no session in context, is auth middleware attached?", "path", r.URL.Path)
		render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
	}
	return session, ok
}

// Parse {id} path parameter; renders 400 if it's not an uuid
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// Parse positive integer query parameter, zero if absent
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		render.ServiceError(w, "Invalid "+name+" parameter", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}
