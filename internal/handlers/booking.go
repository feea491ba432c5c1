package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/generalbusiness/allodakar/internal/handlers/render"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/service/booking"
)

type bookingMessageResponse struct {
	Message string          `json:"message"`
	Booking bookingResponse `json:"booking"`
}

func handleCreateBooking(bookingService bookingService, l logger.Logger) http.Handler {
	type request struct {
		BookingType       string    `json:"bookingType" validate:"required,oneof=VOYAGE COLIS"`
		PickupLocation    string    `json:"pickupLocation" validate:"required,max=255"`
		DropoffLocation   string    `json:"dropoffLocation" validate:"required,max=255"`
		PickupLat         *float64  `json:"pickupLat"`
		PickupLng         *float64  `json:"pickupLng"`
		DropoffLat        *float64  `json:"dropoffLat"`
		DropoffLng        *float64  `json:"dropoffLng"`
		DepartureTime     time.Time `json:"departureTime" validate:"required"`
		EstimatedDuration *int      `json:"estimatedDuration"`
		Seats             int       `json:"seats"`
		RecipientName     *string   `json:"recipientName" validate:"omitempty,max=100"`
		RecipientPhone    *string   `json:"recipientPhone" validate:"omitempty,phone"`
		ParcelDescription *string   `json:"parcelDescription" validate:"omitempty,max=500"`
		ParcelWeight      *float64  `json:"parcelWeight"`
		PaymentMethod     string    `json:"paymentMethod"`
		EstimatedPrice    int64     `json:"estimatedPrice"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		p := booking.CreateParams{
			Type:              data.BookingType,
			Pickup:            models.Location{Address: data.PickupLocation, Lat: data.PickupLat, Lng: data.PickupLng},
			Dropoff:           models.Location{Address: data.DropoffLocation, Lat: data.DropoffLat, Lng: data.DropoffLng},
			DepartureTime:     data.DepartureTime,
			EstimatedDuration: data.EstimatedDuration,
			Seats:             data.Seats,
			RecipientName:     data.RecipientName,
			RecipientPhone:    data.RecipientPhone,
			ParcelDescription: data.ParcelDescription,
			PaymentMethod:     data.PaymentMethod,
			EstimatedPrice:    data.EstimatedPrice,
		}
		if data.ParcelWeight != nil {
			weight := decimal.NewFromFloat(*data.ParcelWeight)
			p.ParcelWeight = &weight
		}

		b, err := bookingService.Create(r.Context(), session, p)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, bookingMessageResponse{
			Message: "Booking created successfully",
			Booking: newBookingResponse(b),
		}, http.StatusCreated)
	})
}

func handleListBookings(bookingService bookingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		bookings, err := bookingService.List(r.Context(), session)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, newBookingsResponse(bookings))
	})
}

func handleListOpenBookings(bookingService bookingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		bookings, err := bookingService.ListOpen(r.Context(), session)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, newBookingsResponse(bookings))
	})
}

func handleGetBooking(bookingService bookingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		b, err := bookingService.Get(r.Context(), session, id)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, newBookingResponse(b))
	})
}

func handleAcceptBooking(bookingService bookingService, l logger.Logger) http.Handler {
	return bookingTransition(l, "Booking accepted successfully", bookingService.Accept)
}

func handleCancelBooking(bookingService bookingService, l logger.Logger) http.Handler {
	return bookingTransition(l, "Booking cancelled successfully", bookingService.Cancel)
}

func handleCompleteBooking(bookingService bookingService, l logger.Logger) http.Handler {
	type request struct {
		FinalPrice *int64 `json:"finalPrice" validate:"omitempty,gte=0"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		// Body is optional: without it estimate becomes the final price
		var data request
		if r.ContentLength != 0 {
			var err error
			data, err = render.BindAndValidate[request](w, r)
			if err != nil {
				return
			}
		}

		b, err := bookingService.Complete(r.Context(), session, id, data.FinalPrice)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, bookingMessageResponse{Message: "Booking completed successfully", Booking: newBookingResponse(b)})
	})
}

func bookingTransition(
	l logger.Logger,
	message string,
	transition func(ctx context.Context, session models.Session, bookingID uuid.UUID) (models.Booking, error),
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		b, err := transition(r.Context(), session, id)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, bookingMessageResponse{Message: message, Booking: newBookingResponse(b)})
	})
}
