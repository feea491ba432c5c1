package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/handlers/render"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/service/rating"
)

func handleSubmitRating(ratingService ratingService, l logger.Logger) http.Handler {
	type request struct {
		RatedUserID uuid.UUID `json:"ratedUserId" validate:"required"`
		BookingID   uuid.UUID `json:"bookingId" validate:"required"`
		Rating      int       `json:"rating" validate:"required,min=1,max=5"`
		Comment     *string   `json:"comment" validate:"omitempty,max=1000"`
	}
	type response struct {
		Message string         `json:"message"`
		Rating  ratingResponse `json:"rating"`
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

		created, err := ratingService.Submit(r.Context(), session.UserID, rating.SubmitParams{
			RatedID:   data.RatedUserID,
			BookingID: data.BookingID,
			Score:     data.Rating,
			Comment:   data.Comment,
		})
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, response{Message: "Rating submitted successfully", Rating: ratingResponse(created)}, http.StatusCreated)
	})
}

func handleUserRatings(ratingService ratingService, l logger.Logger) http.Handler {
	type response struct {
		Ratings       []ratingResponse `json:"ratings"`
		AverageRating float64          `json:"averageRating"`
		TotalRatings  int              `json:"totalRatings"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		summary, err := ratingService.ForUser(r.Context(), id)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		average, _ := summary.Average.Float64()
		render.JSON(w, response{
			Ratings:       newRatingsResponse(summary.Ratings),
			AverageRating: average,
			TotalRatings:  summary.Count,
		})
	})
}

func handleMyRatings(ratingService ratingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		given, err := ratingService.ByRater(r.Context(), session.UserID)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, newRatingsResponse(given))
	})
}
