package handlers

import (
	"net/http"
	"time"

	"github.com/generalbusiness/allodakar/internal/handlers/render"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
)

func handleGetProfile(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		user, err := userService.GetUserByID(r.Context(), session.UserID)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, newUserResponse(user))
	})
}

func handleUpdateProfile(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Name         *string `json:"name" validate:"omitempty,min=2,max=100"`
		Email        *string `json:"email" validate:"omitempty,email"`
		ProfileImage *string `json:"profileImage" validate:"omitempty,url"`
	}
	type response struct {
		Message string       `json:"message"`
		User    userResponse `json:"user"`
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

		user, err := userService.UpdateProfile(r.Context(), session.UserID, repository.UpdateProfileParams{
			Name:         data.Name,
			Email:        data.Email,
			ProfileImage: data.ProfileImage,
		})
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, response{Message: "Profile updated successfully", User: newUserResponse(user)})
	})
}

func handleUpsertVehicle(userService userService, l logger.Logger) http.Handler {
	type request struct {
		LicensePlate       string     `json:"licensePlate" validate:"required,max=20"`
		Brand              string     `json:"brand" validate:"required,max=50"`
		Model              string     `json:"model" validate:"required,max=50"`
		Color              string     `json:"color" validate:"required,max=30"`
		Seats              int        `json:"seats" validate:"required,min=1,max=60"`
		InsuranceExpiry    *time.Time `json:"insuranceExpiry"`
		RegistrationExpiry *time.Time `json:"registrationExpiry"`
	}
	type response struct {
		Message     string           `json:"message"`
		VehicleInfo *vehicleResponse `json:"vehicleInfo"`
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

		info, err := userService.UpsertVehicle(r.Context(), session, models.VehicleInfo{
			UserID:             session.UserID,
			LicensePlate:       data.LicensePlate,
			Brand:              data.Brand,
			Model:              data.Model,
			Color:              data.Color,
			Seats:              data.Seats,
			InsuranceExpiry:    data.InsuranceExpiry,
			RegistrationExpiry: data.RegistrationExpiry,
		})
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, response{Message: "Vehicle info updated successfully", VehicleInfo: newVehicleResponse(&info)})
	})
}

func handleGetDriver(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		driver, err := userService.Driver(r.Context(), id)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, newDriverResponse(driver))
	})
}

func handleAvailableDrivers(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seats, ok := queryInt(w, r, "seats")
		if !ok {
			return
		}

		drivers, err := userService.AvailableDrivers(r.Context(), seats)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		res := make([]driverResponse, 0, len(drivers))
		for _, d := range drivers {
			res = append(res, newDriverResponse(d))
		}
		render.JSON(w, res)
	})
}
