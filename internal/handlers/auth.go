package handlers

import (
	"net/http"
	"time"

	"github.com/generalbusiness/allodakar/internal/handlers/render"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
)

type authResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Phone    string  `json:"phone" validate:"required,phone"`
		Name     string  `json:"name" validate:"required,min=2,max=100"`
		Email    *string `json:"email" validate:"omitempty,email"`
		Password string  `json:"password" validate:"required,min=6,max=72"`
		Role     string  `json:"type" validate:"required,oneof=CLIENT DRIVER"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, token, err := authService.Register(r.Context(), models.Registration{
			Phone:    data.Phone,
			Name:     data.Name,
			Email:    data.Email,
			Password: data.Password,
			Role:     models.Role(data.Role),
		})
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, authResponse{
			Message:   "User registered successfully",
			Token:     token.Value,
			ExpiresAt: token.ExpiresAt,
			User:      newUserResponse(user),
		}, http.StatusCreated)
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Phone    string `json:"phone" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, token, err := authService.Login(r.Context(), data.Phone, data.Password)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, authResponse{
			Message:   "Login successful",
			Token:     token.Value,
			ExpiresAt: token.ExpiresAt,
			User:      newUserResponse(user),
		})
	})
}
