package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
)

type TokenManager interface {
	Issue(user models.User) (models.IssuedToken, error)
	ParseAccess(ctx context.Context, access string) (models.Session, error)
}

// Users storage as auth service sees it
type UserService interface {
	CreateUser(ctx context.Context, reg models.Registration) (models.User, error)
	Login(ctx context.Context, phone string, password string) (models.User, error)
}

type Config struct {
	// Header to read access token from and its auth scheme
	// Defaults are 'Authorization' and 'Bearer'
	AccessHeaderName string
	AccessAuthScheme string
}

// Auth service
type AuthService struct {
	accessHeaderName string
	accessAuthScheme string

	// Manager to issue and parse access tokens
	token TokenManager

	users UserService
}

func NewService(cfg Config, tokenManager TokenManager, users UserService) (*AuthService, error) {
	if cfg.AccessHeaderName == "" {
		cfg.AccessHeaderName = defaultAccessHeaderName
	}
	if cfg.AccessAuthScheme == "" {
		cfg.AccessAuthScheme = defaultAccessAuthScheme
	}

	return &AuthService{
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
		token:            tokenManager,
		users:            users,
	}, nil
}

// Register user and issue token for it
func (s *AuthService) Register(ctx context.Context, reg models.Registration) (models.User, models.IssuedToken, error) {
	user, err := s.users.CreateUser(ctx, reg)
	if err != nil {
		return user, models.IssuedToken{}, err
	}

	token, err := s.token.Issue(user)
	if err != nil {
		return user, token, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, phone string, password string) (models.User, models.IssuedToken, error) {
	user, err := s.users.Login(ctx, phone, password)
	if err != nil {
		return user, models.IssuedToken{}, err
	}

	token, err := s.token.Issue(user)
	if err != nil {
		return user, token, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return user, token, nil
}

// Read access token from request headers and return session it carries
func (s *AuthService) Authenticate(r *http.Request) (models.Session, error) {
	header := r.Header.Get(s.accessHeaderName)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, s.accessAuthScheme) || strings.TrimSpace(token) == "" {
		return models.Session{}, fmt.Errorf("%w: no %s token in %s header", apperrors.ErrTokenInvalid, s.accessAuthScheme, s.accessHeaderName)
	}

	return s.token.ParseAccess(r.Context(), strings.TrimSpace(token))
}
