package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/generalbusiness/allodakar/internal/handlers/middleware"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
	"github.com/generalbusiness/allodakar/internal/service/booking"
	"github.com/generalbusiness/allodakar/internal/service/rating"
)

const (
	defaultAuthRateLimit = 5
	defaultAuthRateBurst = 10
	rateLimitTTL         = 3 * time.Minute
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Config struct {
	// Requests per second and burst allowed to one client IP on /api/auth routes
	AuthRateLimit float64
	AuthRateBurst int

	// Cleanup route is registered only if enabled, and needs the secret
	EnableTestRoutes bool
	TestSecret       string
}

type Services struct {
	Auth     authService
	Users    userService
	Ledger   ledgerService
	Bookings bookingService
	Ratings  ratingService
}

func NewRouter(cfg Config, s Services, logger logger.Logger) http.Handler {
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = defaultAuthRateLimit
	}
	if cfg.AuthRateBurst <= 0 {
		cfg.AuthRateBurst = defaultAuthRateBurst
	}

	withAuth := middleware.AuthMiddleware(s.Auth, logger)
	onlyClient := middleware.RoleMiddleware(models.RoleClient, logger)
	onlyDriver := middleware.RoleMiddleware(models.RoleDriver, logger)
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, rateLimitTTL)

	mux := http.NewServeMux()

	mux.Handle("GET /health", handleHealth())
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /api/auth/register", limiter.Middleware(handleRegister(s.Auth, logger)))
	mux.Handle("POST /api/auth/login", limiter.Middleware(handleLogin(s.Auth, logger)))

	mux.Handle("GET /api/users/profile", withAuth(handleGetProfile(s.Users, logger)))
	mux.Handle("PUT /api/users/profile", withAuth(handleUpdateProfile(s.Users, logger)))
	mux.Handle("POST /api/users/vehicle", chain(handleUpsertVehicle(s.Users, logger), withAuth, onlyDriver))
	mux.Handle("GET /api/users/driver/{id}", handleGetDriver(s.Users, logger))
	mux.Handle("GET /api/users/drivers/available", handleAvailableDrivers(s.Users, logger))

	mux.Handle("GET /api/bookings", withAuth(handleListBookings(s.Bookings, logger)))
	mux.Handle("GET /api/bookings/open", chain(handleListOpenBookings(s.Bookings, logger), withAuth, onlyDriver))
	mux.Handle("POST /api/bookings", chain(handleCreateBooking(s.Bookings, logger), withAuth, onlyClient))
	mux.Handle("GET /api/bookings/{id}", withAuth(handleGetBooking(s.Bookings, logger)))
	mux.Handle("PUT /api/bookings/{id}/accept", chain(handleAcceptBooking(s.Bookings, logger), withAuth, onlyDriver))
	mux.Handle("PUT /api/bookings/{id}/complete", withAuth(handleCompleteBooking(s.Bookings, logger)))
	mux.Handle("PUT /api/bookings/{id}/cancel", withAuth(handleCancelBooking(s.Bookings, logger)))

	mux.Handle("GET /api/wallet/balance", withAuth(handleBalance(s.Ledger, logger)))
	mux.Handle("POST /api/wallet/set-pin", withAuth(handleSetPin(s.Ledger, logger)))
	mux.Handle("POST /api/wallet/verify-pin", withAuth(handleVerifyPin(s.Ledger, logger)))
	mux.Handle("POST /api/wallet/deposit", withAuth(handleDeposit(s.Ledger, logger)))
	mux.Handle("POST /api/wallet/withdraw", withAuth(handleWithdraw(s.Ledger, logger)))
	mux.Handle("POST /api/wallet/transfer", withAuth(handleTransfer(s.Ledger, logger)))
	mux.Handle("GET /api/wallet/transactions", withAuth(handleTransactions(s.Ledger, logger)))
	mux.Handle("GET /api/wallet/reconcile", withAuth(handleReconcile(s.Ledger, logger)))

	mux.Handle("POST /api/ratings", withAuth(handleSubmitRating(s.Ratings, logger)))
	mux.Handle("GET /api/ratings/user/{id}", handleUserRatings(s.Ratings, logger))
	mux.Handle("GET /api/ratings/my-ratings", withAuth(handleMyRatings(s.Ratings, logger)))

	if cfg.EnableTestRoutes {
		mux.Handle("POST /api/test/cleanup", handleTestCleanup(s.Users, cfg.TestSecret, logger))
	}

	return chain(mux,
		middleware.LoggerMiddleware(logger),
		middleware.MetricsMiddleware,
	)
}

type authService interface {
	// Register user and issue access token
	// Has to return apperrors.ErrUserAlreadyExists if phone is taken
	Register(ctx context.Context, reg models.Registration) (models.User, models.IssuedToken, error)

	// Has to return apperrors.ErrInvalidCredentials for unknown phone or wrong password
	Login(ctx context.Context, phone string, password string) (models.User, models.IssuedToken, error)

	// Session of the request caller or apperrors.ErrTokenInvalid
	Authenticate(r *http.Request) (models.Session, error)
}

type userService interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params repository.UpdateProfileParams) (models.User, error)
	UpsertVehicle(ctx context.Context, session models.Session, info models.VehicleInfo) (models.VehicleInfo, error)
	Driver(ctx context.Context, driverID uuid.UUID) (models.Driver, error)
	AvailableDrivers(ctx context.Context, minSeats int) ([]models.Driver, error)
	DeleteByPhone(ctx context.Context, phone string) (uuid.UUID, bool, error)
}

type ledgerService interface {
	Balance(ctx context.Context, userID uuid.UUID) (models.Wallet, error)
	SetPin(ctx context.Context, userID uuid.UUID, pin string) error
	VerifyPin(ctx context.Context, userID uuid.UUID, pin string) error
	AuthorizeDebit(ctx context.Context, userID uuid.UUID, pin string) error
	Deposit(ctx context.Context, userID uuid.UUID, amount int64, method string, idemKey string) (models.Transaction, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount int64, method string, idemKey string) (models.Transaction, error)
	Transfer(ctx context.Context, from uuid.UUID, to uuid.UUID, amount int64, idemKey string) (models.Transaction, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (models.Reconciliation, error)
}

type bookingService interface {
	Create(ctx context.Context, session models.Session, p booking.CreateParams) (models.Booking, error)
	Accept(ctx context.Context, session models.Session, bookingID uuid.UUID) (models.Booking, error)
	Complete(ctx context.Context, session models.Session, bookingID uuid.UUID, finalPrice *int64) (models.Booking, error)
	Cancel(ctx context.Context, session models.Session, bookingID uuid.UUID) (models.Booking, error)
	Get(ctx context.Context, session models.Session, bookingID uuid.UUID) (models.Booking, error)
	List(ctx context.Context, session models.Session) ([]models.Booking, error)
	ListOpen(ctx context.Context, session models.Session) ([]models.Booking, error)
}

type ratingService interface {
	Submit(ctx context.Context, rater uuid.UUID, p rating.SubmitParams) (models.Rating, error)
	ForUser(ctx context.Context, userID uuid.UUID) (models.RatingSummary, error)
	ByRater(ctx context.Context, userID uuid.UUID) ([]models.Rating, error)
}
