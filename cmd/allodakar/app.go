package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/generalbusiness/allodakar/internal/db"
	"github.com/generalbusiness/allodakar/internal/handlers"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/repository/postgres"
	"github.com/generalbusiness/allodakar/internal/service/auditor"
	"github.com/generalbusiness/allodakar/internal/service/auth"
	"github.com/generalbusiness/allodakar/internal/service/auth/tokenmanager"
	"github.com/generalbusiness/allodakar/internal/service/booking"
	"github.com/generalbusiness/allodakar/internal/service/ledger"
	"github.com/generalbusiness/allodakar/internal/service/payment"
	"github.com/generalbusiness/allodakar/internal/service/rating"
	"github.com/generalbusiness/allodakar/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	// Nil if wallet audit is disabled
	Auditor *auditor.Auditor

	logger logger.Logger
	pool   *pgxpool.Pool
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey, AccessTTL: c.TokenTTL})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(auth.DefaultHasher, storage, logger)
	authService, err := auth.NewService(auth.Config{}, tokenManager, userService)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	ledgerService := ledger.NewService(storage, auth.DefaultHasher, payment.NewStub(logger), logger)

	router := handlers.NewRouter(
		handlers.Config{
			AuthRateLimit:    c.AuthRateLimit,
			AuthRateBurst:    c.AuthRateBurst,
			EnableTestRoutes: c.EnableTestRoutes,
			TestSecret:       c.TestSecret,
		},
		handlers.Services{
			Auth:     authService,
			Users:    userService,
			Ledger:   ledgerService,
			Bookings: booking.NewService(storage, ledgerService, logger),
			Ratings:  rating.NewService(storage, logger),
		},
		logger,
	)

	var walletAuditor *auditor.Auditor
	if c.ReconcileInterval > 0 {
		walletAuditor = auditor.New(
			auditor.Config{Interval: c.ReconcileInterval},
			storage.Wallet(),
			ledgerService,
			logger.With("component", "auditor"),
		)
	}

	if c.EnableTestRoutes {
		logger.Warn("test routes enabled, never do this in production")
	}

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    router,
		Auditor:    walletAuditor,
		logger:     logger,
		pool:       pool,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	auditorStopped := make(chan struct{})
	if s.Auditor != nil {
		auditorStopped = s.Auditor.Run(srvCtx)
	} else {
		close(auditorStopped)
	}

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-auditorStopped

	return err
}

func (s *ServerApp) Close() {
	s.pool.Close()
}
