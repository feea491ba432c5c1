package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/generalbusiness/allodakar/internal/logger"
)

const (
	defaultListenAddr    = "localhost:8000"
	defaultLoggingLevel  = logger.LevelInfo
	defaultEnvironment   = logger.EnvProduction
	defaultTokenTTL      = 7 * 24 * time.Hour
	defaultAuthRateLimit = 5
	defaultAuthRateBurst = 10

	defaultReconcileInterval = time.Hour
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Environment
	Environment string

	// How long issued access token is valid
	TokenTTL time.Duration

	// Requests per second (and burst) one client IP may send to /api/auth routes
	AuthRateLimit float64
	AuthRateBurst int

	// How often every wallet balance is checked against its transactions log. Zero disables the check
	ReconcileInterval time.Duration

	// Cleanup route for end-to-end suites. Falls back to SecretKey if no TestSecret set
	EnableTestRoutes bool
	TestSecret       string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:      defaultLoggingLevel,
		ListenAddr:    defaultListenAddr,
		Environment:   defaultEnvironment,
		TokenTTL:      defaultTokenTTL,
		AuthRateLimit: defaultAuthRateLimit,
		AuthRateBurst: defaultAuthRateBurst,

		ReconcileInterval: defaultReconcileInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) (err error) {
			if value != "" {
				*o, err = time.ParseDuration(value)
			}
			return err
		}
	}
	setFloat := func(o *float64) func(value string) error {
		return func(value string) (err error) {
			if value != "" {
				*o, err = strconv.ParseFloat(value, 64)
			}
			return err
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) (err error) {
			if value != "" {
				*o, err = strconv.Atoi(value)
			}
			return err
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) (err error) {
			if value != "" {
				*o, err = strconv.ParseBool(value)
			}
			return err
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":        setString(&c.ListenAddr),
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"SECRET_KEY":         setString(&c.SecretKey),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
		"TOKEN_TTL":          setDuration(&c.TokenTTL),
		"AUTH_RATE_LIMIT":    setFloat(&c.AuthRateLimit),
		"AUTH_RATE_BURST":    setInt(&c.AuthRateBurst),
		"RECONCILE_INTERVAL": setDuration(&c.ReconcileInterval),
		"ENABLE_TEST_ROUTES": setBool(&c.EnableTestRoutes),
		"TEST_SECRET":        setString(&c.TestSecret),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("allodakar", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.TokenTTL, "token-ttl", c.TokenTTL, "Access token lifetime")
	fs.Float64Var(&c.AuthRateLimit, "auth-rate-limit", c.AuthRateLimit, "Auth requests per second allowed to one client IP")
	fs.IntVar(&c.AuthRateBurst, "auth-rate-burst", c.AuthRateBurst, "Auth requests burst allowed to one client IP")
	fs.DurationVar(&c.ReconcileInterval, "reconcile-interval", c.ReconcileInterval, "Wallet audit interval, 0 to disable")
	fs.BoolVar(&c.EnableTestRoutes, "enable-test-routes", c.EnableTestRoutes, "Register test cleanup route")
	fs.StringVar(&c.TestSecret, "test-secret", c.TestSecret, "Secret required by test cleanup route")

	return fs.Parse(args)
}

// Check options required to start
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst <= 0 {
		errs = append(errs, errors.New("auth rate limit and burst must be positive"))
	}

	if c.ReconcileInterval < 0 {
		errs = append(errs, errors.New("reconcile interval must not be negative"))
	}

	if c.EnableTestRoutes && c.TestSecret == "" {
		c.TestSecret = c.SecretKey
	}

	return errors.Join(errs...)
}
