package booking

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
	"github.com/generalbusiness/allodakar/internal/repository/postgres"
	"github.com/generalbusiness/allodakar/internal/service/auth"
	"github.com/generalbusiness/allodakar/internal/service/ledger"
	"github.com/generalbusiness/allodakar/internal/testutil"
)

func createSession(t *testing.T, storage repository.Storage, role models.Role) models.Session {
	t.Helper()

	user := testutil.CreateUser(t, storage, role)
	return models.Session{UserID: user.ID, Role: role}
}

func voyage() CreateParams {
	return CreateParams{
		Type:           models.BookingVoyage,
		Pickup:         models.Location{Address: "Plateau, Dakar"},
		Dropoff:        models.Location{Address: "Aéroport AIBD"},
		DepartureTime:  time.Now().Add(2 * time.Hour),
		EstimatedPrice: 3000,
	}
}

func Test_Booking(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	type env struct {
		s       *BookingService
		ledger  *ledger.LedgerService
		storage repository.Storage
	}

	inTx := func(t *testing.T, fn func(e env)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			l := ledger.NewService(storage, auth.BcryptHasher{Cost: bcrypt.MinCost}, nil, nil)
			fn(env{s: NewService(storage, l, nil), ledger: l, storage: storage})
		})
	}

	t.Run("Create", func(t *testing.T) {
		t.Run("voyage ok", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)

				b, err := e.s.Create(t.Context(), client, voyage())

				require.NoError(t, err)
				assert.Equal(t, models.BookingWaiting, b.Status)
				assert.Nil(t, b.DriverID)
				assert.Equal(t, 1, b.Seats, "voyage books one seat by default")
				assert.Equal(t, models.PaymentWave, b.PaymentMethod, "wave is default payment method")
				assert.Nil(t, b.AcceptedAt)
				assert.Nil(t, b.CompletedAt)
				assert.Nil(t, b.CancelledAt)
			})
		})

		t.Run("colis ok", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				name, phone := "Fatou", "781234567"
				weight := decimal.RequireFromString("3.5")
				p := voyage()
				p.Type = models.BookingColis
				p.RecipientName = &name
				p.RecipientPhone = &phone
				p.ParcelWeight = &weight

				b, err := e.s.Create(t.Context(), client, p)

				require.NoError(t, err)
				assert.Equal(t, models.BookingColis, b.Type)
				assert.Equal(t, "3.50", b.ParcelWeight.StringFixed(2))
			})
		})

		t.Run("driver can't book", func(t *testing.T) {
			inTx(t, func(e env) {
				driver := createSession(t, e.storage, models.RoleDriver)

				_, err := e.s.Create(t.Context(), driver, voyage())

				require.ErrorIs(t, err, apperrors.ErrRoleNotAllowed)
			})
		})

		lat := 14.7
		badLat := 95.0
		tests := []struct {
			name        string
			mutate      func(p *CreateParams)
			expectedErr error
		}{
			{"unknown type", func(p *CreateParams) { p.Type = "TAXI" }, apperrors.ErrBookingInvalid},
			{"no pickup", func(p *CreateParams) { p.Pickup.Address = "  " }, apperrors.ErrBookingInvalid},
			{"no dropoff", func(p *CreateParams) { p.Dropoff.Address = "" }, apperrors.ErrBookingInvalid},
			{"no departure", func(p *CreateParams) { p.DepartureTime = time.Time{} }, apperrors.ErrBookingInvalid},
			{"negative price", func(p *CreateParams) { p.EstimatedPrice = -1 }, apperrors.ErrBookingInvalid},
			{"negative seats", func(p *CreateParams) { p.Seats = -2 }, apperrors.ErrBookingInvalid},
			{"lat without lng", func(p *CreateParams) { p.Pickup.Lat = &lat }, apperrors.ErrBookingInvalid},
			{"lat out of range", func(p *CreateParams) { p.Pickup.Lat, p.Pickup.Lng = &badLat, &lat }, apperrors.ErrBookingInvalid},
			{"colis without recipient", func(p *CreateParams) { p.Type = models.BookingColis }, apperrors.ErrBookingInvalid},
			{"unknown payment", func(p *CreateParams) { p.PaymentMethod = "cash" }, apperrors.ErrPaymentMethod},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				inTx(t, func(e env) {
					client := createSession(t, e.storage, models.RoleClient)
					p := voyage()
					tt.mutate(&p)

					_, err := e.s.Create(t.Context(), client, p)

					require.ErrorIs(t, err, tt.expectedErr)
				})
			})
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		t.Run("accept and complete", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				driver := createSession(t, e.storage, models.RoleDriver)
				created, err := e.s.Create(t.Context(), client, voyage())
				require.NoError(t, err)

				accepted, err := e.s.Accept(t.Context(), driver, created.ID)
				require.NoError(t, err)
				assert.Equal(t, models.BookingAccepted, accepted.Status)
				require.NotNil(t, accepted.DriverID)
				assert.Equal(t, driver.UserID, *accepted.DriverID)
				assert.NotNil(t, accepted.AcceptedAt)

				completed, err := e.s.Complete(t.Context(), driver, created.ID, nil)
				require.NoError(t, err)
				assert.Equal(t, models.BookingCompleted, completed.Status)
				assert.NotNil(t, completed.CompletedAt)
				assert.Equal(t, int64(3000), *completed.FinalPrice)

				again, err := e.s.Complete(t.Context(), client, created.ID, nil)
				require.NoError(t, err, "second complete is a no-op")
				assert.Equal(t, completed.CompletedAt, again.CompletedAt, "timestamp is not moved")

				_, err = e.s.Cancel(t.Context(), client, created.ID)
				require.ErrorIs(t, err, apperrors.ErrBookingTransition)
			})
		})

		t.Run("cancel twice is idempotent", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				created, err := e.s.Create(t.Context(), client, voyage())
				require.NoError(t, err)

				cancelled, err := e.s.Cancel(t.Context(), client, created.ID)
				require.NoError(t, err)
				assert.Equal(t, models.BookingCancelled, cancelled.Status)
				assert.NotNil(t, cancelled.CancelledAt)

				again, err := e.s.Cancel(t.Context(), client, created.ID)
				require.NoError(t, err)
				assert.Equal(t, cancelled.CancelledAt, again.CancelledAt)

				_, err = e.s.Complete(t.Context(), client, created.ID, nil)
				require.ErrorIs(t, err, apperrors.ErrBookingTransition)
			})
		})

		t.Run("driver cancels accepted booking", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				driver := createSession(t, e.storage, models.RoleDriver)
				created, err := e.s.Create(t.Context(), client, voyage())
				require.NoError(t, err)
				_, err = e.s.Accept(t.Context(), driver, created.ID)
				require.NoError(t, err)

				cancelled, err := e.s.Cancel(t.Context(), driver, created.ID)

				require.NoError(t, err)
				assert.Equal(t, models.BookingCancelled, cancelled.Status)
			})
		})

		t.Run("waiting booking can't be completed", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				created, err := e.s.Create(t.Context(), client, voyage())
				require.NoError(t, err)

				_, err = e.s.Complete(t.Context(), client, created.ID, nil)

				require.ErrorIs(t, err, apperrors.ErrBookingTransition)
			})
		})

		t.Run("outsider can't complete or cancel", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				driver := createSession(t, e.storage, models.RoleDriver)
				outsider := createSession(t, e.storage, models.RoleDriver)
				created, err := e.s.Create(t.Context(), client, voyage())
				require.NoError(t, err)
				_, err = e.s.Accept(t.Context(), driver, created.ID)
				require.NoError(t, err)

				_, err = e.s.Complete(t.Context(), outsider, created.ID, nil)
				require.ErrorIs(t, err, apperrors.ErrNotBookingParty)

				_, err = e.s.Cancel(t.Context(), outsider, created.ID)
				require.ErrorIs(t, err, apperrors.ErrNotBookingParty)

				b, err := e.s.Get(t.Context(), client, created.ID)
				require.NoError(t, err)
				assert.Equal(t, models.BookingAccepted, b.Status, "booking is untouched")
			})
		})

		t.Run("accept twice and unknown", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				first := createSession(t, e.storage, models.RoleDriver)
				second := createSession(t, e.storage, models.RoleDriver)
				created, err := e.s.Create(t.Context(), client, voyage())
				require.NoError(t, err)

				_, err = e.s.Accept(t.Context(), first, created.ID)
				require.NoError(t, err)

				_, err = e.s.Accept(t.Context(), second, created.ID)
				require.ErrorIs(t, err, apperrors.ErrBookingAlreadyAccepted)

				_, err = e.s.Accept(t.Context(), second, uuid.New())
				require.ErrorIs(t, err, apperrors.ErrBookingNotFound)

				_, err = e.s.Accept(t.Context(), client, created.ID)
				require.ErrorIs(t, err, apperrors.ErrRoleNotAllowed, "clients don't accept bookings")
			})
		})

		t.Run("cancelled booking can't be accepted", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				driver := createSession(t, e.storage, models.RoleDriver)
				created, err := e.s.Create(t.Context(), client, voyage())
				require.NoError(t, err)
				_, err = e.s.Cancel(t.Context(), client, created.ID)
				require.NoError(t, err)

				_, err = e.s.Accept(t.Context(), driver, created.ID)

				require.ErrorIs(t, err, apperrors.ErrBookingTransition)
				require.NotErrorIs(t, err, apperrors.ErrBookingAlreadyAccepted)
			})
		})

		t.Run("negative final price", func(t *testing.T) {
			inTx(t, func(e env) {
				client := createSession(t, e.storage, models.RoleClient)
				price := int64(-5)

				_, err := e.s.Complete(t.Context(), client, uuid.New(), &price)

				require.ErrorIs(t, err, apperrors.ErrBookingInvalid)
			})
		})
	})

	t.Run("Wallet settlement", func(t *testing.T) {
		setup := func(t *testing.T, e env, deposit int64) (models.Session, models.Session, models.Booking) {
			client := createSession(t, e.storage, models.RoleClient)
			driver := createSession(t, e.storage, models.RoleDriver)
			if deposit > 0 {
				_, err := e.ledger.Deposit(t.Context(), client.UserID, deposit, models.PaymentWave, "")
				require.NoError(t, err)
			}
			p := voyage()
			p.PaymentMethod = models.PaymentWallet
			b, err := e.s.Create(t.Context(), client, p)
			require.NoError(t, err)
			_, err = e.s.Accept(t.Context(), driver, b.ID)
			require.NoError(t, err)
			return client, driver, b
		}

		t.Run("completion pays driver", func(t *testing.T) {
			inTx(t, func(e env) {
				client, driver, b := setup(t, e, 5000)
				price := int64(3500)

				_, err := e.s.Complete(t.Context(), client, b.ID, &price)
				require.NoError(t, err)

				cw, err := e.ledger.Balance(t.Context(), client.UserID)
				require.NoError(t, err)
				dw, err := e.ledger.Balance(t.Context(), driver.UserID)
				require.NoError(t, err)
				assert.Equal(t, int64(1500), cw.Balance)
				assert.Equal(t, int64(3500), dw.Balance)

				_, err = e.s.Complete(t.Context(), client, b.ID, &price)
				require.NoError(t, err)
				cw, err = e.ledger.Balance(t.Context(), client.UserID)
				require.NoError(t, err)
				assert.Equal(t, int64(1500), cw.Balance, "repeated complete does not pay twice")
			})
		})

		t.Run("insufficient funds aborts completion", func(t *testing.T) {
			inTx(t, func(e env) {
				client, _, b := setup(t, e, 1000)

				_, err := e.s.Complete(t.Context(), client, b.ID, nil)
				require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)

				got, err := e.s.Get(t.Context(), client, b.ID)
				require.NoError(t, err)
				assert.Equal(t, models.BookingAccepted, got.Status, "booking stays accepted")
				assert.Nil(t, got.CompletedAt)
			})
		})
	})

	t.Run("Listing", func(t *testing.T) {
		inTx(t, func(e env) {
			client := createSession(t, e.storage, models.RoleClient)
			driver := createSession(t, e.storage, models.RoleDriver)
			other := createSession(t, e.storage, models.RoleDriver)
			taken, err := e.s.Create(t.Context(), client, voyage())
			require.NoError(t, err)
			waiting, err := e.s.Create(t.Context(), client, voyage())
			require.NoError(t, err)
			_, err = e.s.Accept(t.Context(), driver, taken.ID)
			require.NoError(t, err)

			mine, err := e.s.List(t.Context(), client)
			require.NoError(t, err)
			assert.Len(t, mine, 2)

			driven, err := e.s.List(t.Context(), driver)
			require.NoError(t, err)
			require.Len(t, driven, 1)
			assert.Equal(t, taken.ID, driven[0].ID)

			open, err := e.s.ListOpen(t.Context(), other)
			require.NoError(t, err)
			ids := make([]uuid.UUID, 0, len(open))
			for _, b := range open {
				ids = append(ids, b.ID)
			}
			assert.Contains(t, ids, waiting.ID)
			assert.NotContains(t, ids, taken.ID)

			_, err = e.s.ListOpen(t.Context(), client)
			require.ErrorIs(t, err, apperrors.ErrRoleNotAllowed)

			_, err = e.s.Get(t.Context(), other, waiting.ID)
			require.NoError(t, err, "drivers see waiting bookings")
			_, err = e.s.Get(t.Context(), other, taken.ID)
			require.ErrorIs(t, err, apperrors.ErrNotBookingParty)
		})
	})
}

// Accepts commit for real here: every goroutine needs its own connection
func Test_BookingConcurrentAccept(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)
	t.Cleanup(func() { testutil.Truncate(t, pg.Pool) })

	storage := postgres.NewStorage(pg.Pool)
	s := NewService(storage, nil, nil)

	client := createSession(t, storage, models.RoleClient)
	b, err := s.Create(t.Context(), client, voyage())
	require.NoError(t, err)

	drivers := make([]models.Session, 8)
	for i := range drivers {
		drivers[i] = createSession(t, storage, models.RoleDriver)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losers  int
	)
	for _, d := range drivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Accept(t.Context(), d, b.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, d.UserID)
			case apperrors.KindOf(err) == apperrors.KindConflict:
				losers++
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one driver wins")
	require.Equal(t, len(drivers)-1, losers, "everyone else gets conflict")

	got, err := s.Get(t.Context(), client, b.ID)
	require.NoError(t, err)
	require.Equal(t, models.BookingAccepted, got.Status)
	require.Equal(t, winners[0], *got.DriverID)
}
