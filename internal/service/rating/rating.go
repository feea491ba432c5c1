package rating

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/metrics"
	"github.com/generalbusiness/allodakar/internal/models"
	"github.com/generalbusiness/allodakar/internal/repository"
)

const (
	minScore = 1
	maxScore = 5
)

type SubmitParams struct {
	RatedID   uuid.UUID
	BookingID uuid.UUID
	Score     int
	Comment   *string
}

// Ratings parties of a booking give each other
// Every new rating recomputes the rated user's average in the same db transaction
type RatingService struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) *RatingService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &RatingService{
		storage: storage,
		logger:  l.With("component", "rating"),
	}
}

func (s *RatingService) Submit(ctx context.Context, rater uuid.UUID, p SubmitParams) (models.Rating, error) {
	if p.Score < minScore || p.Score > maxScore {
		return models.Rating{}, apperrors.ErrRatingScoreBounds
	}
	if p.Comment != nil {
		comment := strings.TrimSpace(*p.Comment)
		p.Comment = &comment
		if comment == "" {
			p.Comment = nil
		}
	}

	var created models.Rating
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		booking, err := storage.Booking().Get(ctx, p.BookingID, false)
		if err != nil {
			return err
		}
		if !booking.IsParty(rater) {
			return apperrors.ErrNotBookingParty
		}
		if other, ok := booking.Counterparty(rater); !ok || other != p.RatedID {
			return apperrors.ErrRatingTarget
		}

		// Concurrent raters of the same user must not recompute from stale snapshots
		if err := storage.User().LockUser(ctx, p.RatedID); err != nil {
			return err
		}

		created, err = storage.Rating().Create(ctx, models.Rating{
			BookingID: p.BookingID,
			RaterID:   rater,
			RatedID:   p.RatedID,
			Score:     p.Score,
			Comment:   p.Comment,
		})
		if err != nil {
			return err
		}

		average, count, err := storage.Rating().Aggregate(ctx, p.RatedID)
		if err != nil {
			return fmt.Errorf("can't aggregate ratings. Err: %w", err)
		}
		return storage.User().SetRating(ctx, p.RatedID, average, count)
	})
	if err != nil {
		return models.Rating{}, err
	}

	metrics.RecordRating(strconv.Itoa(created.Score))
	s.logger.Info("rating submitted", "booking_id", created.BookingID, "rated_id", created.RatedID, "score", created.Score)
	return created, nil
}

// Ratings the user received with their average
func (s *RatingService) ForUser(ctx context.Context, userID uuid.UUID) (models.RatingSummary, error) {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return models.RatingSummary{}, err
	}

	ratings, err := s.storage.Rating().ListByRated(ctx, userID)
	if err != nil {
		return models.RatingSummary{}, err
	}

	summary := models.RatingSummary{
		UserID:  userID,
		Average: user.AverageRating,
		Count:   user.RatingCount,
		Ratings: ratings,
	}
	if summary.Count == 0 {
		summary.Average = models.DefaultAverageRating
	}
	return summary, nil
}

// Ratings the user gave
func (s *RatingService) ByRater(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	return s.storage.Rating().ListByRater(ctx, userID)
}
