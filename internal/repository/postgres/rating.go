package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/models"
)

type RatingRepo struct {
	DB DBTX
}

const ratingColumns = `id, created_at, booking_id, rater_id, rated_id, score, comment`

const createRating = `-- name: CreateRating
INSERT INTO ratings (id, booking_id, rater_id, rated_id, score, comment)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + ratingColumns

func (r *RatingRepo) Create(ctx context.Context, rating models.Rating) (models.Rating, error) {
	rows, _ := r.DB.Query(ctx, createRating, uuid.New(), rating.BookingID, rating.RaterID, rating.RatedID, rating.Score, rating.Comment)
	created, err := pgx.CollectOneRow(rows, rowToRating)

	switch {
	case err == nil:
		return created, nil
	case isUniqueViolation(err, "ratings_booking_id_rater_id_key"):
		return created, apperrors.ErrRatingExists
	default:
		return created, fmt.Errorf("db error: %w", err)
	}
}

const listByRated = `-- name: ListRatingsByRated
SELECT ` + ratingColumns + ` FROM ratings
WHERE rated_id = $1
ORDER BY created_at DESC, id
`

func (r *RatingRepo) ListByRated(ctx context.Context, ratedID uuid.UUID) ([]models.Rating, error) {
	rows, _ := r.DB.Query(ctx, listByRated, ratedID)
	return collectRatings(rows)
}

const listByRater = `-- name: ListRatingsByRater
SELECT ` + ratingColumns + ` FROM ratings
WHERE rater_id = $1
ORDER BY created_at DESC, id
`

func (r *RatingRepo) ListByRater(ctx context.Context, raterID uuid.UUID) ([]models.Rating, error) {
	rows, _ := r.DB.Query(ctx, listByRater, raterID)
	return collectRatings(rows)
}

const aggregateRatings = `-- name: AggregateRatings
SELECT COALESCE(ROUND(AVG(score), 2), 0)::NUMERIC(3, 2), COUNT(*)
FROM ratings
WHERE rated_id = $1
`

func (r *RatingRepo) Aggregate(ctx context.Context, ratedID uuid.UUID) (decimal.Decimal, int, error) {
	var (
		avg   decimal.Decimal
		count int
	)
	err := r.DB.QueryRow(ctx, aggregateRatings, ratedID).Scan(&avg, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("db error: %w", err)
	}
	return avg, count, nil
}

func collectRatings(rows pgx.Rows) ([]models.Rating, error) {
	ratings, err := pgx.CollectRows(rows, rowToRating)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ratings, nil
}

func rowToRating(row pgx.CollectableRow) (models.Rating, error) {
	var r models.Rating
	err := row.Scan(&r.ID, &r.CreatedAt, &r.BookingID, &r.RaterID, &r.RatedID, &r.Score, &r.Comment)
	return r, err
}
