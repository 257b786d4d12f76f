package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Emmanuel246/natours/internal/domain/review"
	"github.com/Emmanuel246/natours/internal/domain/tour"
	"github.com/Emmanuel246/natours/internal/observability"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewSchema is the query-shaping boundary for review listings.
var ReviewSchema = query.NewSchema("reviews", "id", "createdAt",
	query.FieldDef{Name: "id", Column: "id"},
	query.FieldDef{Name: "tourId", Column: "tour_id"},
	query.FieldDef{Name: "userId", Column: "user_id"},
	query.FieldDef{Name: "review", Column: "review"},
	query.FieldDef{Name: "rating", Column: "rating"},
	query.FieldDef{Name: "createdAt", Column: "created_at"},
)

type ReviewsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewReviewsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ReviewsRepo {
	return &ReviewsRepo{pool: pool, prom: prom}
}

func (r *ReviewsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const reviewColumns = `id, tour_id, user_id, review, rating, created_at, updated_at`

func scanReview(row pgx.Row) (review.Review, error) {
	var rv review.Review

	err := row.Scan(&rv.ID, &rv.TourID, &rv.UserID, &rv.Review, &rv.Rating, &rv.CreatedAt, &rv.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, err
	}

	return rv, nil
}

// Create inserts the review and refreshes the tour's rating aggregate in the
// same transaction, so a listed tour never shows a count its reviews don't
// back up.
func (r *ReviewsRepo) Create(ctx context.Context, tourID, userID string, req review.CreateReviewRequest) (review.Review, error) {
	now := time.Now().UTC()

	rv := review.Review{
		ID:        uuid.NewString(),
		TourID:    tourID,
		UserID:    userID,
		Review:    req.Review,
		Rating:    req.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.observe("reviews.create", func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx,
				`INSERT INTO reviews (id, tour_id, user_id, review, rating, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				rv.ID, rv.TourID, rv.UserID, rv.Review, rv.Rating, rv.CreatedAt, rv.UpdatedAt,
			)

			if err != nil {
				return err
			}

			return recalcTourRatings(ctx, tx, tourID)
		})
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return review.Review{}, review.ErrDuplicate
		}
		if IsForeignKeyViolation(err) {
			return review.Review{}, tour.ErrNotFound
		}
		return review.Review{}, err
	}

	return rv, nil
}

func (r *ReviewsRepo) ListByTour(ctx context.Context, tourID string, p query.Plan) ([]map[string]any, int, error) {
	// scope the shaped query to one tour by injecting an equality condition
	scoped := p
	scoped.Filters = append([]query.Condition{{Field: "tourId", Op: query.OpEq, Value: tourID}}, p.Filters...)

	var docs []map[string]any
	var total int

	err := r.observe("reviews.list_by_tour", func() error {
		var err error
		docs, total, err = listShaped(ctx, r.pool, ReviewSchema, scoped)
		return err
	})

	return docs, total, err
}

func (r *ReviewsRepo) GetByID(ctx context.Context, id string) (review.Review, error) {
	var rv review.Review
	var err error

	obsErr := r.observe("reviews.get_by_id", func() error {
		rv, err = scanReview(r.pool.QueryRow(ctx,
			`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id,
		))
		return err
	})

	if obsErr != nil {
		return review.Review{}, obsErr
	}
	return rv, nil
}

func (r *ReviewsRepo) Update(ctx context.Context, id string, req review.UpdateReviewRequest) (review.Review, error) {
	var rv review.Review

	err := r.observe("reviews.update", func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			var err error

			rv, err = scanReview(tx.QueryRow(ctx,
				`UPDATE reviews
				SET review = COALESCE($2, review),
				    rating = COALESCE($3, rating),
				    updated_at = NOW()
				WHERE id = $1
				RETURNING `+reviewColumns,
				id, req.Review, req.Rating,
			))

			if err != nil {
				return err
			}

			return recalcTourRatings(ctx, tx, rv.TourID)
		})
	})

	if err != nil {
		return review.Review{}, err
	}
	return rv, nil
}

func (r *ReviewsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("reviews.delete", func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			var tourID string

			err := tx.QueryRow(ctx, `DELETE FROM reviews WHERE id = $1 RETURNING tour_id`, id).Scan(&tourID)

			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return review.ErrNotFound
				}
				return err
			}

			return recalcTourRatings(ctx, tx, tourID)
		})
	})
}

// recalcTourRatings recomputes ratings_quantity/ratings_average from the
// surviving reviews. A tour with no reviews falls back to the 4.5 default.
func recalcTourRatings(ctx context.Context, tx pgx.Tx, tourID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE tours
		SET ratings_quantity = agg.qty,
		    ratings_average  = agg.avg,
		    updated_at       = NOW()
		FROM (
			SELECT COUNT(*) AS qty, COALESCE(AVG(rating), 4.5) AS avg
			FROM reviews WHERE tour_id = $1
		) AS agg
		WHERE tours.id = $1`,
		tourID,
	)
	return err
}
