package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Emmanuel246/natours/internal/domain/booking"
	"github.com/Emmanuel246/natours/internal/observability"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingSchema is the query-shaping boundary for booking listings.
var BookingSchema = query.NewSchema("bookings", "id", "createdAt",
	query.FieldDef{Name: "id", Column: "id"},
	query.FieldDef{Name: "tourId", Column: "tour_id"},
	query.FieldDef{Name: "userId", Column: "user_id"},
	query.FieldDef{Name: "price", Column: "price"},
	query.FieldDef{Name: "paid", Column: "paid"},
	query.FieldDef{Name: "createdAt", Column: "created_at"},
)

type BookingsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBookingsRepo(pool *pgxpool.Pool, prom *observability.Prom) *BookingsRepo {
	return &BookingsRepo{pool: pool, prom: prom}
}

func (r *BookingsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *BookingsRepo) Create(ctx context.Context, tourID, userID string, price float64) (booking.Booking, error) {
	now := time.Now().UTC()

	b := booking.Booking{
		ID:        uuid.NewString(),
		TourID:    tourID,
		UserID:    userID,
		Price:     price,
		Paid:      true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.observe("bookings.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO bookings (id, tour_id, user_id, price, paid, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			b.ID, b.TourID, b.UserID, b.Price, b.Paid, b.CreatedAt, b.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return booking.Booking{}, err
	}

	return b, nil
}

func (r *BookingsRepo) GetByID(ctx context.Context, id string) (booking.Booking, error) {
	var b booking.Booking

	obsErr := r.observe("bookings.get_by_id", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT id, tour_id, user_id, price, paid, created_at, updated_at
			FROM bookings WHERE id = $1`, id,
		).Scan(&b.ID, &b.TourID, &b.UserID, &b.Price, &b.Paid, &b.CreatedAt, &b.UpdatedAt)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return booking.ErrNotFound
			}
			return err
		}
		return nil
	})

	if obsErr != nil {
		return booking.Booking{}, obsErr
	}
	return b, nil
}

func (r *BookingsRepo) List(ctx context.Context, p query.Plan) ([]map[string]any, int, error) {
	var docs []map[string]any
	var total int

	err := r.observe("bookings.list", func() error {
		var err error
		docs, total, err = listShaped(ctx, r.pool, BookingSchema, p)
		return err
	})

	return docs, total, err
}

// ListByUser powers the "my bookings" view.
func (r *BookingsRepo) ListByUser(ctx context.Context, userID string, p query.Plan) ([]map[string]any, int, error) {
	scoped := p
	scoped.Filters = append([]query.Condition{{Field: "userId", Op: query.OpEq, Value: userID}}, p.Filters...)

	var docs []map[string]any
	var total int

	err := r.observe("bookings.list_by_user", func() error {
		var err error
		docs, total, err = listShaped(ctx, r.pool, BookingSchema, scoped)
		return err
	})

	return docs, total, err
}
