package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Emmanuel246/natours/internal/domain/tour"
	"github.com/Emmanuel246/natours/internal/observability"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTourNameTaken = errors.New("tour name already exists")

// TourSchema is the query-shaping boundary for tour listings.
var TourSchema = query.NewSchema("tours", "id", "createdAt",
	query.FieldDef{Name: "id", Column: "id"},
	query.FieldDef{Name: "name", Column: "name"},
	query.FieldDef{Name: "slug", Column: "slug"},
	query.FieldDef{Name: "duration", Column: "duration"},
	query.FieldDef{Name: "maxGroupSize", Column: "max_group_size"},
	query.FieldDef{Name: "difficulty", Column: "difficulty"},
	query.FieldDef{Name: "ratingsAverage", Column: "ratings_average"},
	query.FieldDef{Name: "ratingsQuantity", Column: "ratings_quantity"},
	query.FieldDef{Name: "price", Column: "price"},
	query.FieldDef{Name: "summary", Column: "summary"},
	query.FieldDef{Name: "createdAt", Column: "created_at"},
)

type ToursRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewToursRepo(pool *pgxpool.Pool, prom *observability.Prom) *ToursRepo {
	return &ToursRepo{pool: pool, prom: prom}
}

func (r *ToursRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const tourColumns = `id, name, slug, duration, max_group_size, difficulty,
	ratings_average, ratings_quantity, price, summary, description,
	image_cover, start_lat, start_lng, start_description, created_at, updated_at`

// haversineKm measures the great-circle distance in kilometers between the
// ($1, $2) query point and a tour's start location.
const haversineKm = `2 * 6371 * ASIN(SQRT(
	POWER(SIN(RADIANS((start_lat - $1) / 2)), 2) +
	COS(RADIANS($1)) * COS(RADIANS(start_lat)) *
	POWER(SIN(RADIANS((start_lng - $2) / 2)), 2)))`

func scanTour(row pgx.Row) (tour.Tour, error) {
	var t tour.Tour
	var startLat, startLng *float64
	var startDescription string

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.Duration,
		&t.MaxGroupSize,
		&t.Difficulty,
		&t.RatingsAverage,
		&t.RatingsQuantity,
		&t.Price,
		&t.Summary,
		&t.Description,
		&t.ImageCover,
		&startLat,
		&startLng,
		&startDescription,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tour.Tour{}, tour.ErrNotFound
		}
		return tour.Tour{}, err
	}

	if startLat != nil && startLng != nil {
		t.StartLocation = &tour.Location{Lat: *startLat, Lng: *startLng, Description: startDescription}
	}

	return t, nil
}

func (r *ToursRepo) Create(ctx context.Context, req tour.CreateTourRequest) (tour.Tour, error) {
	now := time.Now().UTC()

	t := tour.Tour{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Slug:           tour.Slugify(req.Name),
		Duration:       req.Duration,
		MaxGroupSize:   req.MaxGroupSize,
		Difficulty:     req.Difficulty,
		RatingsAverage: 4.5,
		Price:          req.Price,
		Summary:        req.Summary,
		Description:    req.Description,
		ImageCover:     req.ImageCover,
		StartLocation:  req.StartLocation,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var startLat, startLng *float64
	startDescription := ""

	if t.StartLocation != nil {
		startLat = &t.StartLocation.Lat
		startLng = &t.StartLocation.Lng
		startDescription = t.StartLocation.Description
	}

	err := r.observe("tours.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tours (id, name, slug, duration, max_group_size, difficulty,
				ratings_average, ratings_quantity, price, summary, description,
				image_cover, start_lat, start_lng, start_description, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			t.ID, t.Name, t.Slug, t.Duration, t.MaxGroupSize, t.Difficulty,
			t.RatingsAverage, t.RatingsQuantity, t.Price, t.Summary, t.Description,
			t.ImageCover, startLat, startLng, startDescription, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return tour.Tour{}, ErrTourNameTaken
		}
		return tour.Tour{}, err
	}

	return t, nil
}

func (r *ToursRepo) List(ctx context.Context, p query.Plan) ([]map[string]any, int, error) {
	var docs []map[string]any
	var total int

	err := r.observe("tours.list", func() error {
		var err error
		docs, total, err = listShaped(ctx, r.pool, TourSchema, p)
		return err
	})

	return docs, total, err
}

func (r *ToursRepo) GetByID(ctx context.Context, id string) (tour.Tour, error) {
	var t tour.Tour
	var err error

	obsErr := r.observe("tours.get_by_id", func() error {
		t, err = scanTour(r.pool.QueryRow(ctx,
			`SELECT `+tourColumns+` FROM tours WHERE id = $1`, id,
		))
		return err
	})

	if obsErr != nil {
		return tour.Tour{}, obsErr
	}
	return t, nil
}

func (r *ToursRepo) Update(ctx context.Context, id string, req tour.UpdateTourRequest) (tour.Tour, error) {
	var slug *string

	if req.Name != nil {
		s := tour.Slugify(*req.Name)
		slug = &s
	}

	var startLat, startLng *float64
	var startDescription *string

	if req.StartLocation != nil {
		startLat = &req.StartLocation.Lat
		startLng = &req.StartLocation.Lng
		startDescription = &req.StartLocation.Description
	}

	var t tour.Tour
	var err error

	obsErr := r.observe("tours.update", func() error {
		t, err = scanTour(r.pool.QueryRow(ctx,
			`UPDATE tours
			SET name              = COALESCE($2, name),
			    slug              = COALESCE($3, slug),
			    duration          = COALESCE($4, duration),
			    max_group_size    = COALESCE($5, max_group_size),
			    difficulty        = COALESCE($6, difficulty),
			    price             = COALESCE($7, price),
			    summary           = COALESCE($8, summary),
			    description       = COALESCE($9, description),
			    image_cover       = COALESCE($10, image_cover),
			    start_lat         = COALESCE($11, start_lat),
			    start_lng         = COALESCE($12, start_lng),
			    start_description = COALESCE($13, start_description),
			    updated_at        = NOW()
			WHERE id = $1
			RETURNING `+tourColumns,
			id, req.Name, slug, req.Duration, req.MaxGroupSize, req.Difficulty,
			req.Price, req.Summary, req.Description, req.ImageCover,
			startLat, startLng, startDescription,
		))
		return err
	})

	if obsErr != nil {
		if IsUniqueViolation(obsErr) {
			return tour.Tour{}, ErrTourNameTaken
		}
		return tour.Tour{}, obsErr
	}
	return t, nil
}

func (r *ToursRepo) Delete(ctx context.Context, id string) error {
	return r.observe("tours.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return tour.ErrNotFound
		}
		return nil
	})
}

// Stats aggregates rating and price figures per difficulty tier.
func (r *ToursRepo) Stats(ctx context.Context) ([]tour.Stats, error) {
	var out []tour.Stats

	err := r.observe("tours.stats", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT difficulty,
				COUNT(*),
				COALESCE(SUM(ratings_quantity), 0),
				COALESCE(AVG(ratings_average), 0),
				COALESCE(AVG(price), 0),
				COALESCE(MIN(price), 0),
				COALESCE(MAX(price), 0)
			FROM tours
			GROUP BY difficulty
			ORDER BY AVG(price) ASC`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var s tour.Stats

			err = rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings, &s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice)

			if err != nil {
				return err
			}
			out = append(out, s)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithinRadius lists tours whose start location falls inside the circle of
// radiusKm around the query point, nearest first.
func (r *ToursRepo) WithinRadius(ctx context.Context, lat, lng, radiusKm float64) ([]tour.Tour, error) {
	var out []tour.Tour

	err := r.observe("tours.within_radius", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+tourColumns+`
			FROM tours
			WHERE start_lat IS NOT NULL
			  AND `+haversineKm+` <= $3
			ORDER BY `+haversineKm+` ASC`,
			lat, lng, radiusKm,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			t, err := scanTour(rows)

			if err != nil {
				return err
			}
			out = append(out, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// DistancesFrom measures each located tour's distance from the query point
// in kilometers, nearest first. Unit conversion is the caller's concern.
func (r *ToursRepo) DistancesFrom(ctx context.Context, lat, lng float64) ([]tour.Distance, error) {
	var out []tour.Distance

	err := r.observe("tours.distances_from", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, name, `+haversineKm+` AS distance
			FROM tours
			WHERE start_lat IS NOT NULL
			ORDER BY distance ASC`,
			lat, lng,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var d tour.Distance

			err = rows.Scan(&d.ID, &d.Name, &d.Distance)

			if err != nil {
				return err
			}
			out = append(out, d)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// MonthlyPlan counts tours created per month of the given year, busiest
// month first.
func (r *ToursRepo) MonthlyPlan(ctx context.Context, year int) ([]tour.MonthlyPlanEntry, error) {
	var out []tour.MonthlyPlanEntry

	err := r.observe("tours.monthly_plan", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT EXTRACT(MONTH FROM created_at)::int AS month,
				COUNT(*),
				ARRAY_AGG(name ORDER BY name)
			FROM tours
			WHERE EXTRACT(YEAR FROM created_at) = $1
			GROUP BY month
			ORDER BY COUNT(*) DESC, month ASC`,
			year,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var e tour.MonthlyPlanEntry

			err = rows.Scan(&e.Month, &e.NumTours, &e.Tours)

			if err != nil {
				return err
			}
			out = append(out, e)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}
