package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Emmanuel246/natours/internal/apperr"
	"github.com/Emmanuel246/natours/internal/cache"
	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/domain/tour"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/Emmanuel246/natours/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	statsCacheKey    = "tours:stats"
	topToursCacheKey = "tours:top5"
)

type TourStore interface {
	List(ctx context.Context, p query.Plan) ([]map[string]any, int, error)
	GetByID(ctx context.Context, id string) (tour.Tour, error)
	Create(ctx context.Context, req tour.CreateTourRequest) (tour.Tour, error)
	Update(ctx context.Context, id string, req tour.UpdateTourRequest) (tour.Tour, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]tour.Stats, error)
	MonthlyPlan(ctx context.Context, year int) ([]tour.MonthlyPlanEntry, error)
	WithinRadius(ctx context.Context, lat, lng, radiusKm float64) ([]tour.Tour, error)
	DistancesFrom(ctx context.Context, lat, lng float64) ([]tour.Distance, error)
}

type ToursHandler struct {
	store TourStore
	cache cache.Cache
	log   *slog.Logger
}

func NewToursHandler(store TourStore, c cache.Cache, log *slog.Logger) *ToursHandler {
	return &ToursHandler{store: store, cache: c, log: log}
}

// AliasTopTours presets the list query for the "top 5 cheap" shortcut
// route; the regular List handler does the rest.
func AliasTopTours() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := url.Values{}
		q.Set("limit", "5")
		q.Set("sort", "-ratingsAverage,price")
		q.Set("fields", "name,price,ratingsAverage,summary,difficulty")

		c.Request.URL.RawQuery = q.Encode()
		c.Next()
	}
}

func (h *ToursHandler) List(ctx *gin.Context) {
	plan, err := query.Parse(ctx.Request.URL.Query(), postgres.TourSchema)

	if err != nil {
		RespondError(ctx, h.log, err)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	docs, total, err := h.store.List(cctx, plan)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondList(ctx, "tours", docs, len(docs), total)
}

// ListTop serves the top-5 shortcut with a cache in front: the preset query
// never varies, so one entry covers every caller.
func (h *ToursHandler) ListTop(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if raw, ok := h.cache.Get(cctx, topToursCacheKey); ok {
		var cached struct {
			Docs  []map[string]any `json:"docs"`
			Total int              `json:"total"`
		}

		if err := json.Unmarshal(raw, &cached); err == nil {
			RespondList(ctx, "tours", cached.Docs, len(cached.Docs), cached.Total)
			return
		}
	}

	plan, err := query.Parse(ctx.Request.URL.Query(), postgres.TourSchema)

	if err != nil {
		RespondError(ctx, h.log, err)
		return
	}

	docs, total, err := h.store.List(cctx, plan)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	if raw, err := json.Marshal(struct {
		Docs  []map[string]any `json:"docs"`
		Total int              `json:"total"`
	}{docs, total}); err == nil {
		h.cache.Set(cctx, topToursCacheKey, raw)
	}

	RespondList(ctx, "tours", docs, len(docs), total)
}

func (h *ToursHandler) Get(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	t, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, tour.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("tour_not_found", "No tour found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondOK(ctx, gin.H{"tour": t})
}

func (h *ToursHandler) Create(ctx *gin.Context) {
	var req tour.CreateTourRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t, err := h.store.Create(cctx, req)

	if err != nil {
		if errors.Is(err, postgres.ErrTourNameTaken) {
			RespondError(ctx, h.log, apperr.Conflict("tour_name_taken", "A tour with that name already exists"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	h.cache.Delete(cctx, statsCacheKey)
	h.cache.Delete(cctx, topToursCacheKey)

	RespondCreated(ctx, gin.H{"tour": t})
}

func (h *ToursHandler) Update(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	var req tour.UpdateTourRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t, err := h.store.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, tour.ErrNotFound):
			RespondError(ctx, h.log, apperr.NotFound("tour_not_found", "No tour found with that ID"))
		case errors.Is(err, postgres.ErrTourNameTaken):
			RespondError(ctx, h.log, apperr.Conflict("tour_name_taken", "A tour with that name already exists"))
		default:
			RespondError(ctx, h.log, apperr.Unexpected(err))
		}
		return
	}

	h.cache.Delete(cctx, statsCacheKey)
	h.cache.Delete(cctx, topToursCacheKey)

	RespondOK(ctx, gin.H{"tour": t})
}

func (h *ToursHandler) Delete(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.store.Delete(cctx, id); err != nil {
		if errors.Is(err, tour.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("tour_not_found", "No tour found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	h.cache.Delete(cctx, statsCacheKey)
	h.cache.Delete(cctx, topToursCacheKey)

	RespondNoContent(ctx)
}

// Stats serves the per-difficulty aggregates, cached because the numbers
// move slowly and the aggregation scans the whole table.
func (h *ToursHandler) Stats(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if raw, ok := h.cache.Get(cctx, statsCacheKey); ok {
		var stats []tour.Stats

		if err := json.Unmarshal(raw, &stats); err == nil {
			RespondOK(ctx, gin.H{"stats": stats})
			return
		}
	}

	stats, err := h.store.Stats(cctx)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	if raw, err := json.Marshal(stats); err == nil {
		h.cache.Set(cctx, statsCacheKey, raw)
	}

	RespondOK(ctx, gin.H{"stats": stats})
}

func (h *ToursHandler) MonthlyPlan(ctx *gin.Context) {
	year, err := strconv.Atoi(ctx.Param("year"))

	if err != nil || year < 1900 || year > 3000 {
		RespondError(ctx, h.log, apperr.Validation("bad_year", "Year must be a four-digit number"))
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	plan, err := h.store.MonthlyPlan(cctx, year)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondOK(ctx, gin.H{"plan": plan})
}

const (
	unitMiles = "mi"
	unitKm    = "km"

	milesPerKm = 0.621371
	kmPerMile  = 1.609344
)

// Within lists the tours starting inside a circle around a point, for
// "what can I do near here" searches.
func (h *ToursHandler) Within(ctx *gin.Context) {
	dist, err := strconv.ParseFloat(ctx.Param("distance"), 64)

	if err != nil || dist <= 0 {
		RespondError(ctx, h.log, apperr.Validation("bad_distance", "Distance must be a positive number"))
		return
	}

	lat, lng, ok := latLngParam(ctx, h.log)
	if !ok {
		return
	}

	unit, ok := unitParam(ctx, h.log)
	if !ok {
		return
	}

	radiusKm := dist
	if unit == unitMiles {
		radiusKm = dist * kmPerMile
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	docs, err := h.store.WithinRadius(cctx, lat, lng, radiusKm)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondList(ctx, "tours", docs, len(docs), len(docs))
}

// Distances reports how far every located tour starts from a point, in the
// requested unit.
func (h *ToursHandler) Distances(ctx *gin.Context) {
	lat, lng, ok := latLngParam(ctx, h.log)
	if !ok {
		return
	}

	unit, ok := unitParam(ctx, h.log)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	distances, err := h.store.DistancesFrom(cctx, lat, lng)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	if unit == unitMiles {
		for i := range distances {
			distances[i].Distance *= milesPerKm
		}
	}

	RespondOK(ctx, gin.H{"distances": distances})
}

// latLngParam parses the :latlng path segment ("lat,lng" in degrees).
func latLngParam(ctx *gin.Context, log *slog.Logger) (float64, float64, bool) {
	parts := strings.Split(ctx.Param("latlng"), ",")

	if len(parts) != 2 {
		RespondError(ctx, log, apperr.Validation("bad_latlng",
			"Please provide latitude and longitude in the format lat,lng."))
		return 0, 0, false
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)

	if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		RespondError(ctx, log, apperr.Validation("bad_latlng",
			"Please provide latitude and longitude in the format lat,lng."))
		return 0, 0, false
	}

	return lat, lng, true
}

func unitParam(ctx *gin.Context, log *slog.Logger) (string, bool) {
	unit := ctx.Param("unit")

	if unit != unitMiles && unit != unitKm {
		RespondError(ctx, log, apperr.Validation("bad_unit", "Unit must be mi or km"))
		return "", false
	}

	return unit, true
}

// idParam validates the :id path segment before it reaches the store, so a
// garbled ID reads as a 400 rather than a database error.
func idParam(ctx *gin.Context, log *slog.Logger) (string, bool) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondError(ctx, log, apperr.Validation("bad_id", "Invalid ID: "+id))
		return "", false
	}

	return id, true
}
