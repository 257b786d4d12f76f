package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Emmanuel246/natours/internal/apperr"
	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/domain/review"
	"github.com/Emmanuel246/natours/internal/domain/tour"
	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/http/middlewares"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/Emmanuel246/natours/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

type ReviewStore interface {
	Create(ctx context.Context, tourID, userID string, req review.CreateReviewRequest) (review.Review, error)
	ListByTour(ctx context.Context, tourID string, p query.Plan) ([]map[string]any, int, error)
	GetByID(ctx context.Context, id string) (review.Review, error)
	Update(ctx context.Context, id string, req review.UpdateReviewRequest) (review.Review, error)
	Delete(ctx context.Context, id string) error
}

type ReviewsHandler struct {
	store ReviewStore
	log   *slog.Logger
}

func NewReviewsHandler(store ReviewStore, log *slog.Logger) *ReviewsHandler {
	return &ReviewsHandler{store: store, log: log}
}

// Create handles POST /tours/:tourId/reviews. The author is always the
// signed-in user; the route's role restriction keeps guides and admins from
// reviewing their own product.
func (h *ReviewsHandler) Create(ctx *gin.Context) {
	tourID, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondError(ctx, h.log, apperr.Unauthorized("not_logged_in", "You are not logged in. Please log in to get access."))
		return
	}

	var req review.CreateReviewRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	rv, err := h.store.Create(cctx, tourID, u.ID, req)

	if err != nil {
		switch {
		case errors.Is(err, review.ErrDuplicate):
			RespondError(ctx, h.log, apperr.Conflict("duplicate_review", "You have already reviewed this tour"))
		case errors.Is(err, tour.ErrNotFound):
			RespondError(ctx, h.log, apperr.NotFound("tour_not_found", "No tour found with that ID"))
		default:
			RespondError(ctx, h.log, apperr.Unexpected(err))
		}
		return
	}

	RespondCreated(ctx, gin.H{"review": rv})
}

func (h *ReviewsHandler) ListByTour(ctx *gin.Context) {
	tourID, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	plan, err := query.Parse(ctx.Request.URL.Query(), postgres.ReviewSchema)

	if err != nil {
		RespondError(ctx, h.log, err)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	docs, total, err := h.store.ListByTour(cctx, tourID, plan)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondList(ctx, "reviews", docs, len(docs), total)
}

func (h *ReviewsHandler) Get(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	rv, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("review_not_found", "No review found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondOK(ctx, gin.H{"review": rv})
}

// Update lets the author edit their own review; admins may edit any.
func (h *ReviewsHandler) Update(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	var req review.UpdateReviewRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if !h.mayTouch(ctx, cctx, id) {
		return
	}

	rv, err := h.store.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("review_not_found", "No review found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondOK(ctx, gin.H{"review": rv})
}

func (h *ReviewsHandler) Delete(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if !h.mayTouch(ctx, cctx, id) {
		return
	}

	if err := h.store.Delete(cctx, id); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("review_not_found", "No review found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondNoContent(ctx)
}

// mayTouch enforces ownership for non-admin writers. It answers the request
// itself when the caller may not proceed.
func (h *ReviewsHandler) mayTouch(ctx *gin.Context, cctx context.Context, reviewID string) bool {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondError(ctx, h.log, apperr.Unauthorized("not_logged_in", "You are not logged in. Please log in to get access."))
		return false
	}

	if u.Role == user.RoleAdmin {
		return true
	}

	rv, err := h.store.GetByID(cctx, reviewID)

	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("review_not_found", "No review found with that ID"))
			return false
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return false
	}

	if rv.UserID != u.ID {
		RespondError(ctx, h.log, apperr.Forbidden("not_owner", "You do not have permission to perform this action."))
		return false
	}

	return true
}
