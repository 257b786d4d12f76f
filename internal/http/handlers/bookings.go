package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Emmanuel246/natours/internal/apperr"
	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/domain/booking"
	"github.com/Emmanuel246/natours/internal/domain/job"
	"github.com/Emmanuel246/natours/internal/domain/tour"
	"github.com/Emmanuel246/natours/internal/http/middlewares"
	"github.com/Emmanuel246/natours/internal/jobs"
	"github.com/Emmanuel246/natours/internal/payments"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/Emmanuel246/natours/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingStore interface {
	Create(ctx context.Context, tourID, userID string, price float64) (booking.Booking, error)
	GetByID(ctx context.Context, id string) (booking.Booking, error)
	List(ctx context.Context, p query.Plan) ([]map[string]any, int, error)
	ListByUser(ctx context.Context, userID string, p query.Plan) ([]map[string]any, int, error)
}

type TourReader interface {
	GetByID(ctx context.Context, id string) (tour.Tour, error)
}

type BookingsHandler struct {
	store    BookingStore
	tours    TourReader
	payments payments.Provider
	enqueuer JobEnqueuer
	cfg      config.Config
	log      *slog.Logger
}

func NewBookingsHandler(store BookingStore, tours TourReader, provider payments.Provider, enqueuer JobEnqueuer, cfg config.Config, log *slog.Logger) *BookingsHandler {
	return &BookingsHandler{
		store:    store,
		tours:    tours,
		payments: provider,
		enqueuer: enqueuer,
		cfg:      cfg,
		log:      log,
	}
}

// CheckoutSession opens a payment session for one tour. The claim URL the
// processor redirects to carries everything needed to record the booking;
// there is no webhook leg.
func (h *BookingsHandler) CheckoutSession(ctx *gin.Context) {
	tourID, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondError(ctx, h.log, apperr.Unauthorized("not_logged_in", "You are not logged in. Please log in to get access."))
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	t, err := h.tours.GetByID(cctx, tourID)

	if err != nil {
		if errors.Is(err, tour.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("tour_not_found", "No tour found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	claim := url.Values{}
	claim.Set("tour", t.ID)
	claim.Set("user", u.ID)
	claim.Set("price", strconv.FormatFloat(t.Price, 'f', 2, 64))

	session, err := h.payments.CreateCheckoutSession(cctx, payments.CheckoutInput{
		TourID:        t.ID,
		TourName:      t.Name,
		TourSummary:   t.Summary,
		Price:         t.Price,
		CustomerEmail: u.Email,
		SuccessURL:    h.cfg.PublicBaseURL + "/api/v1/bookings/claim?" + claim.Encode(),
		CancelURL:     h.cfg.PublicBaseURL + "/api/v1/tours/" + t.ID,
	})

	if err != nil {
		RespondError(ctx, h.log, apperr.Upstream("checkout_failed", "Could not start the checkout. Try again later.", err))
		return
	}

	RespondOK(ctx, gin.H{"session": session})
}

// Claim is the success-redirect target. It records the paid booking and
// queues the confirmation mail, then bounces the browser home.
func (h *BookingsHandler) Claim(ctx *gin.Context) {
	tourID := ctx.Query("tour")
	userID := ctx.Query("user")
	price, priceErr := strconv.ParseFloat(ctx.Query("price"), 64)

	home := h.cfg.PublicBaseURL + "/"

	if tourID == "" || userID == "" || priceErr != nil {
		ctx.Redirect(http.StatusFound, home)
		return
	}

	if _, err := uuid.Parse(tourID); err != nil {
		ctx.Redirect(http.StatusFound, home)
		return
	}

	if _, err := uuid.Parse(userID); err != nil {
		ctx.Redirect(http.StatusFound, home)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.store.Create(cctx, tourID, userID, price)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "record booking",
			slog.String("tour_id", tourID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)

		ctx.Redirect(http.StatusFound, home)
		return
	}

	h.enqueueConfirmation(ctx, b)

	ctx.Redirect(http.StatusFound, home)
}

func (h *BookingsHandler) List(ctx *gin.Context) {
	plan, err := query.Parse(ctx.Request.URL.Query(), postgres.BookingSchema)

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

	RespondList(ctx, "bookings", docs, len(docs), total)
}

func (h *BookingsHandler) Get(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("booking_not_found", "No booking found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondOK(ctx, gin.H{"booking": b})
}

// MyBookings lists the signed-in user's own bookings.
func (h *BookingsHandler) MyBookings(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondError(ctx, h.log, apperr.Unauthorized("not_logged_in", "You are not logged in. Please log in to get access."))
		return
	}

	plan, err := query.Parse(ctx.Request.URL.Query(), postgres.BookingSchema)

	if err != nil {
		RespondError(ctx, h.log, err)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	docs, total, err := h.store.ListByUser(cctx, u.ID, plan)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondList(ctx, "bookings", docs, len(docs), total)
}

// enqueueConfirmation is best-effort; a lost mail never voids a paid booking.
func (h *BookingsHandler) enqueueConfirmation(ctx *gin.Context, b booking.Booking) {
	raw, err := jobs.EncodePayload(jobs.JobSendBookingConfirmation, jobs.SendBookingConfirmationPayload{
		BookingID: b.ID,
		UserID:    b.UserID,
		TourID:    b.TourID,
		RequestID: requestIDFrom(ctx),
	})

	if err == nil {
		_, err = h.enqueuer.Create(ctx.Request.Context(), job.CreateRequest{
			Type:    string(jobs.JobSendBookingConfirmation),
			Payload: raw,
		})
	}

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "enqueue booking confirmation",
			slog.String("booking_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}
