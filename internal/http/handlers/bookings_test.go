package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/domain/booking"
	"github.com/Emmanuel246/natours/internal/domain/tour"
	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/http/handlers"
	"github.com/Emmanuel246/natours/internal/payments"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeBookings struct {
	createFn     func(ctx context.Context, tourID, userID string, price float64) (booking.Booking, error)
	getFn        func(ctx context.Context, id string) (booking.Booking, error)
	listFn       func(ctx context.Context, p query.Plan) ([]map[string]any, int, error)
	listByUserFn func(ctx context.Context, userID string, p query.Plan) ([]map[string]any, int, error)
}

func (f *fakeBookings) Create(ctx context.Context, tourID, userID string, price float64) (booking.Booking, error) {
	if f.createFn != nil {
		return f.createFn(ctx, tourID, userID, price)
	}
	return booking.Booking{}, nil
}

func (f *fakeBookings) GetByID(ctx context.Context, id string) (booking.Booking, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return booking.Booking{}, booking.ErrNotFound
}

func (f *fakeBookings) List(ctx context.Context, p query.Plan) ([]map[string]any, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, p)
	}
	return []map[string]any{}, 0, nil
}

func (f *fakeBookings) ListByUser(ctx context.Context, userID string, p query.Plan) ([]map[string]any, int, error) {
	if f.listByUserFn != nil {
		return f.listByUserFn(ctx, userID, p)
	}
	return []map[string]any{}, 0, nil
}

type fakeTourReader struct {
	getFn func(ctx context.Context, id string) (tour.Tour, error)
}

func (f *fakeTourReader) GetByID(ctx context.Context, id string) (tour.Tour, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return tour.Tour{}, tour.ErrNotFound
}

type fakeProvider struct {
	gotInput  payments.CheckoutInput
	createErr error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, in payments.CheckoutInput) (payments.CheckoutSession, error) {
	f.gotInput = in
	if f.createErr != nil {
		return payments.CheckoutSession{}, f.createErr
	}
	return payments.CheckoutSession{ID: "cs_test_123", RedirectURL: "https://checkout.example/cs_test_123"}, nil
}

func bookingsTestConfig() config.Config {
	return config.Config{Env: "test", PublicBaseURL: "http://localhost:8080"}
}

func TestCheckoutSession(t *testing.T) {
	tourID := uuid.NewString()
	me := user.User{ID: uuid.NewString(), Email: "leo@example.com", Role: user.RoleUser, Active: true}

	tours := &fakeTourReader{
		getFn: func(_ context.Context, id string) (tour.Tour, error) {
			if id != tourID {
				return tour.Tour{}, tour.ErrNotFound
			}
			return tour.Tour{ID: tourID, Name: "The Forest Hiker", Summary: "Breathtaking", Price: 497}, nil
		},
	}

	provider := &fakeProvider{}
	enqueuer := &fakeEnqueuer{}

	h := handlers.NewBookingsHandler(&fakeBookings{}, tours, provider, enqueuer, bookingsTestConfig(), discardLogger())

	r := gin.New()
	r.GET("/bookings/checkout-session/:id", asUser(me), h.CheckoutSession)

	req := httptest.NewRequest(http.MethodGet, "/bookings/checkout-session/"+tourID, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "cs_test_123") {
		t.Fatalf("body %q should carry the session id", w.Body.String())
	}

	su, err := url.Parse(provider.gotInput.SuccessURL)
	if err != nil {
		t.Fatalf("parse success url: %v", err)
	}
	q := su.Query()
	if q.Get("tour") != tourID || q.Get("user") != me.ID || q.Get("price") != "497.00" {
		t.Fatalf("unexpected claim params %v", q)
	}
	if provider.gotInput.CustomerEmail != me.Email {
		t.Fatalf("got customer email %q, want %q", provider.gotInput.CustomerEmail, me.Email)
	}
}

func TestCheckoutSessionUnknownTour(t *testing.T) {
	me := user.User{ID: uuid.NewString(), Role: user.RoleUser, Active: true}

	h := handlers.NewBookingsHandler(&fakeBookings{}, &fakeTourReader{}, &fakeProvider{}, &fakeEnqueuer{}, bookingsTestConfig(), discardLogger())

	r := gin.New()
	r.GET("/bookings/checkout-session/:id", asUser(me), h.CheckoutSession)

	req := httptest.NewRequest(http.MethodGet, "/bookings/checkout-session/"+uuid.NewString(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
	}
}

func TestClaim(t *testing.T) {
	tourID := uuid.NewString()
	userID := uuid.NewString()

	tests := []struct {
		name       string
		rawQuery   string
		wantCreate bool
	}{
		{
			name:       "valid_claim_records_booking",
			rawQuery:   "tour=" + tourID + "&user=" + userID + "&price=497.00",
			wantCreate: true,
		},
		{
			name:       "missing_price_skips_create",
			rawQuery:   "tour=" + tourID + "&user=" + userID,
			wantCreate: false,
		},
		{
			name:       "garbled_tour_id_skips_create",
			rawQuery:   "tour=not-a-uuid&user=" + userID + "&price=497.00",
			wantCreate: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			created := false

			store := &fakeBookings{
				createFn: func(_ context.Context, gotTour, gotUser string, price float64) (booking.Booking, error) {
					created = true
					if gotTour != tourID || gotUser != userID || price != 497.00 {
						t.Fatalf("create called with tour=%s user=%s price=%v", gotTour, gotUser, price)
					}
					return booking.Booking{ID: uuid.NewString(), TourID: gotTour, UserID: gotUser, Price: price}, nil
				},
			}

			enqueuer := &fakeEnqueuer{}

			h := handlers.NewBookingsHandler(store, &fakeTourReader{}, &fakeProvider{}, enqueuer, bookingsTestConfig(), discardLogger())

			r := gin.New()
			r.GET("/bookings/claim", h.Claim)

			req := httptest.NewRequest(http.MethodGet, "/bookings/claim?"+tc.rawQuery, nil)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			// the browser always lands back home, booked or not
			if w.Code != http.StatusFound {
				t.Fatalf("got status %d, want 302", w.Code)
			}
			if created != tc.wantCreate {
				t.Fatalf("created=%v, want %v", created, tc.wantCreate)
			}
			if tc.wantCreate && len(enqueuer.created) != 1 {
				t.Fatalf("got %d enqueued jobs, want 1", len(enqueuer.created))
			}
		})
	}
}
