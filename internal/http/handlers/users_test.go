package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/http/handlers"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/Emmanuel246/natours/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeUserStore struct {
	getFn           func(ctx context.Context, id string) (user.User, error)
	listFn          func(ctx context.Context, p query.Plan) ([]map[string]any, int, error)
	updateProfileFn func(ctx context.Context, id string, req user.UpdateMeRequest) (user.User, error)
	deactivateFn    func(ctx context.Context, id string) error
	adminUpdateFn   func(ctx context.Context, id string, req user.AdminUpdateRequest) (user.User, error)
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) List(ctx context.Context, p query.Plan) ([]map[string]any, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, p)
	}
	return []map[string]any{}, 0, nil
}

func (f *fakeUserStore) UpdateProfile(ctx context.Context, id string, req user.UpdateMeRequest) (user.User, error) {
	if f.updateProfileFn != nil {
		return f.updateProfileFn(ctx, id, req)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) Deactivate(ctx context.Context, id string) error {
	if f.deactivateFn != nil {
		return f.deactivateFn(ctx, id)
	}
	return user.ErrNotFound
}

func (f *fakeUserStore) AdminUpdate(ctx context.Context, id string, req user.AdminUpdateRequest) (user.User, error) {
	if f.adminUpdateFn != nil {
		return f.adminUpdateFn(ctx, id, req)
	}
	return user.User{}, user.ErrNotFound
}

func newUsersHandler(store *fakeUserStore) *handlers.UsersHandler {
	return handlers.NewUsersHandler(store, discardLogger())
}

func TestUpdateMe(t *testing.T) {
	me := user.User{ID: uuid.NewString(), Name: "Leo", Email: "leo@example.com", Role: user.RoleUser, Active: true}

	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUserStore)
		wantStatusCode int
		wantInBody     string
	}{
		{
			name: "success",
			body: `{"name": "Leonardo", "email": "leonardo@example.com"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.updateProfileFn = func(_ context.Context, id string, req user.UpdateMeRequest) (user.User, error) {
					if id != me.ID {
						t.Fatalf("update called for id %s, want %s", id, me.ID)
					}
					u := me
					u.Name = req.Name
					u.Email = req.Email
					return u, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantInBody:     "Leonardo",
		},
		{
			name:           "password_field_rejected",
			body:           `{"name": "Leonardo", "password": "hunter22aa"}`,
			wantStatusCode: http.StatusBadRequest,
			wantInBody:     "not for password updates",
		},
		{
			name:           "password_confirm_rejected",
			body:           `{"passwordConfirm": "hunter22aa"}`,
			wantStatusCode: http.StatusBadRequest,
			wantInBody:     "not for password updates",
		},
		{
			name:           "invalid_email",
			body:           `{"email": "not-an-email"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "email_taken",
			body: `{"email": "taken@example.com"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.updateProfileFn = func(_ context.Context, _ string, _ user.UpdateMeRequest) (user.User, error) {
					return user.User{}, postgres.ErrEmailAlreadyUsed
				}
			},
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUserStore{}
			if tc.storeSetUp != nil {
				tc.storeSetUp(store)
			}

			h := newUsersHandler(store)

			r := gin.New()
			r.PATCH("/users/updateMe", asUser(me), h.UpdateMe)

			req := httptest.NewRequest(http.MethodPatch, "/users/updateMe", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}
			if tc.wantInBody != "" && !strings.Contains(w.Body.String(), tc.wantInBody) {
				t.Fatalf("body %q does not contain %q", w.Body.String(), tc.wantInBody)
			}
		})
	}
}

func TestDeleteMe(t *testing.T) {
	me := user.User{ID: uuid.NewString(), Role: user.RoleUser, Active: true}

	deactivated := ""

	store := &fakeUserStore{
		deactivateFn: func(_ context.Context, id string) error {
			deactivated = id
			return nil
		},
	}

	h := newUsersHandler(store)

	r := gin.New()
	r.DELETE("/users/deleteMe", asUser(me), h.DeleteMe)

	req := httptest.NewRequest(http.MethodDelete, "/users/deleteMe", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204, body=%s", w.Code, w.Body.String())
	}
	if deactivated != me.ID {
		t.Fatalf("deactivated %q, want %q", deactivated, me.ID)
	}
}

func TestCreateUserRouteIsClosed(t *testing.T) {
	h := newUsersHandler(&fakeUserStore{})

	r := gin.New()
	r.POST("/users", h.Create)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/signup") {
		t.Fatalf("body %q should point callers to /signup", w.Body.String())
	}
}

func TestAdminUpdateUser(t *testing.T) {
	id := uuid.NewString()

	store := &fakeUserStore{
		adminUpdateFn: func(_ context.Context, gotID string, req user.AdminUpdateRequest) (user.User, error) {
			if gotID != id {
				t.Fatalf("update called for id %s, want %s", gotID, id)
			}
			u := user.User{ID: gotID, Name: "x", Role: user.RoleUser}
			if req.Role != nil {
				u.Role = *req.Role
			}
			return u, nil
		},
	}

	h := newUsersHandler(store)

	r := gin.New()
	r.PATCH("/users/:id", h.Update)

	req := httptest.NewRequest(http.MethodPatch, "/users/"+id, strings.NewReader(`{"role": "guide"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var got struct {
		Data struct {
			User user.User `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Data.User.Role != user.RoleGuide {
		t.Fatalf("got role %q, want %q", got.Data.User.Role, user.RoleGuide)
	}
}
