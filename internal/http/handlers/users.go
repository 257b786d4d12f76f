package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Emmanuel246/natours/internal/apperr"
	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/http/middlewares"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/Emmanuel246/natours/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, p query.Plan) ([]map[string]any, int, error)
	UpdateProfile(ctx context.Context, id string, req user.UpdateMeRequest) (user.User, error)
	Deactivate(ctx context.Context, id string) error
	AdminUpdate(ctx context.Context, id string, req user.AdminUpdateRequest) (user.User, error)
}

type UsersHandler struct {
	store UserStore
	log   *slog.Logger
}

func NewUsersHandler(store UserStore, log *slog.Logger) *UsersHandler {
	return &UsersHandler{store: store, log: log}
}

// Routes about the signed-in user.

func (h *UsersHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondError(ctx, h.log, apperr.Unauthorized("not_logged_in", "You are not logged in. Please log in to get access."))
		return
	}

	RespondOK(ctx, gin.H{"user": u})
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondError(ctx, h.log, apperr.Unauthorized("not_logged_in", "You are not logged in. Please log in to get access."))
		return
	}

	raw, err := io.ReadAll(ctx.Request.Body)

	if err != nil {
		RespondError(ctx, h.log, apperr.Validation("invalid_body", "Invalid request body"))
		return
	}

	var probe map[string]json.RawMessage

	if json.Unmarshal(raw, &probe) == nil {
		_, hasPassword := probe["password"]
		_, hasConfirm := probe["passwordConfirm"]

		if hasPassword || hasConfirm {
			RespondError(ctx, h.log, apperr.Validation("password_not_allowed",
				"This route is not for password updates. Please use /updateMyPassword."))
			return
		}
	}

	ctx.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var req user.UpdateMeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.store.UpdateProfile(cctx, u.ID, req)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondError(ctx, h.log, apperr.Conflict("email_taken", "Email is already in use."))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondOK(ctx, gin.H{"user": updated})
}

// DeleteMe deactivates rather than deletes; the row stays for bookings and
// reviews that reference it, but the account can no longer log in.
func (h *UsersHandler) DeleteMe(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondError(ctx, h.log, apperr.Unauthorized("not_logged_in", "You are not logged in. Please log in to get access."))
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.store.Deactivate(cctx, u.ID); err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondNoContent(ctx)
}

// Admin-only user management.

func (h *UsersHandler) List(ctx *gin.Context) {
	plan, err := query.Parse(ctx.Request.URL.Query(), postgres.UserSchema)

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

	RespondList(ctx, "users", docs, len(docs), total)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("user_not_found", "No user found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondOK(ctx, gin.H{"user": u})
}

// Create exists only to give POST /users a deliberate answer.
func (h *UsersHandler) Create(ctx *gin.Context) {
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "This route is not defined! Please use /signup instead",
	})
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	var req user.AdminUpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.AdminUpdate(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondError(ctx, h.log, apperr.NotFound("user_not_found", "No user found with that ID"))
		case errors.Is(err, postgres.ErrEmailAlreadyUsed):
			RespondError(ctx, h.log, apperr.Conflict("email_taken", "Email is already in use."))
		default:
			RespondError(ctx, h.log, apperr.Unexpected(err))
		}
		return
	}

	RespondOK(ctx, gin.H{"user": u})
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id, ok := idParam(ctx, h.log)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.store.Deactivate(cctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondError(ctx, h.log, apperr.NotFound("user_not_found", "No user found with that ID"))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	RespondNoContent(ctx)
}
