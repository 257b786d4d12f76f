package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Emmanuel246/natours/internal/apperr"
	"github.com/Emmanuel246/natours/internal/auth"
	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/domain/job"
	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/http/middlewares"
	"github.com/Emmanuel246/natours/internal/jobs"
	"github.com/Emmanuel246/natours/internal/repo/postgres"
	"github.com/Emmanuel246/natours/internal/security"
	"github.com/gin-gonic/gin"
)

const resetTokenTTL = 10 * time.Minute

// Keep these interfaces small so tests can fake them easily.
type AuthUserStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, digest string, expires time.Time) error
	GetByResetToken(ctx context.Context, digest string) (user.User, error)
}

type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users    AuthUserStore
	enqueuer JobEnqueuer
	jwt      *auth.Manager
	cfg      config.Config
	log      *slog.Logger
}

func NewAuthHandler(users AuthUserStore, enqueuer JobEnqueuer, jwtManager *auth.Manager, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		enqueuer: enqueuer,
		jwt:      jwtManager,
		cfg:      cfg,
		log:      log,
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	// everyone signs up as a plain user; role upgrades are an admin action
	u, err := h.users.Create(cctx, req.Name, req.Email, hash, user.RoleUser)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondError(ctx, h.log, apperr.Conflict("email_taken", "Email is already in use."))
			return
		}

		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	h.enqueueEmail(ctx, jobs.JobSendWelcomeEmail, jobs.SendWelcomeEmailPayload{
		UserID:    u.ID,
		RequestID: requestIDFrom(ctx),
	})

	token, err := h.jwt.GenerateSessionToken(u.ID, u.Email, u.Role)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	h.setSessionCookie(ctx, token)

	ctx.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": u},
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		RespondError(ctx, h.log, apperr.Unauthorized("invalid_credentials", "Incorrect email or password"))
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unauthorized("invalid_credentials", "Incorrect email or password"))
		return
	}

	token, err := h.jwt.GenerateSessionToken(foundUser.ID, foundUser.Email, foundUser.Role)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	h.setSessionCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": foundUser},
	})
}

// Logout overwrites the session cookie with a short-lived junk value. The
// token itself stays valid until expiry; this only clears browser state.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.SessionCookieName, "loggedout", 10, "/", "", secure, true)

	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req user.ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// the response never reveals whether the address is registered
	accepted := func() {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "If that email is registered, a reset link is on the way.",
		})
	}

	u, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		accepted()
		return
	}

	raw, digest, err := security.NewResetToken()

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	expires := time.Now().UTC().Add(resetTokenTTL)

	if err := h.users.SetResetToken(cctx, u.ID, digest, expires); err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	resetURL := h.cfg.PublicBaseURL + "/api/v1/users/resetPassword/" + raw

	if err := h.enqueueEmailErr(cctx, jobs.JobSendPasswordReset, jobs.SendPasswordResetPayload{
		UserID:    u.ID,
		ResetURL:  resetURL,
		RequestID: requestIDFrom(ctx),
	}); err != nil {
		// roll back the token so a half-issued reset can't linger
		_ = h.users.SetResetToken(cctx, u.ID, "", time.Now().UTC())

		RespondError(ctx, h.log, apperr.Wrap(apperr.KindUnexpected, "email_enqueue",
			"There was an error sending the email. Try again later.", err))
		return
	}

	accepted()
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	raw := ctx.Param("token")

	var req user.ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByResetToken(cctx, security.HashResetToken(raw))

	if err != nil {
		RespondError(ctx, h.log, apperr.Validation("bad_reset_token", "Token is invalid or has expired"))
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	if err := h.users.UpdatePassword(cctx, u.ID, hash); err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	token, err := h.jwt.GenerateSessionToken(u.ID, u.Email, u.Role)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	h.setSessionCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
	})
}

// UpdatePassword rotates the credential for the signed-in user. The current
// password is re-checked even though the session already proved identity.
func (h *AuthHandler) UpdatePassword(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondError(ctx, h.log, apperr.Unauthorized("not_logged_in", "You are not logged in. Please log in to get access."))
		return
	}

	var req user.UpdatePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.CurrentPassword); err != nil {
		RespondError(ctx, h.log, apperr.Unauthorized("wrong_password", "Your current password is wrong."))
		return
	}

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.users.UpdatePassword(cctx, u.ID, hash); err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	token, err := h.jwt.GenerateSessionToken(u.ID, u.Email, u.Role)

	if err != nil {
		RespondError(ctx, h.log, apperr.Unexpected(err))
		return
	}

	h.setSessionCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
	})
}

// Helper functions

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string) {
	secure := h.cfg.Env == "prod"

	maxAge := int(h.jwt.SessionTTL().Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		middlewares.SessionCookieName,
		token,
		maxAge,
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

// enqueueEmail is best-effort: the signup itself must not fail because the
// queue hiccuped.
func (h *AuthHandler) enqueueEmail(ctx *gin.Context, t jobs.JobType, payload any) {
	if err := h.enqueueEmailErr(ctx.Request.Context(), t, payload); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "enqueue email job",
			slog.String("type", string(t)),
			slog.String("error", err.Error()),
		)
	}
}

func (h *AuthHandler) enqueueEmailErr(ctx context.Context, t jobs.JobType, payload any) error {
	raw, err := jobs.EncodePayload(t, payload)

	if err != nil {
		return err
	}

	_, err = h.enqueuer.Create(ctx, job.CreateRequest{
		Type:    string(t),
		Payload: raw,
	})

	return err
}
