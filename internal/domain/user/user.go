package user

import (
	"errors"
	"time"
)

// Role tags, coarse-grained. Route restrictions are expressed against these.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

var ErrNotFound = errors.New("user not found")

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is a principal record. PasswordHash never leaves the server; the
// reset columns hold only a digest of an outstanding reset token.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Photo        string    `json:"photo,omitempty"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	// set whenever the secret is rotated; tokens issued before it are stale
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetHash    *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// PasswordChangedAfter reports whether the credential was rotated after the
// given instant. Sub-second truncation mirrors the second-granularity of
// token issue timestamps.
func (u User) PasswordChangedAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil || t.IsZero() {
		return false
	}
	return u.PasswordChangedAt.Truncate(time.Second).After(t.Truncate(time.Second))
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateMeRequest deliberately has no password field; credential rotation
// goes through the dedicated password routes.
type UpdateMeRequest struct {
	Name  string `json:"name" binding:"omitempty,min=2,max=50"`
	Email string `json:"email" binding:"omitempty,email"`
	Photo string `json:"photo" binding:"omitempty,max=255"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// AdminUpdateRequest is the admin-only partial update; nil means unchanged.
type AdminUpdateRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=2,max=50"`
	Email *string `json:"email" binding:"omitempty,email"`
	Role  *string `json:"role" binding:"omitempty,oneof=user guide lead-guide admin"`
}
