package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Emmanuel246/natours/internal/actorctx"
	"github.com/Emmanuel246/natours/internal/auth"
	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// SessionCookieName is where login/signup park the session token for
// browser clients; API clients use the Authorization header instead.
const SessionCookieName = "jwt"

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

type PrincipalStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users PrincipalStore
}

func NewAuthMiddleware(jwt TokenVerifier, users PrincipalStore) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

var (
	errNoCredential   = errors.New("no credential supplied")
	errPrincipalStore = errors.New("principal lookup failed")
)

// Protect rejects any request that does not carry a fresh, verifiable
// session for an existing, active principal.
func (m *AuthMiddleware) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := m.resolve(c)

		if err != nil {
			// A store outage is not the caller's fault and must not read
			// like a bad credential.
			if errors.Is(err, errPrincipalStore) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status":  "error",
					"message": "Something went very wrong!",
				})
				return
			}

			message := "Invalid or expired session. Please log in again."

			if errors.Is(err, errNoCredential) {
				message = "You are not logged in. Please log in to get access."
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": message,
			})
			return
		}

		attachUser(c, u)
		c.Next()
	}
}

// OptionalAuth runs the same checks but never rejects: views that render
// differently for signed-in users get an identity when one can be proven,
// and nothing otherwise.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := m.resolve(c)

		if err == nil {
			attachUser(c, u)
		}

		c.Next()
	}
}

// resolve walks the gate: extract credential, verify token, load principal,
// check the credential-rotation invariant.
func (m *AuthMiddleware) resolve(c *gin.Context) (user.User, error) {
	raw := extractToken(c)

	if raw == "" {
		return user.User{}, errNoCredential
	}

	claims, err := m.jwt.VerifySessionToken(raw)

	if err != nil {
		return user.User{}, err
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := m.users.GetByID(cctx, claims.UserID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("%w: %v", errPrincipalStore, err)
	}

	if !u.Active {
		return user.User{}, user.ErrNotFound
	}

	// A token issued before the last password change is stale even though
	// its signature and expiry still check out.
	if u.PasswordChangedAfter(claims.IssuedTime()) {
		return user.User{}, auth.ErrInvalidToken
	}

	return u, nil
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	}

	cookie, err := c.Cookie(SessionCookieName)

	if err != nil {
		return ""
	}
	return cookie
}

func attachUser(c *gin.Context, u user.User) {
	c.Set(CtxUser, u)
	c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), u.ID))
}

// Helpers so handlers don't need to know the magic keys.

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}

	u, ok := v.(user.User)
	return u, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	u, ok := UserFromContext(c)
	if !ok {
		return "", false
	}
	return u.Role, true
}
