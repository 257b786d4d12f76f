package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/observability"
	"github.com/Emmanuel246/natours/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmailAlreadyUsed = errors.New("email already in use")

// UserSchema is the query-shaping boundary for the admin user listing.
// Credential columns are deliberately absent.
var UserSchema = query.NewSchema("users", "id", "createdAt",
	query.FieldDef{Name: "id", Column: "id"},
	query.FieldDef{Name: "name", Column: "name"},
	query.FieldDef{Name: "email", Column: "email"},
	query.FieldDef{Name: "photo", Column: "photo"},
	query.FieldDef{Name: "role", Column: "role"},
	query.FieldDef{Name: "active", Column: "active"},
	query.FieldDef{Name: "createdAt", Column: "created_at"},
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, name, email, photo, role, password_hash,
	password_changed_at, password_reset_hash, password_reset_expires,
	active, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Role,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.PasswordResetHash,
		&u.PasswordResetExpires,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Photo:        "default.jpg",
		Role:         role,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, photo, role, password_hash, active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, u.Name, u.Email, u.Photo, u.Role, u.PasswordHash, u.Active, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

// GetByEmail resolves an active principal for login. Soft-deleted accounts
// behave exactly like missing ones.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	obsErr := r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1 AND active = TRUE`,
			strings.ToLower(strings.TrimSpace(email)),
		))
		return err
	})

	if obsErr != nil {
		return user.User{}, obsErr
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	obsErr := r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
		))
		return err
	})

	if obsErr != nil {
		return user.User{}, obsErr
	}
	return u, nil
}

func (r *UsersRepo) List(ctx context.Context, p query.Plan) ([]map[string]any, int, error) {
	var docs []map[string]any
	var total int

	err := r.observe("users.list", func() error {
		var err error
		docs, total, err = listShaped(ctx, r.pool, UserSchema, p)
		return err
	})

	return docs, total, err
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, req user.UpdateMeRequest) (user.User, error) {
	var u user.User
	var err error

	obsErr := r.observe("users.update_profile", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET name  = COALESCE(NULLIF($2, ''), name),
			    email = COALESCE(NULLIF($3, ''), email),
			    photo = COALESCE(NULLIF($4, ''), photo),
			    updated_at = NOW()
			WHERE id = $1 AND active = TRUE
			RETURNING `+userColumns,
			id, req.Name, strings.ToLower(strings.TrimSpace(req.Email)), req.Photo,
		))
		return err
	})

	if obsErr != nil {
		if IsUniqueViolation(obsErr) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, obsErr
	}
	return u, nil
}

// UpdatePassword rotates the credential. Bumping password_changed_at is what
// invalidates session tokens issued before this moment; any outstanding
// reset token is consumed in the same statement.
func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.observe("users.update_password", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			SET password_hash = $2,
			    password_changed_at = NOW(),
			    password_reset_hash = NULL,
			    password_reset_expires = NULL,
			    updated_at = NOW()
			WHERE id = $1`,
			id, passwordHash,
		)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, digest string, expires time.Time) error {
	return r.observe("users.set_reset_token", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			SET password_reset_hash = $2,
			    password_reset_expires = $3,
			    updated_at = NOW()
			WHERE id = $1 AND active = TRUE`,
			id, digest, expires,
		)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

// GetByResetToken matches an unexpired reset digest. Expired tokens look
// exactly like unknown ones.
func (r *UsersRepo) GetByResetToken(ctx context.Context, digest string) (user.User, error) {
	var u user.User
	var err error

	obsErr := r.observe("users.get_by_reset_token", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users
			WHERE password_reset_hash = $1
			  AND password_reset_expires > NOW()
			  AND active = TRUE`,
			digest,
		))
		return err
	})

	if obsErr != nil {
		return user.User{}, obsErr
	}
	return u, nil
}

// Deactivate soft-deletes. The row stays so reviews and bookings keep a
// valid principal reference.
func (r *UsersRepo) Deactivate(ctx context.Context, id string) error {
	return r.observe("users.deactivate", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET active = FALSE, updated_at = NOW() WHERE id = $1`, id,
		)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) AdminUpdate(ctx context.Context, id string, req user.AdminUpdateRequest) (user.User, error) {
	var u user.User
	var err error

	obsErr := r.observe("users.admin_update", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET name  = COALESCE($2, name),
			    email = COALESCE($3, email),
			    role  = COALESCE($4, role),
			    updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, req.Name, lowered(req.Email), req.Role,
		))
		return err
	})

	if obsErr != nil {
		if IsUniqueViolation(obsErr) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, obsErr
	}
	return u, nil
}

func lowered(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	return &v
}
