package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/devcamper/internal/domain/user"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	reset_password_token TEXT,
	reset_password_expire DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS users_reset_token_idx ON users (reset_password_token);
CREATE INDEX IF NOT EXISTS users_created_at_id_idx ON users (created_at, id);
`

const userColumns = `id, name, email, password_hash, role, reset_password_token, reset_password_expire, created_at, updated_at`

// UsersRepo stores users in a single sqlite file. It suits local runs and
// single-node deployments.
type UsersRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db, now: time.Now}
}

func (r *UsersRepo) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func isUnique(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (user.User, error) {
	var (
		u      user.User
		role   string
		token  sql.NullString
		expire sql.NullTime
	)

	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&role,
		&token,
		&expire,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}

	u.Role = user.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	if token.Valid {
		v := token.String
		u.ResetPasswordTokenHash = &v
	}
	if expire.Valid {
		v := expire.Time.UTC()
		u.ResetPasswordExpire = &v
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUnique(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return r.GetByID(ctx, u.ID)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}

	if !filter.AfterCreatedAt.IsZero() {
		after := filter.AfterCreatedAt.UTC()
		query += ` WHERE created_at > ? OR (created_at = ? AND id > ?)`
		args = append(args, after, after, filter.AfterID)
	}

	query += ` ORDER BY created_at ASC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	err := r.execOne(ctx, `
UPDATE users
SET name = COALESCE(?, name),
    email = COALESCE(?, email),
    updated_at = ?
WHERE id = ?`,
		nullable(upd.Name), nullable(upd.Email), r.now().UTC(), id,
	)
	if err != nil {
		if isUnique(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	if err := r.execOne(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), r.now().UTC(), id); err != nil {
		return user.User{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, `
UPDATE users
SET password_hash = ?,
    reset_password_token = NULL,
    reset_password_expire = NULL,
    updated_at = ?
WHERE id = ?`,
		passwordHash, r.now().UTC(), id,
	)
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.execOne(ctx, `
UPDATE users
SET reset_password_token = ?,
    reset_password_expire = ?,
    updated_at = ?
WHERE id = ?`,
		tokenHash, expiresAt.UTC(), r.now().UTC(), id,
	)
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.execOne(ctx, `
UPDATE users
SET reset_password_token = NULL,
    reset_password_expire = NULL,
    updated_at = ?
WHERE id = ?`,
		r.now().UTC(), id,
	)
}

func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (user.User, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE users
SET password_hash = ?,
    reset_password_token = NULL,
    reset_password_expire = NULL,
    updated_at = ?
WHERE reset_password_token = ?
  AND reset_password_expire > ?
RETURNING `+userColumns,
		passwordHash, r.now().UTC(), tokenHash, now.UTC(),
	)
	return scanUser(row)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (r *UsersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET reset_password_token = NULL,
    reset_password_expire = NULL,
    updated_at = ?
WHERE reset_password_expire IS NOT NULL
  AND reset_password_expire <= ?`,
		r.now().UTC(), now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired reset tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *UsersRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}
	return res.RowsAffected()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (r *UsersRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUnique(err) {
			return err
		}
		return fmt.Errorf("update user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return user.ErrNotFound
	}

	return nil
}
