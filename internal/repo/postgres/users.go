package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/geocoder89/devcamper/internal/domain/user"
)

// poolIface is the subset of *pgxpool.Pool the repository uses; pgxmock
// satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBObserver times queries; *observability.Prom implements it.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

const userColumns = `id, name, email, password_hash, role, reset_password_token, reset_password_expire, created_at, updated_at`

type UsersRepo struct {
	pool poolIface
	obs  DBObserver
}

func NewUsersRepo(pool poolIface, obs DBObserver) *UsersRepo {
	return &UsersRepo{pool: pool, obs: obs}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.obs != nil {
		return r.obs.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u    user.User
		role string
	)

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.ResetPasswordTokenHash,
		&u.ResetPasswordExpire,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)
	return u, nil
}

func (r *UsersRepo) getOne(ctx context.Context, op, sql string, args ...any) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx, sql, args...))
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	created, err := r.getOne(ctx, "users.create", `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return created, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) ([]user.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users`
	args := []any{}

	if !filter.AfterCreatedAt.IsZero() {
		sql += ` WHERE (created_at, id) > ($1, $2)`
		args = append(args, filter.AfterCreatedAt, filter.AfterID)
	}

	sql += ` ORDER BY created_at ASC, id ASC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += ` LIMIT $` + strconv.Itoa(len(args))
	}

	var out []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	u, err := r.getOne(ctx, "users.update_profile", `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, upd.Name, upd.Email,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	return r.getOne(ctx, "users.update_role", `
		UPDATE users SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, string(role),
	)
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, "users.update_password", `
		UPDATE users
		SET password_hash = $2,
		    reset_password_token = NULL,
		    reset_password_expire = NULL,
		    updated_at = NOW()
		WHERE id = $1`,
		id, passwordHash,
	)
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.execOne(ctx, "users.set_reset_token", `
		UPDATE users
		SET reset_password_token = $2,
		    reset_password_expire = $3,
		    updated_at = NOW()
		WHERE id = $1`,
		id, tokenHash, expiresAt,
	)
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.execOne(ctx, "users.clear_reset_token", `
		UPDATE users
		SET reset_password_token = NULL,
		    reset_password_expire = NULL,
		    updated_at = NOW()
		WHERE id = $1`,
		id,
	)
}

func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (user.User, error) {
	return r.getOne(ctx, "users.consume_reset_token", `
		UPDATE users
		SET password_hash = $1,
		    reset_password_token = NULL,
		    reset_password_expire = NULL,
		    updated_at = NOW()
		WHERE reset_password_token = $2 AND reset_password_expire > $3
		RETURNING `+userColumns,
		passwordHash, tokenHash, now,
	)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "users.delete", `DELETE FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var n int64

	err := r.observe("users.clear_expired_reset_tokens", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE users
			SET reset_password_token = NULL,
			    reset_password_expire = NULL,
			    updated_at = NOW()
			WHERE reset_password_expire IS NOT NULL
			  AND reset_password_expire <= $1`,
			now,
		)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}

func (r *UsersRepo) DeleteAll(ctx context.Context) (int64, error) {
	var n int64

	err := r.observe("users.delete_all", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users`)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}

// execOne runs a single-row write and maps zero affected rows to ErrNotFound.
func (r *UsersRepo) execOne(ctx context.Context, op, sql string, args ...any) error {
	var affected int64

	err := r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		return user.ErrNotFound
	}

	return nil
}
