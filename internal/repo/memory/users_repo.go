package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/devcamper/internal/domain/user"
)

// UsersRepo keeps users in a map. It backs tests and the zero-dependency
// dev mode; it enforces the same uniqueness rules as the SQL stores.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(u.Email, "") {
		return user.User{}, user.ErrEmailTaken
	}

	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(_ context.Context, filter user.ListFilter) ([]user.User, error) {
	r.mu.RLock()
	all := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		all = append(all, u)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	out := make([]user.User, 0, filter.Limit)
	for _, u := range all {
		if !filter.AfterCreatedAt.IsZero() {
			after := u.CreatedAt.After(filter.AfterCreatedAt) ||
				(u.CreatedAt.Equal(filter.AfterCreatedAt) && u.ID > filter.AfterID)
			if !after {
				continue
			}
		}

		out = append(out, u)

		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}

	return out, nil
}

func (r *UsersRepo) UpdateProfile(_ context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if upd.Email != nil {
		if r.emailTakenLocked(*upd.Email, id) {
			return user.User{}, user.ErrEmailTaken
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}

	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	err := r.mutate(id, func(u *user.User) {
		u.Role = role
	})
	if err != nil {
		return user.User{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.mutate(id, func(u *user.User) {
		u.PasswordHash = passwordHash
		u.ResetPasswordTokenHash = nil
		u.ResetPasswordExpire = nil
	})
}

func (r *UsersRepo) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.mutate(id, func(u *user.User) {
		exp := expiresAt
		hash := tokenHash
		u.ResetPasswordTokenHash = &hash
		u.ResetPasswordExpire = &exp
	})
}

func (r *UsersRepo) ClearResetToken(_ context.Context, id string) error {
	return r.mutate(id, func(u *user.User) {
		u.ResetPasswordTokenHash = nil
		u.ResetPasswordExpire = nil
	})
}

func (r *UsersRepo) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time, passwordHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.items {
		if u.ResetPasswordTokenHash == nil || u.ResetPasswordExpire == nil {
			continue
		}
		if *u.ResetPasswordTokenHash != tokenHash || !u.ResetPasswordExpire.After(now) {
			continue
		}

		u.PasswordHash = passwordHash
		u.ResetPasswordTokenHash = nil
		u.ResetPasswordExpire = nil
		u.UpdatedAt = time.Now().UTC()
		r.items[id] = u
		return u, nil
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, u := range r.items {
		if u.ResetPasswordExpire == nil || u.ResetPasswordExpire.After(now) {
			continue
		}
		u.ResetPasswordTokenHash = nil
		u.ResetPasswordExpire = nil
		u.UpdatedAt = time.Now().UTC()
		r.items[id] = u
		n++
	}

	return n, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)

	return nil
}

func (r *UsersRepo) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.items))
	r.items = make(map[string]user.User)

	return n, nil
}

func (r *UsersRepo) mutate(id string, fn func(u *user.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return nil
}

func (r *UsersRepo) emailTakenLocked(email, exceptID string) bool {
	for id, u := range r.items {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}
