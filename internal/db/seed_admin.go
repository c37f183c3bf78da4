package db

import (
	"context"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/domain/user"
)

type AdminSeeder interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, in credentials.NewUser) (user.User, error)
}

// EnsureAdminUser creates the bootstrap admin from config when it is missing.
// It reports whether a user was created.
func EnsureAdminUser(ctx context.Context, store AdminSeeder, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	// check if the user exists
	_, err := store.FindByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return false, nil
	}

	if !apperr.Is(err, apperr.CodeNotFound) {
		return false, err
	}

	name := cfg.AdminName
	if name == "" {
		name = "Admin"
	}

	_, err = store.Create(ctx, credentials.NewUser{
		Name:     name,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     user.RoleAdmin,
	})
	if err != nil {
		// another instance won the race
		if apperr.Is(err, apperr.CodeConflict) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
