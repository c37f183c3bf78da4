// Package users is the admin surface over user accounts.
package users

import (
	"context"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/domain/user"
	"github.com/geocoder89/devcamper/internal/utils"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

type Store interface {
	Create(ctx context.Context, in credentials.NewUser) (user.User, error)
	Get(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, filter user.ListFilter) ([]user.User, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
	SetRole(ctx context.Context, id string, role user.Role) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type ListInput struct {
	Limit  int
	Cursor string
}

type Page struct {
	Items      []user.User `json:"items"`
	NextCursor *string     `json:"nextCursor"`
	HasMore    bool        `json:"hasMore"`
}

func (s *Service) List(ctx context.Context, in ListInput) (Page, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	filter := user.ListFilter{Limit: limit + 1}

	if in.Cursor != "" {
		c, err := utils.DecodeUserCursor(in.Cursor)
		if err != nil {
			return Page{}, apperr.BadRequest("invalid cursor")
		}
		filter.AfterCreatedAt = c.CreatedAt
		filter.AfterID = c.ID
	}

	items, err := s.store.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: items}

	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true

		last := page.Items[limit-1]
		next, err := utils.EncodeUserCursor(last.CreatedAt, last.ID)
		if err != nil {
			return Page{}, apperr.Server("users.encode_cursor", err)
		}
		page.NextCursor = &next
	}

	return page, nil
}

func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.Get(ctx, id)
}

// Create lets an admin pick the role up front.
func (s *Service) Create(ctx context.Context, in credentials.NewUser) (user.User, error) {
	return s.store.Create(ctx, in)
}

func (s *Service) Update(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	return s.store.UpdateProfile(ctx, id, upd)
}

func (s *Service) SetRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	return s.store.SetRole(ctx, id, role)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
