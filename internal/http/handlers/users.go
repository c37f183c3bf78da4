package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/domain/user"
	"github.com/geocoder89/devcamper/internal/users"
)

type UsersService interface {
	List(ctx context.Context, in users.ListInput) (users.Page, error)
	Get(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, in credentials.NewUser) (user.User, error)
	Update(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
	SetRole(ctx context.Context, id string, role user.Role) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	api UsersService
	// changed is told about every user an admin modified or removed.
	changed func(id string)
}

func NewUsersHandler(svc UsersService, changed func(id string)) *UsersHandler {
	if changed == nil {
		changed = func(string) {}
	}
	return &UsersHandler{api: svc, changed: changed}
}

type CreateUserRequest struct {
	Name     string    `json:"name" binding:"required,max=50"`
	Email    string    `json:"email" binding:"required,email"`
	Password string    `json:"password" binding:"required,min=6,max=72"`
	Role     user.Role `json:"role" binding:"omitempty,oneof=user publisher admin"`
}

type SetRoleRequest struct {
	Role user.Role `json:"role" binding:"required,oneof=user publisher admin"`
}

func (h *UsersHandler) List(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	page, err := h.api.List(cctx, users.ListInput{Limit: limit, Cursor: ctx.Query("cursor")})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"count":      len(page.Items),
		"data":       page.Items,
		"nextCursor": page.NextCursor,
		"hasMore":    page.HasMore,
	})
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	u, err := h.api.Get(cctx, ctx.Param("id"))
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	u, err := h.api.Create(cctx, credentials.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusCreated, u)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	var req user.ProfileUpdate

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	id := ctx.Param("id")

	u, err := h.api.Update(cctx, id, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.changed(id)
	RespondOK(ctx, http.StatusOK, u)
}

func (h *UsersHandler) SetRole(ctx *gin.Context) {
	var req SetRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	id := ctx.Param("id")

	u, err := h.api.SetRole(cctx, id, req.Role)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.changed(id)
	RespondOK(ctx, http.StatusOK, u)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	id := ctx.Param("id")

	if err := h.api.Delete(cctx, id); err != nil {
		RespondErr(ctx, err)
		return
	}

	h.changed(id)
	RespondOK(ctx, http.StatusOK, gin.H{})
}
