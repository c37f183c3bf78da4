package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/auth"
	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/domain/user"
	"github.com/geocoder89/devcamper/internal/http/middlewares"
)

const requestTimeout = 3 * time.Second

type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.Result, error)
	Login(ctx context.Context, email, password string) (auth.Result, error)
	CurrentUser(ctx context.Context, userID string) (user.User, error)
	UpdateProfile(ctx context.Context, userID string, upd user.ProfileUpdate) (user.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) (auth.Result, error)
	ForgotPassword(ctx context.Context, in auth.ForgotPasswordInput) error
	ResetPassword(ctx context.Context, token, newPassword string) (auth.Result, error)
	Logout() auth.Session
}

type AuthHandler struct {
	svc     AuthService
	cookies *SessionCookies
	// baseURL is where reset links point; empty means the request's own host.
	baseURL string
}

func NewAuthHandler(svc AuthService, cookies *SessionCookies, publicBaseURL string) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies, baseURL: publicBaseURL}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest carries no binding rules: a missing field gets its own
// message from the service.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=72"`
}

func (h *AuthHandler) sendSession(ctx *gin.Context, status int, res auth.Result) {
	h.cookies.Set(ctx, res.Session)
	RespondSession(ctx, status, gin.H{"id": res.User.ID}, res.Session.Token)
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.Register(cctx, auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.sendSession(ctx, http.StatusCreated, res)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.Login(cctx, req.Email, req.Password)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.sendSession(ctx, http.StatusOK, res)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondErr(ctx, apperr.Unauthenticated("Not authorized to access this route"))
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	u, err := h.svc.CurrentUser(cctx, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}

func (h *AuthHandler) UpdateDetails(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondErr(ctx, apperr.Unauthenticated("Not authorized to access this route"))
		return
	}

	var req user.ProfileUpdate

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	u, err := h.svc.UpdateProfile(cctx, userID, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}

func (h *AuthHandler) UpdatePassword(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondErr(ctx, apperr.Unauthenticated("Not authorized to access this route"))
		return
	}

	var req UpdatePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.ChangePassword(cctx, userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.sendSession(ctx, http.StatusOK, res)
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// mail delivery gets more room than a store call
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	err := h.svc.ForgotPassword(cctx, auth.ForgotPasswordInput{
		Email:        req.Email,
		ResetURLBase: h.resetBase(ctx),
	})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Email sent")
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	token := ctx.Param("resettoken")

	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.ResetPassword(cctx, token, req.Password)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.sendSession(ctx, http.StatusOK, res)
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.cookies.Set(ctx, h.svc.Logout())

	RespondOK(ctx, http.StatusOK, gin.H{})
}

func (h *AuthHandler) resetBase(ctx *gin.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + ctx.Request.Host
}
