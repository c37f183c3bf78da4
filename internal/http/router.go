package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/domain/user"
	"github.com/geocoder89/devcamper/internal/http/handlers"
	"github.com/geocoder89/devcamper/internal/http/middlewares"
	"github.com/geocoder89/devcamper/internal/observability"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Deps is everything the router needs; cmd/api builds it and tests swap in
// memory-backed services.
type Deps struct {
	Config  config.Config
	Auth    handlers.AuthService
	Users   handlers.UsersService
	AuthMW  *middlewares.AuthMiddleware
	Limiter middlewares.Limiter

	// optional
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Checks   map[string]handlers.Check
}

func NewRouter(log *slog.Logger, d Deps) *gin.Engine {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders(d.Config.Env == "prod"))
	r.Use(middlewares.CORS(d.Config.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	var limitObs middlewares.RateLimitObserver
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
		limitObs = d.Prom
	}

	// ops
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authHandler := handlers.NewAuthHandler(
		d.Auth,
		handlers.NewSessionCookies(d.Config.CookieSecure()),
		d.Config.PublicBaseURL,
	)
	usersHandler := handlers.NewUsersHandler(d.Users, d.AuthMW.Forget)

	throttle := func(name string) gin.HandlerFunc {
		return middlewares.RateLimit(d.Limiter, name, middlewares.KeyByIP, log, limitObs)
	}
	// current-password guessing is bounded per account, not per address
	throttleUser := func(name string) gin.HandlerFunc {
		return middlewares.RateLimit(d.Limiter, name, middlewares.KeyByUserOrIP, log, limitObs)
	}

	api := r.Group("/api/v1")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", throttle("login"), authHandler.Login)
	authRoutes.POST("/forgotpassword", throttle("forgotpassword"), authHandler.ForgotPassword)
	authRoutes.PUT("/resetpassword/:resettoken", throttle("resetpassword"), authHandler.ResetPassword)
	authRoutes.GET("/logout", authHandler.Logout)

	session := authRoutes.Group("", d.AuthMW.RequireAuth())
	session.GET("/me", authHandler.Me)
	session.PUT("/updatedetails", authHandler.UpdateDetails)
	session.PUT("/updatepassword", throttleUser("updatepassword"), authHandler.UpdatePassword)

	admin := api.Group("/users", d.AuthMW.RequireAuth(), d.AuthMW.RequireRole(user.RoleAdmin))
	admin.GET("", usersHandler.List)
	admin.POST("", usersHandler.Create)
	admin.GET("/:id", usersHandler.Get)
	admin.PUT("/:id", usersHandler.Update)
	admin.PUT("/:id/role", usersHandler.SetRole)
	admin.DELETE("/:id", usersHandler.Delete)

	return r
}
