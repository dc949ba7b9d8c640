package app

import (
	"net/http"

	"taskflow/internal/config"
	"taskflow/internal/handlers"
	"taskflow/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	globalLimiter = "global"
	authLimiter   = "auth"
)

// Routes groups what the router mounts. A nil Limiter disables rate limiting.
type Routes struct {
	Auth          *handlers.AuthHandler
	Tasks         *handlers.TaskHandler
	Users         *handlers.UserHandler
	Authenticator *middleware.Authenticator
	Limiter       middleware.Limiter
}

func NewRouter(cfg *config.Config, log *zap.Logger, rt Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log.Named("http")))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limit := func(name string, max int) func(http.Handler) http.Handler {
		if rt.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RateLimit(rt.Limiter, name, max, cfg.RateLimit.Window, log.Named("ratelimit"))
	}

	r.Get("/health", rt.Tasks.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(limit(globalLimiter, cfg.RateLimit.MaxRequests))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limit(authLimiter, cfg.RateLimit.AuthMaxRequests))
				r.Post("/register", rt.Auth.Register)
				if rt.Limiter != nil {
					r.With(middleware.ResetRateLimitOnSuccess(rt.Limiter, authLimiter, log.Named("ratelimit"))).
						Post("/login", rt.Auth.Login)
				} else {
					r.Post("/login", rt.Auth.Login)
				}
			})

			r.Get("/check-email/{email}", rt.Auth.CheckEmail)
			r.Get("/check-username/{username}", rt.Auth.CheckUsername)
			r.With(rt.Authenticator.Optional).Get("/status", rt.Auth.Status)

			r.Group(func(r chi.Router) {
				r.Use(rt.Authenticator.Require)
				r.Get("/me", rt.Auth.Me)
				r.Post("/refresh", rt.Auth.Refresh)
				r.Put("/change-password", rt.Auth.ChangePassword)
				r.Post("/logout", rt.Auth.Logout)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(rt.Authenticator.Require)

			r.Get("/", rt.Tasks.ListTasks)
			r.Post("/", rt.Tasks.CreateTask)
			r.Delete("/completed", rt.Tasks.DeleteCompleted)
			r.Get("/stats", rt.Tasks.Stats)
			r.Get("/overdue", rt.Tasks.Overdue)
			r.Get("/due-soon", rt.Tasks.DueSoon)
			r.Get("/categories", rt.Tasks.Categories)
			r.Get("/suggest-due-date", rt.Tasks.SuggestDueDate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.Tasks.GetTask)
				r.Put("/", rt.Tasks.UpdateTask)
				r.Delete("/", rt.Tasks.DeleteTask)
				r.Patch("/toggle", rt.Tasks.ToggleTask)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(rt.Authenticator.Require)

			r.Get("/profile", rt.Users.GetProfile)
			r.Put("/profile", rt.Users.UpdateProfile)
			r.Delete("/account", rt.Users.DeleteAccount)
			r.Get("/export", rt.Users.Export)
			r.With(rt.Authenticator.RequireAdmin).Get("/search", rt.Users.Search)
		})
	})

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	return otelhttp.NewHandler(r, "taskflow-api")
}
