package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/http/handlers"
	"github.com/yusf-1/zagrosexpress-main/internal/middleware"
)

// Limiters are the per-IP limits applied at the router
type Limiters struct {
	CreateSession middleware.Limiter
	SendCode      middleware.Limiter
	VerifyCode    middleware.Limiter
}

// RouterDeps groups everything NewRouter wires together
type RouterDeps struct {
	Wholesale *handlers.WholesaleHandler
	OTC       *handlers.OTCHandler
	Admin     *handlers.AdminHandler

	Sessions middleware.SessionValidator
	Tokens   middleware.TokenVerifier
	Roles    middleware.RoleChecker

	Limiters Limiters
	Log      *zap.Logger
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(d RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/wholesale", func(r chi.Router) {
		r.With(middleware.RateLimitMiddleware(d.Limiters.CreateSession, middleware.GetIPKey)).
			Post("/sessions", d.Wholesale.HandleCreateSession)
		r.With(middleware.RequireSession(d.Sessions, d.Log)).
			Get("/session", d.Wholesale.HandleSessionStatus)
		r.Delete("/session", d.Wholesale.HandleLogout)
	})

	r.Route("/otc", func(r chi.Router) {
		r.With(middleware.RateLimitMiddleware(d.Limiters.SendCode, middleware.GetIPKey)).
			Post("/send", d.OTC.HandleSend)
		r.With(middleware.RateLimitMiddleware(d.Limiters.VerifyCode, middleware.GetIPKey)).
			Post("/verify", d.OTC.HandleVerify)
	})

	r.Route("/admin/credentials", func(r chi.Router) {
		r.Use(middleware.AdminOnly(d.Tokens, d.Roles, d.Log))
		r.Get("/", d.Admin.HandleList)
		r.Post("/", d.Admin.HandleCreate)
		r.Get("/export.xlsx", d.Admin.HandleExport)
		r.Delete("/{id}", d.Admin.HandleDelete)
		r.Post("/{id}/reset", d.Admin.HandleReset)
		r.Post("/{id}/activate", d.Admin.HandleActivate)
		r.Post("/{id}/deactivate", d.Admin.HandleDeactivate)
		r.Delete("/{id}/sessions", d.Admin.HandleRevokeSessions)
	})

	return r
}
