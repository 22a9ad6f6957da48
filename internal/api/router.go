package api

import (
	"net/http"
	"time"

	"accountsvc/internal/api/handler"
	"accountsvc/internal/api/middleware"
	"accountsvc/internal/app/service"
	"accountsvc/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(accounts *service.AccountService, issuer *security.TokenIssuer) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	accountHandler := handler.NewAccountHandler(accounts)

	// Public account routes
	r.Group(func(public chi.Router) {
		accountHandler.RegisterPublicRoutes(public)
	})

	// Routes that require a bearer token ("Authorization: Bearer <token>")
	r.Group(func(session chi.Router) {
		session.Use(jwtauth.Verifier(issuer.JWTAuth()))
		session.Use(middleware.Authenticator)
		accountHandler.RegisterSessionRoutes(session)
	})

	return r
}
