package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/rohits-web03/sharegate/docs"
	"github.com/rohits-web03/sharegate/internal/api/handlers"
	"github.com/rohits-web03/sharegate/internal/api/middleware"
	"github.com/rohits-web03/sharegate/internal/config"
)

func SetupRouter(h *handlers.Handler, cfg config.Config, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(cfg.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("POST /sign-up", h.RegisterUser)
	authMux.HandleFunc("POST /login", h.LoginUser)
	authMux.HandleFunc("POST /logout", h.Logout)
	authMux.HandleFunc("GET /google/login", h.HandleGoogleLogin)
	authMux.HandleFunc("GET /google/callback", h.HandleGoogleCallback)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	viewMux := http.NewServeMux()
	viewMux.HandleFunc("GET /{id}", h.GetSharePreview)
	viewMux.HandleFunc("POST /{id}", h.VerifyShareAccess)
	viewMux.HandleFunc("POST /{id}/download", h.DownloadShare)

	mainMux.Handle("/api/v1/view/",
		http.StripPrefix("/api/v1/view", limiter.Limit(viewMux)),
	)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("GET /transfers", h.ListTransfers)
	protectedMux.HandleFunc("POST /transfers", h.CreateTransfer)
	protectedMux.HandleFunc("GET /transfers/{id}", h.GetTransfer)
	protectedMux.HandleFunc("PATCH /transfers/{id}", h.UpdateTransfer)
	protectedMux.HandleFunc("DELETE /transfers/{id}", h.DeleteTransfer)
	protectedMux.HandleFunc("POST /transfers/{id}/revoke", h.RevokeTransfer)
	protectedMux.HandleFunc("GET /transfers/{id}/analytics", h.GetTransferAnalytics)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.Auth(cfg.JWTSecret)(protectedMux),
		),
	)

	logger.Info("router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(logger)(handler)
	return handler
}
