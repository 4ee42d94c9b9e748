package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/wishlist/internal/api/apierr"
	"github.com/mcoot/wishlist/internal/api/handler"
	"github.com/mcoot/wishlist/internal/api/middleware"
)

// RouterConfig holds configuration for the admin router
type RouterConfig struct {
	Logger *slog.Logger
	Stats  handler.StatsSource
}

// NewRouter creates the admin router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	adminHandler := handler.NewAdminHandler(cfg.Stats)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/health", adminHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/stats", adminHandler.Stats).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewMethodNotAllowedError())
	})

	return r
}
