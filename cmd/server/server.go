// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rallydesk/rallydesk/internal/api"
	"github.com/rallydesk/rallydesk/internal/api/bookings"
	"github.com/rallydesk/rallydesk/internal/api/courts"
	"github.com/rallydesk/rallydesk/internal/api/selection"
	"github.com/rallydesk/rallydesk/internal/config"
	"github.com/rallydesk/rallydesk/internal/db"
)

func newServer(cfg *config.Config, database *db.DB) *http.Server {
	router := http.NewServeMux()

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithIdentity(database.Queries, cfg.Admin.OperatorKeyHash),
		api.WithRequestID,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability routes
	mux.HandleFunc("GET /api/v1/courts", courts.HandleCourtList)
	mux.HandleFunc("GET /api/v1/grid", courts.HandleGridView)

	// Booking lifecycle routes
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleBookingList)
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleBookingCreate)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleBookingGet)
	mux.HandleFunc("PUT /api/v1/bookings/{id}", bookings.HandleBookingModify)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", bookings.HandleBookingCancel)

	// Selection resolution
	mux.HandleFunc("POST /api/v1/selection/resolve", selection.HandleSelectionResolve)
}
