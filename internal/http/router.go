package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Auth         *AuthHandler
	Accounts     *AccountHandler
	Rooms        *RoomHandler
	Reservations *ReservationHandler
	Sessions     SessionValidator
	// Events streams booking events to websocket clients when set.
	Events http.Handler
	Health Pinger
	Logger *slog.Logger
}

func NewRouter(cfg RouterConfig) *mux.Router {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	r := mux.NewRouter()
	r.Use(RequestLogger(logger), Recoverer(logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusNotFound, "NOT_FOUND", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", nil)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", healthHandler(cfg.Health, responder)).Methods(http.MethodGet)
	if cfg.Auth != nil {
		api.HandleFunc("/auth/login", cfg.Auth.Login).Methods(http.MethodPost)
	}

	protected := api.NewRoute().Subrouter()
	if cfg.Sessions != nil {
		protected.Use(RequireSession(cfg.Sessions, logger))
	}

	if cfg.Auth != nil {
		protected.HandleFunc("/auth/session", cfg.Auth.Me).Methods(http.MethodGet)
		protected.HandleFunc("/auth/refresh", cfg.Auth.Refresh).Methods(http.MethodPost)
		protected.HandleFunc("/auth/logout", cfg.Auth.Logout).Methods(http.MethodPost)
	}

	if h := cfg.Accounts; h != nil {
		protected.HandleFunc("/accounts", h.List).Methods(http.MethodGet)
		protected.HandleFunc("/accounts", h.Create).Methods(http.MethodPost)
		protected.HandleFunc("/accounts/{accountID}", h.Get).Methods(http.MethodGet)
	}

	if h := cfg.Rooms; h != nil {
		protected.HandleFunc("/rooms", h.List).Methods(http.MethodGet)
		protected.HandleFunc("/rooms", h.Create).Methods(http.MethodPost)
		protected.HandleFunc("/rooms/{roomID}", h.Get).Methods(http.MethodGet)
		protected.HandleFunc("/rooms/{roomID}", h.Update).Methods(http.MethodPut)
		protected.HandleFunc("/rooms/{roomID}/status", h.Status).Methods(http.MethodGet)
		protected.HandleFunc("/rooms/{roomID}/calendar", h.Calendar).Methods(http.MethodGet)
		protected.HandleFunc("/rooms/{roomID}/suggestions", h.Suggestions).Methods(http.MethodGet)
	}

	if h := cfg.Reservations; h != nil {
		protected.HandleFunc("/availability", h.Availability).Methods(http.MethodGet)
		protected.HandleFunc("/quotes", h.Quote).Methods(http.MethodPost)
		protected.HandleFunc("/reservations", h.List).Methods(http.MethodGet)
		protected.HandleFunc("/reservations", h.Create).Methods(http.MethodPost)
		protected.HandleFunc("/reservations/{reservationID}", h.Get).Methods(http.MethodGet)
		protected.HandleFunc("/reservations/{reservationID}/transitions", h.Transition).Methods(http.MethodPost)
		protected.HandleFunc("/reservations/{reservationID}/check-in", h.CheckIn).Methods(http.MethodPost)
		protected.HandleFunc("/reservations/{reservationID}/check-out", h.CheckOut).Methods(http.MethodPost)
		protected.HandleFunc("/reservations/{reservationID}/stay-events", h.StayEvents).Methods(http.MethodGet)
	}

	if cfg.Events != nil {
		events := cfg.Events
		if cfg.Sessions != nil {
			events = RequireSession(cfg.Sessions, logger)(events)
		}
		r.Handle("/ws", events).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(pinger Pinger, responder responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}
