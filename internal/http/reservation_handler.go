package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/lodging-scheduler/internal/application"
	"github.com/example/lodging-scheduler/internal/lifecycle"
	"github.com/example/lodging-scheduler/internal/tariff"
)

const idempotencyKeyHeader = "Idempotency-Key"

type reservationService interface {
	QueryAvailability(ctx context.Context, principal application.Principal, query application.AvailabilityQuery) ([]application.AvailabilityResult, error)
	Quote(ctx context.Context, params application.QuoteParams) (application.QuoteResult, error)
	CreateReservation(ctx context.Context, principal application.Principal, params application.CreateReservationParams) (application.Reservation, error)
	ChangeState(ctx context.Context, principal application.Principal, reservationID string, target lifecycle.Status) (application.Reservation, error)
	GetReservation(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	ListReservations(ctx context.Context, principal application.Principal, params application.ListReservationsParams) ([]application.Reservation, error)
	ListStayEvents(ctx context.Context, principal application.Principal, reservationID string) ([]application.StayEvent, error)
}

type stayService interface {
	CheckIn(ctx context.Context, principal application.Principal, reservationID string) (application.StayResult, error)
	CheckOut(ctx context.Context, principal application.Principal, reservationID string) (application.StayResult, error)
}

// ReservationHandler serves availability, pricing, bookings and stays.
type ReservationHandler struct {
	reservations reservationService
	stays        stayService
	responder    responder
	logger       *slog.Logger
}

func NewReservationHandler(reservations reservationService, stays stayService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{
		reservations: reservations,
		stays:        stays,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

// Availability reports, per room, whether the queried interval is free.
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	q := r.URL.Query()

	f := fieldErrors{}
	query := application.AvailabilityQuery{
		Interval:    intervalFromQuery(q, f),
		RoomIDs:     q["room_id"],
		MinCapacity: f.nonNegativeInt("min_capacity", q.Get("min_capacity")),
	}
	if raw := strings.TrimSpace(q.Get("tariff_type")); raw != "" {
		t, err := tariff.ParseType(raw)
		if err != nil {
			f.add("tariff_type", "must be one of hour, night, month")
		}
		query.Tariff = t
	}
	if err := f.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	results, err := h.reservations.QueryAvailability(r.Context(), principal, query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]availabilityDTO, len(results))
	for i, result := range results {
		conflicts := toConflictDTOs(result.Conflicts)
		if conflicts == nil {
			conflicts = []conflictDTO{}
		}
		out[i] = availabilityDTO{
			Room:      toRoomDTO(result.Room),
			Available: result.Available,
			Conflicts: conflicts,
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse[availabilityDTO]{Items: out})
}

func (h *ReservationHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}
	params, err := req.toParams()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	quote, err := h.reservations.Quote(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, quoteDTO{
		RoomID:     quote.RoomID,
		TariffType: string(quote.Tariff),
		Units:      quote.Units,
		Rate:       quote.Rate,
		Total:      quote.Total,
	})
}

// Create books a room. A repeated Idempotency-Key from the same principal
// returns the reservation created by the first request.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}
	quote, err := req.toParams()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	reservation, err := h.reservations.CreateReservation(r.Context(), principal, application.CreateReservationParams{
		RoomID:         quote.RoomID,
		GuestID:        strings.TrimSpace(req.GuestID),
		Tariff:         quote.Tariff,
		Interval:       quote.Interval,
		PaymentRef:     req.PaymentRef,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "principal_id", principal.AccountID, "reservation_id", reservation.ID).
		InfoContext(r.Context(), "reservation created", "status", reservation.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(reservation))
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	reservation, err := h.reservations.GetReservation(r.Context(), principal, mux.Vars(r)["reservationID"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	q := r.URL.Query()

	f := fieldErrors{}
	params := application.ListReservationsParams{
		RoomID:  strings.TrimSpace(q.Get("room_id")),
		GuestID: strings.TrimSpace(q.Get("guest_id")),
		From:    f.date("from", q.Get("from"), false),
		To:      f.date("to", q.Get("to"), false),
	}
	for _, raw := range q["status"] {
		status, err := lifecycle.ParseStatus(raw)
		if err != nil {
			f.add("status", "must be one of pending, confirmed, cancelled, completed, released")
			continue
		}
		params.Statuses = append(params.Statuses, status)
	}
	if err := f.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	reservations, err := h.reservations.ListReservations(r.Context(), principal, params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse[reservationDTO]{Items: toReservationDTOs(reservations)})
}

// Transition moves a reservation to the requested status.
func (h *ReservationHandler) Transition(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	reservationID := mux.Vars(r)["reservationID"]

	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	reservation, err := h.reservations.ChangeState(r.Context(), principal, reservationID, lifecycle.Status(req.Status))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Transition", "principal_id", principal.AccountID, "reservation_id", reservationID).
		InfoContext(r.Context(), "reservation status changed", "status", reservation.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.recordStay(w, r, "CheckIn", h.stays.CheckIn)
}

func (h *ReservationHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.recordStay(w, r, "CheckOut", h.stays.CheckOut)
}

func (h *ReservationHandler) recordStay(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	record func(context.Context, application.Principal, string) (application.StayResult, error),
) {
	principal, _ := PrincipalFromContext(r.Context())
	reservationID := mux.Vars(r)["reservationID"]

	result, err := record(r.Context(), principal, reservationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), operation, "principal_id", principal.AccountID, "reservation_id", reservationID).
		InfoContext(r.Context(), "stay event recorded", "kind", result.Event.Kind)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, stayResponse{
		Reservation: toReservationDTO(result.Reservation),
		Event:       toStayEventDTO(result.Event),
	})
}

func (h *ReservationHandler) StayEvents(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	events, err := h.reservations.ListStayEvents(r.Context(), principal, mux.Vars(r)["reservationID"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]stayEventDTO, len(events))
	for i, e := range events {
		out[i] = toStayEventDTO(e)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse[stayEventDTO]{Items: out})
}

type quoteRequest struct {
	RoomID     string `json:"room_id" validate:"required"`
	TariffType string `json:"tariff_type" validate:"required,oneof=hour night month"`
	intervalRequest
}

func (q quoteRequest) toParams() (application.QuoteParams, error) {
	interval, err := q.toInterval()
	if err != nil {
		return application.QuoteParams{}, err
	}
	return application.QuoteParams{
		RoomID:   strings.TrimSpace(q.RoomID),
		Tariff:   tariff.Type(q.TariffType),
		Interval: interval,
	}, nil
}

type createReservationRequest struct {
	quoteRequest
	GuestID    string  `json:"guest_id"`
	PaymentRef *string `json:"payment_ref" validate:"omitempty,max=200"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed cancelled completed released"`
}

type stayResponse struct {
	Reservation reservationDTO `json:"reservation"`
	Event       stayEventDTO   `json:"event"`
}
