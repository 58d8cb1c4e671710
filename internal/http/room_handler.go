package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/lodging-scheduler/internal/application"
	"github.com/example/lodging-scheduler/internal/civil"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (application.Room, error)
	GetRoom(ctx context.Context, roomID string) (application.Room, error)
	ListRooms(ctx context.Context, principal application.Principal, activeOnly bool) ([]application.Room, error)
}

type occupancyService interface {
	RoomStatus(ctx context.Context, roomID string) (application.RoomOccupancy, error)
	Calendar(ctx context.Context, roomID string, from, to civil.Date) ([]application.CalendarDay, error)
}

type slotSuggester interface {
	SuggestSlots(ctx context.Context, roomID string, date civil.Date) ([]application.Suggestion, error)
}

// RoomHandler serves the room catalogue and per-room occupancy views.
type RoomHandler struct {
	rooms     roomService
	occupancy occupancyService
	slots     slotSuggester
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(rooms roomService, occupancy occupancyService, slots slotSuggester, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{
		rooms:     rooms,
		occupancy: occupancy,
		slots:     slots,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req roomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), application.CreateRoomParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "principal_id", principal.AccountID, "room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRoomDTO(room))
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	roomID := mux.Vars(r)["roomID"]

	var req roomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	room, err := h.rooms.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Principal: principal,
		RoomID:    roomID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Update", "principal_id", principal.AccountID, "room_id", room.ID).InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(r.Context(), mux.Vars(r)["roomID"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

// List returns rooms. Inactive rooms are included only for staff callers
// that pass include_inactive=true.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	activeOnly := r.URL.Query().Get("include_inactive") != "true"

	rooms, err := h.rooms.ListRooms(r.Context(), principal, activeOnly)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]roomDTO, len(rooms))
	for i, room := range rooms {
		out[i] = toRoomDTO(room)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse[roomDTO]{Items: out})
}

// Status reports whether the room currently hosts a checked-in stay.
func (h *RoomHandler) Status(w http.ResponseWriter, r *http.Request) {
	occupancy, err := h.occupancy.RoomStatus(r.Context(), mux.Vars(r)["roomID"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, occupancyDTO{
		RoomID:        occupancy.RoomID,
		Occupied:      occupancy.Occupied,
		ReservationID: occupancy.ReservationID,
		Since:         formatTimePtr(occupancy.Since),
	})
}

func (h *RoomHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := fieldErrors{}
	from := f.date("from", q.Get("from"), true)
	to := f.date("to", q.Get("to"), true)
	if err := f.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	days, err := h.occupancy.Calendar(r.Context(), mux.Vars(r)["roomID"], from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse[calendarDayDTO]{Items: toCalendarDTOs(days)})
}

// Suggestions lists feasible hourly start times on a date.
func (h *RoomHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	f := fieldErrors{}
	date := f.date("date", r.URL.Query().Get("date"), true)
	if err := f.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	suggestions, err := h.slots.SuggestSlots(r.Context(), mux.Vars(r)["roomID"], date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]suggestionDTO, len(suggestions))
	for i, s := range suggestions {
		out[i] = suggestionDTO{
			Start:      formatTime(s.Start),
			MinimumEnd: formatTime(s.MinimumEnd),
			MaximumEnd: formatTime(s.MaximumEnd),
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse[suggestionDTO]{Items: out})
}

type roomRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Capacity    int    `json:"capacity" validate:"required,gte=1"`
	HourlyRate  *int64 `json:"hourly_rate" validate:"omitempty,gt=0"`
	NightlyRate *int64 `json:"nightly_rate" validate:"omitempty,gt=0"`
	MonthlyRate *int64 `json:"monthly_rate" validate:"omitempty,gt=0"`
	MinHours    int    `json:"min_hours" validate:"gte=0,lte=24"`
	Active      *bool  `json:"active"`
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		Name:        r.Name,
		Capacity:    r.Capacity,
		HourlyRate:  r.HourlyRate,
		NightlyRate: r.NightlyRate,
		MonthlyRate: r.MonthlyRate,
		MinHours:    r.MinHours,
		Active:      r.Active,
	}
}
