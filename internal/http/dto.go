package http

import (
	"github.com/example/lodging-scheduler/internal/application"
)

type roomDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	HourlyRate  *int64 `json:"hourly_rate"`
	NightlyRate *int64 `json:"nightly_rate"`
	MonthlyRate *int64 `json:"monthly_rate"`
	MinHours    int    `json:"min_hours"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{
		ID:          room.ID,
		Name:        room.Name,
		Capacity:    room.Capacity,
		HourlyRate:  room.Rates.Hourly,
		NightlyRate: room.Rates.Nightly,
		MonthlyRate: room.Rates.Monthly,
		MinHours:    room.MinHours,
		Active:      room.Active,
		CreatedAt:   formatTime(room.CreatedAt),
		UpdatedAt:   formatTime(room.UpdatedAt),
	}
}

type reservationDTO struct {
	ID         string  `json:"id"`
	RoomID     string  `json:"room_id"`
	GuestID    string  `json:"guest_id"`
	CreatedBy  string  `json:"created_by"`
	TariffType string  `json:"tariff_type"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	ClockStart *string `json:"clock_start,omitempty"`
	ClockEnd   *string `json:"clock_end,omitempty"`
	Units      int     `json:"units"`
	Total      int64   `json:"total"`
	Status     string  `json:"status"`
	StayState  string  `json:"stay_state"`
	PaymentRef *string `json:"payment_ref,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func toReservationDTO(r application.Reservation) reservationDTO {
	return reservationDTO{
		ID:         r.ID,
		RoomID:     r.RoomID,
		GuestID:    r.GuestID,
		CreatedBy:  r.CreatedBy,
		TariffType: string(r.Tariff),
		StartDate:  r.Interval.StartDate.String(),
		EndDate:    r.Interval.EndDate.String(),
		ClockStart: formatClockPtr(r.Interval.ClockStart),
		ClockEnd:   formatClockPtr(r.Interval.ClockEnd),
		Units:      r.Units,
		Total:      r.Total,
		Status:     string(r.Status),
		StayState:  r.StayState.String(),
		PaymentRef: r.PaymentRef,
		CreatedAt:  formatTime(r.CreatedAt),
		UpdatedAt:  formatTime(r.UpdatedAt),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, len(reservations))
	for i, r := range reservations {
		out[i] = toReservationDTO(r)
	}
	return out
}

type stayEventDTO struct {
	ID            string `json:"id"`
	ReservationID string `json:"reservation_id"`
	Kind          string `json:"kind"`
	OccurredAt    string `json:"occurred_at"`
	RecordedBy    string `json:"recorded_by"`
	Seq           int64  `json:"seq"`
}

func toStayEventDTO(e application.StayEvent) stayEventDTO {
	return stayEventDTO{
		ID:            e.ID,
		ReservationID: e.ReservationID,
		Kind:          string(e.Kind),
		OccurredAt:    formatTime(e.OccurredAt),
		RecordedBy:    e.RecordedBy,
		Seq:           e.Seq,
	}
}

type availabilityDTO struct {
	Room      roomDTO       `json:"room"`
	Available bool          `json:"available"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type quoteDTO struct {
	RoomID     string `json:"room_id"`
	TariffType string `json:"tariff_type"`
	Units      int    `json:"units"`
	Rate       int64  `json:"rate"`
	Total      int64  `json:"total"`
}

type suggestionDTO struct {
	Start      string `json:"start"`
	MinimumEnd string `json:"minimum_end"`
	MaximumEnd string `json:"maximum_end"`
}

type occupancyDTO struct {
	RoomID        string  `json:"room_id"`
	Occupied      bool    `json:"occupied"`
	ReservationID string  `json:"reservation_id,omitempty"`
	Since         *string `json:"since,omitempty"`
}

type calendarSegmentDTO struct {
	ReservationID string `json:"reservation_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
	WholeDay      bool   `json:"whole_day"`
}

type calendarDayDTO struct {
	Date     string               `json:"date"`
	Occupied bool                 `json:"occupied"`
	Segments []calendarSegmentDTO `json:"segments"`
}

func toCalendarDTOs(days []application.CalendarDay) []calendarDayDTO {
	out := make([]calendarDayDTO, len(days))
	for i, day := range days {
		segments := make([]calendarSegmentDTO, len(day.Segments))
		for j, seg := range day.Segments {
			segments[j] = calendarSegmentDTO{
				ReservationID: seg.ReservationID,
				Start:         formatTime(seg.Start),
				End:           formatTime(seg.End),
				WholeDay:      seg.WholeDay,
			}
		}
		out[i] = calendarDayDTO{Date: day.Date.String(), Occupied: day.Occupied, Segments: segments}
	}
	return out
}

type accountDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Disabled    bool   `json:"disabled"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toAccountDTO(a application.Account) accountDTO {
	return accountDTO{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        string(a.Role),
		Disabled:    a.Disabled,
		CreatedAt:   formatTime(a.CreatedAt),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}
