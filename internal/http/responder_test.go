package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/lodging-scheduler/internal/application"
)

func TestHandleServiceError(t *testing.T) {
	t.Parallel()

	frees := time.Date(2024, 6, 3, 23, 59, 59, 0, time.UTC)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &application.ValidationError{FieldErrors: map[string]string{"rate": "missing"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", &application.ConflictError{Reason: "room already booked", Conflicts: []application.ConflictDetail{{ReservationID: "r-1", FreesAt: frees}}}, http.StatusConflict, "CONFLICT"},
		{"state", &application.StateError{ReservationID: "r-1", From: "pending", To: "completed"}, http.StatusConflict, "STATE_ERROR"},
		{"expired", fmt.Errorf("check-in: %w", application.ErrExpired), http.StatusGone, "EXPIRED"},
		{"not found", application.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", application.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"session expired", application.ErrSessionExpired, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{"duplicate", application.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"internal", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL"},
	}

	r := newResponder(discardLogger())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			r.handleServiceError(context.Background(), rec, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			body := decodeBody[errorResponse](t, rec)
			if body.ErrorCode != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, body.ErrorCode)
			}
		})
	}

	t.Run("conflict body lists the blocking reservation", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		r.handleServiceError(context.Background(), rec, cases[1].err)
		body := decodeBody[errorResponse](t, rec)
		if len(body.Conflicts) != 1 || body.Conflicts[0].FreesAt != "2024-06-03T23:59:59Z" {
			t.Fatalf("unexpected conflicts %+v", body.Conflicts)
		}
	})
}
