// Package http exposes the booking services over a JSON API routed with
// gorilla/mux.
//
// Public endpoints:
//   - GET /api/health: reports storage reachability.
//   - POST /api/auth/login: issues a session token. Body: {"email","password"}.
//     The token is also returned in the X-Session-Token header and a
//     session_token cookie.
//
// Endpoints below require a session token as a Bearer Authorization header or
// the session_token cookie:
//   - GET /api/auth/session, POST /api/auth/refresh, POST /api/auth/logout
//   - GET|POST /api/accounts, GET /api/accounts/{accountID}
//   - GET|POST /api/rooms, GET|PUT /api/rooms/{roomID}
//   - GET /api/rooms/{roomID}/status, /calendar?from&to, /suggestions?date
//   - GET /api/availability?start_date&end_date&clock_start&clock_end&tariff_type&room_id&min_capacity
//   - POST /api/quotes
//   - GET|POST /api/reservations, GET /api/reservations/{reservationID}
//   - POST /api/reservations/{reservationID}/transitions, /check-in, /check-out
//   - GET /api/reservations/{reservationID}/stay-events
//   - GET /ws: websocket stream of booking events.
//
// Errors use {"error_code","message","errors","conflicts"}. Validation
// failures are 400, conflicts and illegal transitions 409, stays outside
// their window 410.
package http
