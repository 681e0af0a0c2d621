// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"username","password"}.
//     Response: {"token","expires_at","principal":{"user_id","is_admin"}} with
//     the token also surfaced via the `X-Session-Token` header and a
//     `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie. Returns 204 No Content
//     and clears the cookie.
//   - POST /users: self-service registration (no session required). GET /users
//     and DELETE /users/{id} are administrator controlled and exchange the
//     `userDTO` payload defined in user_handler.go.
//   - GET /rooms, POST /rooms, GET/PUT/DELETE /rooms/{id}: room catalog
//     endpoints exchanging the `roomDTO` payload defined in room_handler.go.
//     Listing is available to any authenticated principal while mutations
//     require admin privileges.
//   - GET /rooms/{id}/slots?date=YYYY-MM-DD: the annotated slot grid of a
//     room-day, each slot carrying an `occupied` flag.
//   - GET /bookings, POST /bookings, GET /bookings/all,
//     POST /bookings/{id}/cancel: reservation endpoints exchanging the
//     `bookingDTO` payload defined in booking_handler.go. `/bookings/all`
//     requires the admin role.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
