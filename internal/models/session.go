package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PositionEnded is the queue position sentinel reporting that a registration
// session has been invalidated server-side.
const PositionEnded = -1

// RegistrationSession is one admitted-or-waiting candidate in the public flow.
// SessionKey is opaque to clients; Position is authoritative server state.
type RegistrationSession struct {
	Email      string    `json:"email"`
	SessionKey string    `json:"session_key"`
	Position   int64     `json:"position"`
	StartedAt  time.Time `json:"started_at"`
}

// Ended reports whether the server has invalidated the session.
func (s RegistrationSession) Ended() bool {
	return s.Position == PositionEnded
}

// SessionClaims is the payload signed into a registration session key.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
