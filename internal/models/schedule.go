package models

import "time"

// RegistrationWindow defines when the public registration flow is open for a
// school year and term. Multiple windows may exist; the one with the greatest
// ID is authoritative.
type RegistrationWindow struct {
	ID        int64     `db:"id" json:"id"`
	Year      int       `db:"year" json:"year"`
	Term      int       `db:"term" json:"term"`
	OpensAt   time.Time `db:"opens_at" json:"opens_at"`
	ClosesAt  time.Time `db:"closes_at" json:"closes_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether now falls inside the window.
func (w RegistrationWindow) Contains(now time.Time) bool {
	return !now.Before(w.OpensAt) && !now.After(w.ClosesAt)
}
