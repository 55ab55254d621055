package models

import "time"

// Student represents a learner registered with the school. Grade and Korean
// level are ordinal bands used for offering eligibility.
type Student struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Grade       int       `db:"grade" json:"grade"`
	KoreanLevel int       `db:"korean_level" json:"korean_level"`
	ParentEmail string    `db:"parent_email" json:"parent_email"`
	Gender      string    `db:"gender" json:"gender"`
	Religion    string    `db:"religion" json:"religion"`
	Church      string    `db:"church" json:"church"`
	Contact     string    `db:"contact" json:"contact"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Query    string
	Page     int
	PageSize int
}
