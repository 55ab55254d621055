package models

import "time"

// Number of class periods in a registration day.
const PeriodCount = 3

// LinkedMaxGrade marks an offering whose same-named siblings across all three
// periods enroll together as a single unit (e.g. a kindergarten day program).
// Any negative max grade carries the same meaning.
const LinkedMaxGrade = -1

// ClassOffering is one schedulable class slot for a period within a term.
type ClassOffering struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Period         int       `db:"period" json:"period"`
	MinGrade       int       `db:"min_grade" json:"min_grade"`
	MaxGrade       int       `db:"max_grade" json:"max_grade"`
	MinKoreanLevel int       `db:"min_korean_level" json:"min_korean_level"`
	MaxKoreanLevel int       `db:"max_korean_level" json:"max_korean_level"`
	Mandatory      bool      `db:"mandatory" json:"mandatory"`
	MaxStudents    int       `db:"max_students" json:"max_students"`
	EnrolledCount  int       `db:"enrolled_count" json:"enrolled_count"`
	Year           int       `db:"year" json:"year"`
	Term           int       `db:"term" json:"term"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Linked reports whether the offering is part of an all-day unit spanning
// every period.
func (o ClassOffering) Linked() bool {
	return o.MaxGrade < 0
}

// Full reports whether the offering has no seats left.
func (o ClassOffering) Full() bool {
	return o.MaxStudents > 0 && o.EnrolledCount >= o.MaxStudents
}

// Admits reports whether the student's grade and Korean level fall inside the
// offering's eligibility bands. Linked offerings ignore the grade ceiling.
func (o ClassOffering) Admits(s Student) bool {
	if !o.Linked() && (s.Grade < o.MinGrade || s.Grade > o.MaxGrade) {
		return false
	}
	if o.Linked() && s.Grade < o.MinGrade {
		return false
	}
	return s.KoreanLevel >= o.MinKoreanLevel && s.KoreanLevel <= o.MaxKoreanLevel
}

// OfferingFilter narrows offering listings to a term.
type OfferingFilter struct {
	Year int
	Term int
}
