package domain

import "time"

// Course is a course the student is enrolled in, as reported by the enrollment side of the portal.
// It is read-only for the engine and does not change during a reconciliation pass.
type Course struct {
	ID   string
	Name string
}

// Assignment belongs to exactly one course.
type Assignment struct {
	ID          string
	CourseID    string
	Title       string
	Description string    // optional
	DueAt       time.Time // always compared as a UTC instant
}

// SubmissionRecord is the (student, assignment) submission as stored upstream.
// A missing record is a normal state (nothing handed in yet), not an error.
type SubmissionRecord struct {
	Submitted   bool
	Grade       *float64  // set only once graded
	SubmittedAt time.Time // informational, zero when unknown
}

// Graded reports whether the record carries a grade.
func (s *SubmissionRecord) Graded() bool {
	return s != nil && s.Grade != nil
}

// HasEvidence reports whether the record proves the student handed something in.
// An ungraded, unsubmitted placeholder record proves nothing.
func (s *SubmissionRecord) HasEvidence() bool {
	return s != nil && (s.Submitted || s.Grade != nil)
}
