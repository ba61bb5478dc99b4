package domain

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusGraded    Status = "graded"
	StatusOverdue   Status = "overdue"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusPending, StatusSubmitted, StatusGraded, StatusOverdue}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusGraded, StatusOverdue:
		return true
	}
	return false
}

// ParseStatus accepts any casing and surrounding spaces.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Derive maps an assignment, its optional submission and the current instant to a status.
//
// Precedence: a grade wins over everything, then a submission, then the due date.
// The due date must be strictly before now to be overdue.
// SubmittedAt never influences the result.
func Derive(a Assignment, sub *SubmissionRecord, now time.Time) Status {
	if sub.Graded() {
		return StatusGraded
	}
	if sub.HasEvidence() {
		return StatusSubmitted
	}
	if a.DueAt.UTC().Before(now.UTC()) {
		return StatusOverdue
	}
	return StatusPending
}
