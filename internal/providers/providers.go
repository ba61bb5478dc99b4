package providers

import (
	"context"
	"errors"

	"assignment-status/internal/domain"
)

// ErrNoSubmission is returned by a SubmissionSource when the student has no submission
// for the assignment. It is an expected state, not a failure.
var ErrNoSubmission = errors.New("no submission found")

type CourseSource interface {
	ListEnrolledCourses(ctx context.Context, studentID string) ([]domain.Course, error)
}

// AssignmentSource lists a course's assignments. pageSize <= 0 asks for everything in one
// request; otherwise the source pages with that size and returns all pages.
type AssignmentSource interface {
	ListAssignments(ctx context.Context, courseID string, pageSize int) ([]domain.Assignment, error)
}

type SubmissionSource interface {
	GetSubmission(ctx context.Context, studentID, assignmentID string) (*domain.SubmissionRecord, error)
}

// Portal bundles the three collaborators; every concrete backend implements all of them.
type Portal interface {
	CourseSource
	AssignmentSource
	SubmissionSource
}
