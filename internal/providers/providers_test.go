package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"assignment-status/internal/domain"
)

// MockPortal is a mock implementation of the Portal interface for testing
type MockPortal struct {
	ListEnrolledCoursesFunc func(ctx context.Context, studentID string) ([]domain.Course, error)
	ListAssignmentsFunc     func(ctx context.Context, courseID string, pageSize int) ([]domain.Assignment, error)
	GetSubmissionFunc       func(ctx context.Context, studentID, assignmentID string) (*domain.SubmissionRecord, error)
}

func (m *MockPortal) ListEnrolledCourses(ctx context.Context, studentID string) ([]domain.Course, error) {
	return m.ListEnrolledCoursesFunc(ctx, studentID)
}

func (m *MockPortal) ListAssignments(ctx context.Context, courseID string, pageSize int) ([]domain.Assignment, error) {
	return m.ListAssignmentsFunc(ctx, courseID, pageSize)
}

func (m *MockPortal) GetSubmission(ctx context.Context, studentID, assignmentID string) (*domain.SubmissionRecord, error) {
	return m.GetSubmissionFunc(ctx, studentID, assignmentID)
}

func TestProviders(t *testing.T) {
	mock := &MockPortal{
		ListEnrolledCoursesFunc: func(ctx context.Context, studentID string) ([]domain.Course, error) {
			return []domain.Course{{ID: "C1", Name: "Algebra"}}, nil
		},
		ListAssignmentsFunc: func(ctx context.Context, courseID string, pageSize int) ([]domain.Assignment, error) {
			return []domain.Assignment{{ID: "A1", CourseID: courseID, Title: "Homework 1"}}, nil
		},
		GetSubmissionFunc: func(ctx context.Context, studentID, assignmentID string) (*domain.SubmissionRecord, error) {
			return nil, fmt.Errorf("portal: submission %s: %w", assignmentID, ErrNoSubmission)
		},
	}

	// Verify the mock implements the Portal interface
	var _ Portal = (*MockPortal)(nil)

	ctx := context.Background()

	courses, err := mock.ListEnrolledCourses(ctx, "S1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(courses) != 1 || courses[0].ID != "C1" {
		t.Fatalf("Unexpected courses %+v", courses)
	}

	assignments, err := mock.ListAssignments(ctx, "C1", 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if assignments[0].CourseID != "C1" {
		t.Errorf("Expected CourseID to be 'C1', got %q", assignments[0].CourseID)
	}

	// absence must survive wrapping
	_, err = mock.GetSubmission(ctx, "S1", "A1")
	if !errors.Is(err, ErrNoSubmission) {
		t.Errorf("Expected ErrNoSubmission, got %v", err)
	}
}
