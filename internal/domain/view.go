package domain

import "time"

// ReconciledAssignmentView is one row of a student's assignment dashboard.
// It is rebuilt on every reconciliation pass and never stored.
type ReconciledAssignmentView struct {
	AssignmentID    string     `json:"assignmentId"`
	AssignmentTitle string     `json:"assignmentTitle"`
	CourseID        string     `json:"courseId"`
	CourseName      string     `json:"courseName"`
	DueAt           time.Time  `json:"dueAt"`
	Status          Status     `json:"status"`
	Grade           *float64   `json:"grade,omitempty"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
}

// StatusCounts is the per-status summary shown next to the list.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Graded    int `json:"graded"`
	Overdue   int `json:"overdue"`
}

func (c *StatusCounts) Add(s Status) {
	switch s {
	case StatusPending:
		c.Pending++
	case StatusSubmitted:
		c.Submitted++
	case StatusGraded:
		c.Graded++
	case StatusOverdue:
		c.Overdue++
	}
}

func (c StatusCounts) Of(s Status) int {
	switch s {
	case StatusPending:
		return c.Pending
	case StatusSubmitted:
		return c.Submitted
	case StatusGraded:
		return c.Graded
	case StatusOverdue:
		return c.Overdue
	}
	return 0
}

func (c StatusCounts) Total() int {
	return c.Pending + c.Submitted + c.Graded + c.Overdue
}
