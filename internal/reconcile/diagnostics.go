package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Stage names the fan-out level a diagnostic was raised at.
type Stage string

const (
	// StageAssignments: a course's assignment listing failed; the course contributes nothing.
	StageAssignments Stage = "assignments"
	// StageAssignment: a single listed assignment was rejected.
	StageAssignment Stage = "assignment"
	// StageSubmission: a submission lookup failed; the assignment is treated as not submitted.
	StageSubmission Stage = "submission"
)

// Diagnostic records one degraded branch of a pass.
type Diagnostic struct {
	Stage        Stage
	CourseID     string
	AssignmentID string
	Err          error
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(string(d.Stage))
	if d.CourseID != "" {
		fmt.Fprintf(&b, " course=%s", d.CourseID)
	}
	if d.AssignmentID != "" {
		fmt.Fprintf(&b, " assignment=%s", d.AssignmentID)
	}
	if d.Err != nil {
		b.WriteString(": ")
		b.WriteString(d.Err.Error())
	}
	return b.String()
}

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	msg := ""
	if d.Err != nil {
		msg = d.Err.Error()
	}
	return json.Marshal(struct {
		Stage        Stage  `json:"stage"`
		CourseID     string `json:"courseId,omitempty"`
		AssignmentID string `json:"assignmentId,omitempty"`
		Message      string `json:"message"`
	}{d.Stage, d.CourseID, d.AssignmentID, msg})
}

// CourseListError is the only fatal outcome of a pass: without the enrollment list there is
// nothing to reconcile. The consumer may retry the whole pass.
type CourseListError struct {
	StudentID string
	Err       error
}

func (e *CourseListError) Error() string {
	return fmt.Sprintf("reconcile: list courses for student %s: %v", e.StudentID, e.Err)
}

func (e *CourseListError) Unwrap() error { return e.Err }

// IsFatal reports whether err came from the course list fetch.
func IsFatal(err error) bool {
	var cle *CourseListError
	return errors.As(err, &cle)
}

// DegradedError is returned alongside a complete Result when Options.Strict is set and at least
// one branch degraded.
type DegradedError struct {
	StudentID   string
	Diagnostics []Diagnostic
}

func (e *DegradedError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("reconcile: student %s: degraded", e.StudentID)
	}
	return fmt.Sprintf("reconcile: student %s: %d degraded branch(es), first: %s",
		e.StudentID, len(e.Diagnostics), e.Diagnostics[0])
}

// IsDegraded reports whether err is a strict-mode DegradedError.
func IsDegraded(err error) bool {
	var de *DegradedError
	return errors.As(err, &de)
}
