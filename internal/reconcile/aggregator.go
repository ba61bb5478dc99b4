package reconcile

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"assignment-status/internal/concurrency"
	"assignment-status/internal/domain"
	"assignment-status/internal/metrics"
	"assignment-status/internal/providers"
)

// Tuple is one joined (course, assignment, submission-or-absent) row.
type Tuple struct {
	Course     domain.Course
	Assignment domain.Assignment
	Submission *domain.SubmissionRecord // nil when absent or when the lookup failed
}

// Key identifies an assignment within the student's enrollment.
// Assignment ids are only unique per course.
type Key struct {
	CourseID     string
	AssignmentID string
}

func (t Tuple) Key() Key {
	return Key{CourseID: t.Course.ID, AssignmentID: t.Assignment.ID}
}

// Sources are the three upstream collaborators. They may be backed by different systems.
type Sources struct {
	Courses     providers.CourseSource
	Assignments providers.AssignmentSource
	Submissions providers.SubmissionSource
}

// SourcesFrom uses one backend for all three collaborators.
func SourcesFrom(p providers.Portal) Sources {
	return Sources{Courses: p, Assignments: p, Submissions: p}
}

type aggregator struct {
	src               Sources
	courseWorkers     int
	submissionWorkers int
	pageSize          int
	log               *zap.Logger
	metrics           *metrics.Registry
}

// listCourses is the fatal step. A cancelled context wins over the source error.
func (a *aggregator) listCourses(ctx context.Context, studentID string) ([]domain.Course, error) {
	courses, err := a.src.Courses.ListEnrolledCourses(ctx, studentID)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, &CourseListError{StudentID: studentID, Err: err}
	}
	return dedupeCourses(courses), nil
}

func dedupeCourses(courses []domain.Course) []domain.Course {
	seen := make(map[string]bool, len(courses))
	out := make([]domain.Course, 0, len(courses))
	for _, c := range courses {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// join runs both fan-out levels and waits for every branch. It only fails when ctx is done.
func (a *aggregator) join(ctx context.Context, studentID string, courses []domain.Course) ([]Tuple, []Diagnostic, error) {
	var diags []Diagnostic

	listed, listErrs := concurrency.ProcessParallel(ctx, courses,
		concurrency.ParallelOptions{MaxWorkers: a.courseWorkers},
		func(ctx context.Context, _ int, c domain.Course) ([]domain.Assignment, error) {
			return a.src.Assignments.ListAssignments(ctx, c.ID, a.pageSize)
		})
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	var pending []Tuple
	seen := make(map[Key]bool)
	for i, course := range courses {
		if err := listErrs[i]; err != nil {
			diags = append(diags, a.degrade(Diagnostic{Stage: StageAssignments, CourseID: course.ID, Err: err}))
			continue
		}
		for _, asg := range listed[i] {
			if asg.ID == "" {
				diags = append(diags, a.degrade(Diagnostic{
					Stage: StageAssignment, CourseID: course.ID, Err: errors.New("assignment without id"),
				}))
				continue
			}
			if asg.CourseID == "" {
				asg.CourseID = course.ID
			}
			if asg.CourseID != course.ID {
				diags = append(diags, a.degrade(Diagnostic{
					Stage:        StageAssignment,
					CourseID:     course.ID,
					AssignmentID: asg.ID,
					Err:          errors.Errorf("listed under course %s but belongs to %s", course.ID, asg.CourseID),
				}))
				continue
			}
			t := Tuple{Course: course, Assignment: asg}
			if seen[t.Key()] {
				a.log.Debug("duplicate assignment collapsed",
					zap.String("course_id", course.ID), zap.String("assignment_id", asg.ID))
				continue
			}
			seen[t.Key()] = true
			pending = append(pending, t)
		}
	}

	records, subErrs := concurrency.ProcessParallel(ctx, pending,
		concurrency.ParallelOptions{MaxWorkers: a.submissionWorkers},
		func(ctx context.Context, _ int, t Tuple) (*domain.SubmissionRecord, error) {
			return a.src.Submissions.GetSubmission(ctx, studentID, t.Assignment.ID)
		})
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	tuples := make([]Tuple, len(pending))
	for i, t := range pending {
		sub, err := submissionOutcome(records[i], subErrs[i])
		if err != nil {
			diags = append(diags, a.degrade(Diagnostic{
				Stage: StageSubmission, CourseID: t.Course.ID, AssignmentID: t.Assignment.ID, Err: err,
			}))
		}
		t.Submission = sub
		tuples[i] = t
	}
	return tuples, diags, nil
}

// submissionOutcome folds a lookup into the join. Absence and failure both leave the tuple
// without a record; only a failure is returned for reporting.
func submissionOutcome(rec *domain.SubmissionRecord, err error) (*domain.SubmissionRecord, error) {
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, providers.ErrNoSubmission):
		return nil, nil
	default:
		return nil, err
	}
}

func (a *aggregator) degrade(d Diagnostic) Diagnostic {
	a.metrics.BranchFailed(string(d.Stage))
	a.log.Warn("degraded branch",
		zap.String("stage", string(d.Stage)),
		zap.String("course_id", d.CourseID),
		zap.String("assignment_id", d.AssignmentID),
		zap.Error(d.Err))
	return d
}
