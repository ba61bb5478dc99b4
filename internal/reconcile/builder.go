package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"assignment-status/internal/domain"
)

type View = domain.ReconciledAssignmentView

// Order selects how views are sorted. Every order ends with the (course id, assignment id)
// tie-break so the output never depends on fetch completion order.
type Order string

const (
	OrderCourse Order = "course" // course name, due
	OrderDue    Order = "due"    // due, course name
	OrderStatus Order = "status" // pending, overdue, submitted, graded, then due
)

func ParseOrder(v string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(v))); o {
	case "":
		return OrderCourse, nil
	case OrderCourse, OrderDue, OrderStatus:
		return o, nil
	}
	return "", fmt.Errorf("unknown order %q", v)
}

// statusRank puts what needs attention first.
var statusRank = map[domain.Status]int{
	domain.StatusPending:   0,
	domain.StatusOverdue:   1,
	domain.StatusSubmitted: 2,
	domain.StatusGraded:    3,
}

// Build derives a status for every tuple and returns the ordered views with their counts.
func Build(tuples []Tuple, now time.Time, order Order) ([]View, domain.StatusCounts) {
	views := make([]View, 0, len(tuples))
	var counts domain.StatusCounts

	for _, t := range tuples {
		status := domain.Derive(t.Assignment, t.Submission, now)
		counts.Add(status)

		v := View{
			AssignmentID:    t.Assignment.ID,
			AssignmentTitle: t.Assignment.Title,
			CourseID:        t.Course.ID,
			CourseName:      t.Course.Name,
			DueAt:           t.Assignment.DueAt.UTC(),
			Status:          status,
		}
		if t.Submission.Graded() {
			g := *t.Submission.Grade
			v.Grade = &g
		}
		if t.Submission.HasEvidence() && !t.Submission.SubmittedAt.IsZero() {
			at := t.Submission.SubmittedAt.UTC()
			v.SubmittedAt = &at
		}
		views = append(views, v)
	}

	SortViews(views, order)
	return views, counts
}

// SortViews sorts in place. Unknown orders fall back to OrderCourse.
func SortViews(views []View, order Order) {
	var primary func(a, b View) int
	switch order {
	case OrderDue:
		primary = func(a, b View) int {
			return chain(compareTime(a.DueAt, b.DueAt), strings.Compare(a.CourseName, b.CourseName))
		}
	case OrderStatus:
		primary = func(a, b View) int {
			return chain(statusRank[a.Status]-statusRank[b.Status], compareTime(a.DueAt, b.DueAt),
				strings.Compare(a.CourseName, b.CourseName))
		}
	default:
		primary = func(a, b View) int {
			return chain(strings.Compare(a.CourseName, b.CourseName), compareTime(a.DueAt, b.DueAt))
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		return chain(primary(a, b),
			strings.Compare(a.CourseID, b.CourseID),
			strings.Compare(a.AssignmentID, b.AssignmentID)) < 0
	})
}

// chain returns the first non-zero comparison.
func chain(cmps ...int) int {
	for _, c := range cmps {
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
