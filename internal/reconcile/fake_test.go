package reconcile

import (
	"context"
	"sync"
	"time"

	"assignment-status/internal/domain"
	"assignment-status/internal/providers"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func grade(v float64) *float64 { return &v }

// fakePortal is an in-memory Portal. Submissions are keyed by assignment id.
type fakePortal struct {
	mu sync.Mutex

	courses     []domain.Course
	coursesErr  error
	assignments map[string][]domain.Assignment
	assignErr   map[string]error
	subs        map[string]*domain.SubmissionRecord
	subErr      map[string]error

	// subDelay is awaited (or ctx) before answering a submission lookup.
	subDelay time.Duration
	// subStarted, if set, receives the assignment id of each lookup as it begins.
	subStarted chan string
	// onSubStart, if set, runs synchronously inside each lookup before it answers.
	onSubStart func(assignmentID string)
	// assignDelay is awaited (or ctx) before answering an assignment listing.
	assignDelay time.Duration

	courseCalls int
	assignCalls map[string]int
	subCalls    map[string]int
	inFlight    int
	peak        int

	assignInFlight int
	assignPeak     int
}

var _ providers.Portal = (*fakePortal)(nil)

// twoCourseFixture is the enrollment used throughout: C1 with A1 graded and A2 long overdue,
// C2 with A3 due far in the future.
func twoCourseFixture() *fakePortal {
	return &fakePortal{
		courses: []domain.Course{{ID: "C1", Name: "Algebra"}, {ID: "C2", Name: "History"}},
		assignments: map[string][]domain.Assignment{
			"C1": {
				{ID: "A1", CourseID: "C1", Title: "Quiz 1", DueAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
				{ID: "A2", CourseID: "C1", Title: "Essay", DueAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
			"C2": {
				{ID: "A3", CourseID: "C2", Title: "Project", DueAt: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
		},
		subs: map[string]*domain.SubmissionRecord{
			"A1": {Submitted: true, Grade: grade(8.5), SubmittedAt: time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC)},
		},
	}
}

func (f *fakePortal) ListEnrolledCourses(ctx context.Context, studentID string) ([]domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courseCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.coursesErr != nil {
		return nil, f.coursesErr
	}
	return append([]domain.Course(nil), f.courses...), nil
}

func (f *fakePortal) ListAssignments(ctx context.Context, courseID string, pageSize int) ([]domain.Assignment, error) {
	f.mu.Lock()
	if f.assignCalls == nil {
		f.assignCalls = map[string]int{}
	}
	f.assignCalls[courseID]++
	f.assignInFlight++
	if f.assignInFlight > f.assignPeak {
		f.assignPeak = f.assignInFlight
	}
	delay := f.assignDelay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.assignInFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.assignErr[courseID]; err != nil {
		return nil, err
	}
	return append([]domain.Assignment(nil), f.assignments[courseID]...), nil
}

func (f *fakePortal) GetSubmission(ctx context.Context, studentID, assignmentID string) (*domain.SubmissionRecord, error) {
	f.mu.Lock()
	if f.subCalls == nil {
		f.subCalls = map[string]int{}
	}
	f.subCalls[assignmentID]++
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	started, delay, hook := f.subStarted, f.subDelay, f.onSubStart
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if started != nil {
		started <- assignmentID
	}
	if hook != nil {
		hook(assignmentID)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.subErr[assignmentID]; err != nil {
		return nil, err
	}
	if rec, ok := f.subs[assignmentID]; ok {
		return rec, nil
	}
	return nil, providers.ErrNoSubmission
}

func (f *fakePortal) setSubmission(assignmentID string, rec *domain.SubmissionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = map[string]*domain.SubmissionRecord{}
	}
	f.subs[assignmentID] = rec
}

func (f *fakePortal) totalAssignCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.assignCalls {
		n += c
	}
	return n
}

func (f *fakePortal) totalSubCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.subCalls {
		n += c
	}
	return n
}

func newTestEngine(f *fakePortal, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = fixedClock(now)
	}
	return New(SourcesFrom(f), opts)
}
