package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"assignment-status/internal/domain"
	"assignment-status/internal/logging"
	"assignment-status/internal/metrics"
)

var ErrMissingStudent = errors.New("reconcile: missing student id")

type Options struct {
	CourseWorkers     int // concurrent assignment listings
	SubmissionWorkers int // concurrent submission lookups
	PageSize          int // passed to AssignmentSource; <= 0 asks for everything at once
	Strict            bool
	Order             Order
	Clock             func() time.Time
	Logger            *zap.Logger
	Metrics           *metrics.Registry
	Cache             *Cache
}

func DefaultOptions() Options {
	return Options{
		CourseWorkers:     4,
		SubmissionWorkers: 8,
		Order:             OrderCourse,
		Clock:             time.Now,
	}
}

// Engine reconciles a student's assignment statuses across every enrolled course.
// It is safe for concurrent use; passes share nothing but the optional cache.
type Engine struct {
	agg   *aggregator
	opts  Options
	log   *zap.Logger
	clock func() time.Time
}

func New(src Sources, opts Options) *Engine {
	def := DefaultOptions()
	if opts.CourseWorkers <= 0 {
		opts.CourseWorkers = def.CourseWorkers
	}
	if opts.SubmissionWorkers <= 0 {
		opts.SubmissionWorkers = def.SubmissionWorkers
	}
	if opts.Order == "" {
		opts.Order = def.Order
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	log := logging.OrNop(opts.Logger).Named("reconcile")

	return &Engine{
		agg: &aggregator{
			src:               src,
			courseWorkers:     opts.CourseWorkers,
			submissionWorkers: opts.SubmissionWorkers,
			pageSize:          opts.PageSize,
			log:               log,
			metrics:           opts.Metrics,
		},
		opts:  opts,
		log:   log,
		clock: opts.Clock,
	}
}

// Cache exposes the engine's tuple cache for invalidation. It may be nil.
func (e *Engine) Cache() *Cache { return e.opts.Cache }

// Result is one reconciliation pass.
type Result struct {
	PassID      uuid.UUID           `json:"passId"`
	StudentID   string              `json:"studentId"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Views       []View              `json:"views"`
	Counts      domain.StatusCounts `json:"counts"`
	Diagnostics []Diagnostic        `json:"diagnostics"`
}

// Reconcile runs one pass for studentID.
//
// A failed course list returns a *CourseListError and no result. A cancelled ctx returns
// ctx.Err() and no result. Otherwise the result is complete; failed branches show up in
// Diagnostics and, in strict mode, also as a *DegradedError next to the result.
func (e *Engine) Reconcile(ctx context.Context, studentID string) (*Result, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, ErrMissingStudent
	}
	started := time.Now()
	passID := uuid.New()
	log := e.log.With(zap.String("pass_id", passID.String()), zap.String("student_id", studentID))

	// Read before any fetch so a change signalled mid-pass keeps this pass out of the cache.
	gen := e.opts.Cache.Generation(studentID)
	courses, err := e.agg.listCourses(ctx, studentID)
	if err != nil {
		e.fail(log, started, err)
		return nil, err
	}

	key := CacheKey(studentID, courses)
	tuples, hit := e.opts.Cache.Get(key)
	if hit {
		tuples, hit = rebindCourses(tuples, courses)
	}
	if e.opts.Cache != nil {
		e.opts.Metrics.CacheLookup(hit)
	}

	var diags []Diagnostic
	if !hit {
		tuples, diags, err = e.agg.join(ctx, studentID, courses)
		if err != nil {
			e.fail(log, started, err)
			return nil, err
		}
		if len(diags) == 0 {
			if e.opts.Cache != nil && !e.opts.Cache.Put(key, studentID, gen, tuples) {
				log.Debug("cache store skipped, invalidated during pass")
			}
		}
	}

	if diags == nil {
		diags = []Diagnostic{}
	}
	now := e.clock()
	views, counts := Build(tuples, now, e.opts.Order)
	res := &Result{
		PassID:      passID,
		StudentID:   studentID,
		GeneratedAt: now.UTC(),
		Views:       views,
		Counts:      counts,
		Diagnostics: diags,
	}

	outcome := "ok"
	if len(diags) > 0 {
		outcome = "degraded"
	}
	e.opts.Metrics.ObservePass(outcome, time.Since(started), len(views))
	log.Info("reconciled",
		zap.Int("courses", len(courses)),
		zap.Int("views", len(views)),
		zap.Int("diagnostics", len(diags)),
		zap.Bool("cache_hit", hit),
		zap.Duration("took", time.Since(started)))

	if e.opts.Strict && len(diags) > 0 {
		return res, &DegradedError{StudentID: studentID, Diagnostics: diags}
	}
	return res, nil
}

func (e *Engine) fail(log *zap.Logger, started time.Time, err error) {
	outcome := "fatal"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = "cancelled"
	}
	e.opts.Metrics.ObservePass(outcome, time.Since(started), 0)
	log.Warn("reconcile failed", zap.String("outcome", outcome), zap.Error(err))
}

// rebindCourses refreshes course data on cached tuples; names may change without
// changing the course set. A tuple whose course is no longer listed turns the hit into a miss.
func rebindCourses(tuples []Tuple, courses []domain.Course) ([]Tuple, bool) {
	byID := make(map[string]domain.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}
	for i := range tuples {
		c, ok := byID[tuples[i].Course.ID]
		if !ok {
			return nil, false
		}
		tuples[i].Course = c
	}
	return tuples, true
}

// ViewsByStatus filters the computed views, keeping their order.
func (r *Result) ViewsByStatus(status domain.Status) []View {
	out := make([]View, 0, r.Counts.Of(status))
	for _, v := range r.Views {
		if v.Status == status {
			out = append(out, v)
		}
	}
	return out
}

// Partition splits the views by status. Every view lands in exactly one bucket.
func (r *Result) Partition() map[domain.Status][]View {
	out := make(map[domain.Status][]View, len(domain.Statuses))
	for _, s := range domain.Statuses {
		out[s] = r.ViewsByStatus(s)
	}
	return out
}

// Ordered returns a re-sorted copy of the views.
func (r *Result) Ordered(order Order) []View {
	out := append([]View(nil), r.Views...)
	SortViews(out, order)
	return out
}

func (r *Result) DiagnosticMessages() []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.String())
	}
	return out
}

func (r *Result) Degraded() bool { return len(r.Diagnostics) > 0 }
