package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"assignment-status/internal/domain"
	"assignment-status/internal/reconcile"
)

const headerDegraded = "X-Reconcile-Degraded"

type studentHandler struct {
	rec Reconciler
}

func registerStudentAPI(g *echo.Group, rec Reconciler) {
	h := studentHandler{rec: rec}
	students := g.Group("/students/:studentId")
	students.GET("/assignments", h.assignments)
	students.GET("/summary", h.summary)
}

// assignmentsQuery filters and reorders an already completed pass.
type assignmentsQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending submitted graded overdue"`
	Order  string `query:"order" validate:"omitempty,oneof=course due status"`
}

type assignmentsResponse struct {
	PassID      uuid.UUID              `json:"passId"`
	StudentID   string                 `json:"studentId"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Views       []reconcile.View       `json:"views"`
	Counts      domain.StatusCounts    `json:"counts"`
	Diagnostics []reconcile.Diagnostic `json:"diagnostics"`
}

type summaryResponse struct {
	PassID      uuid.UUID              `json:"passId"`
	StudentID   string                 `json:"studentId"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Counts      domain.StatusCounts    `json:"counts"`
	Total       int                    `json:"total"`
	Degraded    bool                   `json:"degraded"`
	Diagnostics []reconcile.Diagnostic `json:"diagnostics"`
}

func (h studentHandler) assignments(ctx echo.Context) error {
	var q assignmentsQuery
	if err := ctx.Bind(&q); err != nil {
		return err
	}
	q.Status = strings.ToLower(strings.TrimSpace(q.Status))
	q.Order = strings.ToLower(strings.TrimSpace(q.Order))
	if err := ctx.Validate(&q); err != nil {
		return err
	}

	res, err := h.reconcile(ctx)
	if err != nil {
		return err
	}

	views := res.Views
	if q.Status != "" {
		views = res.ViewsByStatus(domain.Status(q.Status))
	}
	if q.Order != "" {
		views = append([]reconcile.View(nil), views...)
		reconcile.SortViews(views, reconcile.Order(q.Order))
	}

	return ctx.JSON(http.StatusOK, assignmentsResponse{
		PassID:      res.PassID,
		StudentID:   res.StudentID,
		GeneratedAt: res.GeneratedAt,
		Views:       views,
		Counts:      res.Counts,
		Diagnostics: res.Diagnostics,
	})
}

func (h studentHandler) summary(ctx echo.Context) error {
	res, err := h.reconcile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summaryResponse{
		PassID:      res.PassID,
		StudentID:   res.StudentID,
		GeneratedAt: res.GeneratedAt,
		Counts:      res.Counts,
		Total:       res.Counts.Total(),
		Degraded:    res.Degraded(),
		Diagnostics: res.Diagnostics,
	})
}

// reconcile runs a pass for the path student. A strict-mode *DegradedError still carries a
// complete result, so it is served with the degraded header instead of an error status.
func (h studentHandler) reconcile(ctx echo.Context) (*reconcile.Result, error) {
	res, err := h.rec.Reconcile(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil && !(reconcile.IsDegraded(err) && res != nil) {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("reconciler returned no result")
	}
	if res.Diagnostics == nil {
		res.Diagnostics = []reconcile.Diagnostic{}
	}
	if res.Degraded() {
		ctx.Response().Header().Set(headerDegraded, "true")
	}
	return res, nil
}
