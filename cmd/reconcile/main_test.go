package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"assignment-status/internal/domain"
	"assignment-status/internal/reconcile"
)

type stubReconciler struct {
	mu      sync.Mutex
	results map[string]*reconcile.Result
	errs    map[string]error
	calls   []string
}

func (s *stubReconciler) Reconcile(_ context.Context, studentID string) (*reconcile.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, studentID)
	s.mu.Unlock()
	return s.results[studentID], s.errs[studentID]
}

func views(ids ...string) []reconcile.View {
	out := make([]reconcile.View, 0, len(ids))
	for i, id := range ids {
		out = append(out, reconcile.View{
			CourseID: "C1", CourseName: "Algebra", AssignmentID: id,
			DueAt:  time.Date(2025, 1, 1+len(ids)-i, 0, 0, 0, 0, time.UTC),
			Status: domain.StatusPending,
		})
	}
	return out
}

func TestParseStudents(t *testing.T) {
	testCases := []struct {
		list     string
		args     []string
		expected []string
	}{
		{"", nil, []string{}},
		{"S1,S2", nil, []string{"S1", "S2"}},
		{" S1 , ,S2,S1", []string{"S3", "S2"}, []string{"S1", "S2", "S3"}},
		{"", []string{"S9"}, []string{"S9"}},
	}

	for _, tc := range testCases {
		got := parseStudents(tc.list, tc.args)
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("parseStudents(%q, %v) = %v, expected %v", tc.list, tc.args, got, tc.expected)
		}
	}
}

func TestReconcileAll(t *testing.T) {
	degraded := &reconcile.Result{StudentID: "S2", Views: views("A1"),
		Diagnostics: []reconcile.Diagnostic{{Stage: reconcile.StageSubmission, CourseID: "C1", AssignmentID: "A1", Err: errors.New("502")}}}
	stub := &stubReconciler{
		results: map[string]*reconcile.Result{
			"S1": {StudentID: "S1", Views: views("A1", "A2")},
			"S2": degraded,
		},
		errs: map[string]error{
			"S2": &reconcile.DegradedError{StudentID: "S2", Diagnostics: degraded.Diagnostics},
			"S3": &reconcile.CourseListError{StudentID: "S3", Err: errors.New("timeout")},
		},
	}

	results := reconcileAll(context.Background(), stub, []string{"S1", "S2", "S3"}, 2)
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, id := range []string{"S1", "S2", "S3"} {
		if results[i].studentID != id {
			t.Errorf("results[%d] = %s, expected %s", i, results[i].studentID, id)
		}
	}
	if results[0].res == nil || results[0].err != nil {
		t.Errorf("Expected S1 to succeed, got %+v", results[0])
	}
	if results[1].res != degraded || results[1].err != nil {
		t.Errorf("Expected strict degraded S2 to keep its result, got %+v", results[1])
	}
	if results[2].res != nil || !reconcile.IsFatal(results[2].err) {
		t.Errorf("Expected S3 to fail fatally, got %+v", results[2])
	}
}

func TestReconcileAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &stubReconciler{}

	results := reconcileAll(ctx, stub, []string{"S1", "S2"}, 1)
	for _, r := range results {
		if r.res != nil || !errors.Is(r.err, context.Canceled) {
			t.Errorf("Expected cancelled result for %s, got %+v", r.studentID, r)
		}
	}
	if len(stub.calls) != 0 {
		t.Errorf("Expected no passes after cancel, got %v", stub.calls)
	}
}

func TestToReports(t *testing.T) {
	results := []studentResult{
		{studentID: "S1", res: &reconcile.Result{StudentID: "S1", Views: views("A1", "A2")}},
		{studentID: "S2", err: errors.New("boom")},
	}

	reports := toReports(results, reconcile.OrderDue)
	if len(reports) != 1 {
		t.Fatalf("Expected failures to be skipped, got %d reports", len(reports))
	}
	// A2 is due first
	if got := []string{reports[0].Views[0].AssignmentID, reports[0].Views[1].AssignmentID}; !reflect.DeepEqual(got, []string{"A2", "A1"}) {
		t.Errorf("Expected due order, got %v", got)
	}
	if results[0].res.Views[0].AssignmentID != "A1" {
		t.Error("Expected original views to be left untouched")
	}
	if countRows(reports) != 2 {
		t.Errorf("Expected 2 rows, got %d", countRows(reports))
	}
}

func TestWriteJSON(t *testing.T) {
	results := []studentResult{
		{studentID: "S1", res: &reconcile.Result{StudentID: "S1", Views: views("A1"), Diagnostics: []reconcile.Diagnostic{}}},
		{studentID: "S2", err: errors.New("boom")},
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, results, reconcile.OrderCourse); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var got []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0]["studentId"] != "S1" || got[0]["views"] == nil {
		t.Errorf("Unexpected first entry %v", got[0])
	}
	if got[1]["studentId"] != "S2" || got[1]["error"] != "boom" {
		t.Errorf("Unexpected second entry %v", got[1])
	}
	if _, ok := got[1]["views"]; ok {
		t.Errorf("Expected failed entry without views, got %v", got[1])
	}
}
