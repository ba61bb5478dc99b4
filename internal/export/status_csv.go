package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"assignment-status/internal/domain"
)

// Keep header order EXACT; downstream imports match on position.
var statusHeader = []string{
	"STUDENT_ID",
	"COURSE_ID",
	"COURSE_NAME",
	"ASSIGNMENT_ID",
	"ASSIGNMENT_TITLE",
	"DUE_AT",
	"STATUS",
	"GRADE",
	"SUBMITTED_AT",
}

// StudentViews is one student's reconciled rows, already ordered.
type StudentViews struct {
	StudentID string
	Views     []domain.ReconciledAssignmentView
}

// WriteStatusCSV writes one row per view, students in the given order.
func WriteStatusCSV(w io.Writer, reports []StudentViews) error {
	cw := csv.NewWriter(w)
	// match typical templates
	cw.UseCRLF = true

	if err := cw.Write(statusHeader); err != nil {
		return err
	}
	for _, r := range reports {
		for _, v := range r.Views {
			if err := cw.Write(toStatusRow(r.StudentID, v)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStatusCSVFile creates path (and its directory) and writes the report to it.
func WriteStatusCSVFile(path string, reports []StudentViews) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := WriteStatusCSV(f, reports); err != nil {
		f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return f.Close()
}

func toStatusRow(studentID string, v domain.ReconciledAssignmentView) []string {
	grade := ""
	if v.Grade != nil {
		grade = strconv.FormatFloat(*v.Grade, 'f', -1, 64)
	}
	submitted := ""
	if v.SubmittedAt != nil {
		submitted = v.SubmittedAt.UTC().Format(time.RFC3339)
	}

	return []string{
		studentID,                          // STUDENT_ID
		v.CourseID,                         // COURSE_ID
		cleanCell(v.CourseName),            // COURSE_NAME
		v.AssignmentID,                     // ASSIGNMENT_ID
		cleanCell(v.AssignmentTitle),       // ASSIGNMENT_TITLE
		v.DueAt.UTC().Format(time.RFC3339), // DUE_AT
		string(v.Status),                   // STATUS
		grade,                              // GRADE
		submitted,                          // SUBMITTED_AT
	}
}

// cleanCell avoids newlines inside cells.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
