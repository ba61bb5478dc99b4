package portal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

/* -------- Responses -------- */

type coursesResponse struct {
	Data []courseDTO `json:"data"`
}

type courseDTO struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
}

type assignmentsResponse struct {
	Data []assignmentDTO `json:"data"`
	Page pageInfo        `json:"page"`
}

type pageInfo struct {
	Number     int `json:"number"`
	Size       int `json:"size"`
	TotalPages int `json:"totalPages"`
}

type assignmentDTO struct {
	ID          FlexID `json:"id"`
	CourseID    FlexID `json:"courseId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
}

type submissionResponse struct {
	Data *submissionDTO `json:"data"`
}

type submissionDTO struct {
	Submitted   *bool     `json:"submitted"`
	Grade       FlexGrade `json:"grade"`
	SubmittedAt string    `json:"submittedAt"`
}

// FlexID puede venir como número (42) o string ("42").
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("portal: id is neither string nor number: %s", string(b))
	}
	*f = FlexID(n.String())
	return nil
}

// FlexGrade puede venir como:
// - 8.5 (number)
// - "8.5" (string; older portal builds store grades as text)
// - "" / null (not graded yet)
type FlexGrade struct {
	Value *float64
}

func (g *FlexGrade) UnmarshalJSON(b []byte) error {
	g.Value = nil
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("portal: grade %q is not numeric", s)
		}
		g.Value = &v
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	g.Value = &v
	return nil
}

var dueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseInstant accepts RFC3339 and the date-only form the portal uses for some courses.
// Values without an offset are taken as UTC.
func parseInstant(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("portal: empty timestamp")
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("portal: unrecognised timestamp %q", v)
}
