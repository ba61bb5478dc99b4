package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"assignment-status/internal/domain"
	"assignment-status/internal/httpx"
	"assignment-status/internal/providers"
)

const acceptJSON = "application/json"

// maxPages stops runaway pagination when the portal keeps reporting more pages.
const maxPages = 500

// Client talks to the academic portal REST API and implements providers.Portal.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTP        *http.Client
	Retry       httpx.RetryConfig
}

var _ providers.Portal = (*Client)(nil)

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	tr := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		BearerToken: token,
		HTTP: &http.Client{
			Timeout:   timeout, // por-request
			Transport: tr,
		},
		Retry: httpx.DefaultRetryConfig(),
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return httpx.DoJSON(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Accept", acceptJSON)
		r.Header.Set("Accept-Encoding", httpx.AcceptEncoding)
		if c.BearerToken != "" {
			r.Header.Set("Authorization", "Bearer "+c.BearerToken)
		}
		return r, nil
	}, out, c.Retry)
}

/* -------- API -------- */

func (c *Client) ListEnrolledCourses(ctx context.Context, studentID string) ([]domain.Course, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, errors.New("portal: missing student id")
	}

	var resp coursesResponse
	if err := c.get(ctx, "/students/"+url.PathEscape(studentID)+"/courses", nil, &resp); err != nil {
		return nil, fmt.Errorf("portal: list courses for student %s: %w", studentID, err)
	}

	out := make([]domain.Course, 0, len(resp.Data))
	for _, dto := range resp.Data {
		if dto.ID == "" {
			return nil, fmt.Errorf("portal: course without id for student %s", studentID)
		}
		out = append(out, domain.Course{ID: string(dto.ID), Name: strings.TrimSpace(dto.Name)})
	}
	return out, nil
}

func (c *Client) ListAssignments(ctx context.Context, courseID string, pageSize int) ([]domain.Assignment, error) {
	path := "/courses/" + url.PathEscape(courseID) + "/assignments"

	if pageSize <= 0 {
		var resp assignmentsResponse
		if err := c.get(ctx, path, url.Values{"all": {"true"}}, &resp); err != nil {
			return nil, fmt.Errorf("portal: list assignments for course %s: %w", courseID, err)
		}
		return mapAssignments(courseID, resp.Data)
	}

	var all []domain.Assignment
	for page := 1; page <= maxPages; page++ {
		q := url.Values{
			"page": {strconv.Itoa(page)},
			"size": {strconv.Itoa(pageSize)},
		}
		var resp assignmentsResponse
		if err := c.get(ctx, path, q, &resp); err != nil {
			return nil, fmt.Errorf("portal: list assignments for course %s page=%d: %w", courseID, page, err)
		}

		mapped, err := mapAssignments(courseID, resp.Data)
		if err != nil {
			return nil, err
		}
		all = append(all, mapped...)

		if len(resp.Data) == 0 || resp.Page.TotalPages <= 0 || page >= resp.Page.TotalPages {
			break
		}
	}
	return all, nil
}

func (c *Client) GetSubmission(ctx context.Context, studentID, assignmentID string) (*domain.SubmissionRecord, error) {
	path := "/assignments/" + url.PathEscape(assignmentID) + "/submissions/" + url.PathEscape(studentID)

	var resp submissionResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		if httpx.IsStatus(err, http.StatusNotFound) {
			return nil, providers.ErrNoSubmission
		}
		return nil, fmt.Errorf("portal: get submission %s for student %s: %w", assignmentID, studentID, err)
	}
	if resp.Data == nil {
		return nil, providers.ErrNoSubmission
	}
	return mapSubmission(*resp.Data)
}

func mapAssignments(courseID string, rows []assignmentDTO) ([]domain.Assignment, error) {
	out := make([]domain.Assignment, 0, len(rows))
	for _, r := range rows {
		due, err := parseInstant(r.DueDate)
		if err != nil {
			return nil, fmt.Errorf("portal: assignment %s in course %s: %w", r.ID, courseID, err)
		}
		out = append(out, domain.Assignment{
			ID:          string(r.ID),
			CourseID:    string(r.CourseID),
			Title:       strings.TrimSpace(r.Title),
			Description: strings.TrimSpace(r.Description),
			DueAt:       due,
		})
	}
	return out, nil
}

func mapSubmission(dto submissionDTO) (*domain.SubmissionRecord, error) {
	rec := &domain.SubmissionRecord{Grade: dto.Grade.Value}
	if strings.TrimSpace(dto.SubmittedAt) != "" {
		at, err := parseInstant(dto.SubmittedAt)
		if err != nil {
			return nil, err
		}
		rec.SubmittedAt = at
	}
	// older builds omit the flag; a timestamp is then the only evidence
	if dto.Submitted != nil {
		rec.Submitted = *dto.Submitted
	} else {
		rec.Submitted = !rec.SubmittedAt.IsZero()
	}
	return rec, nil
}
