package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"assignment-status/internal/domain"
	"assignment-status/internal/providers"
)

var (
	bucketCourses     = []byte("courses")
	bucketEnrollments = []byte("enrollments") // student:course
	bucketAssignments = []byte("assignments") // course:assignment
	bucketSubmissions = []byte("submissions") // assignment:student
)

// Store serves a portal snapshot from a local bbolt file. It implements providers.Portal.
type Store struct {
	db *bbolt.DB
}

var _ providers.Portal = (*Store)(nil)

type courseRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type enrollmentRecord struct {
	StudentID string    `json:"studentId"`
	CourseID  string    `json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
}

type assignmentRecord struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueAt       time.Time `json:"dueAt"`
}

type submissionRecord struct {
	Submitted   bool      `json:"submitted"`
	Grade       *float64  `json:"grade,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// Open opens (or creates) the snapshot file and its buckets.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCourses, bucketEnrollments, bucketAssignments, bucketSubmissions} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func compositeKey(parts ...string) (string, error) {
	for _, p := range parts {
		if p == "" || strings.Contains(p, ":") {
			return "", fmt.Errorf("boltstore: invalid id %q", p)
		}
	}
	return strings.Join(parts, ":"), nil
}

/* -------- generic helpers -------- */

func put[T any](tx *bbolt.Tx, bucket []byte, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

// get returns (nil, nil) when the key is absent.
func get[T any](tx *bbolt.Tx, bucket []byte, key string) (*T, error) {
	v := tx.Bucket(bucket).Get([]byte(key))
	if v == nil {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, fmt.Errorf("boltstore: decode %s/%s: %w", bucket, key, err)
	}
	return &out, nil
}

func listByPrefix[T any](tx *bbolt.Tx, bucket []byte, prefix string) ([]T, error) {
	var results []T
	c := tx.Bucket(bucket).Cursor()
	p := []byte(prefix)
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, fmt.Errorf("boltstore: decode %s/%s: %w", bucket, k, err)
		}
		results = append(results, out)
	}
	return results, nil
}

/* -------- providers.Portal -------- */

func (s *Store) ListEnrolledCourses(ctx context.Context, studentID string) ([]domain.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix, err := compositeKey(studentID)
	if err != nil {
		return nil, err
	}

	var out []domain.Course
	err = s.db.View(func(tx *bbolt.Tx) error {
		enrollments, err := listByPrefix[enrollmentRecord](tx, bucketEnrollments, prefix+":")
		if err != nil {
			return err
		}
		for _, e := range enrollments {
			c, err := get[courseRecord](tx, bucketCourses, e.CourseID)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("boltstore: enrollment %s:%s references unknown course", e.StudentID, e.CourseID)
			}
			out = append(out, domain.Course{ID: c.ID, Name: c.Name})
		}
		return nil
	})
	return out, err
}

// ListAssignments returns the whole course; a local file has no use for paging.
func (s *Store) ListAssignments(ctx context.Context, courseID string, _ int) ([]domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix, err := compositeKey(courseID)
	if err != nil {
		return nil, err
	}

	var rows []assignmentRecord
	err = s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rows, err = listByPrefix[assignmentRecord](tx, bucketAssignments, prefix+":")
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Assignment{
			ID:          r.ID,
			CourseID:    r.CourseID,
			Title:       r.Title,
			Description: r.Description,
			DueAt:       r.DueAt.UTC(),
		})
	}
	return out, nil
}

func (s *Store) GetSubmission(ctx context.Context, studentID, assignmentID string) (*domain.SubmissionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := compositeKey(assignmentID, studentID)
	if err != nil {
		return nil, err
	}

	var rec *submissionRecord
	err = s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = get[submissionRecord](tx, bucketSubmissions, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, providers.ErrNoSubmission
	}
	out := &domain.SubmissionRecord{Submitted: rec.Submitted, Grade: rec.Grade}
	if rec.SubmittedAt != nil {
		out.SubmittedAt = rec.SubmittedAt.UTC()
	}
	return out, nil
}

/* -------- seeding -------- */

func (s *Store) PutCourse(c domain.Course) error {
	if _, err := compositeKey(c.ID); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketCourses, c.ID, courseRecord{ID: c.ID, Name: c.Name})
	})
}

func (s *Store) Enroll(studentID, courseID string) error {
	key, err := compositeKey(studentID, courseID)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketEnrollments, key, enrollmentRecord{
			StudentID: studentID, CourseID: courseID, CreatedAt: time.Now().UTC(),
		})
	})
}

func (s *Store) PutAssignment(a domain.Assignment) error {
	key, err := compositeKey(a.CourseID, a.ID)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketAssignments, key, assignmentRecord{
			ID: a.ID, CourseID: a.CourseID, Title: a.Title, Description: a.Description, DueAt: a.DueAt.UTC(),
		})
	})
}

func (s *Store) PutSubmission(studentID, assignmentID string, rec domain.SubmissionRecord) error {
	key, err := compositeKey(assignmentID, studentID)
	if err != nil {
		return err
	}
	stored := submissionRecord{Submitted: rec.Submitted, Grade: rec.Grade}
	if !rec.SubmittedAt.IsZero() {
		at := rec.SubmittedAt.UTC()
		stored.SubmittedAt = &at
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketSubmissions, key, stored)
	})
}
