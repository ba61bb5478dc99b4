package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"assignment-status/internal/domain"
	"assignment-status/internal/providers"
)

// Store reads the portal's tables directly. It implements providers.Portal.
type Store struct {
	db *gorm.DB
}

var _ providers.Portal = (*Store)(nil)

// Open connects with the simple protocol so the DSN may point at PgBouncer.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return New(db), nil
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) coursesQuery(ctx context.Context, studentID string) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&CourseModel{}).
		Select("courses.id, courses.name").
		Joins("JOIN enrollments ON enrollments.course_id = courses.id").
		Where("enrollments.student_id = ? AND enrollments.status = ?", studentID, string(EnrollmentAccepted)).
		Order("courses.id")
}

func (s *Store) assignmentsQuery(ctx context.Context, courseID string) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&AssignmentModel{}).
		Where("course_id = ?", courseID).
		Order("id")
}

func (s *Store) ListEnrolledCourses(ctx context.Context, studentID string) ([]domain.Course, error) {
	var rows []CourseModel
	if err := s.coursesQuery(ctx, studentID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list courses for student %s: %w", studentID, err)
	}
	out := make([]domain.Course, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Course{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (s *Store) ListAssignments(ctx context.Context, courseID string, pageSize int) ([]domain.Assignment, error) {
	if pageSize <= 0 {
		var rows []AssignmentModel
		if err := s.assignmentsQuery(ctx, courseID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("sqlstore: list assignments for course %s: %w", courseID, err)
		}
		return mapAssignments(rows), nil
	}

	rows, err := fetchPages(pageSize, func(offset int) ([]AssignmentModel, error) {
		var page []AssignmentModel
		err := s.assignmentsQuery(ctx, courseID).Limit(pageSize).Offset(offset).Find(&page).Error
		return page, err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list assignments for course %s: %w", courseID, err)
	}
	return mapAssignments(rows), nil
}

// fetchPages calls fetch with growing offsets until a page comes back shorter than pageSize.
func fetchPages[T any](pageSize int, fetch func(offset int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += pageSize {
		page, err := fetch(offset)
		if err != nil {
			return nil, fmt.Errorf("offset=%d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (s *Store) GetSubmission(ctx context.Context, studentID, assignmentID string) (*domain.SubmissionRecord, error) {
	var row SubmissionModel
	err := s.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, providers.ErrNoSubmission
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get submission %s for student %s: %w", assignmentID, studentID, err)
	}
	return mapSubmission(row), nil
}

func mapAssignments(rows []AssignmentModel) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(rows))
	for _, r := range rows {
		a := domain.Assignment{
			ID:       r.ID,
			CourseID: r.CourseID,
			Title:    r.Title,
			DueAt:    r.DueAt.UTC(),
		}
		if r.Description != nil {
			a.Description = *r.Description
		}
		out = append(out, a)
	}
	return out
}

func mapSubmission(r SubmissionModel) *domain.SubmissionRecord {
	rec := &domain.SubmissionRecord{Submitted: r.Submitted, Grade: r.Grade}
	if r.SubmittedAt != nil {
		rec.SubmittedAt = r.SubmittedAt.UTC()
	}
	return rec
}
