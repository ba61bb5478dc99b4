package sqlstore

import "time"

// EnrollmentStatus mirrors the portal's approval workflow. Only accepted rows count.
type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentAccepted EnrollmentStatus = "accepted"
	EnrollmentRefused  EnrollmentStatus = "refused"
)

type CourseModel struct {
	ID   string `gorm:"type:varchar(64);primaryKey;column:id"`
	Name string `gorm:"type:varchar(255);not null;column:name"`
}

func (CourseModel) TableName() string { return "courses" }

type EnrollmentModel struct {
	StudentID string           `gorm:"type:varchar(64);primaryKey;column:student_id"`
	CourseID  string           `gorm:"type:varchar(64);primaryKey;column:course_id"`
	Status    EnrollmentStatus `gorm:"type:varchar(16);not null;default:'pending';column:status"`
	CreatedAt time.Time        `gorm:"type:timestamptz;not null;default:now();column:created_at"`
}

func (EnrollmentModel) TableName() string { return "enrollments" }

type AssignmentModel struct {
	ID          string    `gorm:"type:varchar(64);primaryKey;column:id"`
	CourseID    string    `gorm:"type:varchar(64);primaryKey;column:course_id;index"`
	Title       string    `gorm:"type:varchar(255);not null;column:title"`
	Description *string   `gorm:"type:text;column:description"`
	DueAt       time.Time `gorm:"type:timestamptz;not null;column:due_at"`
}

func (AssignmentModel) TableName() string { return "assignments" }

type SubmissionModel struct {
	AssignmentID string     `gorm:"type:varchar(64);primaryKey;column:assignment_id"`
	StudentID    string     `gorm:"type:varchar(64);primaryKey;column:student_id"`
	Submitted    bool       `gorm:"not null;default:false;column:submitted"`
	Grade        *float64   `gorm:"type:numeric(5,2);column:grade"`
	SubmittedAt  *time.Time `gorm:"type:timestamptz;column:submitted_at"`
}

func (SubmissionModel) TableName() string { return "submissions" }
