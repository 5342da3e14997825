package app

import (
	"context"

	"course-scene-service/internal/domain"
)

// CourseStore persists authored courses. Stored geometry is always percent.
type CourseStore interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
	SaveCourse(ctx context.Context, course domain.Course) error
	DeleteCourse(ctx context.Context, courseID string) error
	ListCourses(ctx context.Context) ([]domain.Course, error)
}

// CourseRepository loads course content (from cache/backing store).
type CourseRepository interface {
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)
	Invalidate(ctx context.Context, courseID string)
}

// ProgressFilter narrows ListProgress; empty fields match everything.
type ProgressFilter struct {
	UserID   string
	CourseID string
	Status   domain.ProgressStatus
}

// Match reports whether p passes the filter.
func (f ProgressFilter) Match(p domain.CourseProgress) bool {
	return (f.UserID == "" || f.UserID == p.UserID) &&
		(f.CourseID == "" || f.CourseID == p.CourseID) &&
		(f.Status == "" || f.Status == p.Status)
}

// ProgressStore persists course attempts. Implementations return records
// ordered by StartedAt ascending.
type ProgressStore interface {
	CreateProgress(ctx context.Context, progress domain.CourseProgress) error
	GetProgress(ctx context.Context, progressID string) (domain.CourseProgress, error)
	UpdateProgress(ctx context.Context, progressID string, update domain.ProgressUpdate) error
	ListProgress(ctx context.Context, filter ProgressFilter) ([]domain.CourseProgress, error)
	DeleteProgress(ctx context.Context, progressID string) error
	InteractionTracker
}

// InteractionTracker appends learner interactions to an attempt.
type InteractionTracker interface {
	AppendInteraction(ctx context.Context, progressID string, interaction domain.UserInteraction) error
}

// AssignmentFilter narrows ListAssignments; empty fields match everything.
type AssignmentFilter struct {
	UserID   string
	CourseID string
}

// Match reports whether a passes the filter.
func (f AssignmentFilter) Match(a domain.CourseAssignment) bool {
	return (f.UserID == "" || f.UserID == a.UserID) &&
		(f.CourseID == "" || f.CourseID == a.CourseID)
}

// AssignmentStore persists which users may play which courses.
type AssignmentStore interface {
	SaveAssignment(ctx context.Context, assignment domain.CourseAssignment) error
	FindAssignment(ctx context.Context, courseID, userID string) (domain.CourseAssignment, error)
	DeleteAssignment(ctx context.Context, courseID, userID string) error
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]domain.CourseAssignment, error)
	DeleteByCourse(ctx context.Context, courseID string) error
}
