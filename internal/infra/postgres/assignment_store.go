package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-scene-service/internal/app"
	"course-scene-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AssignmentStore keeps course assignments keyed by (course, user).
type AssignmentStore struct {
	pool *pgxpool.Pool
}

func NewAssignmentStore(pool *pgxpool.Pool) *AssignmentStore {
	return &AssignmentStore{pool: pool}
}

func (s *AssignmentStore) SaveAssignment(ctx context.Context, a domain.CourseAssignment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO course_assignments (id, course_id, user_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (course_id, user_id) DO UPDATE SET
			id = EXCLUDED.id,
			assigned_by = EXCLUDED.assigned_by,
			assigned_at = EXCLUDED.assigned_at`,
		a.ID, a.CourseID, a.UserID, a.AssignedBy, a.AssignedAt)
	if err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

func (s *AssignmentStore) FindAssignment(ctx context.Context, courseID, userID string) (domain.CourseAssignment, error) {
	var a domain.CourseAssignment
	err := s.pool.QueryRow(ctx, `
		SELECT id, course_id, user_id, assigned_by, assigned_at
		FROM course_assignments WHERE course_id=$1 AND user_id=$2`, courseID, userID).
		Scan(&a.ID, &a.CourseID, &a.UserID, &a.AssignedBy, &a.AssignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CourseAssignment{}, domain.ErrAssignmentNotFound
	}
	if err != nil {
		return domain.CourseAssignment{}, fmt.Errorf("find assignment: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) DeleteAssignment(ctx context.Context, courseID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM course_assignments WHERE course_id=$1 AND user_id=$2`, courseID, userID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssignmentNotFound
	}
	return nil
}

func (s *AssignmentStore) ListAssignments(ctx context.Context, filter app.AssignmentFilter) ([]domain.CourseAssignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, course_id, user_id, assigned_by, assigned_at
		FROM course_assignments
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR course_id = $2)
		ORDER BY assigned_at, id`, filter.UserID, filter.CourseID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CourseAssignment, 0)
	for rows.Next() {
		var a domain.CourseAssignment
		if err := rows.Scan(&a.ID, &a.CourseID, &a.UserID, &a.AssignedBy, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AssignmentStore) DeleteByCourse(ctx context.Context, courseID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM course_assignments WHERE course_id=$1`, courseID); err != nil {
		return fmt.Errorf("delete assignments of %s: %w", courseID, err)
	}
	return nil
}
