package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"course-scene-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CourseStore keeps courses in Postgres with their scenes as JSONB.
type CourseStore struct {
	pool *pgxpool.Pool
}

func NewCourseStore(pool *pgxpool.Pool) *CourseStore {
	return &CourseStore{pool: pool}
}

const courseColumns = `id, title, description, thumbnail, scenes, created_by, created_at, updated_at, published`

func (s *CourseStore) LoadCourse(ctx context.Context, courseID string) (domain.Course, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id=$1`, courseID)
	course, err := scanCourse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("load course: %w", err)
	}
	return course, nil
}

func (s *CourseStore) SaveCourse(ctx context.Context, course domain.Course) error {
	scenes := course.Scenes
	if scenes == nil {
		scenes = []domain.Scene{}
	}
	raw, err := json.Marshal(scenes)
	if err != nil {
		return fmt.Errorf("marshal scenes: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			thumbnail = EXCLUDED.thumbnail,
			scenes = EXCLUDED.scenes,
			updated_at = EXCLUDED.updated_at,
			published = EXCLUDED.published`,
		course.ID, course.Title, course.Description, course.Thumbnail, string(raw),
		course.CreatedBy, course.CreatedAt, course.UpdatedAt, course.Published)
	if err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	return nil
}

func (s *CourseStore) DeleteCourse(ctx context.Context, courseID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM courses WHERE id=$1`, courseID)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

// ListCourses returns courses newest first.
func (s *CourseStore) ListCourses(ctx context.Context) ([]domain.Course, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, course)
	}
	return out, rows.Err()
}

func scanCourse(row pgx.Row) (domain.Course, error) {
	var (
		course domain.Course
		raw    []byte
	)
	err := row.Scan(&course.ID, &course.Title, &course.Description, &course.Thumbnail, &raw,
		&course.CreatedBy, &course.CreatedAt, &course.UpdatedAt, &course.Published)
	if err != nil {
		return domain.Course{}, err
	}
	if err := json.Unmarshal(raw, &course.Scenes); err != nil {
		return domain.Course{}, fmt.Errorf("unmarshal scenes: %w", err)
	}
	if course.Scenes == nil {
		course.Scenes = []domain.Scene{}
	}
	return course, nil
}
