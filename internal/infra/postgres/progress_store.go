package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"course-scene-service/internal/app"
	"course-scene-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressStore keeps attempts in Postgres. Interactions live in a JSONB
// array that is only ever appended to.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

const progressColumns = `id, user_id, course_id, started_at, completed_at, duration, tab_exits, status, current_scene, interactions`

func (s *ProgressStore) CreateProgress(ctx context.Context, p domain.CourseProgress) error {
	interactions := p.Interactions
	if interactions == nil {
		interactions = []domain.UserInteraction{}
	}
	raw, err := json.Marshal(interactions)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO course_progress (`+progressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)`,
		p.ID, p.UserID, p.CourseID, p.StartedAt, p.CompletedAt, p.Duration, p.TabExits,
		string(p.Status), p.CurrentScene, string(raw))
	if err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) GetProgress(ctx context.Context, progressID string) (domain.CourseProgress, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+progressColumns+` FROM course_progress WHERE id=$1`, progressID)
	p, err := scanProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CourseProgress{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.CourseProgress{}, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// UpdateProgress writes the playback-owned columns and leaves interactions alone.
func (s *ProgressStore) UpdateProgress(ctx context.Context, progressID string, u domain.ProgressUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE course_progress
		SET status=$2, current_scene=$3, tab_exits=$4, duration=$5, completed_at=$6
		WHERE id=$1`,
		progressID, string(u.Status), u.CurrentScene, u.TabExits, u.Duration, u.CompletedAt)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProgressNotFound
	}
	return nil
}

func (s *ProgressStore) ListProgress(ctx context.Context, filter app.ProgressFilter) ([]domain.CourseProgress, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, column+"=$"+strconv.Itoa(len(args)))
	}
	add("user_id", filter.UserID)
	add("course_id", filter.CourseID)
	add("status", string(filter.Status))

	query := `SELECT ` + progressColumns + ` FROM course_progress`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CourseProgress, 0)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ProgressStore) DeleteProgress(ctx context.Context, progressID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM course_progress WHERE id=$1`, progressID)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProgressNotFound
	}
	return nil
}

func (s *ProgressStore) AppendInteraction(ctx context.Context, progressID string, interaction domain.UserInteraction) error {
	raw, err := json.Marshal([]domain.UserInteraction{interaction})
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE course_progress SET interactions = interactions || $2::jsonb WHERE id=$1`,
		progressID, string(raw))
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProgressNotFound
	}
	return nil
}

func scanProgress(row pgx.Row) (domain.CourseProgress, error) {
	var (
		p      domain.CourseProgress
		status string
		raw    []byte
	)
	err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.StartedAt, &p.CompletedAt, &p.Duration,
		&p.TabExits, &status, &p.CurrentScene, &raw)
	if err != nil {
		return domain.CourseProgress{}, err
	}
	p.Status = domain.ProgressStatus(status)
	if err := json.Unmarshal(raw, &p.Interactions); err != nil {
		return domain.CourseProgress{}, fmt.Errorf("unmarshal interactions: %w", err)
	}
	if p.Interactions == nil {
		p.Interactions = []domain.UserInteraction{}
	}
	return p, nil
}
