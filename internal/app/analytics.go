package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"course-scene-service/internal/domain"
)

// LearnerSummary aggregates every attempt of one user at one course.
type LearnerSummary struct {
	UserID        string                `json:"userId"`
	Attempts      int                   `json:"attempts"`
	Status        domain.ProgressStatus `json:"status"`
	FirstAttempt  time.Time             `json:"firstAttempt"`
	LatestAttempt time.Time             `json:"latestAttempt"`
	// Duration is the latest attempt's duration in seconds.
	Duration     int64          `json:"duration"`
	TabExits     int            `json:"tabExits"`
	Interactions map[string]int `json:"interactions"`
}

// CourseAnalytics is the per-course report shown to admins.
type CourseAnalytics struct {
	CourseID  string           `json:"courseId"`
	Attempts  int              `json:"attempts"`
	Completed int              `json:"completed"`
	Failed    int              `json:"failed"`
	Learners  []LearnerSummary `json:"learners"`
}

// AttemptDuration is the stored duration, else the span from start to
// completion, else zero.
func AttemptDuration(p domain.CourseProgress) int64 {
	if p.Duration > 0 {
		return p.Duration
	}
	if p.CompletedAt != nil && p.CompletedAt.After(p.StartedAt) {
		return int64(p.CompletedAt.Sub(p.StartedAt) / time.Second)
	}
	return 0
}

// Summarize groups attempts by user. A learner counts as completed when any
// attempt completed; otherwise the latest attempt's status wins.
func Summarize(courseID string, attempts []domain.CourseProgress) CourseAnalytics {
	report := CourseAnalytics{CourseID: courseID, Learners: []LearnerSummary{}}
	byUser := make(map[string][]domain.CourseProgress)
	for _, p := range attempts {
		if p.CourseID != courseID {
			continue
		}
		byUser[p.UserID] = append(byUser[p.UserID], p)
		report.Attempts++
		switch p.Status {
		case domain.StatusCompleted:
			report.Completed++
		case domain.StatusFailed:
			report.Failed++
		}
	}

	for userID, list := range byUser {
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartedAt.Before(list[j].StartedAt) })
		first, latest := list[0], list[len(list)-1]
		summary := LearnerSummary{
			UserID:        userID,
			Attempts:      len(list),
			Status:        latest.Status,
			FirstAttempt:  first.StartedAt,
			LatestAttempt: latest.StartedAt,
			Duration:      AttemptDuration(latest),
			TabExits:      latest.TabExits,
			Interactions:  make(map[string]int),
		}
		for _, p := range list {
			if p.Status == domain.StatusCompleted {
				summary.Status = domain.StatusCompleted
			}
			for _, it := range p.Interactions {
				summary.Interactions[it.Action]++
			}
		}
		report.Learners = append(report.Learners, summary)
	}
	sort.Slice(report.Learners, func(i, j int) bool { return report.Learners[i].UserID < report.Learners[j].UserID })
	return report
}

// ProgressService exposes progress records to learners and admins.
type ProgressService struct {
	progress ProgressStore
	logger   *slog.Logger
}

func NewProgressService(progress ProgressStore, logger *slog.Logger) *ProgressService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressService{progress: progress, logger: logger}
}

// List returns attempts matching filter. Learners only see their own.
func (s *ProgressService) List(ctx context.Context, ident domain.Identity, filter ProgressFilter) ([]domain.CourseProgress, error) {
	if ident.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !ident.Role.CanEdit() {
		filter.UserID = ident.UserID
	}
	return s.progress.ListProgress(ctx, filter)
}

// Get returns one attempt; learners can read only their own.
func (s *ProgressService) Get(ctx context.Context, ident domain.Identity, progressID string) (domain.CourseProgress, error) {
	p, err := s.progress.GetProgress(ctx, progressID)
	if err != nil {
		return domain.CourseProgress{}, err
	}
	if !ident.Role.CanEdit() && p.UserID != ident.UserID {
		return domain.CourseProgress{}, domain.ErrForbidden
	}
	return p, nil
}

// Reset deletes an attempt so the learner starts over.
func (s *ProgressService) Reset(ctx context.Context, ident domain.Identity, progressID string) error {
	if err := requireEditor(ident); err != nil {
		return err
	}
	if err := s.progress.DeleteProgress(ctx, progressID); err != nil {
		return fmt.Errorf("reset progress %s: %w", progressID, err)
	}
	s.logger.Info("progress reset", "progress", progressID, "by", ident.UserID)
	return nil
}

// Analytics summarizes all attempts at a course.
func (s *ProgressService) Analytics(ctx context.Context, ident domain.Identity, courseID string) (CourseAnalytics, error) {
	if err := requireEditor(ident); err != nil {
		return CourseAnalytics{}, err
	}
	attempts, err := s.progress.ListProgress(ctx, ProgressFilter{CourseID: courseID})
	if err != nil {
		return CourseAnalytics{}, err
	}
	return Summarize(courseID, attempts), nil
}
