package memory

import (
	"context"
	"sort"
	"sync"

	"course-scene-service/internal/app"
	"course-scene-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore.
type ProgressStore struct {
	mu       sync.RWMutex
	progress map[string]*domain.CourseProgress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{progress: make(map[string]*domain.CourseProgress)}
}

func (s *ProgressStore) CreateProgress(_ context.Context, progress domain.CourseProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if progress.Interactions == nil {
		progress.Interactions = []domain.UserInteraction{}
	}
	s.progress[progress.ID] = &progress
	return nil
}

func (s *ProgressStore) GetProgress(_ context.Context, progressID string) (domain.CourseProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[progressID]
	if !ok {
		return domain.CourseProgress{}, domain.ErrProgressNotFound
	}
	return cloneProgress(p), nil
}

func (s *ProgressStore) UpdateProgress(_ context.Context, progressID string, update domain.ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[progressID]
	if !ok {
		return domain.ErrProgressNotFound
	}
	update.Apply(p)
	return nil
}

func (s *ProgressStore) ListProgress(_ context.Context, filter app.ProgressFilter) ([]domain.CourseProgress, error) {
	s.mu.RLock()
	out := make([]domain.CourseProgress, 0)
	for _, p := range s.progress {
		if filter.Match(*p) {
			out = append(out, cloneProgress(p))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *ProgressStore) DeleteProgress(_ context.Context, progressID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.progress[progressID]; !ok {
		return domain.ErrProgressNotFound
	}
	delete(s.progress, progressID)
	return nil
}

func (s *ProgressStore) AppendInteraction(_ context.Context, progressID string, interaction domain.UserInteraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[progressID]
	if !ok {
		return domain.ErrProgressNotFound
	}
	p.Interactions = append(p.Interactions, interaction)
	return nil
}

func cloneProgress(p *domain.CourseProgress) domain.CourseProgress {
	out := *p
	out.Interactions = append([]domain.UserInteraction{}, p.Interactions...)
	return out
}
