package memory

import (
	"context"
	"sort"
	"sync"

	"course-scene-service/internal/app"
	"course-scene-service/internal/domain"
)

// AssignmentStore is an in-memory implementation of app.AssignmentStore
// keyed by course and user.
type AssignmentStore struct {
	mu          sync.RWMutex
	assignments map[assignmentKey]domain.CourseAssignment
}

type assignmentKey struct {
	courseID string
	userID   string
}

func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{assignments: make(map[assignmentKey]domain.CourseAssignment)}
}

func (s *AssignmentStore) SaveAssignment(_ context.Context, a domain.CourseAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[assignmentKey{a.CourseID, a.UserID}] = a
	return nil
}

func (s *AssignmentStore) FindAssignment(_ context.Context, courseID, userID string) (domain.CourseAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentKey{courseID, userID}]
	if !ok {
		return domain.CourseAssignment{}, domain.ErrAssignmentNotFound
	}
	return a, nil
}

func (s *AssignmentStore) DeleteAssignment(_ context.Context, courseID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignmentKey{courseID, userID}
	if _, ok := s.assignments[key]; !ok {
		return domain.ErrAssignmentNotFound
	}
	delete(s.assignments, key)
	return nil
}

func (s *AssignmentStore) ListAssignments(_ context.Context, filter app.AssignmentFilter) ([]domain.CourseAssignment, error) {
	s.mu.RLock()
	out := make([]domain.CourseAssignment, 0)
	for _, a := range s.assignments {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *AssignmentStore) DeleteByCourse(_ context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.assignments {
		if key.courseID == courseID {
			delete(s.assignments, key)
		}
	}
	return nil
}
