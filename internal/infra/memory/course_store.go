package memory

import (
	"context"
	"sort"
	"sync"

	"course-scene-service/internal/domain"
)

// CourseStore keeps courses in a map; useful for tests, demos and the
// default server mode.
type CourseStore struct {
	mu      sync.RWMutex
	courses map[string]domain.Course
}

func NewCourseStore(seed ...domain.Course) *CourseStore {
	s := &CourseStore{courses: make(map[string]domain.Course, len(seed))}
	for _, c := range seed {
		s.courses[c.ID] = cloneCourse(c)
	}
	return s
}

func (s *CourseStore) LoadCourse(_ context.Context, courseID string) (domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if course, ok := s.courses[courseID]; ok {
		return cloneCourse(course), nil
	}
	return domain.Course{}, domain.ErrCourseNotFound
}

func (s *CourseStore) SaveCourse(_ context.Context, course domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[course.ID] = cloneCourse(course)
	return nil
}

func (s *CourseStore) DeleteCourse(_ context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[courseID]; !ok {
		return domain.ErrCourseNotFound
	}
	delete(s.courses, courseID)
	return nil
}

// ListCourses returns courses newest first.
func (s *CourseStore) ListCourses(_ context.Context) ([]domain.Course, error) {
	s.mu.RLock()
	out := make([]domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, cloneCourse(c))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// cloneCourse copies the scene and element slices so callers never share
// backing arrays with the store.
func cloneCourse(c domain.Course) domain.Course {
	scenes := make([]domain.Scene, len(c.Scenes))
	for i, scene := range c.Scenes {
		scene.Elements = append([]domain.Element{}, scene.Elements...)
		scenes[i] = scene
	}
	c.Scenes = scenes
	return c
}
