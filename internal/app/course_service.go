package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"course-scene-service/internal/domain"
	"course-scene-service/internal/geometry"
	"course-scene-service/internal/typeid"
)

// CourseService contains the course authoring and assignment use cases.
type CourseService struct {
	store       CourseStore
	cache       CourseRepository
	assignments AssignmentStore
	rules       domain.ValidationRules
	logger      *slog.Logger
	now         func() time.Time
}

func NewCourseService(store CourseStore, cache CourseRepository, assignments AssignmentStore, rules domain.ValidationRules, logger *slog.Logger) *CourseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseService{
		store:       store,
		cache:       cache,
		assignments: assignments,
		rules:       rules,
		logger:      logger,
		now:         time.Now,
	}
}

// NewCourseServiceWithClock is test-only for deterministic timestamps.
func NewCourseServiceWithClock(store CourseStore, cache CourseRepository, assignments AssignmentStore, rules domain.ValidationRules, now func() time.Time) *CourseService {
	s := NewCourseService(store, cache, assignments, rules, nil)
	s.now = now
	return s
}

func requireEditor(ident domain.Identity) error {
	if ident.UserID == "" {
		return domain.ErrUnauthenticated
	}
	if !ident.Role.CanEdit() {
		return domain.ErrForbidden
	}
	return nil
}

// canModify: admins edit their own courses, superadmins edit any.
func canModify(ident domain.Identity, course domain.Course) error {
	if err := requireEditor(ident); err != nil {
		return err
	}
	if ident.Role == domain.RoleSuperAdmin || course.CreatedBy == ident.UserID {
		return nil
	}
	return domain.ErrForbidden
}

// Create starts a draft course with one empty scene.
func (s *CourseService) Create(ctx context.Context, ident domain.Identity, title, description string) (domain.Course, error) {
	if err := requireEditor(ident); err != nil {
		return domain.Course{}, err
	}
	now := s.now().UTC()
	course := domain.Course{
		ID:          typeid.NewCourseID(),
		Title:       title,
		Description: description,
		Scenes: []domain.Scene{{
			ID:       typeid.NewSceneID(),
			Name:     "Scene 1",
			Elements: []domain.Element{},
			Space:    domain.SpacePercent,
		}},
		CreatedBy: ident.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveCourse(ctx, course); err != nil {
		return domain.Course{}, err
	}
	s.logger.Info("course created", "course", course.ID, "by", ident.UserID)
	return course, nil
}

// Get returns the stored course (percent geometry). Learners only see
// published courses assigned to them.
func (s *CourseService) Get(ctx context.Context, ident domain.Identity, courseID string) (domain.Course, error) {
	course, err := s.cache.GetCourse(ctx, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if ident.Role.CanEdit() {
		return course, nil
	}
	if !course.Published {
		return domain.Course{}, domain.ErrCourseNotPublished
	}
	if _, err := s.assignments.FindAssignment(ctx, courseID, ident.UserID); err != nil {
		if errors.Is(err, domain.ErrAssignmentNotFound) {
			return domain.Course{}, domain.ErrNotAssigned
		}
		return domain.Course{}, err
	}
	return course, nil
}

// LoadForEdit returns the course with every scene in pixel space. A scene
// whose geometry cannot be converted loses its elements, and that is logged.
func (s *CourseService) LoadForEdit(ctx context.Context, ident domain.Identity, courseID string) (domain.Course, error) {
	course, err := s.store.LoadCourse(ctx, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if err := canModify(ident, course); err != nil {
		return domain.Course{}, err
	}
	scenes := make([]domain.Scene, len(course.Scenes))
	for i, scene := range course.Scenes {
		converted, err := geometry.SceneToPixels(scene)
		if err != nil {
			s.logger.Warn("scene geometry dropped", "course", courseID, "scene", scene.ID, "error", err)
			converted = scene
			converted.Elements = []domain.Element{}
			converted.Space = domain.SpacePixels
		}
		scenes[i] = converted
	}
	course.Scenes = scenes
	return course, nil
}

// Save stores an edited course. Geometry is converted to percent and the
// validation rules are applied before anything is written.
func (s *CourseService) Save(ctx context.Context, ident domain.Identity, course domain.Course) (domain.Course, error) {
	existing, err := s.store.LoadCourse(ctx, course.ID)
	if err != nil {
		return domain.Course{}, err
	}
	if err := canModify(ident, existing); err != nil {
		return domain.Course{}, err
	}
	course.CreatedBy = existing.CreatedBy
	course.CreatedAt = existing.CreatedAt
	course.Published = existing.Published

	stored, err := s.normalize(course)
	if err != nil {
		return domain.Course{}, err
	}
	stored.UpdatedAt = s.now().UTC()
	if err := s.store.SaveCourse(ctx, stored); err != nil {
		return domain.Course{}, err
	}
	s.cache.Invalidate(ctx, stored.ID)
	s.logger.Info("course saved", "course", stored.ID, "scenes", len(stored.Scenes), "by", ident.UserID)
	return stored, nil
}

// normalize converts to percent space and validates.
func (s *CourseService) normalize(course domain.Course) (domain.Course, error) {
	for i := range course.Scenes {
		course.Scenes[i] = anchorUnsized(course.Scenes[i])
	}
	stored, err := geometry.CourseToPercent(course)
	if err != nil {
		return domain.Course{}, err
	}
	if err := domain.ValidateCourse(stored, s.rules); err != nil {
		return domain.Course{}, err
	}
	return stored, nil
}

// anchorUnsized gives a scene without a background the fallback canvas as
// its natural size, so pixel elements placed on it can be stored.
func anchorUnsized(scene domain.Scene) domain.Scene {
	if scene.Sized() {
		return scene
	}
	for _, el := range scene.Elements {
		if el.Geometry.Space == domain.SpacePixels {
			scene.NaturalWidth, scene.NaturalHeight = FallbackCanvasWidth, FallbackCanvasHeight
			break
		}
	}
	return scene
}

// Validate runs the course rules without saving.
func (s *CourseService) Validate(course domain.Course) error {
	_, err := s.normalize(course)
	return err
}

// EditCourse loads a course for editing, runs fn on it and saves the result.
func (s *CourseService) EditCourse(ctx context.Context, ident domain.Identity, courseID string, fn func(*Editor) error) (domain.Course, error) {
	course, err := s.LoadForEdit(ctx, ident, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	editor := NewEditor(course)
	if err := fn(editor); err != nil {
		return domain.Course{}, err
	}
	return s.Save(ctx, ident, editor.Course())
}

// SetPublished publishes or unpublishes a course.
func (s *CourseService) SetPublished(ctx context.Context, ident domain.Identity, courseID string, published bool) (domain.Course, error) {
	course, err := s.store.LoadCourse(ctx, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if err := canModify(ident, course); err != nil {
		return domain.Course{}, err
	}
	course.Published = published
	course.UpdatedAt = s.now().UTC()
	if err := s.store.SaveCourse(ctx, course); err != nil {
		return domain.Course{}, err
	}
	s.cache.Invalidate(ctx, courseID)
	s.logger.Info("course publish state changed", "course", courseID, "published", published)
	return course, nil
}

// Delete removes a course and its assignments. Progress records stay as history.
func (s *CourseService) Delete(ctx context.Context, ident domain.Identity, courseID string) error {
	course, err := s.store.LoadCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if err := canModify(ident, course); err != nil {
		return err
	}
	if err := s.assignments.DeleteByCourse(ctx, courseID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	if err := s.store.DeleteCourse(ctx, courseID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, courseID)
	s.logger.Info("course deleted", "course", courseID, "by", ident.UserID)
	return nil
}

// List returns every course for editors and the assigned published
// courses for learners.
func (s *CourseService) List(ctx context.Context, ident domain.Identity) ([]domain.Course, error) {
	if !ident.Role.CanEdit() {
		return s.ListAssigned(ctx, ident.UserID)
	}
	return s.store.ListCourses(ctx)
}

// ListAssigned returns the published courses assigned to userID.
func (s *CourseService) ListAssigned(ctx context.Context, userID string) ([]domain.Course, error) {
	assignments, err := s.assignments.ListAssignments(ctx, AssignmentFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	courses := make([]domain.Course, 0, len(assignments))
	for _, a := range assignments {
		course, err := s.cache.GetCourse(ctx, a.CourseID)
		if errors.Is(err, domain.ErrCourseNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if course.Published {
			courses = append(courses, course)
		}
	}
	return courses, nil
}

// Assign grants userID access to a course. Assigning twice returns the
// existing assignment.
func (s *CourseService) Assign(ctx context.Context, ident domain.Identity, courseID, userID string) (domain.CourseAssignment, error) {
	if err := requireEditor(ident); err != nil {
		return domain.CourseAssignment{}, err
	}
	if _, err := s.store.LoadCourse(ctx, courseID); err != nil {
		return domain.CourseAssignment{}, err
	}
	existing, err := s.assignments.FindAssignment(ctx, courseID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrAssignmentNotFound) {
		return domain.CourseAssignment{}, err
	}
	assignment := domain.CourseAssignment{
		ID:         typeid.NewAssignmentID(),
		CourseID:   courseID,
		UserID:     userID,
		AssignedBy: ident.UserID,
		AssignedAt: s.now().UTC(),
	}
	if err := s.assignments.SaveAssignment(ctx, assignment); err != nil {
		return domain.CourseAssignment{}, err
	}
	s.logger.Info("course assigned", "course", courseID, "user", userID, "by", ident.UserID)
	return assignment, nil
}

// Unassign revokes access.
func (s *CourseService) Unassign(ctx context.Context, ident domain.Identity, courseID, userID string) error {
	if err := requireEditor(ident); err != nil {
		return err
	}
	return s.assignments.DeleteAssignment(ctx, courseID, userID)
}

// Assignments lists assignments of a course.
func (s *CourseService) Assignments(ctx context.Context, ident domain.Identity, courseID string) ([]domain.CourseAssignment, error) {
	if err := requireEditor(ident); err != nil {
		return nil, err
	}
	return s.assignments.ListAssignments(ctx, AssignmentFilter{CourseID: courseID})
}

// Export serializes a course with percent geometry.
func (s *CourseService) Export(ctx context.Context, ident domain.Identity, courseID string) ([]byte, error) {
	course, err := s.store.LoadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := requireEditor(ident); err != nil {
		return nil, err
	}
	course, err = geometry.CourseToPercent(course)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(course, "", "  ")
}

// Import stores an exported course as a new unpublished draft owned by the caller.
func (s *CourseService) Import(ctx context.Context, ident domain.Identity, data []byte) (domain.Course, error) {
	if err := requireEditor(ident); err != nil {
		return domain.Course{}, err
	}
	var course domain.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return domain.Course{}, fmt.Errorf("decode course: %w", err)
	}
	now := s.now().UTC()
	course.ID = typeid.NewCourseID()
	course.CreatedBy = ident.UserID
	course.CreatedAt = now
	course.UpdatedAt = now
	course.Published = false
	if len(course.Scenes) == 0 {
		return domain.Course{}, domain.ErrEmptyCourse
	}

	stored, err := s.normalize(course)
	if err != nil {
		return domain.Course{}, err
	}
	if err := s.store.SaveCourse(ctx, stored); err != nil {
		return domain.Course{}, err
	}
	s.logger.Info("course imported", "course", stored.ID, "scenes", len(stored.Scenes), "by", ident.UserID)
	return stored, nil
}
