package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-scene-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type staticLoader struct {
	courses map[string]domain.Course
	calls   int
}

func (l *staticLoader) LoadCourse(_ context.Context, courseID string) (domain.Course, error) {
	l.calls++
	c, ok := l.courses[courseID]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return c, nil
}

func newLoader(courses ...domain.Course) *staticLoader {
	l := &staticLoader{courses: make(map[string]domain.Course)}
	for _, c := range courses {
		l.courses[c.ID] = c
	}
	return l
}

func TestCourseRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := newLoader(sampleCourse())
	repo := NewCourseRepository(newClient(mr), loader, time.Minute)

	first, err := repo.GetCourse(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if !mr.Exists("course:course-1:content") {
		t.Fatalf("expected cached course key")
	}
	if ttl := mr.TTL("course:course-1:content"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	second, err := repo.GetCourse(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get course 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	btn, ok := second.Scenes[0].Element("btn")
	if !ok {
		t.Fatalf("cached course lost its element")
	}
	data, ok := btn.Data.(domain.ButtonData)
	if !ok || data.Action != domain.ActionNextScene {
		t.Fatalf("payload not decoded from cache: %#v", btn.Data)
	}
	want := first.Scenes[0].Elements[0].Geometry
	if btn.Geometry.Space != want.Space || btn.Geometry.Position != want.Position || *btn.Geometry.Size != *want.Size {
		t.Fatalf("geometry changed through cache: %+v", btn.Geometry)
	}
}

func TestCourseRepositoryInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := newLoader(sampleCourse())
	repo := NewCourseRepository(newClient(mr), loader, time.Minute)
	_, _ = repo.GetCourse(context.Background(), "course-1")

	repo.Invalidate(context.Background(), "course-1")
	if mr.Exists("course:course-1:content") {
		t.Fatalf("expected key removed")
	}
	_, _ = repo.GetCourse(context.Background(), "course-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload, loader calls %d", loader.calls)
	}
}

func TestCourseRepositoryDropsCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("course:course-1:content", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := newLoader(sampleCourse())
	repo := NewCourseRepository(newClient(mr), loader, time.Minute)

	course, err := repo.GetCourse(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if course.Title != "Onboarding" || loader.calls != 1 {
		t.Fatalf("expected reload from loader, got %q after %d calls", course.Title, loader.calls)
	}
}

func TestCourseRepositoryNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewCourseRepository(newClient(mr), newLoader(), time.Minute)
	if _, err := repo.GetCourse(context.Background(), "missing"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("course:missing:content") {
		t.Fatalf("missing course must not be cached")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func sampleCourse() domain.Course {
	return domain.Course{
		ID:        "course-1",
		Title:     "Onboarding",
		Published: true,
		Scenes: []domain.Scene{
			{
				ID:            "s1",
				Name:          "Welcome",
				NaturalWidth:  1600,
				NaturalHeight: 900,
				Space:         domain.SpacePercent,
				Elements: []domain.Element{
					{
						ID:       "btn",
						Type:     domain.TypeButton,
						Data:     domain.ButtonData{Label: "Next", Action: domain.ActionNextScene},
						Geometry: domain.Percent(50, 50, 10, 10),
						Row:      1,
					},
				},
			},
			{ID: "s2", Name: "Done", Elements: []domain.Element{}, Space: domain.SpacePercent},
		},
	}
}
