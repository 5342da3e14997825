package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"course-scene-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CourseLoader fetches course content from a backing store (e.g., Postgres).
type CourseLoader interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
}

// CourseRepository is the read cache in front of the course store. Every save,
// publish or delete invalidates the course, and a load that raced such an
// edit is served once but never cached.
type CourseRepository struct {
	loader CourseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu          sync.Mutex
	entries     map[string]courseEntry
	generations map[string]uint64
}

type courseEntry struct {
	course    domain.Course
	expiresAt time.Time
}

func NewCourseRepository(loader CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		loader:      loader,
		ttl:         ttl,
		clock:       time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		entries:     make(map[string]courseEntry),
		generations: make(map[string]uint64),
	}
}

// GetCourse returns a private copy of the course; callers may modify it.
func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	if course, ok := r.lookup(courseID); ok {
		return cloneCourse(course), nil
	}
	result, err, _ := r.sf.Do(courseID, func() (interface{}, error) {
		if course, ok := r.lookup(courseID); ok {
			return course, nil
		}
		r.mu.Lock()
		gen := r.generations[courseID]
		r.mu.Unlock()

		course, err := r.loader.LoadCourse(ctx, courseID)
		if err != nil {
			return domain.Course{}, err
		}
		r.fill(courseID, gen, course)
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return cloneCourse(result.(domain.Course)), nil
}

// Invalidate drops the cached course and marks loads in flight as stale.
func (r *CourseRepository) Invalidate(_ context.Context, courseID string) {
	r.mu.Lock()
	delete(r.entries, courseID)
	r.generations[courseID]++
	r.mu.Unlock()
	r.sf.Forget(courseID)
}

// Len reports how many courses are cached.
func (r *CourseRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *CourseRepository) lookup(courseID string) (domain.Course, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[courseID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Course{}, false
	}
	return entry.course, true
}

// fill stores a loaded course unless it was edited while loading. Expired
// entries of other courses are dropped on the way.
func (r *CourseRepository) fill(courseID string, gen uint64, course domain.Course) {
	ttl := r.ttlWithJitter()
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()
	for id, entry := range r.entries {
		if !entry.expiresAt.After(now) {
			delete(r.entries, id)
		}
	}
	if r.generations[courseID] != gen || ttl <= 0 {
		return
	}
	r.entries[courseID] = courseEntry{course: cloneCourse(course), expiresAt: now.Add(ttl)}
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
