package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"course-scene-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CourseLoader fetches course content from a backing store (e.g., Postgres).
type CourseLoader interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
}

// CourseRepository caches stored courses in Redis as JSON and falls back to a loader on cache miss.
// Courses are stored as: SET course:{courseID}:content {json} EX ttl
type CourseRepository struct {
	client *redis.Client
	loader CourseLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCourseRepository(client *redis.Client, loader CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	key := r.contentKey(courseID)
	if course, ok := r.cached(ctx, key); ok {
		return course, nil
	}

	result, err, _ := r.sf.Do(courseID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if course, ok := r.cached(ctx, key); ok {
			return course, nil
		}

		course, err := r.loader.LoadCourse(ctx, courseID)
		if err != nil {
			return domain.Course{}, err
		}

		payload, err := json.Marshal(course)
		if err != nil {
			return domain.Course{}, err
		}
		if err := r.client.Set(ctx, key, payload, r.ttlWithJitter()).Err(); err != nil {
			slog.Debug("course cache write failed", "course", courseID, "error", err)
		}
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

func (r *CourseRepository) cached(ctx context.Context, key string) (domain.Course, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Debug("course cache read failed", "key", key, "error", err)
		}
		return domain.Course{}, false
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		slog.Warn("dropping undecodable cached course", "key", key, "error", err)
		_ = r.client.Del(ctx, key).Err()
		return domain.Course{}, false
	}
	return course, true
}

// Invalidate drops the cached copy after the course was saved or deleted.
func (r *CourseRepository) Invalidate(ctx context.Context, courseID string) {
	if err := r.client.Del(ctx, r.contentKey(courseID)).Err(); err != nil {
		slog.Warn("course cache invalidation failed", "course", courseID, "error", err)
	}
	r.sf.Forget(courseID)
}

func (r *CourseRepository) contentKey(courseID string) string {
	return "course:" + courseID + ":content"
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
