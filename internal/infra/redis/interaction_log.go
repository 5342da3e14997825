package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course-scene-service/internal/app"
	"course-scene-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InteractionLog hands interactions to the durable tracker and mirrors them
// into a Redis list per attempt. The list is auxiliary: a Redis failure never
// keeps an interaction from the durable tracker.
// Entries are stored as: RPUSH course:progress:{progressID}:interactions {json}
type InteractionLog struct {
	client *redis.Client
	next   app.InteractionTracker
	ttl    time.Duration
}

// LoggedInteraction is one list entry.
type LoggedInteraction struct {
	ID string `json:"id"`
	domain.UserInteraction
}

func NewInteractionLog(client *redis.Client, next app.InteractionTracker, ttl time.Duration) *InteractionLog {
	return &InteractionLog{client: client, next: next, ttl: ttl}
}

func (l *InteractionLog) AppendInteraction(ctx context.Context, progressID string, interaction domain.UserInteraction) error {
	var durable error
	if l.next != nil {
		durable = l.next.AppendInteraction(ctx, progressID, interaction)
	}
	return errors.Join(durable, l.push(ctx, progressID, interaction))
}

func (l *InteractionLog) push(ctx context.Context, progressID string, interaction domain.UserInteraction) error {
	payload, err := json.Marshal(LoggedInteraction{ID: uuid.NewString(), UserInteraction: interaction})
	if err != nil {
		return err
	}
	key := l.key(progressID)
	pipe := l.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest interactions of an attempt, oldest first.
func (l *InteractionLog) Recent(ctx context.Context, progressID string, n int64) ([]LoggedInteraction, error) {
	if n <= 0 {
		return []LoggedInteraction{}, nil
	}
	raw, err := l.client.LRange(ctx, l.key(progressID), -n, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LoggedInteraction, 0, len(raw))
	for _, item := range raw {
		var entry LoggedInteraction
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (l *InteractionLog) key(progressID string) string {
	return "course:progress:" + progressID + ":interactions"
}
