package redis

import (
	"testing"
	"time"

	"course-scene-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	player, err := app.NewPlayer(sampleCourse())
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	store.Put(app.NewPlaybackSession("prog-1", "u1", player))
	if !mr.Exists("course:session:prog-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("course:session:prog-1"); got != "u1:course-1" {
		t.Fatalf("unexpected liveness value %q", got)
	}

	store.DeleteIfFinished("prog-1")
	if !mr.Exists("course:session:prog-1") {
		t.Fatalf("unfinished session must stay live")
	}

	store.Delete("prog-1")
	if mr.Exists("course:session:prog-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("prog-1"); ok {
		t.Fatalf("expected session removed locally")
	}
}

func TestSessionStoreDropsFinishedSessions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	course := sampleCourse()
	course.Scenes = course.Scenes[1:]
	player, err := app.NewPlayer(course)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	session := app.NewPlaybackSession("prog-2", "u1", player)
	store.Put(session)

	if _, err := player.Handle(app.Event{Kind: app.EventFinish}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	store.DeleteIfFinished("prog-2")
	if mr.Exists("course:session:prog-2") {
		t.Fatalf("finished session key must be removed")
	}
}

func TestSessionStoreRefreshesTTLOnGet(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	player, _ := app.NewPlayer(sampleCourse())
	store.Put(app.NewPlaybackSession("prog-3", "u1", player))

	mr.FastForward(50 * time.Second)
	if _, ok := store.Get("prog-3"); !ok {
		t.Fatalf("expected session")
	}
	mr.FastForward(50 * time.Second)
	if !mr.Exists("course:session:prog-3") {
		t.Fatalf("expected ttl to be refreshed by Get")
	}
}
