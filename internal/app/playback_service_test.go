package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"course-scene-service/internal/app"
	"course-scene-service/internal/canvas"
	"course-scene-service/internal/domain"
	"course-scene-service/internal/infra/memory"
	"github.com/cenkalti/backoff/v4"
)

var (
	learner = domain.Identity{UserID: "u1", Role: domain.RoleUser}
	other   = domain.Identity{UserID: "u2", Role: domain.RoleUser}
	admin   = domain.Identity{UserID: "admin", Role: domain.RoleAdmin}
)

type playbackFixture struct {
	service     *app.PlaybackService
	courses     *memory.CourseStore
	progress    *memory.ProgressStore
	assignments *memory.AssignmentStore
	sessions    *memory.SessionStore
}

func tourCourse() domain.Course {
	c := course(
		scene("s1", el("btn", domain.ButtonData{Label: "Next", Action: domain.ActionNextScene})),
		scene("s2", el("q", survey(false))),
	)
	c.Scenes[0].Elements[0].Geometry = domain.Percent(50, 50, 10, 10)
	return c
}

func newPlaybackFixture(t *testing.T, store app.ProgressStore, opts ...app.PlaybackOption) playbackFixture {
	t.Helper()
	f := playbackFixture{
		courses:     memory.NewCourseStore(tourCourse()),
		progress:    memory.NewProgressStore(),
		assignments: memory.NewAssignmentStore(),
		sessions:    memory.NewSessionStore(),
	}
	if store == nil {
		store = f.progress
	}
	_ = f.assignments.SaveAssignment(context.Background(), domain.CourseAssignment{ID: "a1", CourseID: "course-1", UserID: learner.UserID})
	f.service = app.NewPlaybackService(f.sessions, memory.NewCourseRepository(f.courses, time.Minute), store, f.assignments, nil, opts...)
	return f
}

func TestStartRequiresPublishedAndAssigned(t *testing.T) {
	ctx := context.Background()
	f := newPlaybackFixture(t, nil)

	if _, err := f.service.Start(ctx, other, "course-1"); !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected not assigned, got %v", err)
	}

	draft := tourCourse()
	draft.ID = "draft"
	draft.Published = false
	_ = f.courses.SaveCourse(ctx, draft)
	_ = f.assignments.SaveAssignment(ctx, domain.CourseAssignment{ID: "a2", CourseID: "draft", UserID: learner.UserID})
	if _, err := f.service.Start(ctx, learner, "draft"); !errors.Is(err, domain.ErrCourseNotPublished) {
		t.Fatalf("expected not published, got %v", err)
	}
	if _, err := f.service.Start(ctx, admin, "draft"); err != nil {
		t.Fatalf("admins preview drafts: %v", err)
	}
	if _, err := f.service.Start(ctx, learner, "missing"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected course not found, got %v", err)
	}
}

func TestStartResumesOpenAttempt(t *testing.T) {
	ctx := context.Background()
	f := newPlaybackFixture(t, nil)

	session, err := f.service.Start(ctx, learner, "course-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	again, err := f.service.Start(ctx, learner, "course-1")
	if err != nil || again != session {
		t.Fatalf("expected live session reused, got %v", err)
	}

	if _, err := f.service.Dispatch(ctx, learner, session.ID(), app.Event{Kind: app.EventClick, ElementID: "btn"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	f.service.Leave(ctx, learner, session.ID())
	if _, ok := f.sessions.Get(session.ID()); ok {
		t.Fatalf("expected idle session dropped")
	}

	resumed, err := f.service.Start(ctx, learner, "course-1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.ID() != session.ID() || resumed.State().SceneID != "s2" {
		t.Fatalf("expected resume on s2 of %s, got %s on %s", session.ID(), resumed.ID(), resumed.State().SceneID)
	}
	list, _ := f.progress.ListProgress(ctx, app.ProgressFilter{UserID: learner.UserID})
	if len(list) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(list))
	}
}

func TestDispatchPersistsCompletionAndInteractions(t *testing.T) {
	ctx := context.Background()
	f := newPlaybackFixture(t, nil)

	session, err := f.service.Start(ctx, learner, "course-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.Dispatch(ctx, other, session.ID(), app.Event{Kind: app.EventNext}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for another user, got %v", err)
	}
	if _, err := f.service.Dispatch(ctx, learner, session.ID(), app.Event{Kind: app.EventNext}); !errors.Is(err, domain.ErrNavigationLocked) {
		t.Fatalf("expected locked, got %v", err)
	}
	steps := []app.Event{
		{Kind: app.EventClick, ElementID: "btn"},
		{Kind: app.EventTabExit},
		{Kind: app.EventSubmit, ElementID: "q", Choices: []string{"b"}},
		{Kind: app.EventSubmit, ElementID: "q", Choices: []string{"a"}},
	}
	var out app.Outcome
	for _, ev := range steps {
		out, err = f.service.Dispatch(ctx, learner, session.ID(), ev)
		if err != nil {
			t.Fatalf("dispatch %s: %v", ev.Kind, err)
		}
	}
	if !out.Finished {
		t.Fatalf("expected finished outcome")
	}
	f.service.Drain()

	stored, err := f.progress.GetProgress(ctx, session.ID())
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if stored.Status != domain.StatusCompleted || stored.CompletedAt == nil || stored.TabExits != 1 {
		t.Fatalf("unexpected stored progress %+v", stored)
	}
	if len(stored.Interactions) != 3 {
		t.Fatalf("expected 3 interactions, got %d", len(stored.Interactions))
	}
	if _, ok := f.sessions.Get(session.ID()); ok {
		t.Fatalf("finished session should be dropped")
	}
	if _, err := f.service.Dispatch(ctx, learner, session.ID(), app.Event{Kind: app.EventNext}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestFinalSaveIsRetried(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyProgress{ProgressStore: memory.NewProgressStore(), failures: 2}
	f := newPlaybackFixture(t, flaky, app.WithFinalSaveBackoff(func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}))

	session, err := f.service.Start(ctx, learner, "course-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	flaky.armed = true
	if _, err := f.service.Dispatch(ctx, learner, session.ID(), app.Event{Kind: app.EventClick, ElementID: "btn"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	flaky.failures = 2
	if _, err := f.service.Dispatch(ctx, learner, session.ID(), app.Event{Kind: app.EventSubmit, ElementID: "q", Choices: []string{"a"}}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	stored, _ := flaky.GetProgress(ctx, session.ID())
	if stored.Status != domain.StatusCompleted {
		t.Fatalf("expected completion to survive transient failures, got %s", stored.Status)
	}
}

func TestTrackingFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newPlaybackFixture(t, nil, app.WithInteractionTracker(failingTracker{}))

	session, err := f.service.Start(ctx, learner, "course-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	out, err := f.service.Dispatch(ctx, learner, session.ID(), app.Event{Kind: app.EventClick, ElementID: "btn"})
	if err != nil || !out.SceneChanged {
		t.Fatalf("tracking failure must not affect playback: %v", err)
	}
	f.service.Drain()
}

func TestPointerHitsTopmostElement(t *testing.T) {
	ctx := context.Background()
	f := newPlaybackFixture(t, nil)
	session, err := f.service.Start(ctx, learner, "course-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	container := canvas.Rect{Width: 800, Height: 450}

	rendered, err := f.service.Render(learner, session.ID(), container)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(rendered.Elements) != 1 || rendered.Elements[0].Left != 400 || rendered.Elements[0].Width != 80 {
		t.Fatalf("unexpected render %+v", rendered.Elements)
	}

	out, err := f.service.Pointer(ctx, learner, session.ID(), container, 10, 10)
	if err != nil || out.SceneChanged {
		t.Fatalf("empty canvas click should be a no-op: %v", err)
	}
	out, err = f.service.Pointer(ctx, learner, session.ID(), container, 420, 240)
	if err != nil {
		t.Fatalf("pointer: %v", err)
	}
	if out.State.SceneID != "s2" {
		t.Fatalf("expected button click to advance, got %s", out.State.SceneID)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newPlaybackFixture(t, nil)
	session, err := f.service.Start(ctx, learner, "course-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	ch, cancel, err := f.service.Subscribe(ctx, learner, session.ID())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if initial.SceneID != "s1" {
		t.Fatalf("expected initial snapshot on s1, got %s", initial.SceneID)
	}
	if _, err := f.service.Dispatch(ctx, learner, session.ID(), app.Event{Kind: app.EventClick, ElementID: "btn"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	select {
	case update := <-ch:
		if update.SceneID != "s2" {
			t.Fatalf("expected update on s2, got %s", update.SceneID)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
	}
}

func TestUnsizedScenePlaysWithoutElements(t *testing.T) {
	ctx := context.Background()
	f := newPlaybackFixture(t, nil)
	broken := tourCourse()
	broken.ID = "unsized"
	broken.Scenes[0].NaturalWidth, broken.Scenes[0].NaturalHeight = 0, 0
	_ = f.courses.SaveCourse(ctx, broken)

	session, err := f.service.Start(ctx, admin, "unsized")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(session.Scene().Elements) != 0 {
		t.Fatalf("expected elements hidden on unsized scene")
	}
	if _, err := f.service.Render(admin, session.ID(), canvas.Rect{Width: 100, Height: 100}); !errors.Is(err, canvas.ErrUnsized) {
		t.Fatalf("expected unsized render, got %v", err)
	}
}

type flakyProgress struct {
	app.ProgressStore
	mu       sync.Mutex
	armed    bool
	failures int
}

func (f *flakyProgress) UpdateProgress(ctx context.Context, id string, update domain.ProgressUpdate) error {
	f.mu.Lock()
	if f.armed && update.Status.Terminal() && f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("connection reset")
	}
	f.mu.Unlock()
	return f.ProgressStore.UpdateProgress(ctx, id, update)
}

type failingTracker struct{}

func (failingTracker) AppendInteraction(context.Context, string, domain.UserInteraction) error {
	return errors.New("tracker down")
}
