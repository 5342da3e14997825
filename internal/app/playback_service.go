package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"course-scene-service/internal/canvas"
	"course-scene-service/internal/domain"
	"course-scene-service/internal/typeid"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTrackTimeout = 5 * time.Second
	finalSaveRetries    = 4
)

// PlaybackService runs learner attempts: start/resume, event dispatch,
// progress persistence and scene rendering.
type PlaybackService struct {
	sessions    SessionRepository
	courses     CourseRepository
	progress    ProgressStore
	assignments AssignmentStore
	tracker     InteractionTracker
	logger      *slog.Logger

	now          func() time.Time
	newID        func() string
	tooltipTTL   time.Duration
	trackTimeout time.Duration
	retry        func() backoff.BackOff

	tracking sync.WaitGroup
}

// PlaybackOption customizes a PlaybackService.
type PlaybackOption func(*PlaybackService)

// WithInteractionTracker sends interactions somewhere other than the progress store.
func WithInteractionTracker(t InteractionTracker) PlaybackOption {
	return func(s *PlaybackService) { s.tracker = t }
}

// WithPlaybackClock is test-only for deterministic timestamps.
func WithPlaybackClock(now func() time.Time) PlaybackOption {
	return func(s *PlaybackService) { s.now = now }
}

// WithTooltip sets how long hotspot tooltips stay visible.
func WithTooltip(d time.Duration) PlaybackOption {
	return func(s *PlaybackService) { s.tooltipTTL = d }
}

// WithTrackTimeout bounds each fire-and-forget interaction write.
func WithTrackTimeout(d time.Duration) PlaybackOption {
	return func(s *PlaybackService) {
		if d > 0 {
			s.trackTimeout = d
		}
	}
}

// WithFinalSaveBackoff replaces the retry policy for completion writes.
func WithFinalSaveBackoff(policy func() backoff.BackOff) PlaybackOption {
	return func(s *PlaybackService) { s.retry = policy }
}

func NewPlaybackService(sessions SessionRepository, courses CourseRepository, progress ProgressStore, assignments AssignmentStore, logger *slog.Logger, opts ...PlaybackOption) *PlaybackService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PlaybackService{
		sessions:     sessions,
		courses:      courses,
		progress:     progress,
		assignments:  assignments,
		tracker:      progress,
		logger:       logger,
		now:          time.Now,
		newID:        typeid.NewProgressID,
		tooltipTTL:   DefaultTooltipDuration,
		trackTimeout: defaultTrackTimeout,
		retry: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), finalSaveRetries)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens playback for the caller. Learners need the course published
// and assigned to them. An attempt that is still in progress is resumed.
func (s *PlaybackService) Start(ctx context.Context, ident domain.Identity, courseID string) (*PlaybackSession, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !ident.Role.CanEdit() {
		if !course.Published {
			return nil, domain.ErrCourseNotPublished
		}
		if _, err := s.assignments.FindAssignment(ctx, courseID, ident.UserID); err != nil {
			if errors.Is(err, domain.ErrAssignmentNotFound) {
				return nil, domain.ErrNotAssigned
			}
			return nil, err
		}
	}
	course = s.playable(course)
	if len(course.Scenes) == 0 {
		return nil, domain.ErrEmptyCourse
	}

	open, err := s.progress.ListProgress(ctx, ProgressFilter{UserID: ident.UserID, CourseID: courseID, Status: domain.StatusInProgress})
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		latest := open[len(open)-1]
		if session, ok := s.sessions.Get(latest.ID); ok {
			return session, nil
		}
		player, err := NewPlayer(course, s.playerOptions(WithResume(latest))...)
		if err != nil {
			return nil, err
		}
		session := NewPlaybackSession(latest.ID, ident.UserID, player)
		s.sessions.Put(session)
		s.logger.Info("playback resumed", "session", latest.ID, "course", courseID, "user", ident.UserID, "scene", latest.CurrentScene)
		return session, nil
	}

	player, err := NewPlayer(course, s.playerOptions()...)
	if err != nil {
		return nil, err
	}
	state := player.State()
	record := domain.CourseProgress{
		ID:           s.newID(),
		UserID:       ident.UserID,
		CourseID:     courseID,
		StartedAt:    state.StartedAt,
		Status:       domain.StatusInProgress,
		CurrentScene: state.SceneID,
		Interactions: []domain.UserInteraction{},
	}
	if err := s.progress.CreateProgress(ctx, record); err != nil {
		return nil, err
	}
	session := NewPlaybackSession(record.ID, ident.UserID, player)
	s.sessions.Put(session)
	s.logger.Info("playback started", "session", record.ID, "course", courseID, "user", ident.UserID)
	return session, nil
}

func (s *PlaybackService) playerOptions(extra ...PlayerOption) []PlayerOption {
	return append([]PlayerOption{WithClock(s.now), WithTooltipDuration(s.tooltipTTL)}, extra...)
}

// playable drops the elements of scenes whose percent geometry has no natural
// size to anchor to; those scenes play as their background only.
func (s *PlaybackService) playable(course domain.Course) domain.Course {
	scenes := make([]domain.Scene, len(course.Scenes))
	for i, scene := range course.Scenes {
		if scene.Space == domain.SpacePercent && len(scene.Elements) > 0 && !scene.Sized() {
			s.logger.Warn("scene has no natural size, elements hidden",
				"course", course.ID, "scene", scene.ID, "elements", len(scene.Elements))
			scene.Elements = []domain.Element{}
		}
		scenes[i] = scene
	}
	course.Scenes = scenes
	return course
}

// Session returns a live session owned by the caller.
func (s *PlaybackService) Session(ident domain.Identity, sessionID string) (*PlaybackSession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.UserID() != ident.UserID {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

// Dispatch applies one learner event. Interactions are tracked in the
// background; scene changes are saved best-effort and the final status is
// saved with retries.
func (s *PlaybackService) Dispatch(ctx context.Context, ident domain.Identity, sessionID string, ev Event) (Outcome, error) {
	session, err := s.Session(ident, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	out, err := session.apply(ev)
	if err != nil {
		return out, err
	}
	s.track(sessionID, out.Interactions)

	switch {
	case out.Finished:
		s.saveFinal(ctx, sessionID, out.State)
		s.sessions.DeleteIfFinished(sessionID)
	case out.SceneChanged || ev.Kind == EventTabExit:
		if err := s.progress.UpdateProgress(ctx, sessionID, out.State.Progress()); err != nil {
			s.logger.Warn("progress save failed", "session", sessionID, "error", err)
		}
	}
	return out, nil
}

// Pointer hit-tests a click at displayed coordinates and dispatches it to
// the topmost element. A click on empty canvas changes nothing.
func (s *PlaybackService) Pointer(ctx context.Context, ident domain.Identity, sessionID string, container canvas.Rect, x, y float64) (Outcome, error) {
	rendered, err := s.Render(ident, sessionID, container)
	if err != nil {
		return Outcome{}, err
	}
	elementID, ok := canvas.HitTest(rendered.Elements, x, y)
	if !ok {
		session, err := s.Session(ident, sessionID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{State: session.State()}, nil
	}
	return s.Dispatch(ctx, ident, sessionID, Event{Kind: EventClick, ElementID: elementID})
}

// Render projects the current scene into a container of the given size.
func (s *PlaybackService) Render(ident domain.Identity, sessionID string, container canvas.Rect) (canvas.RenderedScene, error) {
	session, err := s.Session(ident, sessionID)
	if err != nil {
		return canvas.RenderedScene{}, err
	}
	scene := session.Scene()
	viewport, err := canvas.ContainViewport(scene.NaturalWidth, scene.NaturalHeight, container)
	if err != nil {
		return canvas.RenderedScene{SceneID: scene.ID}, err
	}
	return canvas.ProjectScene(scene, viewport)
}

// Subscribe returns a channel that receives playback snapshots for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *PlaybackService) Subscribe(_ context.Context, ident domain.Identity, sessionID string) (<-chan PlayerState, func(), error) {
	session, err := s.Session(ident, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave saves the elapsed time of an unfinished attempt and drops the
// session once nobody watches it.
func (s *PlaybackService) Leave(ctx context.Context, ident domain.Identity, sessionID string) {
	session, err := s.Session(ident, sessionID)
	if err != nil || !session.idle() {
		return
	}
	if !session.IsFinished() {
		if err := s.progress.UpdateProgress(ctx, sessionID, session.State().Progress()); err != nil {
			s.logger.Warn("progress save on leave failed", "session", sessionID, "error", err)
		}
	}
	session.close()
	s.sessions.Delete(sessionID)
}

// Drain waits for outstanding interaction writes.
func (s *PlaybackService) Drain() {
	s.tracking.Wait()
}

func (s *PlaybackService) track(sessionID string, interactions []domain.UserInteraction) {
	if len(interactions) == 0 {
		return
	}
	s.tracking.Add(1)
	go func() {
		defer s.tracking.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.trackTimeout)
		defer cancel()
		for _, it := range interactions {
			if err := s.tracker.AppendInteraction(ctx, sessionID, it); err != nil {
				s.logger.Debug("interaction not tracked", "session", sessionID, "action", it.Action, "error", err)
			}
		}
	}()
}

func (s *PlaybackService) saveFinal(ctx context.Context, sessionID string, state PlayerState) {
	ctx = context.WithoutCancel(ctx)
	update := state.Progress()
	op := func() error {
		err := s.progress.UpdateProgress(ctx, sessionID, update)
		if errors.Is(err, domain.ErrProgressNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(s.retry(), ctx)); err != nil {
		s.logger.Error("final progress save failed", "session", sessionID, "status", state.Status, "error", err)
		return
	}
	s.logger.Info("playback finished", "session", sessionID, "status", state.Status, "duration", state.Duration)
}
