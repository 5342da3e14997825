package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCourseNotFound indicates the course content could not be loaded.
	ErrCourseNotFound = errors.New("course not found")
	// ErrSceneNotFound indicates a scene id that is not part of the course.
	ErrSceneNotFound = errors.New("scene not found")
	// ErrElementNotFound indicates an element id that is not part of the scene.
	ErrElementNotFound = errors.New("element not found")
	// ErrProgressNotFound is returned when a progress record does not exist.
	ErrProgressNotFound = errors.New("progress not found")
	// ErrAssignmentNotFound is returned when unassigning a course that was never assigned.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrSessionNotFound is returned when a playback session has not been started.
	ErrSessionNotFound = errors.New("playback session not found")
	// ErrCourseNotPublished is returned when a learner opens a draft course.
	ErrCourseNotPublished = errors.New("course not published")
	// ErrNotAssigned is returned when a learner opens a course not assigned to them.
	ErrNotAssigned = errors.New("course not assigned to user")
	// ErrEmptyCourse is returned when playback is requested for a course without scenes.
	ErrEmptyCourse = errors.New("course has no scenes")
	ErrLastScene   = errors.New("course must keep at least one scene")

	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnknownElementType is returned for element types outside the registry.
	ErrUnknownElementType = errors.New("unknown element type")

	// ErrPlaybackFinished is returned for any event after completion or failure.
	ErrPlaybackFinished = errors.New("playback already finished")
	// ErrNavigationLocked is returned when moving forward before the scene's required action.
	ErrNavigationLocked = errors.New("scene requires an action before advancing")
	// ErrNoNextScene is returned by next on the last scene; finish must be used instead.
	ErrNoNextScene = errors.New("no next scene")
	// ErrNoPreviousScene is returned by prev on the first scene.
	ErrNoPreviousScene = errors.New("no previous scene")
	// ErrNotLastScene is returned when finishing from any scene but the last one.
	ErrNotLastScene = errors.New("finish is only available on the last scene")
	// ErrUnsupportedEvent is returned for an event the target element does not accept.
	ErrUnsupportedEvent = errors.New("event not supported by element")
)

// GeometryError reports natural dimensions that cannot anchor percent geometry.
type GeometryError struct {
	SceneID string
	Width   float64
	Height  float64
}

func (e *GeometryError) Error() string {
	if e.SceneID == "" {
		return fmt.Sprintf("invalid natural dimensions %gx%g", e.Width, e.Height)
	}
	return fmt.Sprintf("scene %s: invalid natural dimensions %gx%g", e.SceneID, e.Width, e.Height)
}

// InvalidTransitionTargetError reports a goto-scene action pointing at a missing scene.
type InvalidTransitionTargetError struct {
	SceneID   string
	ElementID string
	Target    string
}

func (e *InvalidTransitionTargetError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("scene %s: element %s: goto-scene without target", e.SceneID, e.ElementID)
	}
	return fmt.Sprintf("scene %s: element %s: goto-scene target %q does not exist", e.SceneID, e.ElementID, e.Target)
}

// SurveyEvaluationError reports a survey whose choice set cannot be evaluated.
type SurveyEvaluationError struct {
	SceneID   string
	ElementID string
	Reason    string
}

func (e *SurveyEvaluationError) Error() string {
	return fmt.Sprintf("scene %s: survey %s: %s", e.SceneID, e.ElementID, e.Reason)
}
