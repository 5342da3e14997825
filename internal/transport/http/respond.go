package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"course-scene-service/internal/auth"
	"course-scene-service/internal/canvas"
	"course-scene-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type problemResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

// statusFor maps service errors to HTTP status codes. Zero means unknown.
func statusFor(err error) int {
	var (
		geomErr   *domain.GeometryError
		targetErr *domain.InvalidTransitionTargetError
		surveyErr *domain.SurveyEvaluationError
	)
	switch {
	case errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrSceneNotFound),
		errors.Is(err, domain.ErrElementNotFound),
		errors.Is(err, domain.ErrProgressNotFound),
		errors.Is(err, domain.ErrAssignmentNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotAssigned),
		errors.Is(err, domain.ErrCourseNotPublished):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPlaybackFinished),
		errors.Is(err, domain.ErrNavigationLocked),
		errors.Is(err, domain.ErrNoNextScene),
		errors.Is(err, domain.ErrNoPreviousScene),
		errors.Is(err, domain.ErrNotLastScene),
		errors.Is(err, domain.ErrLastScene):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedEvent),
		errors.Is(err, domain.ErrUnknownElementType),
		errors.Is(err, domain.ErrEmptyCourse),
		errors.Is(err, canvas.ErrNotEditable),
		errors.Is(err, canvas.ErrUnsized),
		errors.As(err, &geomErr),
		errors.As(err, &targetErr),
		errors.As(err, &surveyErr):
		return http.StatusUnprocessableEntity
	}
	return 0
}

func handleServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case 0:
		slog.Error("service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	case http.StatusUnprocessableEntity:
		writeJSON(w, status, problemResponse{Error: "invalid course", Problems: problems(err)})
	default:
		writeError(w, status, err.Error())
	}
}

// problems flattens joined validation errors into one message each.
func problems(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, problems(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	}
	return ident, ok
}
