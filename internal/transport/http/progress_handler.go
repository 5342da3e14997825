package http

import (
	"net/http"

	"course-scene-service/internal/app"
	"course-scene-service/internal/domain"
	"github.com/gorilla/mux"
)

type ProgressHandler struct {
	service *app.ProgressService
}

func NewProgressHandler(service *app.ProgressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// List answers GET /api/progress?courseId=&userId=&status=.
func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := app.ProgressFilter{
		UserID:   q.Get("userId"),
		CourseID: q.Get("courseId"),
		Status:   domain.ProgressStatus(q.Get("status")),
	}
	switch filter.Status {
	case "", domain.StatusInProgress, domain.StatusCompleted, domain.StatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	list, err := h.service.List(r.Context(), ident, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), ident, mux.Vars(r)["progressId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProgressHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.service.Reset(r.Context(), ident, mux.Vars(r)["progressId"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
