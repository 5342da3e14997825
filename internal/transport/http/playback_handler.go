package http

import (
	"net/http"
	"strconv"

	"course-scene-service/internal/app"
	"course-scene-service/internal/canvas"
	"github.com/gorilla/mux"
)

// PlaybackHandler exposes playback over plain HTTP for clients that do not
// keep a websocket open.
type PlaybackHandler struct {
	service *app.PlaybackService
}

func NewPlaybackHandler(service *app.PlaybackService) *PlaybackHandler {
	return &PlaybackHandler{service: service}
}

type startResponse struct {
	SessionID string          `json:"sessionId"`
	State     app.PlayerState `json:"state"`
}

type outcomeResponse struct {
	State         app.PlayerState `json:"state"`
	SceneChanged  bool            `json:"sceneChanged"`
	Finished      bool            `json:"finished"`
	SurveyCorrect *bool           `json:"surveyCorrect,omitempty"`
}

type pointerRequest struct {
	Container canvas.Rect `json:"container"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
}

func toOutcome(out app.Outcome) outcomeResponse {
	return outcomeResponse{
		State:         out.State,
		SceneChanged:  out.SceneChanged,
		Finished:      out.Finished,
		SurveyCorrect: out.SurveyCorrect,
	}
}

func (h *PlaybackHandler) Start(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	session, err := h.service.Start(r.Context(), ident, mux.Vars(r)["courseId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{SessionID: session.ID(), State: session.State()})
}

func (h *PlaybackHandler) State(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	session, err := h.service.Session(ident, mux.Vars(r)["sessionId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

func (h *PlaybackHandler) Event(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var ev app.Event
	if !decodeRequest(w, r, &ev) {
		return
	}
	if ev.Kind == "" {
		writeError(w, http.StatusBadRequest, "event kind is required")
		return
	}
	out, err := h.service.Dispatch(r.Context(), ident, mux.Vars(r)["sessionId"], ev)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcome(out))
}

func (h *PlaybackHandler) Pointer(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req pointerRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	out, err := h.service.Pointer(r.Context(), ident, mux.Vars(r)["sessionId"], req.Container, req.X, req.Y)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcome(out))
}

// Render answers GET .../render?width=&height= with element boxes for a
// container of that size.
func (h *PlaybackHandler) Render(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	width, errW := strconv.ParseFloat(r.URL.Query().Get("width"), 64)
	height, errH := strconv.ParseFloat(r.URL.Query().Get("height"), 64)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height must be positive numbers")
		return
	}
	rendered, err := h.service.Render(ident, mux.Vars(r)["sessionId"], canvas.Rect{Width: width, Height: height})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}

func (h *PlaybackHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	h.service.Leave(r.Context(), ident, mux.Vars(r)["sessionId"])
	w.WriteHeader(http.StatusNoContent)
}
