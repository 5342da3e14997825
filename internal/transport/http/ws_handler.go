package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"course-scene-service/internal/app"
	"course-scene-service/internal/canvas"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.PlaybackService
	upgrader websocket.Upgrader
}

// NewWSHandler builds the playback websocket endpoint. Same-origin upgrades
// are always accepted; other origins must be listed.
func NewWSHandler(service *app.PlaybackService, allowedOrigins []string) *WSHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if _, ok := origins[origin]; ok {
					return true
				}
				return sameOrigin(r, origin)
			},
		},
	}
}

// sameOrigin accepts requests without an Origin header (non-browser clients)
// and browser requests whose origin host matches the request host.
func sameOrigin(r *http.Request, origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type viewportPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type pointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type startedPayload struct {
	SessionID string          `json:"sessionId"`
	State     app.PlayerState `json:"state"`
}

type resultPayload struct {
	Kind          app.EventKind `json:"kind"`
	SceneChanged  bool          `json:"sceneChanged"`
	Finished      bool          `json:"finished"`
	SurveyCorrect *bool         `json:"surveyCorrect,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades GET /ws/play?courseId= and runs one attempt over the
// connection. Outbound messages: started, state, result, render, finished, error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	courseID := r.URL.Query().Get("courseId")
	if courseID == "" {
		http.Error(w, "missing courseId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	connID := uuid.NewString()
	logger := slog.With("conn", connID, "user", ident.UserID, "course", courseID)

	ctx := r.Context()
	session, err := h.service.Start(ctx, ident, courseID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()
	defer h.service.Leave(ctx, ident, sessionID)

	updates, cancel, err := h.service.Subscribe(ctx, ident, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	// runs before Leave so the session is idle by then
	defer cancel()
	logger.Info("ws playback connected", "session", sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// a single writer goroutine owns conn writes; after a failure it keeps
	// draining so senders never block
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write error", "error", err)
				failed = true
				conn.Close()
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendError := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	var container *canvas.Rect
	sendRender := func() {
		if container == nil {
			return
		}
		rendered, err := h.service.Render(ident, sessionID, *container)
		if err != nil {
			sendError(err)
			return
		}
		send <- outboundMessage[any]{Type: "render", Payload: rendered}
	}
	sendOutcome := func(kind app.EventKind, out app.Outcome) {
		send <- outboundMessage[any]{Type: "result", Payload: resultPayload{
			Kind:          kind,
			SceneChanged:  out.SceneChanged,
			Finished:      out.Finished,
			SurveyCorrect: out.SurveyCorrect,
		}}
		if out.Finished {
			send <- outboundMessage[any]{Type: "finished", Payload: out.State}
			return
		}
		if out.SceneChanged {
			sendRender()
		}
	}

	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{SessionID: sessionID, State: session.State()}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "event":
			var ev app.Event
			if err := json.Unmarshal(inbound.Payload, &ev); err != nil || ev.Kind == "" {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid event payload"}}
				continue
			}
			out, err := h.service.Dispatch(ctx, ident, sessionID, ev)
			if err != nil {
				sendError(err)
				continue
			}
			sendOutcome(ev.Kind, out)
		case "viewport":
			var vp viewportPayload
			if err := json.Unmarshal(inbound.Payload, &vp); err != nil || vp.Width <= 0 || vp.Height <= 0 {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid viewport payload"}}
				continue
			}
			container = &canvas.Rect{Width: vp.Width, Height: vp.Height}
			sendRender()
		case "pointer":
			var p pointerPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid pointer payload"}}
				continue
			}
			if container == nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "viewport not set"}}
				continue
			}
			out, err := h.service.Pointer(ctx, ident, sessionID, *container, p.X, p.Y)
			if err != nil {
				sendError(err)
				continue
			}
			sendOutcome(app.EventClick, out)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	logger.Info("ws playback disconnected", "session", sessionID)
}
