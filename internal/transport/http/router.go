package http

import (
	"context"
	"net/http"

	"course-scene-service/internal/app"
	"course-scene-service/internal/auth"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps holds everything the router serves.
type Deps struct {
	Auth           *auth.Service
	CookieName     string
	SecureCookies  bool
	AllowedOrigins []string

	Courses  *app.CourseService
	Progress *app.ProgressService
	Playback *app.PlaybackService
	Media    *MediaHandler

	Health map[string]HealthCheck
}

// NewRouter wires REST, media and websocket routes.
func NewRouter(d Deps) http.Handler {
	authHandler := auth.NewHandler(d.Auth, d.CookieName, d.SecureCookies)
	courseHandler := NewCourseHandler(d.Courses, d.Progress)
	progressHandler := NewProgressHandler(d.Progress)
	playbackHandler := NewPlaybackHandler(d.Playback)
	wsHandler := NewWSHandler(d.Playback, d.AllowedOrigins)

	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, Logger, middleware.Recoverer)

	r.HandleFunc("/healthz", healthz(d.Health)).Methods("GET")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	if d.Media != nil {
		r.PathPrefix(d.Media.urlPrefix).Handler(d.Media.Serve()).Methods("GET")
	}

	authed := d.Auth.Middleware(d.CookieName)

	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(authed)
	ws.HandleFunc("/play", wsHandler.ServeWS).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authed)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/courses", courseHandler.List).Methods("GET")
	api.HandleFunc("/courses/{courseId}", courseHandler.Get).Methods("GET")
	api.HandleFunc("/courses/{courseId}/play", playbackHandler.Start).Methods("POST")
	api.HandleFunc("/progress", progressHandler.List).Methods("GET")
	api.HandleFunc("/progress/{progressId}", progressHandler.Get).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}", playbackHandler.State).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}", playbackHandler.Leave).Methods("DELETE")
	api.HandleFunc("/sessions/{sessionId}/events", playbackHandler.Event).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/pointer", playbackHandler.Pointer).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/render", playbackHandler.Render).Methods("GET")

	admin := api.NewRoute().Subrouter()
	admin.Use(auth.RequireEditor)
	admin.HandleFunc("/users", authHandler.ListUsers).Methods("GET")
	admin.HandleFunc("/element-types", courseHandler.ElementTypes).Methods("GET")
	admin.HandleFunc("/courses", courseHandler.Create).Methods("POST")
	admin.HandleFunc("/courses/import", courseHandler.Import).Methods("POST")
	admin.HandleFunc("/courses/validate", courseHandler.Validate).Methods("POST")
	admin.HandleFunc("/courses/{courseId}", courseHandler.Save).Methods("PUT")
	admin.HandleFunc("/courses/{courseId}", courseHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/courses/{courseId}/edit", courseHandler.Edit).Methods("GET")
	admin.HandleFunc("/courses/{courseId}/publish", courseHandler.Publish).Methods("POST")
	admin.HandleFunc("/courses/{courseId}/export", courseHandler.Export).Methods("GET")
	admin.HandleFunc("/courses/{courseId}/analytics", courseHandler.Analytics).Methods("GET")
	admin.HandleFunc("/courses/{courseId}/assignments", courseHandler.Assignments).Methods("GET")
	admin.HandleFunc("/courses/{courseId}/assignments", courseHandler.Assign).Methods("POST")
	admin.HandleFunc("/courses/{courseId}/assignments/{userId}", courseHandler.Unassign).Methods("DELETE")
	admin.HandleFunc("/courses/{courseId}/scenes", courseHandler.AddScene).Methods("POST")
	admin.HandleFunc("/courses/{courseId}/scenes/{sceneId}", courseHandler.RemoveScene).Methods("DELETE")
	admin.HandleFunc("/courses/{courseId}/scenes/{sceneId}/background", courseHandler.SetBackground).Methods("PUT")
	admin.HandleFunc("/courses/{courseId}/scenes/{sceneId}/elements", courseHandler.SceneElements).Methods("GET")
	admin.HandleFunc("/courses/{courseId}/scenes/{sceneId}/elements", courseHandler.AddElement).Methods("POST")
	admin.HandleFunc("/courses/{courseId}/scenes/{sceneId}/elements/{elementId}", courseHandler.UpdateElement).Methods("PUT")
	admin.HandleFunc("/courses/{courseId}/scenes/{sceneId}/elements/{elementId}", courseHandler.RemoveElement).Methods("DELETE")
	admin.HandleFunc("/courses/{courseId}/scenes/{sceneId}/elements/{elementId}/resize", courseHandler.ResizeImage).Methods("POST")
	admin.HandleFunc("/courses/{courseId}/scenes/{sceneId}/elements/{elementId}/move", courseHandler.MoveElement).Methods("POST")
	admin.HandleFunc("/progress/{progressId}", progressHandler.Reset).Methods("DELETE")
	if d.Media != nil {
		admin.HandleFunc("/media", d.Media.Upload).Methods("POST")
	}

	return CORS(d.AllowedOrigins)(r)
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "checks": status})
	}
}
