package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"course-scene-service/internal/app"
	"course-scene-service/internal/canvas"
	"course-scene-service/internal/domain"
	"github.com/gorilla/mux"
)

const maxCourseBytes = 8 << 20

// CourseHandler serves course authoring, assignment and export endpoints.
type CourseHandler struct {
	courses  *app.CourseService
	progress *app.ProgressService
}

func NewCourseHandler(courses *app.CourseService, progress *app.ProgressService) *CourseHandler {
	return &CourseHandler{courses: courses, progress: progress}
}

type createCourseRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type publishRequest struct {
	Published *bool `json:"published" validate:"required"`
}

type assignRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type sceneRequest struct {
	Name string `json:"name" validate:"max=200"`
}

type backgroundRequest struct {
	URL    string `json:"url" validate:"required"`
	Width  int    `json:"width" validate:"gte=0"`
	Height int    `json:"height" validate:"gte=0"`
}

type addElementRequest struct {
	Type domain.ElementType `json:"type" validate:"required"`
}

type resizeRequest struct {
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

type moveRequest struct {
	Displayed canvas.Rect  `json:"displayed"`
	From      domain.Point `json:"from"`
	To        domain.Point `json:"to"`
}

type elementTypeInfo struct {
	Type        domain.ElementType `json:"type"`
	DefaultSize domain.Size        `json:"defaultSize"`
	Affordance  domain.Affordance  `json:"affordance"`
	Interactive bool               `json:"interactive"`
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var (
		courses []domain.Course
		err     error
	)
	if ident.Role.CanEdit() {
		courses, err = h.courses.List(r.Context(), ident)
	} else {
		courses, err = h.courses.ListAssigned(r.Context(), ident.UserID)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req createCourseRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	course, err := h.courses.Create(r.Context(), ident, req.Title, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	course, err := h.courses.Get(r.Context(), ident, mux.Vars(r)["courseId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// Edit returns the course with pixel geometry for the editor.
func (h *CourseHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	course, err := h.courses.LoadForEdit(r.Context(), ident, mux.Vars(r)["courseId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) Save(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var course domain.Course
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCourseBytes)).Decode(&course); err != nil {
		writeError(w, http.StatusBadRequest, "invalid course body: "+err.Error())
		return
	}
	course.ID = mux.Vars(r)["courseId"]
	saved, err := h.courses.Save(r.Context(), ident, course)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Validate checks a course body against the save rules without storing it.
func (h *CourseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var course domain.Course
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCourseBytes)).Decode(&course); err != nil {
		writeError(w, http.StatusBadRequest, "invalid course body: "+err.Error())
		return
	}
	if err := h.courses.Validate(course); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.courses.Delete(r.Context(), ident, mux.Vars(r)["courseId"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CourseHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req publishRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	course, err := h.courses.SetPublished(r.Context(), ident, mux.Vars(r)["courseId"], *req.Published)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) Export(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	courseID := mux.Vars(r)["courseId"]
	data, err := h.courses.Export(r.Context(), ident, courseID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+courseID+`.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *CourseHandler) Import(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxCourseBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	course, err := h.courses.Import(r.Context(), ident, data)
	if err != nil {
		if statusFor(err) == 0 {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *CourseHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	list, err := h.courses.Assignments(r.Context(), ident, mux.Vars(r)["courseId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CourseHandler) Assign(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	a, err := h.courses.Assign(r.Context(), ident, mux.Vars(r)["courseId"], req.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *CourseHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.courses.Unassign(r.Context(), ident, vars["courseId"], vars["userId"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CourseHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	report, err := h.progress.Analytics(r.Context(), ident, mux.Vars(r)["courseId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ElementTypes lists the element registry for the editor palette.
func (h *CourseHandler) ElementTypes(w http.ResponseWriter, _ *http.Request) {
	out := make([]elementTypeInfo, 0)
	for _, t := range domain.ElementTypes() {
		spec, _ := domain.Lookup(t)
		out = append(out, elementTypeInfo{
			Type:        t,
			DefaultSize: spec.DefaultSize,
			Affordance:  spec.Affordance,
			Interactive: spec.Interactive(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Editor operations. Each one loads the course in pixel space, applies the
// change and saves it back as percent.

func (h *CourseHandler) edit(w http.ResponseWriter, r *http.Request, status int, fn func(*app.Editor) (interface{}, error)) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var result interface{}
	_, err := h.courses.EditCourse(r.Context(), ident, mux.Vars(r)["courseId"], func(e *app.Editor) error {
		var err error
		result, err = fn(e)
		return err
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, result)
}

func (h *CourseHandler) AddScene(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	h.edit(w, r, http.StatusCreated, func(e *app.Editor) (interface{}, error) {
		return e.AddScene(req.Name), nil
	})
}

func (h *CourseHandler) RemoveScene(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, http.StatusNoContent, func(e *app.Editor) (interface{}, error) {
		return nil, e.RemoveScene(mux.Vars(r)["sceneId"])
	})
}

func (h *CourseHandler) SetBackground(w http.ResponseWriter, r *http.Request) {
	var req backgroundRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	sceneID := mux.Vars(r)["sceneId"]
	h.edit(w, r, http.StatusOK, func(e *app.Editor) (interface{}, error) {
		if err := e.SetBackground(sceneID, req.URL, req.Width, req.Height); err != nil {
			return nil, err
		}
		return sceneOf(e, sceneID), nil
	})
}

func (h *CourseHandler) AddElement(w http.ResponseWriter, r *http.Request) {
	var req addElementRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	h.edit(w, r, http.StatusCreated, func(e *app.Editor) (interface{}, error) {
		return e.AddElement(mux.Vars(r)["sceneId"], req.Type)
	})
}

func (h *CourseHandler) UpdateElement(w http.ResponseWriter, r *http.Request) {
	var el domain.Element
	if err := json.NewDecoder(r.Body).Decode(&el); err != nil {
		writeError(w, http.StatusBadRequest, "invalid element body: "+err.Error())
		return
	}
	vars := mux.Vars(r)
	el.ID = vars["elementId"]
	h.edit(w, r, http.StatusOK, func(e *app.Editor) (interface{}, error) {
		if err := e.UpdateElement(vars["sceneId"], el); err != nil {
			return nil, err
		}
		return elementOf(e, vars["sceneId"], el.ID), nil
	})
}

func (h *CourseHandler) RemoveElement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.edit(w, r, http.StatusNoContent, func(e *app.Editor) (interface{}, error) {
		return nil, e.RemoveElement(vars["sceneId"], vars["elementId"])
	})
}

func (h *CourseHandler) ResizeImage(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	h.edit(w, r, http.StatusOK, func(e *app.Editor) (interface{}, error) {
		if err := e.ResizeImage(vars["sceneId"], vars["elementId"], req.Width, req.Height); err != nil {
			return nil, err
		}
		return elementOf(e, vars["sceneId"], vars["elementId"]), nil
	})
}

func (h *CourseHandler) MoveElement(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	h.edit(w, r, http.StatusOK, func(e *app.Editor) (interface{}, error) {
		err := e.MoveElement(vars["sceneId"], vars["elementId"], req.Displayed, req.From.X, req.From.Y, req.To.X, req.To.Y)
		if err != nil {
			return nil, err
		}
		return elementOf(e, vars["sceneId"], vars["elementId"]), nil
	})
}

// SceneElements lists the elements of one editor row; row 0 or absent lists all.
func (h *CourseHandler) SceneElements(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	row, _ := strconv.Atoi(r.URL.Query().Get("row"))
	course, err := h.courses.LoadForEdit(r.Context(), ident, vars["courseId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	idx := course.SceneIndex(vars["sceneId"])
	if idx < 0 {
		handleServiceError(w, domain.ErrSceneNotFound)
		return
	}
	writeJSON(w, http.StatusOK, app.VisibleElements(course.Scenes[idx], row))
}

func sceneOf(e *app.Editor, sceneID string) domain.Scene {
	course := e.Course()
	return course.Scenes[course.SceneIndex(sceneID)]
}

func elementOf(e *app.Editor, sceneID, elementID string) domain.Element {
	el, _ := sceneOf(e, sceneID).Element(elementID)
	return el
}
