package app

import (
	"fmt"

	"course-scene-service/internal/canvas"
	"course-scene-service/internal/domain"
	"course-scene-service/internal/geometry"
	"course-scene-service/internal/typeid"
)

// Canvas used while a scene has no background image yet.
const (
	FallbackCanvasWidth  = 800
	FallbackCanvasHeight = 600
)

// Editor mutates a course loaded for editing. Every scene it holds is in
// pixel space; CourseService.Save converts back to percent.
type Editor struct {
	course domain.Course
	newID  func(prefix string) string
}

func NewEditor(course domain.Course) *Editor {
	return &Editor{course: course, newID: typeid.New}
}

// Course returns the edited course.
func (e *Editor) Course() domain.Course {
	return e.course
}

func (e *Editor) scene(sceneID string) (*domain.Scene, error) {
	idx := e.course.SceneIndex(sceneID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrSceneNotFound, sceneID)
	}
	return &e.course.Scenes[idx], nil
}

// CanvasSize is the natural size of the scene, or the fallback canvas.
func CanvasSize(scene domain.Scene) (float64, float64) {
	if scene.Sized() {
		return scene.NaturalWidth, scene.NaturalHeight
	}
	return FallbackCanvasWidth, FallbackCanvasHeight
}

// AddScene appends an empty scene.
func (e *Editor) AddScene(name string) domain.Scene {
	if name == "" {
		name = fmt.Sprintf("Scene %d", len(e.course.Scenes)+1)
	}
	scene := domain.Scene{
		ID:       e.newID(typeid.PrefixScene),
		Name:     name,
		Elements: []domain.Element{},
		Space:    domain.SpacePixels,
	}
	e.course.Scenes = append(e.course.Scenes, scene)
	return scene
}

// RemoveScene deletes a scene; the last one cannot be removed.
func (e *Editor) RemoveScene(sceneID string) error {
	idx := e.course.SceneIndex(sceneID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrSceneNotFound, sceneID)
	}
	if len(e.course.Scenes) == 1 {
		return domain.ErrLastScene
	}
	e.course.Scenes = append(e.course.Scenes[:idx:idx], e.course.Scenes[idx+1:]...)
	return nil
}

// SetBackground sets the scene image. The natural size is captured the first
// time it is known; a different image starts over with its own size. Elements
// keep their place relative to the picture when the frame changes.
func (e *Editor) SetBackground(sceneID, url string, width, height int) error {
	scene, err := e.scene(sceneID)
	if err != nil {
		return err
	}
	oldW, oldH := CanvasSize(*scene)
	if scene.Screenshot != url {
		scene.Screenshot = url
		scene.NaturalWidth, scene.NaturalHeight = 0, 0
	}
	*scene, _ = geometry.CaptureNaturalSize(*scene, width, height)
	newW, newH := CanvasSize(*scene)
	elements, err := geometry.Rescale(scene.Elements, oldW, oldH, newW, newH)
	if err != nil {
		return err
	}
	scene.Elements = elements
	return nil
}

// AddElement places a new element of type t with its registry defaults at
// (50,50), kept inside the canvas.
func (e *Editor) AddElement(sceneID string, t domain.ElementType) (domain.Element, error) {
	spec, ok := domain.Lookup(t)
	if !ok {
		return domain.Element{}, fmt.Errorf("%w: %q", domain.ErrUnknownElementType, t)
	}
	scene, err := e.scene(sceneID)
	if err != nil {
		return domain.Element{}, err
	}
	el := domain.Element{
		ID:       e.newID(typeid.PrefixElement),
		Type:     t,
		Data:     spec.NewPayload(),
		Geometry: domain.Pixels(50, 50, spec.DefaultSize.Width, spec.DefaultSize.Height),
		Row:      1,
	}
	w, h := CanvasSize(*scene)
	el = geometry.ClampElement(el, w, h)
	scene.Elements = append(scene.Elements, el)
	return el, nil
}

// UpdateElement replaces an element by id. Its geometry must be in pixels.
func (e *Editor) UpdateElement(sceneID string, el domain.Element) error {
	scene, err := e.scene(sceneID)
	if err != nil {
		return err
	}
	if el.Data == nil || el.Data.ElementType() != el.Type {
		return fmt.Errorf("element %s: payload does not match type %q", el.ID, el.Type)
	}
	if el.Geometry.Space != domain.SpacePixels {
		return canvas.ErrNotEditable
	}
	for i := range scene.Elements {
		if scene.Elements[i].ID == el.ID {
			w, h := CanvasSize(*scene)
			scene.Elements[i] = geometry.ClampElement(el, w, h)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrElementNotFound, el.ID)
}

// RemoveElement deletes an element by id.
func (e *Editor) RemoveElement(sceneID, elementID string) error {
	scene, err := e.scene(sceneID)
	if err != nil {
		return err
	}
	for i := range scene.Elements {
		if scene.Elements[i].ID == elementID {
			scene.Elements = append(scene.Elements[:i:i], scene.Elements[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrElementNotFound, elementID)
}

// ResizeImage sizes an image element to an uploaded image of the given size.
func (e *Editor) ResizeImage(sceneID, elementID string, imageWidth, imageHeight int) error {
	return e.updateByID(sceneID, elementID, func(scene domain.Scene, el domain.Element) (domain.Element, error) {
		if el.Type != domain.TypeImage {
			return el, fmt.Errorf("%w: resize on %s", domain.ErrUnsupportedEvent, el.Type)
		}
		w, h := CanvasSize(scene)
		return canvas.FitImageElement(el, float64(imageWidth), float64(imageHeight), w, h), nil
	})
}

// MoveElement drags an element from one displayed pointer position to
// another, for a scene shown in the displayed rect.
func (e *Editor) MoveElement(sceneID, elementID string, displayed canvas.Rect, fromX, fromY, toX, toY float64) error {
	return e.updateByID(sceneID, elementID, func(scene domain.Scene, el domain.Element) (domain.Element, error) {
		w, h := CanvasSize(scene)
		drag, err := canvas.BeginDrag(el, canvas.Viewport{NaturalWidth: w, NaturalHeight: h, Displayed: displayed}, fromX, fromY)
		if err != nil {
			return el, err
		}
		return drag.Apply(el, toX, toY), nil
	})
}

func (e *Editor) updateByID(sceneID, elementID string, fn func(domain.Scene, domain.Element) (domain.Element, error)) error {
	scene, err := e.scene(sceneID)
	if err != nil {
		return err
	}
	for i := range scene.Elements {
		if scene.Elements[i].ID != elementID {
			continue
		}
		updated, err := fn(*scene, scene.Elements[i])
		if err != nil {
			return err
		}
		scene.Elements[i] = updated
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrElementNotFound, elementID)
}

// VisibleElements filters the scene for the editor's row selector; row 0
// shows every row.
func VisibleElements(scene domain.Scene, row int) []domain.Element {
	if row == 0 {
		return scene.Elements
	}
	out := make([]domain.Element, 0, len(scene.Elements))
	for _, el := range scene.Elements {
		if el.Layer() == row {
			out = append(out, el)
		}
	}
	return out
}
