package geometry

import (
	"errors"

	"course-scene-service/internal/domain"
)

// SceneToPixels moves a scene into pixel space for editing. Every element is
// checked on its own, so the scene tag cannot hide percent geometry.
func SceneToPixels(scene domain.Scene) (domain.Scene, error) {
	elements, err := ToPixels(scene.Elements, scene.NaturalWidth, scene.NaturalHeight)
	if err != nil {
		return scene, withScene(err, scene.ID)
	}
	scene.Elements = elements
	scene.Space = domain.SpacePixels
	return scene, nil
}

// SceneToPercent moves a scene into percent space for storage or export.
// Elements already in percent pass through unchanged whatever the scene tag says.
func SceneToPercent(scene domain.Scene) (domain.Scene, error) {
	elements, err := ToPercent(scene.Elements, scene.NaturalWidth, scene.NaturalHeight)
	if err != nil {
		return scene, withScene(err, scene.ID)
	}
	scene.Elements = elements
	scene.Space = domain.SpacePercent
	return scene, nil
}

// CourseToPercent converts every scene of a course; the first failing scene aborts.
func CourseToPercent(course domain.Course) (domain.Course, error) {
	scenes := make([]domain.Scene, len(course.Scenes))
	for i, scene := range course.Scenes {
		converted, err := SceneToPercent(scene)
		if err != nil {
			return course, err
		}
		scenes[i] = converted
	}
	course.Scenes = scenes
	return course, nil
}

// CaptureNaturalSize records the background image size the first time it is
// decoded. Later captures are ignored and report false.
func CaptureNaturalSize(scene domain.Scene, width, height int) (domain.Scene, bool) {
	if scene.Sized() || width <= 0 || height <= 0 {
		return scene, false
	}
	scene.NaturalWidth = float64(width)
	scene.NaturalHeight = float64(height)
	return scene, true
}

func withScene(err error, sceneID string) error {
	var geomErr *domain.GeometryError
	if errors.As(err, &geomErr) {
		copied := *geomErr
		copied.SceneID = sceneID
		return &copied
	}
	return err
}
