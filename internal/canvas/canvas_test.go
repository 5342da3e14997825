package canvas

import (
	"errors"
	"testing"

	"course-scene-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textAt(id string, g domain.Geometry) domain.Element {
	return domain.Element{ID: id, Type: domain.TypeText, Data: domain.TextData{FontSize: 20}, Geometry: g, Row: 1}
}

func TestFitViewportNeverEnlarges(t *testing.T) {
	fit, err := FitViewport(1600, 900, 3200, 1800)
	require.NoError(t, err)
	assert.Equal(t, Fit{DisplayWidth: 1600, DisplayHeight: 900, Scale: 1}, fit)

	fit, err = FitViewport(1600, 900, 800, 900)
	require.NoError(t, err)
	assert.Equal(t, 0.5, fit.Scale)
	assert.Equal(t, 800.0, fit.DisplayWidth)
	assert.Equal(t, 450.0, fit.DisplayHeight)

	_, err = FitViewport(0, 900, 800, 600)
	assert.True(t, errors.Is(err, ErrUnsized))
}

func TestProjectUsesUniformScale(t *testing.T) {
	// displayed rect is wider than the natural aspect ratio
	displayed := Rect{X: 10, Y: 20, Width: 1000, Height: 450}
	rr, err := Project(textAt("e", domain.Pixels(800, 450, 160, 90)), 1600, 900, displayed)
	require.NoError(t, err)

	assert.Equal(t, 0.5, rr.Scale)
	assert.Equal(t, 410, rr.Left)
	assert.Equal(t, 245, rr.Top)
	assert.Equal(t, 80, rr.Width)
	assert.Equal(t, 45, rr.Height)
	assert.Equal(t, 10.0, rr.FontSize)
	assert.InDelta(t, 160.0/90.0, float64(rr.Width)/float64(rr.Height), 0.05, "aspect ratio preserved")
}

func TestProjectConvertsPercentGeometry(t *testing.T) {
	rr, err := Project(textAt("e", domain.Percent(50, 50, 10, 10)), 1600, 900, Rect{Width: 800, Height: 450})
	require.NoError(t, err)
	assert.Equal(t, RenderRect{
		ElementID: "e", Type: domain.TypeText,
		Left: 400, Top: 225, Width: 80, Height: 45,
		FontSize: 10, Scale: 0.5,
	}, rr)
}

func TestProjectSceneDefersUntilSized(t *testing.T) {
	scene := domain.Scene{ID: "s1", Elements: []domain.Element{textAt("e", domain.Percent(1, 1, 1, 1))}}
	_, err := ProjectScene(scene, Viewport{Displayed: Rect{Width: 100, Height: 100}})
	assert.True(t, errors.Is(err, ErrUnsized))
}

func TestProjectSceneAndHitTest(t *testing.T) {
	scene := domain.Scene{
		ID: "s1",
		Elements: []domain.Element{
			textAt("back", domain.Pixels(0, 0, 400, 400)),
			textAt("front", domain.Pixels(100, 100, 100, 100)),
		},
	}
	v, err := ContainViewport(800, 800, Rect{Width: 400, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 0, Y: 100, Width: 400, Height: 400}, v.Displayed)

	rendered, err := ProjectScene(scene, v)
	require.NoError(t, err)
	require.Len(t, rendered.Elements, 2)
	assert.Equal(t, Rect{X: 0, Y: 100, Width: 200, Height: 200}, rendered.Bounds)

	id, ok := HitTest(rendered.Elements, 75, 175)
	require.True(t, ok)
	assert.Equal(t, "front", id)

	id, ok = HitTest(rendered.Elements, 10, 110)
	require.True(t, ok)
	assert.Equal(t, "back", id)

	_, ok = HitTest(rendered.Elements, 390, 590)
	assert.False(t, ok)
}

func TestDragDividesDeltaByScale(t *testing.T) {
	v := Viewport{NaturalWidth: 1600, NaturalHeight: 900, Displayed: Rect{Width: 800, Height: 450}}
	el := textAt("e", domain.Pixels(100, 100, 200, 100))

	drag, err := BeginDrag(el, v, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, "e", drag.ElementID())

	moved := drag.Apply(el, 60, 45)
	assert.Equal(t, domain.Point{X: 120, Y: 90}, moved.Geometry.Position)

	// far outside the image the box stays on the canvas
	far := drag.Move(5000, 5000)
	assert.Equal(t, domain.Point{X: 1400, Y: 800}, far)
}

func TestDragRequiresPixelSpace(t *testing.T) {
	v := Viewport{NaturalWidth: 100, NaturalHeight: 100, Displayed: Rect{Width: 100, Height: 100}}
	_, err := BeginDrag(textAt("e", domain.Percent(1, 1, 1, 1)), v, 0, 0)
	assert.True(t, errors.Is(err, ErrNotEditable))
}

func TestFitImageElementShrinksToCanvas(t *testing.T) {
	el := domain.Element{ID: "img", Type: domain.TypeImage, Data: domain.ImageData{}, Geometry: domain.Pixels(500, 300, 200, 150)}

	fitted := FitImageElement(el, 2000, 1000, 800, 600)
	assert.Equal(t, domain.Pixels(0, 200, 800, 400), fitted.Geometry)

	small := FitImageElement(el, 100, 50, 800, 600)
	assert.Equal(t, domain.Pixels(500, 300, 100, 50), small.Geometry)
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 15, Height: 15}, a.Union(b))
	assert.Equal(t, b, Rect{}.Union(b))
	x, y := a.Center()
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 5.0, y)
}
