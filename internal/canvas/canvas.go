// Package canvas maps natural-pixel element geometry onto a displayed
// background image, with "contain" semantics and a single uniform scale.
package canvas

import (
	"errors"
	"math"

	"course-scene-service/internal/domain"
	"course-scene-service/internal/geometry"
)

// ErrUnsized is returned while the natural image size is still unknown.
// Callers defer rendering until the background image has been decoded.
var ErrUnsized = errors.New("scene natural size unknown")

// Viewport is the natural image size together with where the image is
// displayed. It is passed explicitly to every projection.
type Viewport struct {
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
	Displayed     Rect    `json:"displayed"`
}

// Sized reports whether projection can happen.
func (v Viewport) Sized() bool {
	return v.NaturalWidth > 0 && v.NaturalHeight > 0
}

// Scale is the single factor applied to both axes.
func (v Viewport) Scale() float64 {
	if !v.Sized() {
		return 0
	}
	return math.Min(v.Displayed.Width/v.NaturalWidth, v.Displayed.Height/v.NaturalHeight)
}

// Fit is the displayed size of an image fitted into available space.
type Fit struct {
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
	Scale         float64 `json:"scale"`
}

// FitViewport returns the largest rectangle with the natural aspect ratio
// that fits the available space, never enlarging past natural size.
func FitViewport(naturalWidth, naturalHeight, availableWidth, availableHeight float64) (Fit, error) {
	if naturalWidth <= 0 || naturalHeight <= 0 {
		return Fit{}, ErrUnsized
	}
	scale := math.Min(math.Min(availableWidth/naturalWidth, availableHeight/naturalHeight), 1)
	scale = math.Max(scale, 0)
	return Fit{
		DisplayWidth:  naturalWidth * scale,
		DisplayHeight: naturalHeight * scale,
		Scale:         scale,
	}, nil
}

// ContainViewport fits the image into the container and centres it.
func ContainViewport(naturalWidth, naturalHeight float64, container Rect) (Viewport, error) {
	fit, err := FitViewport(naturalWidth, naturalHeight, container.Width, container.Height)
	if err != nil {
		return Viewport{NaturalWidth: naturalWidth, NaturalHeight: naturalHeight}, err
	}
	return Viewport{
		NaturalWidth:  naturalWidth,
		NaturalHeight: naturalHeight,
		Displayed: Rect{
			X:      container.X + (container.Width-fit.DisplayWidth)/2,
			Y:      container.Y + (container.Height-fit.DisplayHeight)/2,
			Width:  fit.DisplayWidth,
			Height: fit.DisplayHeight,
		},
	}, nil
}

// RenderRect is where and how large an element is drawn.
type RenderRect struct {
	ElementID string             `json:"elementId"`
	Type      domain.ElementType `json:"type"`
	Left      int                `json:"left"`
	Top       int                `json:"top"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Rotation  float64            `json:"rotation,omitempty"`
	FontSize  float64            `json:"fontSize,omitempty"`
	IconSize  float64            `json:"iconSize,omitempty"`
	Stroke    float64            `json:"stroke,omitempty"`
	Scale     float64            `json:"scale"`
}

// Bounds returns the rect as floating point displayed pixels.
func (r RenderRect) Bounds() Rect {
	return Rect{X: float64(r.Left), Y: float64(r.Top), Width: float64(r.Width), Height: float64(r.Height)}
}

// Project maps one element onto the displayed image rect. Percent-space
// elements are converted against the natural size first.
func Project(el domain.Element, naturalWidth, naturalHeight float64, displayed Rect) (RenderRect, error) {
	return Viewport{NaturalWidth: naturalWidth, NaturalHeight: naturalHeight, Displayed: displayed}.Project(el)
}

// Project maps one element onto the viewport.
func (v Viewport) Project(el domain.Element) (RenderRect, error) {
	if !v.Sized() {
		return RenderRect{}, ErrUnsized
	}
	if el.Geometry.Space == domain.SpacePercent {
		converted, err := geometry.ToPixels([]domain.Element{el}, v.NaturalWidth, v.NaturalHeight)
		if err != nil {
			return RenderRect{}, err
		}
		el = converted[0]
	}

	scale := v.Scale()
	box := geometry.BoxOf(el)
	rr := RenderRect{
		ElementID: el.ID,
		Type:      el.Type,
		Left:      roundPx(v.Displayed.X + box.X*scale),
		Top:       roundPx(v.Displayed.Y + box.Y*scale),
		Width:     roundPx(box.Width * scale),
		Height:    roundPx(box.Height * scale),
		Rotation:  el.Rotation,
		Scale:     scale,
	}
	font, icon, stroke := baseMetrics(el)
	rr.FontSize = font * scale
	rr.IconSize = icon * scale
	rr.Stroke = stroke * scale
	return rr, nil
}

// RenderedScene is the projection of every element of a scene.
type RenderedScene struct {
	SceneID  string       `json:"sceneId"`
	Viewport Viewport     `json:"viewport"`
	Elements []RenderRect `json:"elements"`

	// Bounds encloses every rendered element.
	Bounds Rect `json:"bounds"`
}

// ProjectScene renders a whole scene. It fails with ErrUnsized until the
// natural size is known; a geometry failure renders the scene without elements.
func ProjectScene(scene domain.Scene, v Viewport) (RenderedScene, error) {
	if !v.Sized() {
		return RenderedScene{SceneID: scene.ID, Viewport: v}, ErrUnsized
	}
	out := RenderedScene{SceneID: scene.ID, Viewport: v, Elements: make([]RenderRect, 0, len(scene.Elements))}

	elements, err := geometry.ToPixels(scene.Elements, v.NaturalWidth, v.NaturalHeight)
	if err != nil {
		return out, err
	}
	for _, el := range elements {
		rr, err := v.Project(el)
		if err != nil {
			return RenderedScene{SceneID: scene.ID, Viewport: v, Elements: []RenderRect{}}, err
		}
		out.Elements = append(out.Elements, rr)
		out.Bounds = out.Bounds.Union(rr.Bounds())
	}
	return out, nil
}

// HitTest returns the topmost element containing the displayed point.
// Later elements are drawn on top of earlier ones.
func HitTest(rendered []RenderRect, x, y float64) (string, bool) {
	for i := len(rendered) - 1; i >= 0; i-- {
		b := rendered[i].Bounds()
		if !b.IsEmpty() && b.Contains(x, y) {
			return rendered[i].ElementID, true
		}
	}
	return "", false
}

func baseMetrics(el domain.Element) (font, icon, stroke float64) {
	if spec, ok := domain.Lookup(el.Type); ok {
		font, icon = spec.BaseFontSize, spec.BaseIconSize
	}
	switch data := el.Data.(type) {
	case domain.TextData:
		if data.FontSize > 0 {
			font = data.FontSize
		}
	case domain.ButtonData:
		if data.FontSize > 0 {
			font = data.FontSize
		}
	case domain.ArrowData:
		stroke = data.Thickness
	}
	return font, icon, stroke
}

func roundPx(v float64) int {
	return int(math.Round(v))
}
