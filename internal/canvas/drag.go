package canvas

import (
	"errors"
	"math"

	"course-scene-service/internal/domain"
	"course-scene-service/internal/geometry"
)

// ErrNotEditable is returned when dragging an element that is not in pixel space.
var ErrNotEditable = errors.New("element is not in pixel space")

// Drag is one pointer gesture moving a single element.
type Drag struct {
	elementID string
	origin    domain.Point
	size      domain.Size
	startX    float64
	startY    float64
	scale     float64
	natural   domain.Size
}

// BeginDrag starts moving el from the displayed pointer position.
func BeginDrag(el domain.Element, v Viewport, pointerX, pointerY float64) (*Drag, error) {
	if !v.Sized() || v.Scale() <= 0 {
		return nil, ErrUnsized
	}
	if el.Geometry.Space != domain.SpacePixels {
		return nil, ErrNotEditable
	}
	box := geometry.BoxOf(el)
	return &Drag{
		elementID: el.ID,
		origin:    el.Geometry.Position,
		size:      domain.Size{Width: box.Width, Height: box.Height},
		startX:    pointerX,
		startY:    pointerY,
		scale:     v.Scale(),
		natural:   domain.Size{Width: v.NaturalWidth, Height: v.NaturalHeight},
	}, nil
}

// ElementID is the element being dragged.
func (d *Drag) ElementID() string { return d.elementID }

// Move returns the natural-pixel position for the current pointer. The
// displayed delta is divided by the scale and the box stays on the canvas.
func (d *Drag) Move(pointerX, pointerY float64) domain.Point {
	dx := (pointerX - d.startX) / d.scale
	dy := (pointerY - d.startY) / d.scale
	box := geometry.ClampToCanvas(
		math.Round(d.origin.X+dx),
		math.Round(d.origin.Y+dy),
		d.size.Width, d.size.Height,
		d.natural.Width, d.natural.Height,
	)
	return domain.Point{X: box.X, Y: box.Y}
}

// Apply writes the position for the pointer into el.
func (d *Drag) Apply(el domain.Element, pointerX, pointerY float64) domain.Element {
	el.Geometry.Position = d.Move(pointerX, pointerY)
	return el
}

// FitImageElement sizes an image element to an uploaded image, shrinking it
// uniformly to fit the canvas and never enlarging it.
func FitImageElement(el domain.Element, imageWidth, imageHeight, canvasWidth, canvasHeight float64) domain.Element {
	if imageWidth <= 0 || imageHeight <= 0 || canvasWidth <= 0 || canvasHeight <= 0 {
		return el
	}
	scale := math.Min(math.Min(canvasWidth/imageWidth, canvasHeight/imageHeight), 1)
	w := math.Round(imageWidth * scale)
	h := math.Round(imageHeight * scale)
	box := geometry.ClampToCanvas(el.Geometry.Position.X, el.Geometry.Position.Y, w, h, canvasWidth, canvasHeight)
	el.Geometry = domain.Pixels(box.X, box.Y, box.Width, box.Height)
	return el
}
