// Package geometry converts element boxes between natural-pixel space and
// percent-of-natural-size space, and keeps boxes inside their canvas.
//
// Percent values are anchored to the scene's natural background image size
// and never to a scaled rendering of it.
package geometry

import (
	"math"

	"course-scene-service/internal/domain"
)

// percentPrecision keeps four decimals so that a pixel round trip is exact
// for natural sizes up to 10000px.
const percentPrecision = 10000

// Box is an axis-aligned element box.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ToPercent converts pixel-space elements into percent of the natural size.
// Elements already in percent space are returned unchanged. Any element
// requires a positive natural size; an empty list needs none.
func ToPercent(elements []domain.Element, naturalWidth, naturalHeight float64) ([]domain.Element, error) {
	if err := checkNaturalSize(elements, naturalWidth, naturalHeight); err != nil {
		return nil, err
	}
	out := make([]domain.Element, len(elements))

	for i, el := range elements {
		if el.Geometry.Space == domain.SpacePercent {
			out[i] = el
			continue
		}
		g := el.Geometry
		box := Box{
			X: roundPercent(g.Position.X / naturalWidth * 100),
			Y: roundPercent(g.Position.Y / naturalHeight * 100),
		}
		if g.Size != nil {
			box.Width = roundPercent(g.Size.Width / naturalWidth * 100)
			box.Height = roundPercent(g.Size.Height / naturalHeight * 100)
		}
		box = ClampToCanvas(box.X, box.Y, box.Width, box.Height, 100, 100)
		el.Geometry = fromBox(domain.SpacePercent, box, g.Size != nil)
		out[i] = el
	}
	return out, nil
}

// ToPixels converts percent-space elements back into natural pixels.
// Elements already in pixel space are returned unchanged, so applying it
// twice is a no-op.
func ToPixels(elements []domain.Element, naturalWidth, naturalHeight float64) ([]domain.Element, error) {
	if err := checkNaturalSize(elements, naturalWidth, naturalHeight); err != nil {
		return nil, err
	}
	out := make([]domain.Element, len(elements))

	for i, el := range elements {
		if el.Geometry.Space != domain.SpacePercent {
			out[i] = el
			continue
		}
		g := el.Geometry
		box := Box{
			X: math.Round(g.Position.X / 100 * naturalWidth),
			Y: math.Round(g.Position.Y / 100 * naturalHeight),
		}
		if g.Size != nil {
			box.Width = math.Round(g.Size.Width / 100 * naturalWidth)
			box.Height = math.Round(g.Size.Height / 100 * naturalHeight)
		}
		box = ClampToCanvas(box.X, box.Y, box.Width, box.Height, naturalWidth, naturalHeight)
		el.Geometry = fromBox(domain.SpacePixels, box, g.Size != nil)
		out[i] = el
	}
	return out, nil
}

func checkNaturalSize(elements []domain.Element, naturalWidth, naturalHeight float64) error {
	if len(elements) > 0 && (naturalWidth <= 0 || naturalHeight <= 0) {
		return &domain.GeometryError{Width: naturalWidth, Height: naturalHeight}
	}
	return nil
}

// Rescale moves pixel elements from one natural frame to another, keeping
// their position relative to the image.
func Rescale(elements []domain.Element, fromWidth, fromHeight, toWidth, toHeight float64) ([]domain.Element, error) {
	if fromWidth == toWidth && fromHeight == toHeight {
		return elements, nil
	}
	pct, err := ToPercent(elements, fromWidth, fromHeight)
	if err != nil {
		return nil, err
	}
	return ToPixels(pct, toWidth, toHeight)
}

// ClampToCanvas shrinks the box to fit the canvas, then moves it inside.
func ClampToCanvas(x, y, width, height, canvasWidth, canvasHeight float64) Box {
	canvasWidth = math.Max(canvasWidth, 0)
	canvasHeight = math.Max(canvasHeight, 0)
	w := math.Min(math.Max(width, 0), canvasWidth)
	h := math.Min(math.Max(height, 0), canvasHeight)
	return Box{
		X:      clamp(x, 0, canvasWidth-w),
		Y:      clamp(y, 0, canvasHeight-h),
		Width:  w,
		Height: h,
	}
}

// ClampElement keeps a pixel-space element inside the canvas.
func ClampElement(el domain.Element, canvasWidth, canvasHeight float64) domain.Element {
	box := BoxOf(el)
	box = ClampToCanvas(box.X, box.Y, box.Width, box.Height, canvasWidth, canvasHeight)
	el.Geometry = fromBox(el.Geometry.Space, box, el.Geometry.Size != nil)
	return el
}

// BoxOf returns the element geometry as a box; a missing size is zero.
func BoxOf(el domain.Element) Box {
	box := Box{X: el.Geometry.Position.X, Y: el.Geometry.Position.Y}
	if el.Geometry.Size != nil {
		box.Width = el.Geometry.Size.Width
		box.Height = el.Geometry.Size.Height
	}
	return box
}

func fromBox(space domain.GeometrySpace, box Box, sized bool) domain.Geometry {
	g := domain.Geometry{Space: space, Position: domain.Point{X: box.X, Y: box.Y}}
	if sized {
		g.Size = &domain.Size{Width: box.Width, Height: box.Height}
	}
	return g
}

func roundPercent(v float64) float64 {
	return math.Round(v*percentPrecision) / percentPrecision
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Min(math.Max(v, lo), hi)
}
