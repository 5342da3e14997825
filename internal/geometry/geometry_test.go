package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"course-scene-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pixelElement(id string, x, y, w, h float64) domain.Element {
	return domain.Element{
		ID:       id,
		Type:     domain.TypeText,
		Data:     domain.TextData{Text: id},
		Geometry: domain.Pixels(x, y, w, h),
		Row:      1,
	}
}

func TestToPercentScenario(t *testing.T) {
	in := []domain.Element{pixelElement("e1", 800, 450, 160, 90)}

	pct, err := ToPercent(in, 1600, 900)
	require.NoError(t, err)
	require.Len(t, pct, 1)
	assert.Equal(t, domain.Percent(50, 50, 10, 10), pct[0].Geometry)

	px, err := ToPixels(pct, 1600, 900)
	require.NoError(t, err)
	assert.Equal(t, domain.Pixels(800, 450, 160, 90), px[0].Geometry)
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		W := float64(1 + rnd.Intn(6000))
		H := float64(1 + rnd.Intn(6000))
		w := math.Floor(rnd.Float64() * W)
		h := math.Floor(rnd.Float64() * H)
		x := math.Floor(rnd.Float64() * (W - w))
		y := math.Floor(rnd.Float64() * (H - h))
		el := pixelElement("e", x, y, w, h)

		pct, err := ToPercent([]domain.Element{el}, W, H)
		require.NoError(t, err)
		back, err := ToPixels(pct, W, H)
		require.NoError(t, err)

		got := BoxOf(back[0])
		assert.InDelta(t, x, got.X, 1, "x for %vx%v", W, H)
		assert.InDelta(t, y, got.Y, 1, "y for %vx%v", W, H)
		assert.InDelta(t, w, got.Width, 1, "width for %vx%v", W, H)
		assert.InDelta(t, h, got.Height, 1, "height for %vx%v", W, H)
	}
}

func TestToPixelsIsIdempotentOnPixelElements(t *testing.T) {
	in := []domain.Element{pixelElement("a", 10, 20, 30, 40), pixelElement("b", 0, 0, 5, 5)}

	once, err := ToPixels(in, 1000, 500)
	require.NoError(t, err)
	twice, err := ToPixels(once, 1000, 500)
	require.NoError(t, err)

	assert.Equal(t, in, once)
	assert.Equal(t, in, twice)
}

func TestNaturalSizeRequiredForAnyElement(t *testing.T) {
	var geomErr *domain.GeometryError

	_, err := ToPixels([]domain.Element{pixelElement("a", 1, 1, 1, 1)}, 0, 0)
	assert.True(t, errors.As(err, &geomErr), "pixel input still needs a natural size")

	pct := []domain.Element{{ID: "b", Type: domain.TypeText, Data: domain.TextData{}, Geometry: domain.Percent(1, 1, 1, 1)}}
	_, err = ToPercent(pct, 1600, 0)
	assert.True(t, errors.As(err, &geomErr), "percent input still needs a natural size")

	out, err := ToPixels(nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
	out, err = ToPercent([]domain.Element{}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRescaleKeepsRelativePosition(t *testing.T) {
	in := []domain.Element{pixelElement("a", 400, 300, 80, 60)}
	out, err := Rescale(in, 800, 600, 1600, 900)
	require.NoError(t, err)
	assert.Equal(t, domain.Pixels(800, 450, 160, 90), out[0].Geometry)

	same, err := Rescale(in, 800, 600, 800, 600)
	require.NoError(t, err)
	assert.Equal(t, in, same)
}

func TestToPercentRejectsBadNaturalSize(t *testing.T) {
	_, err := ToPercent([]domain.Element{pixelElement("a", 1, 1, 1, 1)}, 0, 900)
	var geomErr *domain.GeometryError
	require.True(t, errors.As(err, &geomErr))
	assert.Equal(t, float64(0), geomErr.Width)

	_, err = ToPercent([]domain.Element{pixelElement("a", 1, 1, 1, 1)}, 100, -1)
	assert.Error(t, err)
}

func TestToPercentClampsOversizedBoxes(t *testing.T) {
	pct, err := ToPercent([]domain.Element{pixelElement("a", 900, -20, 400, 50)}, 1000, 500)
	require.NoError(t, err)
	box := BoxOf(pct[0])
	assert.GreaterOrEqual(t, box.X, 0.0)
	assert.GreaterOrEqual(t, box.Y, 0.0)
	assert.LessOrEqual(t, box.X+box.Width, 100.0)
	assert.LessOrEqual(t, box.Y+box.Height, 100.0)
}

func TestClampToCanvasInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		cw := rnd.Float64() * 2000
		ch := rnd.Float64() * 2000
		x := rnd.Float64()*4000 - 2000
		y := rnd.Float64()*4000 - 2000
		w := rnd.Float64() * 3000
		h := rnd.Float64() * 3000

		b := ClampToCanvas(x, y, w, h, cw, ch)
		require.GreaterOrEqual(t, b.X, 0.0)
		require.GreaterOrEqual(t, b.Y, 0.0)
		require.LessOrEqual(t, b.X+b.Width, cw+1e-9)
		require.LessOrEqual(t, b.Y+b.Height, ch+1e-9)
	}
}

func TestClampToCanvasShrinksThenMoves(t *testing.T) {
	b := ClampToCanvas(700, 500, 300, 200, 800, 600)
	assert.Equal(t, Box{X: 500, Y: 400, Width: 300, Height: 200}, b)

	b = ClampToCanvas(50, 50, 1200, 900, 800, 600)
	assert.Equal(t, Box{X: 0, Y: 0, Width: 800, Height: 600}, b)
}

func TestSceneConversionIsTagged(t *testing.T) {
	scene := domain.Scene{
		ID:            "s1",
		NaturalWidth:  1600,
		NaturalHeight: 900,
		Space:         domain.SpacePercent,
		Elements: []domain.Element{{
			ID: "e", Type: domain.TypeText, Data: domain.TextData{}, Geometry: domain.Percent(50, 50, 10, 10),
		}},
	}

	px, err := SceneToPixels(scene)
	require.NoError(t, err)
	assert.Equal(t, domain.SpacePixels, px.Space)
	assert.Equal(t, domain.Pixels(800, 450, 160, 90), px.Elements[0].Geometry)

	again, err := SceneToPixels(px)
	require.NoError(t, err)
	assert.Equal(t, px, again, "second conversion must be a no-op")

	pct, err := SceneToPercent(px)
	require.NoError(t, err)
	assert.Equal(t, domain.SpacePercent, pct.Space)
	assert.Equal(t, scene.Elements[0].Geometry, pct.Elements[0].Geometry)
}

func TestSceneConversionIgnoresWrongTag(t *testing.T) {
	scene := domain.Scene{
		ID:            "s1",
		NaturalWidth:  1600,
		NaturalHeight: 900,
		Space:         domain.SpacePercent,
		Elements: []domain.Element{
			pixelElement("px", 800, 450, 160, 90),
			{ID: "pct", Type: domain.TypeText, Data: domain.TextData{}, Geometry: domain.Percent(10, 10, 10, 10)},
		},
	}

	pct, err := SceneToPercent(scene)
	require.NoError(t, err)
	assert.Equal(t, domain.Percent(50, 50, 10, 10), pct.Elements[0].Geometry)
	assert.Equal(t, domain.Percent(10, 10, 10, 10), pct.Elements[1].Geometry)

	scene.Space = domain.SpacePixels
	px, err := SceneToPixels(scene)
	require.NoError(t, err)
	assert.Equal(t, domain.Pixels(800, 450, 160, 90), px.Elements[0].Geometry)
	assert.Equal(t, domain.Pixels(160, 90, 160, 90), px.Elements[1].Geometry)
}

func TestSceneToPixelsReportsScene(t *testing.T) {
	scene := domain.Scene{
		ID:    "s9",
		Space: domain.SpacePercent,
		Elements: []domain.Element{{
			ID: "e", Type: domain.TypeText, Data: domain.TextData{}, Geometry: domain.Percent(1, 1, 1, 1),
		}},
	}
	_, err := SceneToPixels(scene)
	var geomErr *domain.GeometryError
	require.True(t, errors.As(err, &geomErr))
	assert.Equal(t, "s9", geomErr.SceneID)
}

func TestCaptureNaturalSizeOnlyOnce(t *testing.T) {
	scene := domain.Scene{ID: "s1"}

	scene, ok := CaptureNaturalSize(scene, 1920, 1080)
	require.True(t, ok)
	scene, ok = CaptureNaturalSize(scene, 960, 540)
	assert.False(t, ok)
	assert.Equal(t, 1920.0, scene.NaturalWidth)
	assert.Equal(t, 1080.0, scene.NaturalHeight)
}
