package imagegen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lox/jmaweather/internal/models"
	"github.com/lox/jmaweather/internal/nowcast"
	"github.com/lox/jmaweather/internal/tile"
)

func solidRGBA(c color.RGBA, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type fakeSource struct {
	timeline []nowcast.TargetTime
	failTile bool

	mu        sync.Mutex
	baseCalls int
	rainCalls map[int]int
}

func (f *fakeSource) Timeline(ctx context.Context) ([]nowcast.TargetTime, error) {
	return f.timeline, nil
}

func (f *fakeSource) Tile(ctx context.Context, t nowcast.TargetTime, zoom, x, y int) (image.Image, error) {
	if f.failTile {
		return nil, errors.New("tile missing")
	}
	f.mu.Lock()
	f.rainCalls[zoom]++
	f.mu.Unlock()
	return solidRGBA(color.RGBA{0, 65, 255, 255}, tile.Size, tile.Size), nil
}

func (f *fakeSource) BaseTile(ctx context.Context, zoom, x, y int) (image.Image, error) {
	f.mu.Lock()
	f.baseCalls++
	f.mu.Unlock()
	return solidRGBA(color.RGBA{240, 240, 240, 255}, tile.Size, tile.Size), nil
}

func TestRender(t *testing.T) {
	src := &fakeSource{
		timeline: []nowcast.TargetTime{
			{BaseTime: "20250115050000", ValidTime: "20250115050000"},
			{BaseTime: "20250115050000", ValidTime: "20250115050500"},
			{BaseTime: "20250115050000", ValidTime: "20250115051000"},
		},
		rainCalls: make(map[int]int),
	}
	a := NewAnimator(src, zap.NewNop().Sugar())

	p := models.GeoPoint{Latitude: 35.681236, Longitude: 139.767125}
	data, err := a.Render(context.Background(), Options{Point: p, Zoom: 11, RadiusMeters: 3000})
	require.NoError(t, err)

	anim, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, anim.Image, 3)
	assert.Equal(t, []int{ObservationDelay, ForecastDelay, ForecastDelay}, anim.Delay)

	span := tile.Span(p.Latitude, p.Longitude, 11, 3000)
	assert.Equal(t, span.Width(), anim.Image[0].Bounds().Dx())
	assert.Equal(t, span.Height(), anim.Image[0].Bounds().Dy())

	// radar tiles come from the snapped zoom only
	assert.Len(t, src.rainCalls, 1)
	assert.Positive(t, src.rainCalls[10])
	assert.Positive(t, src.baseCalls)
}

func TestRenderFailsOnMissingTile(t *testing.T) {
	src := &fakeSource{
		timeline:  []nowcast.TargetTime{{BaseTime: "20250115050000", ValidTime: "20250115050000"}},
		failTile:  true,
		rainCalls: make(map[int]int),
	}
	a := NewAnimator(src, zap.NewNop().Sugar())

	_, err := a.Render(context.Background(), Options{Point: models.GeoPoint{Latitude: 35.68, Longitude: 139.76}, Zoom: 10})
	assert.Error(t, err)
}

func TestRenderZoomOutOfRange(t *testing.T) {
	a := NewAnimator(&fakeSource{rainCalls: make(map[int]int)}, zap.NewNop().Sugar())
	_, err := a.Render(context.Background(), Options{Point: models.GeoPoint{Latitude: 35.68, Longitude: 139.76}, Zoom: 3})
	assert.Error(t, err)
}

func TestBlend(t *testing.T) {
	base := solidRGBA(color.RGBA{200, 200, 200, 255}, 4, 4)

	rain := image.NewRGBA(image.Rect(0, 0, 4, 4))
	got := blend(base, rain)
	// no rain: the empty layer dims the map by clearAlpha
	p := got.RGBAAt(1, 1)
	assert.InDelta(t, 160, int(p.R), 1)
	assert.Equal(t, uint8(255), p.A)

	rain = solidRGBA(color.RGBA{0, 65, 255, 255}, 4, 4)
	got = blend(base, rain)
	p = got.RGBAAt(1, 1)
	assert.InDelta(t, 40, int(p.R), 1)
	assert.InDelta(t, 92, int(p.G), 1)
	assert.InDelta(t, 244, int(p.B), 1)
}

func TestFrameLabel(t *testing.T) {
	assert.Equal(t, "2025-01-15 14:05 JST observed",
		frameLabel(nowcast.TargetTime{ValidTime: "20250115050500"}, true))
	assert.Equal(t, "2025-01-15 14:10 JST forecast",
		frameLabel(nowcast.TargetTime{ValidTime: "20250115051000"}, false))
	assert.Equal(t, "soon forecast", frameLabel(nowcast.TargetTime{ValidTime: "soon"}, false))
}

func TestCache(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)

	_, ok := c.Get("20250115050000")
	assert.False(t, ok)

	require.NoError(t, c.Set("20250115050000", []byte("GIF89a")))
	require.NoError(t, c.Set("20250115050500", []byte("GIF89a")))
	data, ok := c.Get("20250115050000")
	require.True(t, ok)
	assert.Equal(t, []byte("GIF89a"), data)
	assert.ElementsMatch(t, []string{"20250115050000", "20250115050500"}, c.List())

	require.NoError(t, c.Prune("20250115050500"))
	assert.Equal(t, []string{"20250115050500"}, c.List())
}
