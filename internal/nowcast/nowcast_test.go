package nowcast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/httputil"
	"github.com/lox/jmaweather/internal/models"
	"github.com/lox/jmaweather/internal/tile"
)

func tt(base, valid string) TargetTime {
	return TargetTime{BaseTime: base, ValidTime: valid, Elements: []string{"hrpns"}}
}

func TestTimeline(t *testing.T) {
	past := []TargetTime{
		tt("20250115045000", "20250115045000"),
		tt("20250115050000", "20250115050000"),
		tt("20250115044500", "20250115044500"),
	}
	future := []TargetTime{
		tt("20250115050000", "20250115051000"),
		tt("20250115050000", "20250115050500"),
	}

	got, err := Timeline(past, future)
	require.NoError(t, err)
	assert.Equal(t, []TargetTime{
		tt("20250115050000", "20250115050000"),
		tt("20250115050000", "20250115050500"),
		tt("20250115050000", "20250115051000"),
	}, got)
}

func TestTimelineLaggingForecast(t *testing.T) {
	// N2 is still on the previous generation
	past := []TargetTime{tt("20250115050000", "20250115050000")}
	future := []TargetTime{
		tt("20250115045500", "20250115050500"),
		tt("20250115045500", "20250115050000"),
	}

	got, err := Timeline(past, future)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "20250115050000", got[0].BaseTime)
	assert.Equal(t, "20250115050000", got[1].ValidTime)
	assert.Equal(t, "20250115050500", got[2].ValidTime)
}

func TestTimelineEmptyPast(t *testing.T) {
	_, err := Timeline(nil, []TargetTime{tt("1", "2")})
	assert.ErrorIs(t, err, errs.LookupFailure)
}

func TestCondition(t *testing.T) {
	noon := time.Date(2025, 1, 15, 12, 0, 0, 0, models.JST)
	night := time.Date(2025, 1, 15, 22, 0, 0, 0, models.JST)

	tests := []struct {
		name   string
		levels []models.RainLevel
		at     time.Time
		want   models.Condition
	}{
		{"empty", nil, noon, models.ConditionSunny},
		{"dry", []models.RainLevel{0, 0, 0}, noon, models.ConditionSunny},
		{"dry at night", []models.RainLevel{0, 0, 0}, night, models.ConditionClearNight},
		{"dry at night in utc", []models.RainLevel{0, 0}, night.UTC(), models.ConditionClearNight},
		{"raining now", []models.RainLevel{2, 0, 0}, noon, models.ConditionRainy},
		{"raining at night", []models.RainLevel{2, 0, 0}, night, models.ConditionRainy},
		{"rain in five minutes", []models.RainLevel{0, 1, 0}, noon, models.ConditionRainy},
		{"rain later only", []models.RainLevel{0, 0, 8}, noon, models.ConditionSunny},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			series := make([]models.NowcastSample, len(tc.levels))
			for i, l := range tc.levels {
				series[i].Level = l
			}
			assert.Equal(t, tc.want, Condition(series, tc.at))
		})
	}
}

// fakeTiles returns a tile per validtime, painted with that frame's colour.
type fakeTiles struct {
	timeline []TargetTime
	colors   map[string]color.Color

	mu    sync.Mutex
	calls []string
}

func (f *fakeTiles) Timeline(ctx context.Context) ([]TargetTime, error) {
	return f.timeline, nil
}

func (f *fakeTiles) Tile(ctx context.Context, t TargetTime, zoom, x, y int) (image.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%d/%d/%d", zoom, x, y))
	f.mu.Unlock()

	c, ok := f.colors[t.ValidTime]
	if !ok {
		return nil, errors.New("no tile")
	}
	img := image.NewNRGBA(image.Rect(0, 0, tile.Size, tile.Size))
	for py := 0; py < tile.Size; py++ {
		for px := 0; px < tile.Size; px++ {
			img.Set(px, py, c)
		}
	}
	return img, nil
}

var tokyo = models.GeoPoint{Latitude: 35.681236, Longitude: 139.767125}

func TestBuild(t *testing.T) {
	src := &fakeTiles{
		timeline: []TargetTime{
			tt("20250115050000", "20250115050000"),
			tt("20250115050000", "20250115050500"),
			tt("20250115050000", "20250115051000"),
		},
		colors: map[string]color.Color{
			"20250115050000": color.NRGBA{0, 0, 0, 0},
			"20250115050500": color.NRGBA{33, 140, 255, 255},
			"20250115051000": color.NRGBA{255, 255, 255, 255},
		},
	}
	b := NewBuilder(src, zap.NewNop().Sugar())
	b.SetConcurrency(2)

	got, err := b.Build(context.Background(), tokyo, 12)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, models.RoleObservation, got[0].Role)
	assert.Equal(t, models.RainLevel(0), got[0].Level)

	assert.Equal(t, models.RoleForecast, got[1].Role)
	assert.Equal(t, "20250115050500", got[1].ValidTime)
	assert.Equal(t, models.RainLevel(3), got[1].Level)
	assert.Equal(t, 5.0, got[1].AmountMin)
	assert.Equal(t, 10.0, got[1].AmountMax)

	assert.Equal(t, models.RainLevel(0), got[2].Level)
	assert.Equal(t, models.ConditionRainy, Condition(got, time.Date(2025, 1, 15, 14, 0, 0, 0, models.JST)))

	// zoom 12 snaps to the radar's zoom 10
	addr := tile.ToTile(tokyo.Latitude, tokyo.Longitude, 10)
	for _, c := range src.calls {
		assert.Equal(t, fmt.Sprintf("10/%d/%d", addr.TileX, addr.TileY), c)
	}
}

func TestBuildUnknownColorFails(t *testing.T) {
	src := &fakeTiles{
		timeline: []TargetTime{
			tt("20250115050000", "20250115050000"),
			tt("20250115050000", "20250115050500"),
		},
		colors: map[string]color.Color{
			"20250115050000": color.NRGBA{0, 0, 0, 0},
			"20250115050500": color.NRGBA{1, 2, 3, 255},
		},
	}
	_, err := NewBuilder(src, zap.NewNop().Sugar()).Build(context.Background(), tokyo, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.UnknownColor)
}

func TestBuildTileFailureFails(t *testing.T) {
	src := &fakeTiles{
		timeline: []TargetTime{tt("20250115050000", "20250115050000")},
	}
	_, err := NewBuilder(src, zap.NewNop().Sugar()).Build(context.Background(), tokyo, 10)
	assert.Error(t, err)
}

func TestBuildZoomOutOfRange(t *testing.T) {
	src := &fakeTiles{}
	_, err := NewBuilder(src, zap.NewNop().Sugar()).Build(context.Background(), tokyo, 2)
	assert.Error(t, err)
	assert.Empty(t, src.calls)
}

func TestClientAgainstServer(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, tile.Size, tile.Size))
	require.NoError(t, png.Encode(&buf, img))

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		switch r.URL.Path {
		case "/bosai/jmatile/data/nowc/targetTimes_N1.json":
			w.Write([]byte(`[{"basetime":"20250115050000","validtime":"20250115050000","elements":["hrpns","hrpns_nd"]}]`))
		case "/bosai/jmatile/data/nowc/targetTimes_N2.json":
			w.Write([]byte(`[{"basetime":"20250115050000","validtime":"20250115050500","elements":["hrpns"]}]`))
		default:
			w.Write(buf.Bytes())
		}
	}))
	defer srv.Close()

	c := NewClient(httputil.NewFetcher(srv.Client()))
	c.SetBaseURL(srv.URL)

	got, err := NewBuilder(c, zap.NewNop().Sugar()).Build(context.Background(), tokyo, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RainLevel(0), got[0].Level)

	addr := tile.ToTile(tokyo.Latitude, tokyo.Longitude, 10)
	assert.Contains(t, paths, fmt.Sprintf("/bosai/jmatile/data/nowc/20250115050000/none/20250115050500/surf/hrpns/10/%d/%d.png", addr.TileX, addr.TileY))

	_, err = c.BaseTile(context.Background(), 10, addr.TileX, addr.TileY)
	require.NoError(t, err)
	assert.Contains(t, paths, fmt.Sprintf("/tile/gsi/pale/10/%d/%d.png", addr.TileX, addr.TileY))
}
