// Package nowcast builds the precipitation nowcast (降水ナウキャスト) series
// at a point from JMA's hrpns radar tiles.
package nowcast

import (
	"context"
	"fmt"
	"image"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/models"
	"github.com/lox/jmaweather/internal/raster"
	"github.com/lox/jmaweather/internal/tile"
)

// DefaultConcurrency bounds parallel tile fetches.
const DefaultConcurrency = 4

// TargetTime is one entry of targetTimes_N1.json / targetTimes_N2.json.
// Times are UTC stamps, YYYYmmddHHMMSS.
type TargetTime struct {
	BaseTime  string   `json:"basetime"`
	ValidTime string   `json:"validtime"`
	Elements  []string `json:"elements"`
}

// Timeline joins the newest observed frame (N1) with the forecast frames
// (N2). N2 sometimes lags one generation behind N1, which is why the
// result is ordered by basetime descending before validtime.
func Timeline(past, future []TargetTime) ([]TargetTime, error) {
	if len(past) == 0 {
		return nil, errs.New(errs.LookupFailure, "nowcast timeline", "no observed frames")
	}

	current := past[0]
	for _, t := range past[1:] {
		if stampLess(current.ValidTime, t.ValidTime) {
			current = t
		}
	}

	out := make([]TargetTime, 0, len(future)+1)
	out = append(out, future...)
	out = append(out, current)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BaseTime != out[j].BaseTime {
			return stampLess(out[j].BaseTime, out[i].BaseTime)
		}
		return stampLess(out[i].ValidTime, out[j].ValidTime)
	})
	return out, nil
}

// stamps are fixed width, but compare by length first in case a feed ever
// drops the seconds
func stampLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// TileSource supplies the timeline and radar tiles.
type TileSource interface {
	Timeline(ctx context.Context) ([]TargetTime, error)
	Tile(ctx context.Context, t TargetTime, zoom, x, y int) (image.Image, error)
}

type Builder struct {
	tiles       TileSource
	concurrency int
	log         *zap.SugaredLogger
}

func NewBuilder(tiles TileSource, log *zap.SugaredLogger) *Builder {
	return &Builder{tiles: tiles, concurrency: DefaultConcurrency, log: log}
}

// SetConcurrency sets the tile fetch limit; values below 1 mean one at a
// time.
func (b *Builder) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	b.concurrency = n
}

// Build samples every timeline frame at the point. The first sample is the
// observation, the rest are forecasts. Any tile failure fails the build.
func (b *Builder) Build(ctx context.Context, p models.GeoPoint, zoom int) ([]models.NowcastSample, error) {
	radarZoom, err := tile.RadarZoom(zoom)
	if err != nil {
		return nil, err
	}
	addr := tile.ToTile(p.Latitude, p.Longitude, radarZoom)

	timeline, err := b.tiles.Timeline(ctx)
	if err != nil {
		return nil, fmt.Errorf("nowcast timeline: %w", err)
	}

	samples := make([]models.NowcastSample, len(timeline))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, t := range timeline {
		i, t := i, t
		g.Go(func() error {
			img, err := b.tiles.Tile(gCtx, t, addr.Zoom, addr.TileX, addr.TileY)
			if err != nil {
				return fmt.Errorf("nowcast tile %s/%s: %w", t.BaseTime, t.ValidTime, err)
			}
			px, err := raster.PixelAt(img, addr.PixelX, addr.PixelY)
			if err != nil {
				return fmt.Errorf("nowcast tile %s/%s: %w", t.BaseTime, t.ValidTime, err)
			}
			level, err := raster.DecodeRainLevel(px)
			if err != nil {
				return fmt.Errorf("nowcast tile %s/%s: %w", t.BaseTime, t.ValidTime, err)
			}

			role := models.RoleForecast
			if i == 0 {
				role = models.RoleObservation
			}
			lo, hi := level.Amount()
			samples[i] = models.NowcastSample{
				ValidTime: t.ValidTime,
				BaseTime:  t.BaseTime,
				Role:      role,
				Level:     level,
				AmountMin: lo,
				AmountMax: hi,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.log.Debugw("nowcast: built series", "frames", len(samples), "zoom", addr.Zoom, "tile_x", addr.TileX, "tile_y", addr.TileY)
	return samples, nil
}

// Condition reduces a series to rainy when the observation or the first
// forecast frame has any rain, else the clear condition for the hour of at.
func Condition(series []models.NowcastSample, at time.Time) models.Condition {
	for i := 0; i < len(series) && i < 2; i++ {
		if series[i].Level > 0 {
			return models.ConditionRainy
		}
	}
	return models.Clear(at.In(models.JST).Hour())
}
