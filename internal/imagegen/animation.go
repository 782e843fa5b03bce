// Package imagegen renders the nowcast timeline as an animated GIF over a
// base map.
package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"time"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/lox/jmaweather/internal/models"
	"github.com/lox/jmaweather/internal/nowcast"
	"github.com/lox/jmaweather/internal/tile"
)

const (
	// GIF delays are in hundredths of a second. The observed frame is held
	// longer so the loop has a visible start.
	ObservationDelay = 200
	ForecastDelay    = 50

	DefaultRadius = 20000

	rainAlpha  = 0xCC
	clearAlpha = 0x33

	stampLayout = "20060102150405"
)

// TileSource provides the radar frames and the base map tiles.
// *nowcast.Client satisfies it.
type TileSource interface {
	Timeline(ctx context.Context) ([]nowcast.TargetTime, error)
	Tile(ctx context.Context, t nowcast.TargetTime, zoom, x, y int) (image.Image, error)
	BaseTile(ctx context.Context, zoom, x, y int) (image.Image, error)
}

type Options struct {
	Point        models.GeoPoint
	Zoom         int
	RadiusMeters float64
}

type Animator struct {
	src         TileSource
	concurrency int
	log         *zap.SugaredLogger
}

func NewAnimator(src TileSource, log *zap.SugaredLogger) *Animator {
	return &Animator{src: src, concurrency: nowcast.DefaultConcurrency, log: log}
}

// Render builds one frame per timeline entry: the radar layer is scaled up
// from the radar zoom and blended over the base map, then labelled with
// its valid time.
func (a *Animator) Render(ctx context.Context, opts Options) ([]byte, error) {
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = DefaultRadius
	}
	radarZoom, err := tile.RadarZoom(opts.Zoom)
	if err != nil {
		return nil, err
	}

	baseSpan := tile.Span(opts.Point.Latitude, opts.Point.Longitude, opts.Zoom, opts.RadiusMeters)
	radarSpan := tile.Span(opts.Point.Latitude, opts.Point.Longitude, radarZoom, opts.RadiusMeters)
	if baseSpan.Width() <= 0 || baseSpan.Height() <= 0 || radarSpan.Width() <= 0 || radarSpan.Height() <= 0 {
		return nil, fmt.Errorf("radius %.0fm is too small to render at zoom %d", opts.RadiusMeters, opts.Zoom)
	}

	timeline, err := a.src.Timeline(ctx)
	if err != nil {
		return nil, fmt.Errorf("nowcast timeline: %w", err)
	}

	base, err := stitch(ctx, baseSpan, func(ctx context.Context, x, y int) (image.Image, error) {
		return a.src.BaseTile(ctx, baseSpan.Zoom, x, y)
	})
	if err != nil {
		return nil, fmt.Errorf("base map: %w", err)
	}

	frames := make([]*image.Paletted, len(timeline))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, t := range timeline {
		i, t := i, t
		g.Go(func() error {
			rain, err := stitch(gCtx, radarSpan, func(ctx context.Context, x, y int) (image.Image, error) {
				return a.src.Tile(ctx, t, radarSpan.Zoom, x, y)
			})
			if err != nil {
				return fmt.Errorf("radar %s: %w", t.ValidTime, err)
			}
			frames[i] = composeFrame(base, rain, frameLabel(t, i == 0))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	anim := &gif.GIF{
		Image: frames,
		Delay: make([]int, len(frames)),
	}
	for i := range anim.Delay {
		anim.Delay[i] = ForecastDelay
	}
	if len(anim.Delay) > 0 {
		anim.Delay[0] = ObservationDelay
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode animation: %w", err)
	}
	a.log.Infow("imagegen: rendered animation",
		"frames", len(frames),
		"zoom", opts.Zoom,
		"radar_zoom", radarZoom,
		"width", baseSpan.Width(),
		"height", baseSpan.Height(),
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

// stitch assembles the tiles covering b into one image the size of b.
func stitch(ctx context.Context, b tile.Bounds, fetch func(ctx context.Context, x, y int) (image.Image, error)) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, b.Width(), b.Height()))
	minX, minY, maxX, maxY := b.Tiles()
	for ty := minY; ty <= maxY; ty++ {
		for tx := minX; tx <= maxX; tx++ {
			img, err := fetch(ctx, tx, ty)
			if err != nil {
				return nil, err
			}
			at := image.Pt(tx*tile.Size-b.MinX, ty*tile.Size-b.MinY)
			draw.Draw(dst, img.Bounds().Sub(img.Bounds().Min).Add(at), img, img.Bounds().Min, draw.Src)
		}
	}
	return dst, nil
}

func composeFrame(base, rain *image.RGBA, label string) *image.Paletted {
	frame := blend(base, rain)
	drawLabel(frame, label)

	r := frame.Bounds()
	out := image.NewPaletted(r, palette.Plan9)
	draw.FloydSteinberg.Draw(out, r, frame, r.Min)
	return out
}

// blend scales rain to the size of base and draws it over base. Rain
// pixels are drawn at rainAlpha; everywhere else the empty radar layer
// dims the map slightly so the rain stands out.
func blend(base, rain *image.RGBA) *image.RGBA {
	r := base.Bounds()

	layer := image.NewRGBA(r)
	xdraw.ApproxBiLinear.Scale(layer, r, rain, rain.Bounds(), xdraw.Src, nil)

	mask := image.NewAlpha(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := layer.RGBAAt(x, y)
			if p.A > 0 {
				mask.SetAlpha(x, y, color.Alpha{A: rainAlpha})
			} else {
				mask.SetAlpha(x, y, color.Alpha{A: clearAlpha})
			}
			p.A = 0xff
			layer.SetRGBA(x, y, p)
		}
	}

	frame := image.NewRGBA(r)
	draw.Draw(frame, r, base, r.Min, draw.Src)
	draw.DrawMask(frame, r, layer, r.Min, mask, r.Min, draw.Over)
	return frame
}

func frameLabel(t nowcast.TargetTime, observed bool) string {
	kind := "forecast"
	if observed {
		kind = "observed"
	}
	vt, err := time.Parse(stampLayout, t.ValidTime)
	if err != nil {
		return t.ValidTime + " " + kind
	}
	return vt.In(models.JST).Format("2006-01-02 15:04") + " JST " + kind
}

// drawLabel writes text in the top-left corner on a dark backing box.
func drawLabel(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	w := d.MeasureString(text).Ceil()
	box := image.Rect(4, 4, 4+w+8, 4+face.Height+6).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(color.RGBA{0, 0, 0, 0xb0}), image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{X: fixed.I(8), Y: fixed.I(4 + 3 + face.Ascent)}
	d.DrawString(text)
}
