package distribution

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/metrics"
	"github.com/lox/jmaweather/internal/models"
	"github.com/lox/jmaweather/internal/raster"
)

const (
	DefaultBaseURL = "https://www.data.jma.go.jp"

	// DefaultMaxAttempts bounds the step-back search to one day of maps.
	DefaultMaxAttempts = 24

	mapHourLayout = "2006010215"
)

// Source fetches JMA resources. *httputil.Fetcher satisfies it.
type Source interface {
	Text(ctx context.Context, endpoint, url string) (string, error)
	Image(ctx context.Context, endpoint, url string) (image.Image, error)
}

// Reading is the distribution map weather at the located pixel.
type Reading struct {
	Area      models.AreaRectangle
	Pixel     image.Point
	MapTime   time.Time
	Condition models.Condition
}

type Client struct {
	src         Source
	baseURL     string
	maxAttempts int
	log         *zap.SugaredLogger
}

func NewClient(src Source, log *zap.SugaredLogger) *Client {
	return &Client{
		src:         src,
		baseURL:     DefaultBaseURL,
		maxAttempts: DefaultMaxAttempts,
		log:         log,
	}
}

func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// SetMaxAttempts sets how many hourly maps are tried before giving up.
func (c *Client) SetMaxAttempts(n int) {
	if n < 1 {
		n = 1
	}
	c.maxAttempts = n
}

// Areas fetches and parses the area table.
func (c *Client) Areas(ctx context.Context) ([]models.AreaRectangle, error) {
	text, err := c.src.Text(ctx, "bunpu_area", c.baseURL+"/bunpu//js/area.properties")
	if err != nil {
		return nil, fmt.Errorf("fetch area table: %w", err)
	}
	return ParseAreaTable(text)
}

// Locate resolves the point to a rectangle and a pixel on its map. The
// pixel is scaled by the municipal boundary map, which shares the weather
// map's dimensions.
func (c *Client) Locate(ctx context.Context, p models.GeoPoint) (models.AreaRectangle, image.Point, error) {
	rects, err := c.Areas(ctx)
	if err != nil {
		return models.AreaRectangle{}, image.Point{}, err
	}
	rect, err := Locate(rects, p)
	if err != nil {
		return models.AreaRectangle{}, image.Point{}, err
	}

	munic, err := c.src.Image(ctx, "bunpu_munic", fmt.Sprintf("%s/bunpu/img/munic/munic_%s.png", c.baseURL, rect.Code))
	if err != nil {
		return models.AreaRectangle{}, image.Point{}, fmt.Errorf("fetch municipal map %s: %w", rect.Code, err)
	}
	b := munic.Bounds()
	px := PixelFor(rect, b.Dx(), b.Dy())
	if !rect.Contains() || !px.In(image.Rect(0, 0, b.Dx(), b.Dy())) {
		return models.AreaRectangle{}, image.Point{}, errs.New(errs.LookupFailure, "locate",
			"point %.4f,%.4f falls outside map %s (pixel %v)", p.Latitude, p.Longitude, rect.Code, px)
	}
	return rect, px, nil
}

// Read returns the weather at px on the newest map at or before at. Maps
// are published late and sometimes not at all, so each failed fetch steps
// back one hour, up to the attempt bound.
func (c *Client) Read(ctx context.Context, rect models.AreaRectangle, px image.Point, at time.Time) (Reading, error) {
	mapTime := at.In(models.JST).Truncate(time.Hour)

	var (
		attempt int
		reading Reading
	)
	op := func() error {
		t := mapTime.Add(-time.Duration(attempt) * time.Hour)
		attempt++
		if attempt > 1 {
			metrics.DistributionRetries.Inc()
		}

		url := c.mapURL(rect.Code, t)
		img, err := c.src.Image(ctx, "bunpu_wthr", url)
		if err != nil {
			if _, ok := errs.KindOf(err); ok {
				c.log.Debugw("distribution: map unavailable, stepping back", "time", mapStamp(t), "error", err)
				return err
			}
			return backoff.Permanent(err)
		}

		pixel, err := raster.PixelAt(img, px.X, px.Y)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read map %s: %w", mapStamp(t), err))
		}
		reading = Reading{
			Area:      rect,
			Pixel:     px,
			MapTime:   t,
			Condition: raster.DecodeWeather(pixel, t.Hour()),
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(c.maxAttempts-1)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return Reading{}, err
		}
		if _, ok := errs.KindOf(err); ok {
			return Reading{}, errs.Wrap(errs.LookupFailure, "read distribution map",
				fmt.Errorf("no map for %s within %d hours of %s: %w", rect.Code, c.maxAttempts, mapStamp(mapTime), err))
		}
		return Reading{}, err
	}

	c.log.Debugw("distribution: read map", "code", rect.Code, "time", mapStamp(reading.MapTime), "condition", reading.Condition)
	return reading, nil
}

func (c *Client) mapURL(code string, t time.Time) string {
	return fmt.Sprintf("%s/bunpu/img/wthr/%s/wthr_%s_%s.png", c.baseURL, code, code, mapStamp(t))
}

// mapStamp renders the map file timestamp, YYYYmmddHH00 in JST.
func mapStamp(t time.Time) string {
	return t.In(models.JST).Format(mapHourLayout) + "00"
}
