package ingest

import (
	"context"
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lox/jmaweather/internal/distribution"
	"github.com/lox/jmaweather/internal/forecast"
	"github.com/lox/jmaweather/internal/fusion"
	"github.com/lox/jmaweather/internal/httputil"
	"github.com/lox/jmaweather/internal/metrics"
	"github.com/lox/jmaweather/internal/models"
	"github.com/lox/jmaweather/internal/nowcast"
	"github.com/lox/jmaweather/internal/tile"
)

const DefaultNowcastZoom = 10

// Options selects what a session observes. Point overrides the station's
// own coordinates for the map lookups.
type Options struct {
	StationCode string
	AreaCode    string
	Point       *models.GeoPoint
	NowcastZoom int

	DistributionMaxAttempts int
	NowcastConcurrency      int

	// JMABaseURL serves bosai products, DataBaseURL the distribution maps.
	JMABaseURL  string
	DataBaseURL string
}

// Publisher receives a finished report. *publish.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, report *models.FusedWeatherReport) error
}

// Session runs one fetch-compute step. All fetches go through one
// Fetcher, so its cache lives exactly as long as the session.
type Session struct {
	amedas       *AmedasClient
	distribution *distribution.Client
	nowcast      *nowcast.Client
	builder      *nowcast.Builder
	forecast     *forecast.Client
	publisher    Publisher

	opts  Options
	clock clockwork.Clock
	log   *zap.SugaredLogger
}

func NewSession(f *httputil.Fetcher, opts Options, clock clockwork.Clock, log *zap.SugaredLogger) *Session {
	if opts.JMABaseURL == "" {
		opts.JMABaseURL = nowcast.DefaultBaseURL
	}
	if opts.DataBaseURL == "" {
		opts.DataBaseURL = distribution.DefaultBaseURL
	}
	if opts.NowcastZoom == 0 {
		opts.NowcastZoom = DefaultNowcastZoom
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	dist := distribution.NewClient(f, log)
	dist.SetBaseURL(opts.DataBaseURL)
	if opts.DistributionMaxAttempts > 0 {
		dist.SetMaxAttempts(opts.DistributionMaxAttempts)
	}

	nc := nowcast.NewClient(f)
	nc.SetBaseURL(opts.JMABaseURL)
	builder := nowcast.NewBuilder(nc, log)
	if opts.NowcastConcurrency > 0 {
		builder.SetConcurrency(opts.NowcastConcurrency)
	}

	fc := forecast.NewClient(f)
	fc.SetBaseURL(opts.JMABaseURL)

	return &Session{
		amedas:       NewAmedasClient(f, opts.JMABaseURL),
		distribution: dist,
		nowcast:      nc,
		builder:      builder,
		forecast:     fc,
		opts:         opts,
		clock:        clock,
		log:          log,
	}
}

// SetPublisher configures where Publish sends reports.
func (s *Session) SetPublisher(p Publisher) {
	s.publisher = p
}

// Nowcast exposes the session's nowcast client for rendering.
func (s *Session) Nowcast() *nowcast.Client {
	return s.nowcast
}

// Run gathers every source and fuses them into one report. Any failure
// aborts the run; a partial report is never returned.
func (s *Session) Run(ctx context.Context) (*models.FusedWeatherReport, error) {
	start := s.clock.Now()
	defer func() {
		metrics.RunDuration.Set(s.clock.Since(start).Seconds())
	}()

	observedAt, err := s.amedas.LatestTime(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Infow("session: latest observation", "time", observedAt.Format(time.RFC3339))

	obs, err := s.amedas.Observation(ctx, s.opts.StationCode, observedAt)
	if err != nil {
		return nil, err
	}
	flags := ValidateObservation(obs)
	if len(flags) > 0 {
		s.log.Warnw("session: suspect observation", "station", s.opts.StationCode, "flags", flags, "elements", SuspectElements(obs))
	}

	point, err := s.Point(ctx)
	if err != nil {
		return nil, err
	}

	rect, px, err := s.distribution.Locate(ctx, point)
	if err != nil {
		return nil, err
	}
	reading, err := s.distribution.Read(ctx, rect, px, observedAt)
	if err != nil {
		return nil, err
	}
	s.log.Infow("session: distribution map", "area", rect.Code, "time", reading.MapTime.Format(time.RFC3339), "condition", reading.Condition)

	series, err := s.builder.Build(ctx, point, s.opts.NowcastZoom)
	if err != nil {
		return nil, fmt.Errorf("build nowcast: %w", err)
	}
	if len(series) > 0 {
		metrics.CurrentRainLevel.Set(float64(series[0].Level))
	}

	now := s.clock.Now().In(models.JST)
	nowcastCond := nowcast.Condition(series, now)
	hourly, daily, err := s.forecasts(ctx, now)
	if err != nil {
		return nil, err
	}

	in := fusion.Inputs{
		Nowcast:      nowcastCond,
		Distribution: reading.Condition,
		LocalTime:    now,
	}
	if v, ok := obs.Temperature(); ok && !slices.Contains(flags, FlagTempOutOfRange) {
		in.Temperature = &v
	}
	if v, ok := obs.Sunshine10m(); ok && !slices.Contains(flags, FlagSunshineInvalid) {
		in.Sunshine10m = &v
	}
	cond := fusion.Decide(in)

	s.log.Infow("session: fused",
		"condition", cond,
		"nowcast", nowcastCond,
		"distribution", reading.Condition,
		"hourly", len(hourly),
		"daily", len(daily),
	)

	return &models.FusedWeatherReport{
		Condition:             cond,
		Station:               obs,
		Nowcast:               series,
		NowcastCondition:      nowcastCond,
		DistributionCondition: reading.Condition,
		DistributionTime:      reading.MapTime,
		Hourly:                hourly,
		Daily:                 daily,
		GeneratedAt:           now,
	}, nil
}

func (s *Session) forecasts(ctx context.Context, now time.Time) (hourly, daily []models.ForecastRecord, err error) {
	areas, err := s.forecast.AreaTable(ctx)
	if err != nil {
		return nil, nil, err
	}
	h, err := forecast.ResolveHierarchy(areas, s.opts.AreaCode)
	if err != nil {
		return nil, nil, err
	}

	doc, err := s.forecast.Document(ctx, h.Office)
	if err != nil {
		return nil, nil, err
	}
	res, err := forecast.Normalize(doc, h.Class10, now)
	if err != nil {
		return nil, nil, err
	}

	vpfd, err := s.forecast.VPFD(ctx, h.Class10)
	if err != nil {
		return nil, nil, err
	}
	return forecast.MergeHourly(res.Hourly, forecast.HourlyFromVPFD(vpfd, now)), res.Daily, nil
}

// Point returns the configured map point, falling back to the station's
// coordinates.
func (s *Session) Point(ctx context.Context) (models.GeoPoint, error) {
	if s.opts.Point != nil {
		return *s.opts.Point, nil
	}
	st, err := s.amedas.Station(ctx, s.opts.StationCode)
	if err != nil {
		return models.GeoPoint{}, err
	}
	return st.Point(), nil
}

// Publish hands the report to the publisher and records the success.
func (s *Session) Publish(ctx context.Context, report *models.FusedWeatherReport) error {
	if s.publisher == nil {
		return fmt.Errorf("session: no publisher configured")
	}
	if err := s.publisher.Publish(ctx, report); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	metrics.LastSuccess.Set(float64(s.clock.Now().Unix()))
	return nil
}

// Location is where the session's point falls in each coordinate system.
type Location struct {
	Point models.GeoPoint      `json:"point"`
	Tile  models.TileAddress   `json:"tile"`
	Radar models.TileAddress   `json:"radar"`
	Area  models.AreaRectangle `json:"area"`
	Pixel image.Point          `json:"pixel"`
}

// Locate resolves the point without reading any weather.
func (s *Session) Locate(ctx context.Context, zoom int) (Location, error) {
	point, err := s.Point(ctx)
	if err != nil {
		return Location{}, err
	}
	rz, err := tile.RadarZoom(s.opts.NowcastZoom)
	if err != nil {
		return Location{}, err
	}
	rect, px, err := s.distribution.Locate(ctx, point)
	if err != nil {
		return Location{}, err
	}
	return Location{
		Point: point,
		Tile:  tile.ToTile(point.Latitude, point.Longitude, zoom),
		Radar: tile.ToTile(point.Latitude, point.Longitude, rz),
		Area:  rect,
		Pixel: px,
	}, nil
}
