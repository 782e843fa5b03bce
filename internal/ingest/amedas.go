package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/models"
)

const amedasKeyLayout = "20060102150405"

// Source fetches JMA resources. *httputil.Fetcher satisfies it.
type Source interface {
	Text(ctx context.Context, endpoint, url string) (string, error)
	JSON(ctx context.Context, endpoint, url string, v any) error
}

// AmedasClient reads AMEDAS point observations.
type AmedasClient struct {
	src     Source
	baseURL string
}

func NewAmedasClient(src Source, baseURL string) *AmedasClient {
	return &AmedasClient{src: src, baseURL: baseURL}
}

// Station is one entry of amedastable.json. Coordinates are [degrees,
// minutes].
type Station struct {
	KanjiName   string     `json:"kjName"`
	KanaName    string     `json:"knName"`
	EnglishName string     `json:"enName"`
	Lat         [2]float64 `json:"lat"`
	Lon         [2]float64 `json:"lon"`
	Alt         float64    `json:"alt"`
	Type        string     `json:"type"`
	Elems       string     `json:"elems"`
}

// Point converts the degree/minute pair to decimal degrees. Every station
// is in the northern and eastern hemispheres, so minutes always add.
func (s Station) Point() models.GeoPoint {
	return models.GeoPoint{
		Latitude:  s.Lat[0] + s.Lat[1]/60,
		Longitude: s.Lon[0] + s.Lon[1]/60,
	}
}

// LatestTime returns the newest observation time.
func (c *AmedasClient) LatestTime(ctx context.Context) (time.Time, error) {
	text, err := c.src.Text(ctx, "amedas_latest", c.baseURL+"/bosai/amedas/data/latest_time.txt")
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch latest time: %w", err)
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse latest time %q: %w", text, err)
	}
	return t.In(models.JST), nil
}

// Station looks up a station in the station table.
func (c *AmedasClient) Station(ctx context.Context, code string) (Station, error) {
	var table map[string]Station
	if err := c.src.JSON(ctx, "amedas_table", c.baseURL+"/bosai/amedas/const/amedastable.json", &table); err != nil {
		return Station{}, fmt.Errorf("fetch station table: %w", err)
	}
	st, ok := table[code]
	if !ok {
		return Station{}, errs.New(errs.LookupFailure, "amedas station", "unknown station %s", code)
	}
	return st, nil
}

// Observation returns the station's reading at t. Some elements are only
// reported on the hour, so the latest reading is laid over the hour's.
func (c *AmedasClient) Observation(ctx context.Context, code string, t time.Time) (models.StationObservation, error) {
	t = t.In(models.JST)
	url := fmt.Sprintf("%s/bosai/amedas/data/point/%s/%s_%02d.json", c.baseURL, code, t.Format("20060102"), t.Hour()/3*3)

	var doc map[string]map[string]json.RawMessage
	if err := c.src.JSON(ctx, "amedas_point", url, &doc); err != nil {
		return models.StationObservation{}, fmt.Errorf("fetch station %s: %w", code, err)
	}

	latest, ok := doc[t.Format(amedasKeyLayout)]
	if !ok {
		return models.StationObservation{}, errs.New(errs.LookupFailure, "amedas observation", "station %s has no reading at %s", code, t.Format(amedasKeyLayout))
	}
	hourly := doc[t.Truncate(time.Hour).Format(amedasKeyLayout)]

	merged := make(map[string]json.RawMessage, len(hourly)+len(latest))
	for k, v := range hourly {
		merged[k] = v
	}
	for k, v := range latest {
		merged[k] = v
	}
	return Flatten(merged, t), nil
}

// Flatten splits AMEDAS elements into measurements ([value, aqc] pairs),
// occurrence times ({hour, minute} in UTC, rendered as JST "HH:MM") and
// anything else, kept raw.
func Flatten(raw map[string]json.RawMessage, observedAt time.Time) models.StationObservation {
	obs := models.StationObservation{
		ObservedAt:      observedAt,
		Measurements:    make(map[string]models.Measurement),
		OccurrenceTimes: make(map[string]string),
		Extra:           make(map[string]json.RawMessage),
	}
	for k, v := range raw {
		if m, ok := parseMeasurement(v); ok {
			obs.Measurements[k] = m
			continue
		}
		if strings.HasSuffix(k, "Time") {
			if hm, ok := parseOccurrence(v); ok {
				obs.OccurrenceTimes[k] = hm
				continue
			}
		}
		obs.Extra[k] = v
	}
	return obs
}

func parseMeasurement(raw json.RawMessage) (models.Measurement, bool) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return models.Measurement{}, false
	}

	var m models.Measurement
	if !isNull(pair[1]) {
		var q int
		if err := json.Unmarshal(pair[1], &q); err != nil {
			return models.Measurement{}, false
		}
		m.Quality = &q
	}
	if !isNull(pair[0]) {
		var v float64
		if err := json.Unmarshal(pair[0], &v); err != nil {
			return models.Measurement{}, false
		}
		m.Value = &v
	}
	return m, true
}

func parseOccurrence(raw json.RawMessage) (string, bool) {
	var hm map[string]json.RawMessage
	if err := json.Unmarshal(raw, &hm); err != nil || len(hm) != 2 {
		return "", false
	}
	var hour, minute int
	h, okH := hm["hour"]
	m, okM := hm["minute"]
	if !okH || !okM {
		return "", false
	}
	if json.Unmarshal(h, &hour) != nil || json.Unmarshal(m, &minute) != nil {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", (hour+9)%24, minute), true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
