package models

import (
	"encoding/json"
	"time"
)

// JST is the fixed +09:00 zone every JMA product is reported in.
var JST = time.FixedZone("JST", 9*60*60)

// Condition is a weather state as understood by Home Assistant.
type Condition string

const (
	ConditionSunny        Condition = "sunny"
	ConditionClearNight   Condition = "clear-night"
	ConditionPartlyCloudy Condition = "partlycloudy"
	ConditionCloudy       Condition = "cloudy"
	ConditionRainy        Condition = "rainy"
	ConditionSnowy        Condition = "snowy"
	ConditionSnowyRainy   Condition = "snowy-rainy"
	ConditionExceptional  Condition = "exceptional"
)

// IsPrecipitation reports whether the condition carries rain or snow.
func (c Condition) IsPrecipitation() bool {
	switch c {
	case ConditionRainy, ConditionSnowy, ConditionSnowyRainy:
		return true
	default:
		return false
	}
}

// IsDaytime reports whether hour falls in the [6,18) daylight band.
func IsDaytime(hour int) bool {
	return hour >= 6 && hour < 18
}

// Clear returns sunny during the day and clear-night otherwise.
func Clear(hour int) Condition {
	if IsDaytime(hour) {
		return ConditionSunny
	}
	return ConditionClearNight
}

type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type TileAddress struct {
	Zoom   int `json:"zoom"`
	TileX  int `json:"tile_x"`
	TileY  int `json:"tile_y"`
	PixelX int `json:"pixel_x"`
	PixelY int `json:"pixel_y"`
}

// AreaRectangle is one entry of the distribution map area table, together
// with the query point's position inside it once located.
type AreaRectangle struct {
	Code  string  `json:"code"`
	Level int     `json:"level"`
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Contains reports whether the located offset falls inside the rectangle.
func (r AreaRectangle) Contains() bool {
	return r.X >= 0 && r.X <= 1 && r.Y >= 0 && r.Y <= 1
}

// RainLevel is the nowcast radar intensity class, 0 (none) to 8.
type RainLevel int

type rainRange struct {
	min, max float64
	label    string
}

// 200mm/h stands in for an open upper bound; the highest recorded
// hourly rainfall in Japan is below it.
var rainRanges = [...]rainRange{
	{0, 0, "0mm"},
	{0, 1, "1mm/h未満"},
	{1, 5, "1-5mm/h"},
	{5, 10, "5-10mm/h"},
	{10, 20, "10-20mm/h"},
	{20, 30, "20-30mm/h"},
	{30, 50, "30-50mm/h"},
	{50, 80, "50-80mm/h"},
	{80, 200, "80mm/h以上"},
}

// Amount returns the half-open mm/h range [min,max) of the level.
func (l RainLevel) Amount() (min, max float64) {
	if l < 0 || int(l) >= len(rainRanges) {
		return 0, 0
	}
	r := rainRanges[l]
	return r.min, r.max
}

func (l RainLevel) Label() string {
	if l < 0 || int(l) >= len(rainRanges) {
		return ""
	}
	return rainRanges[l].label
}

type SampleRole string

const (
	RoleObservation SampleRole = "observation"
	RoleForecast    SampleRole = "forecast"
)

type NowcastSample struct {
	ValidTime string     `json:"validtime"`
	BaseTime  string     `json:"basetime"`
	Role      SampleRole `json:"role"`
	Level     RainLevel  `json:"level"`
	AmountMin float64    `json:"amount_min"`
	AmountMax float64    `json:"amount_max"`
}

// ForecastRecord is one point of the hourly or daily forecast series.
// On daily records Temperature holds the day's maximum and TempLow its
// minimum; hourly records carry the point temperature in Temperature.
type ForecastRecord struct {
	Time                     time.Time `json:"datetime"`
	Condition                Condition `json:"condition,omitempty"`
	WeatherCode              string    `json:"weather_code,omitempty"`
	Weather                  string    `json:"weather,omitempty"`
	PrecipitationProbability *int      `json:"precipitation_probability,omitempty"`
	Temperature              *float64  `json:"temperature,omitempty"`
	TempLow                  *float64  `json:"templow,omitempty"`
	WindSpeed                *float64  `json:"wind_speed,omitempty"`
	WindGustSpeed            *float64  `json:"wind_gust_speed,omitempty"`
	WindBearing              *int      `json:"wind_bearing,omitempty"`
}

// Measurement is an AMEDAS value with its quality flag (AQC).
type Measurement struct {
	Value   *float64
	Quality *int
}

type StationObservation struct {
	ObservedAt      time.Time
	Measurements    map[string]Measurement
	OccurrenceTimes map[string]string
	Extra           map[string]json.RawMessage
}

func (o StationObservation) value(name string) (float64, bool) {
	m, ok := o.Measurements[name]
	if !ok || m.Value == nil {
		return 0, false
	}
	return *m.Value, true
}

// Temperature returns the air temperature in °C.
func (o StationObservation) Temperature() (float64, bool) {
	return o.value("temp")
}

// Sunshine10m returns the sunshine duration of the last 10 minutes.
func (o StationObservation) Sunshine10m() (float64, bool) {
	return o.value("sun10m")
}

// MarshalJSON flattens the observation the way downstream templates expect:
// name -> value, nameAqc -> quality, occurrence times as "HH:MM".
func (o StationObservation) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, 2*len(o.Measurements)+len(o.OccurrenceTimes)+len(o.Extra)+1)
	for k, v := range o.Extra {
		flat[k] = v
	}
	for k, m := range o.Measurements {
		flat[k] = m.Value
		flat[k+"Aqc"] = m.Quality
	}
	for k, t := range o.OccurrenceTimes {
		flat[k] = t
	}
	if !o.ObservedAt.IsZero() {
		flat["observed_at"] = o.ObservedAt.Format(time.RFC3339)
	}
	return json.Marshal(flat)
}

// FusedWeatherReport is the attributes payload published each run.
type FusedWeatherReport struct {
	Condition             Condition          `json:"condition"`
	Station               StationObservation `json:"station"`
	Nowcast               []NowcastSample    `json:"nowcast"`
	NowcastCondition      Condition          `json:"nowcast_condition"`
	DistributionCondition Condition          `json:"bunpu_weather"`
	DistributionTime      time.Time          `json:"bunpu_time"`
	Hourly                []ForecastRecord   `json:"forecast_hourly"`
	Daily                 []ForecastRecord   `json:"forecast_daily"`
	GeneratedAt           time.Time          `json:"generated_at"`
}
