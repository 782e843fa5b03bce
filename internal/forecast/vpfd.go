package forecast

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lox/jmaweather/internal/models"
)

// VPFDDocument is wdist/VPFD/{class10}.json, the 3-hourly point forecast.
type VPFDDocument struct {
	PublishingOffice string          `json:"publishingOffice"`
	ReportDateTime   time.Time       `json:"reportDateTime"`
	AreaTimeSeries   VPFDAreaSeries  `json:"areaTimeSeries"`
	PointTimeSeries  VPFDPointSeries `json:"pointTimeSeries"`
}

type TimeDefine struct {
	DateTime time.Time `json:"dateTime"`
	Duration string    `json:"duration,omitempty"`
}

type Wind struct {
	Direction string `json:"direction"`
	Speed     Number `json:"speed"`
	// Range is "lo hi" in m/s.
	Range string `json:"range"`
}

type VPFDAreaSeries struct {
	TimeDefines []TimeDefine `json:"timeDefines"`
	Weather     []string     `json:"weather"`
	Wind        []Wind       `json:"wind"`
}

type VPFDPointSeries struct {
	PointName      string       `json:"pointName,omitempty"`
	PointCode      string       `json:"pointCode,omitempty"`
	TimeDefines    []TimeDefine `json:"timeDefines"`
	Temperature    []Number     `json:"temperature"`
	MaxTemperature []Number     `json:"maxTemperature"`
	MinTemperature []Number     `json:"minTemperature"`
}

type pointValues struct {
	temp, low Number
}

// HourlyFromVPFD joins the area weather/wind series with the point
// temperatures by time and returns the records after now.
func HourlyFromVPFD(doc VPFDDocument, now time.Time) []models.ForecastRecord {
	points := make(map[int64]pointValues, len(doc.PointTimeSeries.TimeDefines))
	for i, td := range doc.PointTimeSeries.TimeDefines {
		points[td.DateTime.Unix()] = pointValues{
			temp: numberAt(doc.PointTimeSeries.Temperature, i),
			low:  numberAt(doc.PointTimeSeries.MinTemperature, i),
		}
	}

	var out []models.ForecastRecord
	for i, td := range doc.AreaTimeSeries.TimeDefines {
		t := td.DateTime.In(models.JST)
		if !t.After(now) {
			continue
		}
		r := models.ForecastRecord{Time: t}
		if i < len(doc.AreaTimeSeries.Weather) {
			r.Weather = doc.AreaTimeSeries.Weather[i]
			r.Condition = ClassifyVPFDWeather(r.Weather, t)
		}
		if i < len(doc.AreaTimeSeries.Wind) {
			w := doc.AreaTimeSeries.Wind[i]
			r.WindSpeed = w.Speed.Ptr()
			if b, ok := WindBearing(w.Direction); ok {
				r.WindBearing = &b
			}
			if _, hi, ok := parseRange(w.Range); ok {
				r.WindGustSpeed = &hi
			}
		}
		if p, ok := points[td.DateTime.Unix()]; ok {
			r.Temperature = p.temp.Ptr()
			r.TempLow = p.low.Ptr()
		}
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

// MergeHourly combines short-range and VPFD hourly records keyed by time.
// Fields present in the short-range record win; VPFD fills the rest.
func MergeHourly(short, vpfd []models.ForecastRecord) []models.ForecastRecord {
	byTime := make(map[int64]*models.ForecastRecord, len(short)+len(vpfd))
	var order []int64

	for _, r := range vpfd {
		k := r.Time.Unix()
		if _, ok := byTime[k]; !ok {
			order = append(order, k)
		}
		rec := r
		byTime[k] = &rec
	}
	for _, s := range short {
		k := s.Time.Unix()
		base, ok := byTime[k]
		if !ok {
			rec := s
			byTime[k] = &rec
			order = append(order, k)
			continue
		}
		overlayRecord(base, s)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]models.ForecastRecord, 0, len(order))
	for _, k := range order {
		out = append(out, *byTime[k])
	}
	return out
}

func overlayRecord(dst *models.ForecastRecord, src models.ForecastRecord) {
	if src.Condition != "" {
		dst.Condition = src.Condition
	}
	if src.WeatherCode != "" {
		dst.WeatherCode = src.WeatherCode
	}
	if src.Weather != "" {
		dst.Weather = src.Weather
	}
	if src.PrecipitationProbability != nil {
		dst.PrecipitationProbability = src.PrecipitationProbability
	}
	if src.Temperature != nil {
		dst.Temperature = src.Temperature
	}
	if src.TempLow != nil {
		dst.TempLow = src.TempLow
	}
	if src.WindSpeed != nil {
		dst.WindSpeed = src.WindSpeed
	}
	if src.WindGustSpeed != nil {
		dst.WindGustSpeed = src.WindGustSpeed
	}
	if src.WindBearing != nil {
		dst.WindBearing = src.WindBearing
	}
}

func numberAt(s []Number, i int) Number {
	if i < 0 || i >= len(s) {
		return Number{}
	}
	return s[i]
}

func parseRange(s string) (lo, hi float64, ok bool) {
	f := strings.Fields(s)
	if len(f) != 2 {
		return 0, 0, false
	}
	lo, err := strconv.ParseFloat(f[0], 64)
	if err != nil {
		return 0, 0, false
	}
	hi, err = strconv.ParseFloat(f[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}
