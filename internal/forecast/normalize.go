package forecast

import (
	"sort"
	"time"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/models"
)

// Result is a normalized forecast for one class10 area.
type Result struct {
	Area   Area
	Hourly []models.ForecastRecord
	Daily  []models.ForecastRecord
}

type dayFields struct {
	code    string
	pop     *int
	tempMax *float64
	tempMin *float64
}

func (d *dayFields) overlay(o *dayFields) {
	if o.code != "" {
		d.code = o.code
	}
	if o.pop != nil {
		d.pop = o.pop
	}
	if o.tempMax != nil {
		d.tempMax = o.tempMax
	}
	if o.tempMin != nil {
		d.tempMin = o.tempMin
	}
}

// Normalize flattens the forecast document for the class10 area into
// hourly and daily records. Only records strictly after now are returned.
//
// The area is located by code in the first short-range series. Other
// series carry different areas (temperature points, weekly regions), so
// they are matched by code when possible and by position otherwise.
func Normalize(doc Document, class10 string, now time.Time) (Result, error) {
	if len(doc) == 0 || len(doc[0].TimeSeries) == 0 {
		return Result{}, errs.New(errs.LookupFailure, "normalize forecast", "empty forecast document")
	}

	idx := -1
	for i, a := range doc[0].TimeSeries[0].Areas {
		if a.Area.Code == class10 {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Result{}, errs.New(errs.LookupFailure, "normalize forecast", "area %s not found", class10)
	}
	res := Result{Area: doc[0].TimeSeries[0].Areas[idx].Area}

	daily := make(map[time.Time]*dayFields)
	if len(doc) > 1 {
		for _, ts := range doc[1].TimeSeries {
			a, ok := selectArea(ts, class10, idx)
			if !ok {
				continue
			}
			for i, t := range ts.TimeDefines {
				d := dayEntry(daily, t)
				if code := at(a.WeatherCodes, i); code != "" {
					d.code = code
				}
				if p := parseIntPtr(at(a.Pops, i)); p != nil {
					d.pop = p
				}
				if v := parseFloatPtr(at(a.TempsMax, i)); v != nil {
					d.tempMax = v
				}
				if v := parseFloatPtr(at(a.TempsMin, i)); v != nil {
					d.tempMin = v
				}
			}
		}
	}

	short := make(map[time.Time]*dayFields)
	hourly := make(map[time.Time]*models.ForecastRecord)
	hourEntry := func(t time.Time) *models.ForecastRecord {
		// parsed offsets get distinct locations; key on one zone
		t = t.In(models.JST)
		r, ok := hourly[t]
		if !ok {
			r = &models.ForecastRecord{Time: t}
			hourly[t] = r
		}
		return r
	}

	for _, ts := range doc[0].TimeSeries {
		a, ok := selectArea(ts, class10, idx)
		if !ok {
			continue
		}
		for i, t := range ts.TimeDefines {
			if code := at(a.WeatherCodes, i); code != "" {
				dayEntry(short, t).code = code
				setCode(hourEntry(t), code)
			}
			if p := parseIntPtr(at(a.Pops, i)); p != nil {
				d := dayEntry(short, t)
				if d.pop == nil || *p > *d.pop {
					v := *p
					d.pop = &v
				}
				hourEntry(t).PrecipitationProbability = p
			}
			if v := parseFloatPtr(at(a.Temps, i)); v != nil {
				switch t.In(models.JST).Hour() {
				case 0:
					dayEntry(short, t).tempMin = v
				case 9:
					dayEntry(short, t).tempMax = v
				}
			}
		}
	}

	for day, s := range short {
		dayEntry(daily, day).overlay(s)
	}

	for day, d := range daily {
		if !day.After(now) {
			continue
		}
		r := models.ForecastRecord{
			Time:                     day,
			PrecipitationProbability: d.pop,
			Temperature:              d.tempMax,
			TempLow:                  d.tempMin,
		}
		if d.code != "" {
			setCode(&r, d.code)
		}
		res.Daily = append(res.Daily, r)
	}
	for t, r := range hourly {
		if t.After(now) {
			res.Hourly = append(res.Hourly, *r)
		}
	}
	sortRecords(res.Daily)
	sortRecords(res.Hourly)
	return res, nil
}

func setCode(r *models.ForecastRecord, code string) {
	label, cond := ClassifyCode(code)
	r.WeatherCode = code
	r.Weather = label
	r.Condition = cond
}

func selectArea(ts TimeSeries, code string, idx int) (AreaSeries, bool) {
	for _, a := range ts.Areas {
		if a.Area.Code == code {
			return a, true
		}
	}
	if idx < len(ts.Areas) {
		return ts.Areas[idx], true
	}
	return AreaSeries{}, false
}

// dayEntry returns the entry for t's local calendar day.
func dayEntry(m map[time.Time]*dayFields, t time.Time) *dayFields {
	key := startOfDay(t)
	d, ok := m[key]
	if !ok {
		d = &dayFields{}
		m[key] = d
	}
	return d
}

func startOfDay(t time.Time) time.Time {
	t = t.In(models.JST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, models.JST)
}

func at(s []string, i int) string {
	if i < 0 || i >= len(s) {
		return ""
	}
	return s[i]
}

func sortRecords(rs []models.ForecastRecord) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Time.Before(rs[j].Time) })
}
