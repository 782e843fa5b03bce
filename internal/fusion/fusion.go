// Package fusion decides the current weather from the station
// observation, the nowcast radar and the distribution map.
package fusion

import (
	"time"

	"github.com/lox/jmaweather/internal/models"
)

const (
	// above this the nowcast's precipitation is rain
	rainAbove = 2.0
	// below this it is snow; in between, sleet
	snowBelow = 0.0
)

type Inputs struct {
	Temperature  *float64
	Sunshine10m  *float64
	Nowcast      models.Condition
	Distribution models.Condition
	LocalTime    time.Time
}

// Decide applies the rules in order; the first match wins.
//
//  1. radar sees rain: split into rain, snow or sleet by temperature
//  2. the map shows precipitation but the sun is out: clear, else cloudy
//  3. the sun is out: clear
//  4. otherwise: whatever the map shows
//
// Radar rain with no temperature reading is reported as rain. Missing
// sunshine counts as none.
func Decide(in Inputs) models.Condition {
	hour := in.LocalTime.In(models.JST).Hour()
	sunny := in.Sunshine10m != nil && *in.Sunshine10m > 0

	if in.Nowcast == models.ConditionRainy {
		switch {
		case in.Temperature == nil:
			return models.ConditionRainy
		case *in.Temperature > rainAbove:
			return models.ConditionRainy
		case *in.Temperature < snowBelow:
			return models.ConditionSnowy
		default:
			return models.ConditionSnowyRainy
		}
	}

	if in.Distribution.IsPrecipitation() {
		if sunny {
			return models.Clear(hour)
		}
		return models.ConditionCloudy
	}

	if sunny {
		return models.Clear(hour)
	}
	return in.Distribution
}
