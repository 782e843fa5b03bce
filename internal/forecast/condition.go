package forecast

import (
	"strings"
	"time"

	"github.com/lox/jmaweather/internal/models"
)

// ClassifyCode resolves a forecast weather code to its Japanese label and
// a Home Assistant condition. Unknown codes yield an empty label and
// partlycloudy.
func ClassifyCode(code string) (string, models.Condition) {
	label, ok := telops[code]
	if !ok {
		return "", models.ConditionPartlyCloudy
	}
	return label, ClassifyLabel(label)
}

// ClassifyLabel maps a TELOPS label to a condition. Any mention of snow or
// rain wins; only the bare 晴 and 曇 labels count as sunny and cloudy.
func ClassifyLabel(label string) models.Condition {
	snow := strings.Contains(label, "雪")
	rain := strings.Contains(label, "雨")
	switch {
	case snow && rain:
		return models.ConditionSnowyRainy
	case snow:
		return models.ConditionSnowy
	case rain:
		return models.ConditionRainy
	case label == "晴":
		return models.ConditionSunny
	case label == "曇":
		return models.ConditionCloudy
	default:
		return models.ConditionPartlyCloudy
	}
}

// ClassifyVPFDWeather maps the VPFD point forecast weather text. 晴れ is
// split into sunny and clear-night by the local hour of t. Unrecognised
// text returns "".
func ClassifyVPFDWeather(text string, t time.Time) models.Condition {
	switch text {
	case "晴れ":
		return models.Clear(t.In(models.JST).Hour())
	case "くもり":
		return models.ConditionCloudy
	case "雨":
		return models.ConditionRainy
	case "雨または雪":
		return models.ConditionSnowyRainy
	case "雪":
		return models.ConditionSnowy
	default:
		return ""
	}
}

var bearings = map[string]int{
	"北":  0,
	"北東": 45,
	"東":  90,
	"南東": 135,
	"南":  180,
	"南西": 225,
	"西":  270,
	"北西": 315,
}

// WindBearing converts an 8-point Japanese compass direction to degrees.
func WindBearing(direction string) (int, bool) {
	b, ok := bearings[direction]
	return b, ok
}
