package forecast

import (
	"testing"
	"time"

	"github.com/lox/jmaweather/internal/models"
)

func TestClassifyLabel(t *testing.T) {
	tests := []struct {
		label string
		want  models.Condition
	}{
		{"晴", models.ConditionSunny},
		{"曇", models.ConditionCloudy},
		{"晴時々曇", models.ConditionPartlyCloudy},
		{"曇時々晴", models.ConditionPartlyCloudy},
		{"霧", models.ConditionPartlyCloudy},
		{"雨", models.ConditionRainy},
		{"晴一時雨", models.ConditionRainy},
		{"雨一時みぞれ", models.ConditionRainy},
		{"雪", models.ConditionSnowy},
		{"暴風雪", models.ConditionSnowy},
		{"雨か雪", models.ConditionSnowyRainy},
		{"雪後雨", models.ConditionSnowyRainy},
		{"", models.ConditionPartlyCloudy},
	}

	for _, tt := range tests {
		if got := ClassifyLabel(tt.label); got != tt.want {
			t.Errorf("ClassifyLabel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestClassifyCode(t *testing.T) {
	tests := []struct {
		code      string
		wantLabel string
		want      models.Condition
	}{
		{"100", "晴", models.ConditionSunny},
		{"200", "曇", models.ConditionCloudy},
		{"101", "晴時々曇", models.ConditionPartlyCloudy},
		{"313", "雨後曇", models.ConditionRainy},
		{"400", "雪", models.ConditionSnowy},
		{"304", "雨か雪", models.ConditionSnowyRainy},
		{"999", "", models.ConditionPartlyCloudy},
		{"", "", models.ConditionPartlyCloudy},
	}

	for _, tt := range tests {
		label, got := ClassifyCode(tt.code)
		if label != tt.wantLabel || got != tt.want {
			t.Errorf("ClassifyCode(%q) = %q, %v, want %q, %v", tt.code, label, got, tt.wantLabel, tt.want)
		}
	}
}

func TestTelopsLabelsAreClassified(t *testing.T) {
	for code, label := range telops {
		if label == "" {
			t.Errorf("code %s has an empty label", code)
		}
		if len(code) != 3 {
			t.Errorf("code %q is not three digits", code)
		}
	}
}

func TestClassifyVPFDWeather(t *testing.T) {
	noon := time.Date(2025, 1, 15, 12, 0, 0, 0, models.JST)
	evening := time.Date(2025, 1, 15, 18, 0, 0, 0, models.JST)
	// 08:00 UTC is 17:00 JST, still daytime
	utcAfternoon := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		text string
		at   time.Time
		want models.Condition
	}{
		{"晴れ", noon, models.ConditionSunny},
		{"晴れ", evening, models.ConditionClearNight},
		{"晴れ", utcAfternoon, models.ConditionSunny},
		{"くもり", noon, models.ConditionCloudy},
		{"雨", noon, models.ConditionRainy},
		{"雨または雪", noon, models.ConditionSnowyRainy},
		{"雪", evening, models.ConditionSnowy},
		{"みぞれ", noon, ""},
	}

	for _, tt := range tests {
		if got := ClassifyVPFDWeather(tt.text, tt.at); got != tt.want {
			t.Errorf("ClassifyVPFDWeather(%q, %v) = %v, want %v", tt.text, tt.at, got, tt.want)
		}
	}
}

func TestWindBearing(t *testing.T) {
	tests := []struct {
		dir  string
		want int
		ok   bool
	}{
		{"北", 0, true},
		{"北東", 45, true},
		{"東", 90, true},
		{"南東", 135, true},
		{"南", 180, true},
		{"南西", 225, true},
		{"西", 270, true},
		{"北西", 315, true},
		{"北北東", 0, false},
	}

	for _, tt := range tests {
		got, ok := WindBearing(tt.dir)
		if got != tt.want || ok != tt.ok {
			t.Errorf("WindBearing(%q) = %d, %v, want %d, %v", tt.dir, got, ok, tt.want, tt.ok)
		}
	}
}
