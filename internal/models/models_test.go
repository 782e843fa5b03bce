package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClear(t *testing.T) {
	tests := []struct {
		hour int
		want Condition
	}{
		{5, ConditionClearNight},
		{6, ConditionSunny},
		{14, ConditionSunny},
		{17, ConditionSunny},
		{18, ConditionClearNight},
		{23, ConditionClearNight},
	}
	for _, tt := range tests {
		if got := Clear(tt.hour); got != tt.want {
			t.Errorf("Clear(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestRainLevelAmount(t *testing.T) {
	tests := []struct {
		level    RainLevel
		min, max float64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{4, 10, 20},
		{8, 80, 200},
		{9, 0, 0},
	}
	for _, tt := range tests {
		min, max := tt.level.Amount()
		if min != tt.min || max != tt.max {
			t.Errorf("RainLevel(%d).Amount() = (%v,%v), want (%v,%v)", tt.level, min, max, tt.min, tt.max)
		}
	}
}

func TestStationObservationMarshal(t *testing.T) {
	temp := 12.5
	quality := 0
	obs := StationObservation{
		ObservedAt: time.Date(2024, 5, 1, 11, 30, 0, 0, JST),
		Measurements: map[string]Measurement{
			"temp":   {Value: &temp, Quality: &quality},
			"sun10m": {Value: nil, Quality: nil},
		},
		OccurrenceTimes: map[string]string{"maxTempTime": "11:20"},
		Extra:           map[string]json.RawMessage{"weather": json.RawMessage(`"fine"`)},
	}

	b, err := json.Marshal(obs)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 12.5, got["temp"])
	assert.Equal(t, float64(0), got["tempAqc"])
	assert.Nil(t, got["sun10m"])
	assert.Contains(t, got, "sun10mAqc")
	assert.Equal(t, "11:20", got["maxTempTime"])
	assert.Equal(t, "fine", got["weather"])
	assert.Equal(t, "2024-05-01T11:30:00+09:00", got["observed_at"])

	v, ok := obs.Temperature()
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)
	_, ok = obs.Sunshine10m()
	assert.False(t, ok)
}

func TestIsPrecipitation(t *testing.T) {
	assert.True(t, ConditionRainy.IsPrecipitation())
	assert.True(t, ConditionSnowy.IsPrecipitation())
	assert.True(t, ConditionSnowyRainy.IsPrecipitation())
	assert.False(t, ConditionCloudy.IsPrecipitation())
	assert.False(t, ConditionExceptional.IsPrecipitation())
}
