package ingest

import (
	"sort"

	"github.com/lox/jmaweather/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindDirInvalid     = "wind_dir_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagSunshineInvalid    = "sunshine_invalid"
	FlagPrecipNegative     = "precip_negative"
	FlagQualitySuspect     = "quality_suspect"
)

// ValidateObservation flags readings outside what an AMEDAS station can
// plausibly report, and elements whose AQC flag is not "normal" (0).
func ValidateObservation(obs models.StationObservation) []string {
	var flags []string

	if v, ok := obs.Temperature(); ok && (v < -45 || v > 45) {
		flags = append(flags, FlagTempOutOfRange)
	}

	if v, ok := value(obs, "humidity"); ok && (v < 0 || v > 100) {
		flags = append(flags, FlagHumidityInvalid)
	}

	// 16-point compass, 0 for calm
	if v, ok := value(obs, "windDirection"); ok && (v < 0 || v > 16) {
		flags = append(flags, FlagWindDirInvalid)
	}

	if v, ok := value(obs, "wind"); ok && (v < 0 || v > 100) {
		flags = append(flags, FlagWindSpeedUnlikely)
	}

	if v, ok := value(obs, "pressure"); ok && (v < 850 || v > 1100) {
		flags = append(flags, FlagPressureOutOfRange)
	}

	if v, ok := obs.Sunshine10m(); ok && (v < 0 || v > 10) {
		flags = append(flags, FlagSunshineInvalid)
	}

	for _, k := range []string{"precipitation10m", "precipitation1h", "precipitation3h", "precipitation24h"} {
		if v, ok := value(obs, k); ok && v < 0 {
			flags = append(flags, FlagPrecipNegative)
			break
		}
	}

	if len(SuspectElements(obs)) > 0 {
		flags = append(flags, FlagQualitySuspect)
	}

	return flags
}

// SuspectElements lists the elements carrying a value with a non-zero AQC
// flag, sorted.
func SuspectElements(obs models.StationObservation) []string {
	var out []string
	for k, m := range obs.Measurements {
		if m.Value != nil && m.Quality != nil && *m.Quality != 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func value(obs models.StationObservation, name string) (float64, bool) {
	m, ok := obs.Measurements[name]
	if !ok || m.Value == nil {
		return 0, false
	}
	return *m.Value, true
}
