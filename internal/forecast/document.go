package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document is forecast/{office}.json: the short-range (3-day) report
// followed by the long-range (7-day) report.
type Document []Report

type Report struct {
	PublishingOffice string       `json:"publishingOffice"`
	ReportDatetime   time.Time    `json:"reportDatetime"`
	TimeSeries       []TimeSeries `json:"timeSeries"`
}

type TimeSeries struct {
	TimeDefines []time.Time  `json:"timeDefines"`
	Areas       []AreaSeries `json:"areas"`
}

type Area struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// AreaSeries holds one area's values. Which slices are populated depends
// on the series; values are strings and may be empty.
type AreaSeries struct {
	Area          Area     `json:"area"`
	WeatherCodes  []string `json:"weatherCodes,omitempty"`
	Weathers      []string `json:"weathers,omitempty"`
	Winds         []string `json:"winds,omitempty"`
	Waves         []string `json:"waves,omitempty"`
	Pops          []string `json:"pops,omitempty"`
	Temps         []string `json:"temps,omitempty"`
	Reliabilities []string `json:"reliabilities,omitempty"`
	TempsMin      []string `json:"tempsMin,omitempty"`
	TempsMinUpper []string `json:"tempsMinUpper,omitempty"`
	TempsMinLower []string `json:"tempsMinLower,omitempty"`
	TempsMax      []string `json:"tempsMax,omitempty"`
	TempsMaxUpper []string `json:"tempsMaxUpper,omitempty"`
	TempsMaxLower []string `json:"tempsMaxLower,omitempty"`
}

// Number is a JSON value that may arrive as a number, a numeric string,
// an empty string or null.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, ok := parseFloat(s)
		n.Value, n.Valid = v, ok
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("number: %w", err)
	}
	n.Value, n.Valid = v, true
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns nil for an absent value.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseFloatPtr(s string) *float64 {
	v, ok := parseFloat(s)
	if !ok {
		return nil
	}
	return &v
}

func parseIntPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
