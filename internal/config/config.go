// Package config holds the settings read once at start-up from flags,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/lox/jmaweather/internal/models"
)

type MQTT struct {
	Broker            string        `help:"MQTT broker host; needed by commands that publish." env:"MQTT_BROKER" validate:"omitempty,hostname_rfc1123|ip"`
	Port              int           `help:"MQTT broker port." env:"MQTT_PORT" default:"1883" validate:"min=1,max=65535"`
	Username          string        `help:"MQTT username." env:"MQTT_USERNAME"`
	Password          string        `help:"MQTT password." env:"MQTT_PASSWORD"`
	TopicPrefix       string        `help:"Prefix for topics not set explicitly." env:"MQTT_TOPIC_PREFIX" default:"jma/amedas" validate:"required"`
	StateTopic        string        `help:"State topic." env:"MQTT_TOPIC_AMEDAS_STAT"`
	AttributesTopic   string        `help:"Attributes topic." env:"MQTT_TOPIC_AMEDAS_ATTR"`
	AvailabilityTopic string        `help:"Availability topic." env:"MQTT_TOPIC_AMEDAS_AVTY"`
	Timeout           time.Duration `help:"Connect and acknowledgement timeout." env:"MQTT_TIMEOUT" default:"10s" validate:"gt=0"`
}

// RequireBroker is checked by commands that connect; the rest run without
// a broker configured.
func (m MQTT) RequireBroker() error {
	if m.Broker == "" {
		return errors.New("invalid configuration: MQTT_BROKER is required to publish")
	}
	return nil
}

// Topics returns the state, attributes and availability topics, filling
// unset ones from the prefix.
func (m MQTT) Topics() (state, attributes, availability string) {
	prefix := strings.TrimSuffix(m.TopicPrefix, "/")
	state = or(m.StateTopic, prefix+"/state")
	attributes = or(m.AttributesTopic, prefix+"/attr")
	availability = or(m.AvailabilityTopic, prefix+"/availability")
	return state, attributes, availability
}

type JMA struct {
	StationCode             string        `help:"AMEDAS station code." env:"JMA_AMEDAS_POINT_CD" validate:"required,numeric,len=5"`
	AreaCode                string        `help:"Forecast area code (office, class10, class15 or class20)." env:"JMA_AREA_CD" default:"130010" validate:"required,numeric,min=6,max=7"`
	DistributionMaxAttempts int           `help:"Hourly distribution maps to try before giving up." env:"JMA_DISTRIBUTION_MAX_ATTEMPTS" default:"24" validate:"min=1,max=168"`
	HTTPTimeout             time.Duration `help:"Timeout for each JMA request." env:"JMA_HTTP_TIMEOUT" default:"30s" validate:"gt=0"`
	BaseURL                 string        `help:"Base URL for bosai products." env:"JMA_BASE_URL" default:"https://www.jma.go.jp" validate:"required,url"`
	DataBaseURL             string        `help:"Base URL for distribution maps." env:"JMA_DATA_BASE_URL" default:"https://www.data.jma.go.jp" validate:"required,url"`
}

type Nowcast struct {
	Latitude    float64 `help:"Map point latitude; defaults to the station's." name:"lat" env:"NOWCAST_RAIN_LAT" validate:"omitempty,latitude"`
	Longitude   float64 `help:"Map point longitude; defaults to the station's." name:"lon" env:"NOWCAST_RAIN_LON" validate:"omitempty,longitude"`
	Zoom        int     `help:"Map zoom level." env:"NOWCAST_RAIN_ZOOM" default:"10" validate:"min=4,max=14"`
	RadarRange  float64 `help:"Animation radius in metres." env:"NOWCAST_RAIN_RADAR_RANGE" default:"20000" validate:"gt=0"`
	Concurrency int     `help:"Parallel radar tile fetches." env:"NOWCAST_CONCURRENCY" default:"4" validate:"min=1,max=32"`
}

// Point returns the configured map point, or nil when none is set.
func (n Nowcast) Point() *models.GeoPoint {
	if n.Latitude == 0 && n.Longitude == 0 {
		return nil
	}
	return &models.GeoPoint{Latitude: n.Latitude, Longitude: n.Longitude}
}

type Log struct {
	Level  string `help:"Log level." env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `help:"Log format." env:"LOG_FORMAT" default:"console" enum:"console,json" validate:"oneof=console json"`
}

type Metrics struct {
	PushgatewayURL string `help:"Prometheus Pushgateway to push run metrics to." env:"PUSHGATEWAY_URL" validate:"omitempty,url"`
}

// Config is embedded into the command line; kong fills it from flags and
// the environment.
type Config struct {
	MQTT    MQTT    `embed:"" prefix:"mqtt-" group:"MQTT"`
	JMA     JMA     `embed:"" prefix:"jma-" group:"JMA"`
	Nowcast Nowcast `embed:"" prefix:"nowcast-" group:"Nowcast"`
	Log     Log     `embed:"" prefix:"log-" group:"Logging"`
	Metrics Metrics `embed:"" group:"Metrics"`
}

// LoadDotEnv loads .env files into the environment before flags are
// parsed. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that a map point is either fully
// set or not set at all.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if (c.Nowcast.Latitude == 0) != (c.Nowcast.Longitude == 0) {
		return fmt.Errorf("invalid configuration: NOWCAST_RAIN_LAT and NOWCAST_RAIN_LON must be set together")
	}
	return nil
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
