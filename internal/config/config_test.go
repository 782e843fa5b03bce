package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var cfg Config
	p, err := kong.New(&cfg, kong.Name("jmaweather"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	if _, err := p.Parse(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func TestDefaults(t *testing.T) {
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("JMA_AMEDAS_POINT_CD", "44132")

	cfg, err := parse(t)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, 10*time.Second, cfg.MQTT.Timeout)
	assert.Equal(t, "130010", cfg.JMA.AreaCode)
	assert.Equal(t, 24, cfg.JMA.DistributionMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.JMA.HTTPTimeout)
	assert.Equal(t, "https://www.jma.go.jp", cfg.JMA.BaseURL)
	assert.Equal(t, 10, cfg.Nowcast.Zoom)
	assert.Equal(t, 20000.0, cfg.Nowcast.RadarRange)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Nil(t, cfg.Nowcast.Point())

	state, attr, avty := cfg.MQTT.Topics()
	assert.Equal(t, "jma/amedas/state", state)
	assert.Equal(t, "jma/amedas/attr", attr)
	assert.Equal(t, "jma/amedas/availability", avty)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_TOPIC_AMEDAS_STAT", "home/weather/state")
	t.Setenv("JMA_AMEDAS_POINT_CD", "14163")
	t.Setenv("JMA_AREA_CD", "016010")
	t.Setenv("NOWCAST_RAIN_LAT", "43.0642")
	t.Setenv("NOWCAST_RAIN_LON", "141.3469")
	t.Setenv("NOWCAST_RAIN_ZOOM", "8")

	cfg, err := parse(t)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.Equal(t, "016010", cfg.JMA.AreaCode)
	assert.Equal(t, 8, cfg.Nowcast.Zoom)

	p := cfg.Nowcast.Point()
	require.NotNil(t, p)
	assert.Equal(t, 43.0642, p.Latitude)
	assert.Equal(t, 141.3469, p.Longitude)

	state, attr, _ := cfg.MQTT.Topics()
	assert.Equal(t, "home/weather/state", state)
	assert.Equal(t, "jma/amedas/attr", attr)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("JMA_AMEDAS_POINT_CD", "44132")

	cfg, err := parse(t, "--mqtt-broker=other.local", "--nowcast-zoom=6")
	require.NoError(t, err)
	assert.Equal(t, "other.local", cfg.MQTT.Broker)
	assert.Equal(t, 6, cfg.Nowcast.Zoom)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			MQTT:    MQTT{Broker: "broker.local", Port: 1883, TopicPrefix: "jma/amedas", Timeout: time.Second},
			JMA:     JMA{StationCode: "44132", AreaCode: "130010", DistributionMaxAttempts: 24, HTTPTimeout: time.Second, BaseURL: "https://www.jma.go.jp", DataBaseURL: "https://www.data.jma.go.jp"},
			Nowcast: Nowcast{Zoom: 10, RadarRange: 20000, Concurrency: 4},
			Log:     Log{Level: "info", Format: "console"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"broker with a scheme", func(c *Config) { c.MQTT.Broker = "tcp://broker.local" }},
		{"port out of range", func(c *Config) { c.MQTT.Port = 70000 }},
		{"station code too short", func(c *Config) { c.JMA.StationCode = "4413" }},
		{"station code not numeric", func(c *Config) { c.JMA.StationCode = "tokyo" }},
		{"area code too short", func(c *Config) { c.JMA.AreaCode = "13" }},
		{"zero attempts", func(c *Config) { c.JMA.DistributionMaxAttempts = 0 }},
		{"zoom below radar range", func(c *Config) { c.Nowcast.Zoom = 3 }},
		{"zoom above radar range", func(c *Config) { c.Nowcast.Zoom = 15 }},
		{"latitude out of range", func(c *Config) { c.Nowcast.Latitude, c.Nowcast.Longitude = 95, 139 }},
		{"latitude without longitude", func(c *Config) { c.Nowcast.Latitude = 35.6 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad pushgateway url", func(c *Config) { c.Metrics.PushgatewayURL = "not a url" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestBrokerOnlyRequiredToPublish(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("JMA_AMEDAS_POINT_CD", "44132")

	cfg, err := parse(t)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Error(t, cfg.MQTT.RequireBroker())

	cfg.MQTT.Broker = "192.168.1.10"
	require.NoError(t, cfg.Validate())
	assert.NoError(t, cfg.MQTT.RequireBroker())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JMA_AREA_CD=270000\nMQTT_PORT=1884\n"), 0o600))

	t.Setenv("MQTT_PORT", "1999")
	// registered so t cleans up the variable the file sets
	t.Setenv("JMA_AREA_CD", "")
	os.Unsetenv("JMA_AREA_CD")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "270000", os.Getenv("JMA_AREA_CD"))
	assert.Equal(t, "1999", os.Getenv("MQTT_PORT"))
}
