package main

import (
	"context"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lox/jmaweather/internal/config"
	"github.com/lox/jmaweather/internal/publish"
)

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context, error) {
	t.Helper()
	var cli CLI
	p, err := kong.New(&cli,
		kong.Name("jmaweather"),
		kong.Vars{"discovery_topic": publish.DiscoveryTopic},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)
	kctx, err := p.Parse(args)
	return &cli, kctx, err
}

func TestCommands(t *testing.T) {
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("JMA_AMEDAS_POINT_CD", "44132")

	tests := []struct {
		args []string
		want string
	}{
		{nil, "run"},
		{[]string{"run", "--dry-run"}, "run"},
		{[]string{"discover"}, "discover"},
		{[]string{"animate", "-o", "out.gif"}, "animate"},
		{[]string{"locate"}, "locate"},
	}
	for _, tt := range tests {
		_, kctx, err := parseCLI(t, tt.args...)
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want, kctx.Command(), tt.args)
	}
}

func TestDiscoverDefaultTopic(t *testing.T) {
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("JMA_AMEDAS_POINT_CD", "44132")

	cli, _, err := parseCLI(t, "discover")
	require.NoError(t, err)
	assert.Equal(t, "homeassistant/sensor/amedas/config", cli.Discover.Topic)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("JMA_AMEDAS_POINT_CD", "44132")
	t.Setenv("NOWCAST_RAIN_ZOOM", "20")

	_, _, err := parseCLI(t)
	assert.Error(t, err)
}

func TestLocalCommandsNeedNoBroker(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("JMA_AMEDAS_POINT_CD", "44132")

	for _, args := range [][]string{{"run", "--dry-run"}, {"locate"}, {"animate"}} {
		cli, _, err := parseCLI(t, args...)
		require.NoError(t, err, args)
		assert.NoError(t, cli.Validate(), args)
	}
}

func TestConnectRequiresBroker(t *testing.T) {
	app := &App{ctx: context.Background(), cfg: &config.Config{}, log: zap.NewNop().Sugar()}
	_, err := app.connect()
	assert.ErrorContains(t, err, "MQTT_BROKER")
}
