package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lox/jmaweather/internal/config"
	"github.com/lox/jmaweather/internal/httputil"
	"github.com/lox/jmaweather/internal/ingest"
	"github.com/lox/jmaweather/internal/logger"
	"github.com/lox/jmaweather/internal/metrics"
	"github.com/lox/jmaweather/internal/publish"
)

type CLI struct {
	config.Config `embed:""`

	Run      RunCmd      `cmd:"" default:"withargs" help:"Fetch, fuse and publish the current weather (default)."`
	Discover DiscoverCmd `cmd:"" help:"Publish the Home Assistant discovery descriptor."`
	Animate  AnimateCmd  `cmd:"" help:"Render the nowcast radar timeline as an animated GIF."`
	Locate   LocateCmd   `cmd:"" help:"Print where the configured point falls on each JMA map."`
}

// App carries what every command needs.
type App struct {
	ctx context.Context
	cfg *config.Config
	log *zap.SugaredLogger
}

// session builds a fresh session; its fetch cache lives for one command.
func (a *App) session() *ingest.Session {
	f := httputil.NewFetcher(&http.Client{Timeout: a.cfg.JMA.HTTPTimeout})
	return ingest.NewSession(f, ingest.Options{
		StationCode:             a.cfg.JMA.StationCode,
		AreaCode:                a.cfg.JMA.AreaCode,
		Point:                   a.cfg.Nowcast.Point(),
		NowcastZoom:             a.cfg.Nowcast.Zoom,
		DistributionMaxAttempts: a.cfg.JMA.DistributionMaxAttempts,
		NowcastConcurrency:      a.cfg.Nowcast.Concurrency,
		JMABaseURL:              a.cfg.JMA.BaseURL,
		DataBaseURL:             a.cfg.JMA.DataBaseURL,
	}, clockwork.NewRealClock(), a.log)
}

func (a *App) topics() publish.Topics {
	state, attr, avty := a.cfg.MQTT.Topics()
	return publish.Topics{State: state, Attributes: attr, Availability: avty}
}

func (a *App) connect() (*publish.Publisher, error) {
	if err := a.cfg.MQTT.RequireBroker(); err != nil {
		return nil, err
	}
	a.log.Debugw("jmaweather: connecting to broker",
		"broker", a.cfg.MQTT.Broker,
		"user", a.cfg.MQTT.Username,
		"password", logger.Mask(a.cfg.MQTT.Password),
	)
	return publish.Connect(a.ctx, publish.BrokerConfig{
		Host:     a.cfg.MQTT.Broker,
		Port:     a.cfg.MQTT.Port,
		Username: a.cfg.MQTT.Username,
		Password: a.cfg.MQTT.Password,
		Timeout:  a.cfg.MQTT.Timeout,
	}, a.topics(), a.log)
}

func (a *App) pushMetrics() {
	if err := metrics.Push(a.ctx, a.cfg.Metrics.PushgatewayURL); err != nil {
		a.log.Warnw("jmaweather: metrics push failed", "error", err)
	}
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "jmaweather: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("jmaweather"),
		kong.Description("Fuse JMA observations, radar and forecasts into one weather state for Home Assistant."),
		kong.UsageOnError(),
		kong.Vars{"discovery_topic": publish.DiscoveryTopic},
	)
	kctx.FatalIfErrorf(cli.Validate())

	log, err := logger.New(cli.Log.Level, cli.Log.Format)
	kctx.FatalIfErrorf(err)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = kctx.Run(&App{ctx: ctx, cfg: &cli.Config, log: log})
	cancel()
	if err != nil {
		log.Errorw("jmaweather: command failed", "command", kctx.Command(), "error", err)
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}
