package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lox/jmaweather/internal/imagegen"
	"github.com/lox/jmaweather/internal/publish"
)

type RunCmd struct {
	DryRun bool `help:"Print the report instead of publishing it."`
}

// Run is all-or-nothing: the broker is only contacted once every source
// has been read and fused.
func (c *RunCmd) Run(app *App) error {
	defer app.pushMetrics()

	s := app.session()
	report, err := s.Run(app.ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if c.DryRun {
		out, err := publish.Encode(report)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	pub, err := app.connect()
	if err != nil {
		return err
	}
	defer pub.Close()

	s.SetPublisher(pub)
	if err := s.Publish(app.ctx, report); err != nil {
		return err
	}
	app.log.Infow("jmaweather: published", "condition", report.Condition)
	return nil
}

type DiscoverCmd struct {
	Topic string `help:"Discovery config topic." default:"${discovery_topic}"`
}

func (c *DiscoverCmd) Run(app *App) error {
	pub, err := app.connect()
	if err != nil {
		return err
	}
	defer pub.Close()

	return pub.PublishDiscovery(app.ctx, c.Topic, publish.NewDiscovery(app.topics()))
}

type AnimateCmd struct {
	Output   string        `help:"Where to write the GIF." short:"o" default:"nowcast.gif" type:"path"`
	CacheDir string        `help:"Reuse renders of the same radar generation from this directory." type:"path"`
	MaxAge   time.Duration `help:"How long cached renders stay valid." default:"1h"`
}

func (c *AnimateCmd) Run(app *App) error {
	s := app.session()
	point, err := s.Point(app.ctx)
	if err != nil {
		return err
	}

	nc := s.Nowcast()
	timeline, err := nc.Timeline(app.ctx)
	if err != nil {
		return err
	}
	key := timeline[0].BaseTime

	var cache *imagegen.Cache
	if c.CacheDir != "" {
		if cache, err = imagegen.NewCache(c.CacheDir, c.MaxAge); err != nil {
			return err
		}
		if data, ok := cache.Get(key); ok {
			app.log.Infow("jmaweather: animation cached", "basetime", key)
			return os.WriteFile(c.Output, data, 0o644)
		}
	}

	data, err := imagegen.NewAnimator(nc, app.log).Render(app.ctx, imagegen.Options{
		Point:        point,
		Zoom:         app.cfg.Nowcast.Zoom,
		RadiusMeters: app.cfg.Nowcast.RadarRange,
	})
	if err != nil {
		return fmt.Errorf("animate: %w", err)
	}

	if cache != nil {
		if err := cache.Set(key, data); err != nil {
			app.log.Warnw("jmaweather: cache animation", "error", err)
		} else if err := cache.Prune(key); err != nil {
			app.log.Warnw("jmaweather: prune animations", "error", err)
		}
	}
	if err := os.WriteFile(c.Output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Output, err)
	}
	app.log.Infow("jmaweather: animation written", "path", c.Output, "frames", len(timeline), "basetime", key)
	return nil
}

type LocateCmd struct{}

func (c *LocateCmd) Run(app *App) error {
	loc, err := app.session().Locate(app.ctx, app.cfg.Nowcast.Zoom)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(loc)
}
