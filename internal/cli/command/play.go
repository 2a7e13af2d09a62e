package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/savekeep-go/internal/cli/output"
	"github.com/yndnr/savekeep-go/internal/config"
	"github.com/yndnr/savekeep-go/internal/infra/confloader"
	"github.com/yndnr/savekeep-go/internal/infra/shutdown"
	"github.com/yndnr/savekeep-go/internal/server/httpserver"
	"github.com/yndnr/savekeep-go/internal/storage/slot"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
)

const shutdownTimeout = 10 * time.Second

// playSummary is printed when a play session ends.
type playSummary struct {
	SlotID    int32   `json:"slot_id" yaml:"slot_id" table:"SLOT"`
	SerialID  int32   `json:"serial_id" yaml:"serial_id" table:"SERIAL"`
	Frames    int64   `json:"frames" yaml:"frames" table:"FRAMES"`
	AutoSaves int     `json:"auto_saves" yaml:"auto_saves" table:"AUTO SAVES"`
	PlayTime  float32 `json:"play_time" yaml:"play_time" table:"PLAY TIME"`
}

// PlayCommand runs a frame loop against a slot so auto-save, metrics and
// configuration reload can be exercised without a game engine.
func PlayCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Simulate a play session with auto-save until the duration ends or a signal arrives",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "slot", Aliases: []string{"s"}, Usage: "Slot id (default: start a new game)"},
			serialFlag(),
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Session length, 0 runs until interrupted", Value: 10 * time.Second},
			&cli.IntFlag{Name: "fps", Usage: "Frames per second", Value: 30},
			&cli.BoolFlag{Name: "progress", Usage: "Show a progress bar on stderr"},
		},
		Action: runPlay,
	}
}

func runPlay(c *cli.Context) error {
	slotID, err := int32Flag(c, "slot")
	if err != nil {
		return err
	}
	serialID, err := int32Flag(c, "serial")
	if err != nil {
		return err
	}
	fps := c.Int("fps")
	if fps <= 0 {
		return cli.Exit("--fps must be positive", 2)
	}
	duration := c.Duration("duration")

	rt, err := runtimeFor(c)
	if err != nil {
		return err
	}
	comp := rt.Component
	if slotID == 0 {
		_, err = comp.UseGameSave(nil)
	} else {
		_, err = openSavePoint(comp, slotID, serialID)
	}
	if err != nil {
		return err
	}
	log := rt.Log.With("slot_id", comp.Active())

	ctx, cancel := context.WithCancel(rt.Context)
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	handler := shutdown.NewHandler(shutdownTimeout, log)

	var final playSummary
	handler.OnShutdown("final-save", func(context.Context) error {
		info, err := comp.SaveInfo()
		if err != nil {
			return err
		}
		final.SlotID, final.SerialID = info.SlotID, info.SerialID
		return nil
	})

	if path := rt.Loader.FilePath(); path != "" {
		watcher, err := watchConfig(rt, path)
		if err != nil {
			log.Warn("config watch disabled", "path", path, "error", err)
		} else {
			handler.OnShutdown("config-watcher", func(context.Context) error { return watcher.Stop() })
		}
	}

	if addr := rt.Config.Metrics.Addr; addr != "" {
		srv := httpserver.New(addr, rt.Metrics.Handler(), log)
		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Fprintf(rt.Stderr, "metrics on http://%s%s\n", srv.Addr(), httpserver.MetricsPath)
		handler.OnShutdown("metrics", srv.Shutdown)
	}

	var bar *output.ProgressBar
	if c.Bool("progress") {
		bar = output.NewProgressBar(rt.Stderr, "playing")
	}
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		final.Frames, final.AutoSaves = playLoop(ctx, rt, fps, duration, bar)
	}()
	handler.OnShutdown("frame-loop", func(context.Context) error {
		cancel()
		<-loopDone
		if bar != nil {
			bar.Finish()
		}
		return nil
	})

	log.Info("play session started", "fps", fps, "duration", duration, "autosave", comp.AutoSaveEnabled())
	if err := handler.Wait(ctx); err != nil {
		return err
	}
	_ = comp.WithSlot(final.SlotID, func(g *slot.Group) error {
		final.PlayTime = g.PlayTime()
		return nil
	})
	return rt.Render([]playSummary{final})
}

// playLoop ticks the component at fps until ctx ends. It returns the
// frame count and the number of auto-saves that ran.
func playLoop(ctx context.Context, rt *Runtime, fps int, duration time.Duration, bar *output.ProgressBar) (int64, int) {
	limiter := rate.NewLimiter(rate.Limit(fps), 1)
	start := time.Now()
	last := start
	var frames int64
	saves := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			return frames, saves
		}
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		frames++
		if rt.Component.Update(dt, dt) {
			saves++
		}
		if bar != nil && frames%int64(fps) == 0 {
			bar.Update(int64(now.Sub(start)/time.Second), int64(duration/time.Second))
		}
	}
}

// watchConfig reapplies log level and auto-save settings when the
// configuration file changes.
func watchConfig(rt *Runtime, path string) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.Log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(string) {
		cfg, err := config.Load(rt.Loader)
		if err != nil {
			rt.Log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		rt.Component.SetAutoSaveInterval(cfg.AutoSave.Interval)
		if cfg.AutoSave.Enabled != rt.Component.AutoSaveEnabled() {
			rt.Component.SetAutoSave(cfg.AutoSave.Enabled)
		}
		rt.Log.Info("config reloaded", "path", path, "log_level", cfg.Log.Level)
	})
	w.StartAsync()
	return w, nil
}
