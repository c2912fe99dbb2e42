package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ilipanel/internal/config"
	"ilipanel/internal/ili9486"
	appLog "ilipanel/internal/log"
	"ilipanel/internal/sim"
	"ilipanel/internal/sim/window"
	"ilipanel/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	cacheDir   string
	listen     string
	once       bool
	simulate   bool
	window     bool
	scale      int
	demo       bool
	dump       string
}

var errWindowClosed = errors.New("window closed")

func main() {
	appLog.Info("ilipanel starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	// CLI flags override the config file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.simulate || flags.window {
		conf.Panel.Simulate = true
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"ics_count", len(conf.ICS),
		"orientation", conf.Panel.Orientation,
		"simulate", conf.Panel.Simulate,
		"once", flags.once,
		"demo", flags.demo,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	var (
		dev    *ili9486.Dev
		sp     *sim.Panel
		closer io.Closer
	)
	if conf.Panel.Simulate {
		dev, sp, closer, err = openSim(conf.Panel)
	} else {
		dev, closer, err = openHardware(conf.Panel)
	}
	if err != nil {
		appLog.Error("failed to open panel", err, "simulate", conf.Panel.Simulate)
		os.Exit(1)
	}
	panel := web.NewPanel(dev, sp)

	code := 0
	if flags.window {
		// The window toolkit owns the main goroutine.
		done := make(chan error, 1)
		go func() { done <- run(ctx, flags, conf, panel) }()
		var (
			runErr  error
			runDone bool
		)
		err = window.Run("ilipanel", sp, flags.scale, func() error {
			select {
			case runErr = <-done:
				runDone = true
				return errWindowClosed
			case <-ctx.Done():
				return errWindowClosed
			default:
				return nil
			}
		})
		cancel()
		if !runDone {
			// Without cgo Run fails at once; let run see the cancel before halting.
			runErr = <-done
		}
		if runErr == nil && err != nil && !errors.Is(err, errWindowClosed) {
			runErr = err
		}
		if runErr != nil {
			appLog.Error("ilipanel failed", runErr)
			code = 1
		}
	} else if err := run(ctx, flags, conf, panel); err != nil {
		appLog.Error("ilipanel failed", err)
		code = 1
	}

	if flags.dump != "" {
		if err := dumpPreview(panel, flags.dump); err != nil {
			appLog.Error("preview dump failed", err, "path", flags.dump)
			code = 1
		}
	}
	if err := panel.Do(func(d *ili9486.Dev) error { return d.Halt() }); err != nil {
		appLog.Warn("panel halt failed", "err", err)
	}
	if err := closer.Close(); err != nil {
		appLog.Warn("spi close failed", "err", err)
	}
	appLog.Info("ilipanel exiting")
	os.Exit(code)
}

// run drives the panel until ctx is cancelled, or once with -once.
func run(ctx context.Context, flags flagConfig, conf *config.Config, panel *web.Panel) error {
	var job *agendaJob
	if !flags.demo {
		job = newAgendaJob(conf, flags.cacheDir, panel)
	}

	if flags.once {
		if flags.demo {
			return panel.Do(drawDemo)
		}
		return job.Run(ctx)
	}

	var refresh web.RefreshFunc
	if job != nil {
		refresh = job.Run
		if err := job.Run(ctx); err != nil {
			appLog.Error("initial agenda render failed", err)
		}
	} else if err := panel.Do(drawDemo); err != nil {
		return err
	}

	sched, err := newScheduler(ctx, conf, resolveLocationOrLocal(conf.Timezone), panel, job)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	srv := web.NewServer(conf, panel, refresh)
	errCh := make(chan error, 2)
	go func() { errCh <- srv.ListenAndServe(ctx) }()
	if flags.demo {
		go func() { errCh <- breathe(ctx, panel) }()
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

func dumpPreview(panel *web.Panel, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := panel.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/ilipanel/config.yaml", "Path to config file")
	flag.StringVar(&cfg.cacheDir, "cache", "/var/cache/ilipanel", "Directory for cached ICS feeds")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Draw one frame (agenda or demo) and exit")
	flag.BoolVar(&cfg.simulate, "sim", false, "Use the simulated panel instead of hardware")
	flag.BoolVar(&cfg.window, "window", false, "Show the simulated panel in a window (implies -sim)")
	flag.IntVar(&cfg.scale, "scale", 2, "Window scale factor")
	flag.BoolVar(&cfg.demo, "demo", false, "Draw the test card and sweep the backlight instead of the agenda")
	flag.StringVar(&cfg.dump, "dump", "", "Write the simulated panel to this PNG on exit")

	flag.Parse()

	return cfg
}
