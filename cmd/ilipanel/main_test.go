package main

import (
	"context"
	"testing"
	"time"

	"ilipanel/internal/config"
	"ilipanel/internal/ili9486"
	"ilipanel/internal/sim"
	"ilipanel/internal/web"
)

func simPanel(t *testing.T, edit func(*config.PanelConfig)) (*web.Panel, *sim.Panel) {
	t.Helper()
	pc := config.DefaultConfig().Panel
	if edit != nil {
		edit(&pc)
	}
	dev, sp, _, err := openSim(pc)
	if err != nil {
		t.Fatalf("openSim() error = %v", err)
	}
	return web.NewPanel(dev, sp), sp
}

func TestPanelOpts(t *testing.T) {
	pc := config.DefaultConfig().Panel
	pc.Orientation = "D2U_L2R"
	pc.Background = "#ffffff"
	zero := 0
	pc.DefaultBacklight = &zero

	opts, err := panelOpts(pc)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Orientation != ili9486.D2U_L2R || opts.Background != ili9486.White {
		t.Errorf("opts = %+v", opts)
	}
	if !opts.KeepBacklightOff {
		t.Error("default_backlight 0 should keep the backlight off")
	}

	pc.Orientation = "diagonal"
	if _, err := panelOpts(pc); err == nil {
		t.Error("panelOpts accepted a bad orientation")
	}
	pc.Orientation = "L2R_U2D"
	pc.Background = "teal"
	if _, err := panelOpts(pc); err == nil {
		t.Error("panelOpts accepted a bad background")
	}
}

func TestDrawDemo(t *testing.T) {
	panel, sp := simPanel(t, nil)
	if err := panel.Do(drawDemo); err != nil {
		t.Fatalf("drawDemo() error = %v", err)
	}

	tests := []struct {
		x, y int
		want ili9486.Color
	}{
		{80, 30, ili9486.Red},
		{200, 150, ili9486.Red},
		{200, 151, ili9486.Green},
		{200, 152, ili9486.Black},
		{70, 225, ili9486.Green},
		{300, 400, ili9486.Blue},
		{10, 300, ili9486.White},
	}
	for _, tt := range tests {
		if got := sp.Pixel(tt.x, tt.y); got != uint16(tt.want) {
			t.Errorf("pixel(%d,%d) = %#04x, want %s", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestAgendaJobRendersWithoutSources(t *testing.T) {
	panel, sp := simPanel(t, nil)
	cfg := config.DefaultConfig()
	job := newAgendaJob(cfg, t.TempDir(), panel)

	before := sp.Pixels()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sp.Pixels() == before {
		t.Error("agenda drew nothing")
	}
}

func TestScheduler(t *testing.T) {
	panel, _ := simPanel(t, nil)
	cfg := config.DefaultConfig()
	cfg.BacklightSchedule = []config.BacklightEntry{
		{Cron: "0 22 * * *", Level: 10},
		{Cron: "0 7 * * *", Level: 255},
	}
	job := newAgendaJob(cfg, t.TempDir(), panel)

	c, err := newScheduler(context.Background(), cfg, time.UTC, panel, job)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(c.Entries()); n != 3 {
		t.Errorf("entries = %d, want 3", n)
	}

	cfg.BacklightSchedule[0].Cron = "every evening"
	if _, err := newScheduler(context.Background(), cfg, time.UTC, panel, nil); err == nil {
		t.Error("newScheduler accepted a bad cron spec")
	}
}
