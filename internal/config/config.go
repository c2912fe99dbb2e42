package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig is one calendar feed drawn on the agenda screen.
type ICSConfig struct {
	ID   string `yaml:"id" json:"id"`     // cache key and log label
	Name string `yaml:"name" json:"name"` // shown next to entries
	URL  string `yaml:"url" json:"url"`
}

// BasicAuthConfig guards the control API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PinsConfig names the GPIO lines wired to the panel, as accepted by
// gpioreg.ByName. An empty CS means the SPI port drives chip select; an
// empty RST or BL means the line is not connected.
type PinsConfig struct {
	CS  string `yaml:"cs" json:"cs"`
	DC  string `yaml:"dc" json:"dc"`
	RST string `yaml:"rst" json:"rst"`
	BL  string `yaml:"bl" json:"bl"`
}

// PanelConfig describes the display and how it is attached.
type PanelConfig struct {
	// SPI is the port name passed to spireg.Open ("" selects the first port).
	SPI string `yaml:"spi" json:"spi"`
	// SPIHz caps the bus clock. Zero keeps the driver's 20MHz.
	SPIHz int64 `yaml:"spi_hz" json:"spi_hz"`

	Pins PinsConfig `yaml:"pins" json:"pins"`

	// Orientation is one of L2R_U2D, L2R_D2U, R2L_U2D, R2L_D2U, U2D_L2R,
	// U2D_R2L, D2U_L2R, D2U_R2L.
	Orientation string `yaml:"orientation" json:"orientation"`

	// DefaultBacklight is the level restored after startup and by the
	// schedule's "restore" entries.
	DefaultBacklight *int `yaml:"default_backlight,omitempty" json:"default_backlight,omitempty"`

	// Background is an RGB565 value ("0x0000") or "#rrggbb".
	Background string `yaml:"background" json:"background"`

	// WideBus sends register parameters as 16-bit words, as the Waveshare
	// shield's shift registers require. Set false for a native 8-bit bus.
	WideBus bool `yaml:"wide_bus" json:"wide_bus"`

	// Simulate replaces the hardware with the software panel.
	Simulate bool `yaml:"simulate" json:"simulate"`
}

// BacklightEntry sets the backlight to Level whenever Cron fires.
type BacklightEntry struct {
	Cron  string `yaml:"cron" json:"cron"`
	Level int    `yaml:"level" json:"level"`
}

// Config is the daemon configuration file.
type Config struct {
	Panel PanelConfig `yaml:"panel" json:"panel"`

	// Listen is the control API address.
	Listen    string           `yaml:"listen" json:"listen"`
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// Agenda screen. RefreshCron uses the five-field cron syntax and is
	// evaluated in Timezone.
	Timezone    string      `yaml:"timezone" json:"timezone"`
	RefreshCron string      `yaml:"refresh" json:"refresh"`
	HorizonDays int         `yaml:"horizon_days" json:"horizon_days"`
	ICS         []ICSConfig `yaml:"ics" json:"ics"`

	BacklightSchedule []BacklightEntry `yaml:"backlight_schedule" json:"backlight_schedule"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

const (
	defaultListen    = "127.0.0.1:8080"
	defaultTimezone  = "Asia/Seoul"
	defaultRefresh   = "*/15 * * * *"
	defaultHorizon   = 7
	defaultSPI       = ""
	defaultBacklight = 255
)

// DefaultConfig returns an in-memory default configuration wired for the
// Waveshare 4inch shield on a Raspberry Pi header.
func DefaultConfig() *Config {
	bl := defaultBacklight
	return &Config{
		Panel: PanelConfig{
			SPI: defaultSPI,
			Pins: PinsConfig{
				CS:  "GPIO8",
				DC:  "GPIO25",
				RST: "GPIO27",
				BL:  "GPIO18",
			},
			Orientation:      "L2R_U2D",
			DefaultBacklight: &bl,
			Background:       "0x0000",
			WideBus:          true,
		},
		Listen:            defaultListen,
		Timezone:          defaultTimezone,
		RefreshCron:       defaultRefresh,
		HorizonDays:       defaultHorizon,
		ICS:               []ICSConfig{},
		BacklightSchedule: []BacklightEntry{},
		LogLevel:          "info",
	}
}

// Normalize replaces zero values with the defaults. An explicit
// default_backlight of 0 is kept.
func (c *Config) Normalize() {
	def := DefaultConfig()
	orString(&c.Listen, def.Listen)
	orString(&c.Timezone, def.Timezone)
	orString(&c.RefreshCron, def.RefreshCron)
	orString(&c.LogLevel, def.LogLevel)
	orString(&c.Panel.Orientation, def.Panel.Orientation)
	orString(&c.Panel.Background, def.Panel.Background)
	orString(&c.Panel.Pins.DC, def.Panel.Pins.DC)
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.ICS == nil {
		c.ICS = def.ICS
	}
	if c.BacklightSchedule == nil {
		c.BacklightSchedule = def.BacklightSchedule
	}
	if c.Panel.DefaultBacklight == nil {
		c.Panel.DefaultBacklight = def.Panel.DefaultBacklight
	}
}

func orString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// Validate reports values Normalize cannot repair.
func (c *Config) Validate() error {
	if v := *c.Panel.DefaultBacklight; v < 0 || v > 255 {
		return fmt.Errorf("config: default_backlight %d outside 0..255", v)
	}
	for i, e := range c.BacklightSchedule {
		if e.Cron == "" {
			return fmt.Errorf("config: backlight_schedule[%d] has no cron", i)
		}
		if e.Level < 0 || e.Level > 255 {
			return fmt.Errorf("config: backlight_schedule[%d] level %d outside 0..255", i, e.Level)
		}
	}
	if c.Panel.SPIHz < 0 {
		return fmt.Errorf("config: negative spi_hz %d", c.Panel.SPIHz)
	}
	return nil
}

// Load reads the YAML file at path. A missing file is created with the
// defaults (mode 0600) and those defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: empty path")
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg := DefaultConfig()
		return cfg, Save(path, cfg)
	case err != nil:
		return nil, err
	}

	// Keys absent from the file keep their defaults.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save normalizes cfg and writes it to path through a temporary file in
// the same directory, so readers never see a partial file.
func Save(path string, cfg *Config) error {
	switch {
	case path == "":
		return errors.New("config: empty path")
	case cfg == nil:
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, out)
}

// Save writes c to path; see the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".ilipanel-config-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Chmod(0o600); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
