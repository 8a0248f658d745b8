// Package config loads dope's TOML configuration.
//
// A file only needs the keys it changes:
//
//	period = "10ms"
//
//	[redraw]
//	capacity = 5000
//	overflow = "drop-oldest"
//	min_pixels = 1000
//
//	[realtime]
//	slots = 4
//
//	[log]
//	level = "debug"
//	format = "tint"
package config

import (
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"9fans.net/dope/internal/logging"
	"9fans.net/dope/redraw"
	"9fans.net/dope/server"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete configuration file.
type Config struct {
	// Period is the length of one server period.
	Period   time.Duration `toml:"period"`
	Redraw   Redraw        `toml:"redraw"`
	Realtime Realtime      `toml:"realtime"`
	Log      Log           `toml:"log"`
}

// Redraw configures the redraw scheduler. See redraw.Config.
type Redraw struct {
	Capacity          int           `toml:"capacity"`
	Overflow          string        `toml:"overflow"`
	MinPixels         int           `toml:"min_pixels"`
	Throughput        float64       `toml:"throughput"`
	ThroughputFloor   float64       `toml:"throughput_floor"`
	Adaptive          bool          `toml:"adaptive"`
	SignificantPixels int           `toml:"significant_pixels"`
	MinSample         time.Duration `toml:"min_sample"`
	Weight            float64       `toml:"weight"`
}

// Realtime configures the real-time slot table.
type Realtime struct {
	Slots int `toml:"slots"`
}

// Log configures logging.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	s := server.DefaultConfig()
	r := s.Redraw
	return Config{
		Period: s.Period,
		Redraw: Redraw{
			Capacity:          r.Capacity,
			Overflow:          r.Overflow.String(),
			MinPixels:         r.MinPixels,
			Throughput:        r.Throughput,
			ThroughputFloor:   r.ThroughputFloor,
			Adaptive:          r.Adaptive,
			SignificantPixels: r.SignificantPixels,
			MinSample:         r.MinSample,
			Weight:            r.Weight,
		},
		Realtime: Realtime{Slots: s.Slots},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Load reads the file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "parsing %s", path)
	}
	if err := undecoded(md); err != nil {
		return Config{}, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, cfg.Validate()
}

// Parse reads TOML text over the defaults.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}
	if err := undecoded(md); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func undecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	var names []string
	for _, k := range keys {
		names = append(names, k.String())
	}
	sort.Strings(names)
	return errors.Wrapf(ErrInvalid, "unknown keys: %s", strings.Join(names, ", "))
}

// Validate checks every setting.
func (c Config) Validate() error {
	if _, err := c.Server(); err != nil {
		return err
	}
	if !logging.ValidFormat(c.Log.Format) {
		return errors.Wrapf(ErrInvalid, "log format %q", c.Log.Format)
	}
	if _, ok := logging.LookupLevel(c.Log.Level); !ok {
		return errors.Wrapf(ErrInvalid, "log level %q", c.Log.Level)
	}
	return nil
}

// Server returns the settings for server.New.
func (c Config) Server() (server.Config, error) {
	if c.Period <= 0 {
		return server.Config{}, errors.Wrapf(ErrInvalid, "period %v must be positive", c.Period)
	}
	if c.Realtime.Slots < 1 {
		return server.Config{}, errors.Wrapf(ErrInvalid, "realtime slots %d < 1", c.Realtime.Slots)
	}
	ovf, err := redraw.ParseOverflow(c.Redraw.Overflow)
	if err != nil {
		return server.Config{}, errors.Wrap(ErrInvalid, err.Error())
	}
	r := redraw.Config{
		Capacity:          c.Redraw.Capacity,
		Overflow:          ovf,
		MinPixels:         c.Redraw.MinPixels,
		Throughput:        c.Redraw.Throughput,
		ThroughputFloor:   c.Redraw.ThroughputFloor,
		Adaptive:          c.Redraw.Adaptive,
		SignificantPixels: c.Redraw.SignificantPixels,
		MinSample:         c.Redraw.MinSample,
		Weight:            c.Redraw.Weight,
	}
	if err := r.Validate(); err != nil {
		return server.Config{}, errors.Wrap(ErrInvalid, err.Error())
	}
	return server.Config{Period: c.Period, Redraw: r, Slots: c.Realtime.Slots}, nil
}

// Logger builds the configured logger writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	lvl, _ := logging.LookupLevel(c.Log.Level)
	return logging.New(lvl, c.Log.Format, w)
}

// Write encodes c as TOML.
func (c Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
