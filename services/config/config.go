// Package config loads the robot daemon's settings: built-in defaults, an
// optional embedded device profile, an optional YAML file, then ROBOT_*
// environment variables, in that order.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"robotcode-go/drivers/hbridge"
	"robotcode-go/drivers/tof"
	"robotcode-go/errcode"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "ROBOT_"

// Platform names accepted in Config.Platform.
const (
	PlatformAuto   = "auto"
	PlatformSim    = "sim"
	PlatformPeriph = "periph"
)

type Motor struct {
	In1 int `yaml:"in1" env:"IN1"`
	In2 int `yaml:"in2" env:"IN2"`
	In3 int `yaml:"in3" env:"IN3"`
	In4 int `yaml:"in4" env:"IN4"`
}

// ToF describes the rangefinder wiring. Address is the 8-bit bus address.
type ToF struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	Bus          string        `yaml:"bus" env:"BUS"`
	XShut        int           `yaml:"xshut" env:"XSHUT"`
	SDA          int           `yaml:"sda" env:"SDA"`
	SCL          int           `yaml:"scl" env:"SCL"`
	Address      uint8         `yaml:"address" env:"ADDRESS"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
}

type Drive struct {
	Turn90      time.Duration `yaml:"turn_90" env:"TURN_90"`
	MaxDuration time.Duration `yaml:"max_duration" env:"MAX_DURATION"`
}

type HTTP struct {
	Listen string `yaml:"listen" env:"LISTEN"`
}

type Stream struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

type Log struct {
	Level       string `yaml:"level" env:"LEVEL"`
	Development bool   `yaml:"development" env:"DEVELOPMENT"`
}

// Config is the complete daemon configuration.
type Config struct {
	Platform string `yaml:"platform" env:"PLATFORM"`
	Console  bool   `yaml:"console" env:"CONSOLE"`

	Motor  Motor  `yaml:"motor" envPrefix:"MOTOR_"`
	ToF    ToF    `yaml:"tof" envPrefix:"TOF_"`
	Drive  Drive  `yaml:"drive" envPrefix:"DRIVE_"`
	HTTP   HTTP   `yaml:"http" envPrefix:"HTTP_"`
	Stream Stream `yaml:"stream" envPrefix:"STREAM_"`
	Log    Log    `yaml:"log" envPrefix:"LOG_"`
}

// Default returns the settings of the reference RP2 wiring.
func Default() Config {
	return Config{
		Platform: PlatformAuto,
		Motor: Motor{
			In1: hbridge.DefaultIN1, In2: hbridge.DefaultIN2,
			In3: hbridge.DefaultIN3, In4: hbridge.DefaultIN4,
		},
		ToF: ToF{
			Enabled:      true,
			Bus:          "i2c0",
			XShut:        tof.DefaultXShut,
			SDA:          tof.DefaultSDA,
			SCL:          tof.DefaultSCL,
			Address:      tof.DefaultAddress,
			PollInterval: time.Millisecond,
			ReadTimeout:  2 * time.Second,
		},
		Drive:  Drive{Turn90: 600 * time.Millisecond, MaxDuration: 10 * time.Second},
		HTTP:   HTTP{Listen: ":8000"},
		Stream: Stream{Interval: 100 * time.Millisecond},
		Log:    Log{Level: "info"},
	}
}

// Options selects the sources Load reads.
type Options struct {
	Profile string            // embedded profile name, "" for none
	Path    string            // YAML file, "" for none
	Environ map[string]string // nil means the process environment
}

// Load builds a Config from defaults and the sources in opts, then
// validates it.
func Load(opts Options) (Config, error) {
	cfg := Default()
	if opts.Profile != "" {
		raw, ok := EmbeddedProfile(opts.Profile)
		if !ok {
			return cfg, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: "unknown profile " + strconv.Quote(opts.Profile)}
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "profile %s", opts.Profile)
		}
	}
	if opts.Path != "" {
		raw, err := os.ReadFile(opts.Path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse %s", opts.Path)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: opts.Environ}); err != nil {
		return cfg, errors.Wrap(err, "environment")
	}
	return cfg, cfg.Validate()
}

// EmbeddedProfile returns the raw YAML overlay for a named device profile.
func EmbeddedProfile(name string) ([]byte, bool) {
	b, ok := embeddedProfiles[name]
	return b, ok
}

// Validate reports every problem found, combined into one error.
func (c Config) Validate() error {
	var err error
	bad := func(msg string) {
		err = multierr.Append(err, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: msg})
	}

	switch c.Platform {
	case PlatformAuto, PlatformSim, PlatformPeriph:
	default:
		bad("platform must be auto, sim or periph")
	}

	pins := []int{c.Motor.In1, c.Motor.In2, c.Motor.In3, c.Motor.In4}
	if c.ToF.Enabled {
		pins = append(pins, c.ToF.XShut)
	}
	seen := make(map[int]bool, len(pins))
	for _, p := range pins {
		if p < 0 {
			bad("negative pin " + strconv.Itoa(p))
		}
		if seen[p] {
			bad("pin " + strconv.Itoa(p) + " used twice")
		}
		seen[p] = true
	}

	if c.ToF.Enabled {
		if c.ToF.Bus == "" {
			bad("tof.bus is empty")
		}
		if c.ToF.Address == 0 || c.ToF.Address&1 != 0 {
			bad("tof.address must be a non-zero 8-bit write address")
		}
		if c.ToF.ReadTimeout <= 0 {
			bad("tof.read_timeout must be positive")
		}
		if c.ToF.PollInterval < 0 {
			bad("tof.poll_interval is negative")
		}
	}
	if c.Drive.Turn90 <= 0 {
		bad("drive.turn_90 must be positive")
	}
	if c.Drive.MaxDuration <= 0 {
		bad("drive.max_duration must be positive")
	}
	if c.HTTP.Listen == "" {
		bad("http.listen is empty")
	}
	if c.Stream.Interval < 0 {
		bad("stream.interval is negative")
	}
	if _, perr := zapcore.ParseLevel(c.Log.Level); perr != nil {
		bad("log.level: " + perr.Error())
	}
	return err
}
