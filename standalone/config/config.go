package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang/geo/r2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"trikins/standalone/kinematics"
)

const (
	SupportedSchema = "v1"

	// EnvPrefix selects override variables, e.g. TRIKINS__ANCHORS__ANCHOR2__X
	EnvPrefix = "TRIKINS__"
)

// Point is an anchor position
type Point struct {
	X float64 `koanf:"x" yaml:"x"`
	Y float64 `koanf:"y" yaml:"y"`
}

// Anchors holds the three anchor positions
type Anchors struct {
	Anchor1 Point `koanf:"anchor1" yaml:"anchor1"`
	Anchor2 Point `koanf:"anchor2" yaml:"anchor2"`
	Anchor3 Point `koanf:"anchor3" yaml:"anchor3"`
}

type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
	JSON  bool   `koanf:"json" yaml:"json"`
}

type MetricsConfig struct {
	Port int `koanf:"port" yaml:"port"` // 0 disables the endpoint
}

type SerialConfig struct {
	Device      string        `koanf:"device" yaml:"device"`
	Baud        int           `koanf:"baud" yaml:"baud"`
	ReadTimeout time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
}

// Config is the complete module configuration
type Config struct {
	SchemaVersion string        `koanf:"schema_version" yaml:"schema_version"`
	Name          string        `koanf:"name" yaml:"name"`
	Anchors       Anchors       `koanf:"anchors" yaml:"anchors"`
	Home          []float64     `koanf:"home" yaml:"home"` // home joint positions
	Log           LogConfig     `koanf:"log" yaml:"log"`
	Metrics       MetricsConfig `koanf:"metrics" yaml:"metrics"`
	Serial        SerialConfig  `koanf:"serial" yaml:"serial"`
}

// LoadConfig merges YAML (if present) with environment overrides
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Home) > kinematics.NumJoints {
		return Config{}, fmt.Errorf("home has %d joints, at most %d allowed", len(cfg.Home), kinematics.NumJoints)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.Name == "" {
		cfg.Name = "trikins"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Serial.Device == "" {
		cfg.Serial.Device = "/dev/ttyACM0"
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 115200
	}
	if cfg.Serial.ReadTimeout == 0 {
		cfg.Serial.ReadTimeout = 100 * time.Millisecond
	}
}

// Default returns the configuration used when no file is given
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// HomeJoints returns the home joint positions, unset slots are 0
func (c Config) HomeJoints() kinematics.Joints {
	var j kinematics.Joints
	copy(j[:], c.Home)
	return j
}

// Apply stores the configured anchor positions into a live configuration
func (c Config) Apply(anchors *kinematics.AnchorConfig) {
	for i, p := range []Point{c.Anchors.Anchor1, c.Anchors.Anchor2, c.Anchors.Anchor3} {
		anchors.SetAnchor(i, r2.Point{X: p.X, Y: p.Y})
	}
}

// Dump renders the effective configuration as YAML
func Dump(cfg Config) ([]byte, error) {
	return yamlv3.Marshal(cfg)
}
