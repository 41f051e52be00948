package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gaze-pointer/monitor/internal/gaze"
	"github.com/gaze-pointer/monitor/internal/voice"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Loop        LoopConfig      `yaml:"loop"`
	Screen      gaze.Resolution `yaml:"screen"`
	Calibration gaze.Layout     `yaml:"calibration"`
	Sensors     SensorsConfig   `yaml:"sensors"`
	Pointer     PointerConfig   `yaml:"pointer"`
	Voice       VoiceConfig     `yaml:"voice"`
	Broadcast   BroadcastConfig `yaml:"broadcast"`
	Mock        MockConfig      `yaml:"mock"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoopConfig struct {
	FrameRate int  `yaml:"frame_rate"`
	LinkQueue int  `yaml:"link_queue"`
	Verbose   bool `yaml:"verbose"`
}

type SensorsConfig struct {
	// WorldMarker is the substring that picks the scene camera among a
	// host's video sensors.
	WorldMarker  string `yaml:"world_marker"`
	DegradeAfter int    `yaml:"degrade_after"`
}

type PointerConfig struct {
	Driver          string  `yaml:"driver"`
	Smoothing       bool    `yaml:"smoothing"`
	SmoothFrequency float64 `yaml:"smooth_frequency"`
	SmoothDamping   float64 `yaml:"smooth_damping"`
}

type VoiceConfig struct {
	Enabled bool `yaml:"enabled"`
	// Source is "stdin" or the path of a file or FIFO the recogniser
	// writes transcripts to.
	Source    string            `yaml:"source"`
	QueueSize int               `yaml:"queue_size"`
	Words     map[string]string `yaml:"words"`
}

type BroadcastConfig struct {
	Throttle         time.Duration `yaml:"throttle"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	MaxClients       int           `yaml:"max_clients"`
}

// MockConfig drives the simulated sensor network used by --mock.
type MockConfig struct {
	Interval time.Duration `yaml:"interval"`
	Seed     int64         `yaml:"seed"`
}

var pointerDrivers = []string{"log", "xdotool"}

func defaultConfig() *Config {
	words := make(map[string]string, len(voice.DefaultWords))
	for w, a := range voice.DefaultWords {
		words[w] = a
	}
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Loop: LoopConfig{
			FrameRate: 60,
			LinkQueue: 8,
		},
		Screen:      gaze.DefaultResolution,
		Calibration: gaze.DefaultLayout,
		Sensors: SensorsConfig{
			WorldMarker:  "world",
			DegradeAfter: 3,
		},
		Pointer: PointerConfig{
			Driver:          "log",
			SmoothFrequency: 8,
			SmoothDamping:   1,
		},
		Voice: VoiceConfig{
			Source:    "stdin",
			QueueSize: voice.DefaultQueueSize,
			Words:     words,
		},
		Broadcast: BroadcastConfig{
			Throttle:         100 * time.Millisecond,
			SnapshotInterval: 5 * time.Second,
			MaxClients:       32,
		},
		Mock: MockConfig{
			Interval: time.Second / 60,
			Seed:     1,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to the defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// Validate checks the values the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Loop.FrameRate <= 0 || c.Loop.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("loop.frame_rate %d must be between 1 and 240", c.Loop.FrameRate))
	}
	if err := c.Screen.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("screen: %w", err))
	}
	if err := c.Calibration.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("calibration: %w", err))
	}
	if c.Sensors.DegradeAfter <= 0 {
		errs = append(errs, fmt.Errorf("sensors.degrade_after %d must be positive", c.Sensors.DegradeAfter))
	}
	if !slices.Contains(pointerDrivers, c.Pointer.Driver) {
		errs = append(errs, fmt.Errorf("pointer.driver %q is not one of %v", c.Pointer.Driver, pointerDrivers))
	}
	if c.Pointer.Smoothing && c.Pointer.SmoothFrequency <= 0 {
		errs = append(errs, fmt.Errorf("pointer.smooth_frequency %g must be positive", c.Pointer.SmoothFrequency))
	}
	if c.Voice.Enabled {
		if c.Voice.Source == "" {
			errs = append(errs, errors.New("voice.source is empty"))
		}
		if _, err := voice.NewTable(c.Voice.Words); err != nil {
			errs = append(errs, fmt.Errorf("voice.words: %w", err))
		}
	}
	if c.Broadcast.Throttle <= 0 {
		errs = append(errs, fmt.Errorf("broadcast.throttle %s must be positive", c.Broadcast.Throttle))
	}
	if c.Broadcast.SnapshotInterval <= 0 {
		errs = append(errs, fmt.Errorf("broadcast.snapshot_interval %s must be positive", c.Broadcast.SnapshotInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// GenerateToken returns a random 128-bit token, hex encoded.
func GenerateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Diff lists the settings that differ between old and new, one line per
// setting, named by their yaml path.
func Diff(old, new *Config) []string {
	var changes []string
	diffValue("", reflect.ValueOf(*old), reflect.ValueOf(*new), &changes)
	return changes
}

func diffValue(path string, a, b reflect.Value, changes *[]string) {
	switch a.Kind() {
	case reflect.Struct:
		t := a.Type()
		for i := range t.NumField() {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				continue
			}
			if path != "" {
				name = path + "." + name
			}
			diffValue(name, a.Field(i), b.Field(i), changes)
		}
	case reflect.Map:
		diffMap(path, a, b, changes)
	default:
		if !reflect.DeepEqual(a.Interface(), b.Interface()) {
			*changes = append(*changes, fmt.Sprintf("%s: %s → %s", path, format(a), format(b)))
		}
	}
}

func diffMap(path string, a, b reflect.Value, changes *[]string) {
	keys := func(m reflect.Value) []string {
		var out []string
		for _, k := range m.MapKeys() {
			out = append(out, k.String())
		}
		sort.Strings(out)
		return out
	}
	for _, k := range keys(b) {
		nv := b.MapIndex(reflect.ValueOf(k))
		ov := a.MapIndex(reflect.ValueOf(k))
		switch {
		case !ov.IsValid():
			*changes = append(*changes, fmt.Sprintf("%s: added %s=%v", path, k, nv))
		case !reflect.DeepEqual(ov.Interface(), nv.Interface()):
			*changes = append(*changes, fmt.Sprintf("%s.%s: %v → %v", path, k, ov, nv))
		}
	}
	for _, k := range keys(a) {
		if !b.MapIndex(reflect.ValueOf(k)).IsValid() {
			*changes = append(*changes, fmt.Sprintf("%s: removed %s", path, k))
		}
	}
}

func format(v reflect.Value) string {
	if v.Kind() == reflect.Slice && v.Len() == 0 {
		return "[]"
	}
	return fmt.Sprint(v.Interface())
}
