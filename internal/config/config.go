// Package config provides configuration management for mirrorcore
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Face      FaceConfig      `mapstructure:"face" yaml:"face"`
	Blink     BlinkConfig     `mapstructure:"blink" yaml:"blink"`
	Tracker   TrackerConfig   `mapstructure:"tracker" yaml:"tracker"`
	Command   CommandConfig   `mapstructure:"command" yaml:"command"`
	InputHook InputHookConfig `mapstructure:"input_hook" yaml:"input_hook"`
	Frame     FrameConfig     `mapstructure:"frame" yaml:"frame"`
	Model     ModelConfig     `mapstructure:"model" yaml:"model"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// FaceConfig holds the face settings also reachable through commands
type FaceConfig struct {
	ControlMode             string `mapstructure:"control_mode" yaml:"control_mode"` // Auto, WebCam, ExternalTracker
	PreferAutoBlinkOnWebcam bool   `mapstructure:"prefer_auto_blink_on_webcam" yaml:"prefer_auto_blink_on_webcam"`
	NeutralClip             string `mapstructure:"neutral_clip" yaml:"neutral_clip"`
	OffsetClip              string `mapstructure:"offset_clip" yaml:"offset_clip"`
	DefaultFun              int    `mapstructure:"default_fun" yaml:"default_fun"`                         // 0-100
	EyeBoneRotationScale    int    `mapstructure:"eye_bone_rotation_scale" yaml:"eye_bone_rotation_scale"` // percent
}

// BlinkConfig tunes the procedural auto blink
type BlinkConfig struct {
	MinGap   time.Duration `mapstructure:"min_gap" yaml:"min_gap"`
	MaxGap   time.Duration `mapstructure:"max_gap" yaml:"max_gap"`
	Duration time.Duration `mapstructure:"duration" yaml:"duration"`
}

// TrackerConfig configures the tracker websocket feed
type TrackerConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	URL             string        `mapstructure:"url" yaml:"url"`
	TrackingTimeout time.Duration `mapstructure:"tracking_timeout" yaml:"tracking_timeout"`
}

// CommandConfig configures the command websocket server
type CommandConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// InputHookConfig configures the global input hook
type InputHookConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Devices []string `mapstructure:"devices" yaml:"devices"` // glob patterns
}

// FrameConfig configures the frame loop
type FrameConfig struct {
	Rate         int           `mapstructure:"rate" yaml:"rate"` // frames per second
	OverrideFade time.Duration `mapstructure:"override_fade" yaml:"override_fade"`
}

// ModelConfig names the avatar loaded at startup
type ModelConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig configures logging
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Face: FaceConfig{
			ControlMode:             "Auto",
			PreferAutoBlinkOnWebcam: true,
			DefaultFun:              0,
			EyeBoneRotationScale:    100,
		},
		Blink: BlinkConfig{
			MinGap:   2 * time.Second,
			MaxGap:   5 * time.Second,
			Duration: 150 * time.Millisecond,
		},
		Tracker: TrackerConfig{
			Enabled:         true,
			URL:             "ws://localhost:39540/tracker",
			TrackingTimeout: 500 * time.Millisecond,
		},
		Command: CommandConfig{
			ListenAddr: "127.0.0.1:39541",
		},
		InputHook: InputHookConfig{
			Enabled: true,
			Devices: []string{"/dev/input/by-id/*-event-mouse"},
		},
		Frame: FrameConfig{
			Rate:         60,
			OverrideFade: 200 * time.Millisecond,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Validate rejects settings the frame loop cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Frame.Rate <= 0 || c.Frame.Rate > 240 {
		errs = append(errs, fmt.Errorf("frame.rate must be in 1..240, got %d", c.Frame.Rate))
	}
	if c.Blink.MinGap <= 0 || c.Blink.MaxGap < c.Blink.MinGap {
		errs = append(errs, fmt.Errorf("blink gaps invalid: min=%s max=%s", c.Blink.MinGap, c.Blink.MaxGap))
	}
	if c.Tracker.Enabled && c.Tracker.URL == "" {
		errs = append(errs, errors.New("tracker.url is required when the tracker is enabled"))
	}
	return errors.Join(errs...)
}

// Store binds a Config to a config.yaml in one directory
type Store struct {
	v   *viper.Viper
	dir string
}

// NewStore prepares a store rooted at dir
func NewStore(dir string) *Store {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	// Environment variable overrides, e.g. MIRRORCORE_FACE_CONTROL_MODE
	v.SetEnvPrefix("MIRRORCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Store{v: v, dir: dir}
}

// Dir returns the directory holding config.yaml
func (s *Store) Dir() string {
	return s.dir
}

// Load reads config.yaml, creating it with defaults when missing
func (s *Store) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return cfg, err
	}

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := s.Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := s.v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Save writes the configuration to config.yaml. Values go through a
// separate viper instance so the store keeps reading from the file.
func (s *Store) Save(cfg *Config) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	w := viper.New()
	w.Set("face", cfg.Face)
	w.Set("blink", cfg.Blink)
	w.Set("tracker", cfg.Tracker)
	w.Set("command", cfg.Command)
	w.Set("input_hook", cfg.InputHook)
	w.Set("frame", cfg.Frame)
	w.Set("model", cfg.Model)
	w.Set("log", cfg.Log)

	configPath := filepath.Join(s.dir, "config.yaml")
	if err := w.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	s.v.SetConfigFile(configPath)
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	return nil
}

// Load reads configuration from the default directory and environment
func Load() (*Config, *Store, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return DefaultConfig(), nil, err
	}
	store := NewStore(dir)
	cfg, err := store.Load()
	return cfg, store, err
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".mirrorcore"), nil
}
