package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "Auto", cfg.Face.ControlMode)
	assert.True(t, cfg.Face.PreferAutoBlinkOnWebcam)
	assert.Equal(t, 100, cfg.Face.EyeBoneRotationScale)
	assert.Equal(t, 60, cfg.Frame.Rate)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frame.Rate = 0
	cfg.Blink.MaxGap = time.Second
	cfg.Tracker.URL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame.rate")
	assert.Contains(t, err.Error(), "blink gaps")
	assert.Contains(t, err.Error(), "tracker.url")
}

func TestStore_LoadCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
}

func TestStore_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	cfg := DefaultConfig()
	cfg.Face.ControlMode = "ExternalTracker"
	cfg.Face.NeutralClip = "Neutral"
	cfg.Face.DefaultFun = 25
	cfg.Blink.MinGap = 3 * time.Second
	cfg.Blink.MaxGap = 6 * time.Second
	cfg.InputHook.Devices = []string{"/dev/input/event3"}
	require.NoError(t, store.Save(cfg))

	loaded, err := NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestStore_HandleChange(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	_, err := store.Load()
	require.NoError(t, err)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("face:\n  control_mode: WebCam\n  default_fun: 40\n"), 0644))
	require.NoError(t, store.v.ReadInConfig())

	var got *Config
	store.handleChange(fsnotify.Event{Name: path, Op: fsnotify.Write}, zerolog.Nop(), func(c *Config) { got = c })
	require.NotNil(t, got)
	assert.Equal(t, "WebCam", got.Face.ControlMode)
	assert.Equal(t, 40, got.Face.DefaultFun)
	assert.Equal(t, 60, got.Frame.Rate)

	got = nil
	store.handleChange(fsnotify.Event{Name: path, Op: fsnotify.Chmod}, zerolog.Nop(), func(c *Config) { got = c })
	assert.Nil(t, got)
}

func TestStore_HandleChangeRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	_, err := store.Load()
	require.NoError(t, err)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frame:\n  rate: 0\n"), 0644))
	require.NoError(t, store.v.ReadInConfig())

	called := false
	store.handleChange(fsnotify.Event{Name: path, Op: fsnotify.Write}, zerolog.Nop(), func(*Config) { called = true })
	assert.False(t, called)
}
