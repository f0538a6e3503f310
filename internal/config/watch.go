package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch calls onChange with the re-read configuration whenever config.yaml
// is written. Invalid files are logged and skipped.
func (s *Store) Watch(logger zerolog.Logger, onChange func(*Config)) {
	logger = logger.With().Str("component", "config-watch").Logger()
	s.v.OnConfigChange(func(e fsnotify.Event) {
		s.handleChange(e, logger, onChange)
	})
	s.v.WatchConfig()
	logger.Info().Str("dir", s.dir).Msg("Watching config file")
}

func (s *Store) handleChange(e fsnotify.Event, logger zerolog.Logger, onChange func(*Config)) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}

	cfg := DefaultConfig()
	if err := s.v.Unmarshal(cfg); err != nil {
		logger.Warn().Err(err).Str("file", e.Name).Msg("Ignoring unreadable config change")
		return
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn().Err(err).Str("file", e.Name).Msg("Ignoring invalid config change")
		return
	}

	logger.Info().Str("file", e.Name).Msg("Config reloaded")
	onChange(cfg)
}
