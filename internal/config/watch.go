package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"portrelay/internal/session"
)

// WatchForNewRules is the supplemented hot-reload feature (SPEC_FULL.md §5):
// it watches the config file for changes via viper's fsnotify integration
// and spawns sessions for any rules appended to the "rules" array since the
// last load. It does not touch existing rules — only-additive reload keeps
// this from colliding with spec.md's "update does not restart a session"
// contract. A nil v makes this a no-op. Load returns a viper instance for
// --config-string too, so the caller skips this call in that case, since
// there is no file to watch.
func WatchForNewRules(v *viper.Viper, manager *session.Manager, logger *slog.Logger) {
	if v == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	known := len(manager.Store().List())

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
			logger.Warn("config reload failed, ignoring", "error", err)
			return
		}

		if len(cfg.Rules) <= known {
			return
		}

		for _, r := range cfg.Rules[known:] {
			r.Normalize()
			if err := r.Validate(); err != nil {
				logger.Warn("skipping invalid rule from reloaded config", "error", err)
				continue
			}
			id, err := manager.AddRule(r)
			if err != nil {
				logger.Warn("failed to add rule from reloaded config", "error", err)
				continue
			}
			logger.Info("added rule from config reload", "rule_id", uint64(id))
		}
		known = len(cfg.Rules)
	})
	v.WatchConfig()
}
