// Package config loads the JSON configuration file (or literal JSON
// string) describing the web control-plane binding and the initial rule
// set, grounded on the teacher's internal/infrastructure/config/config.go
// (viper, mapstructure tags, a package-level Load) but trimmed to this
// domain's two top-level keys, JSON instead of YAML, and instance-based
// rather than a package-level singleton so the CLI can reload it without
// global state.
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"portrelay/internal/rule"
	"portrelay/internal/shared/errors"
)

// decodeHook composes rule.EndpointDecodeHook with viper's own default
// hooks (duration strings, comma-split slices) since viper.DecodeHook
// replaces rather than extends the decoder's hook list.
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		rule.EndpointDecodeHook(),
	))
}

// WebConfig is the optional control-plane bind configuration. Port may be
// a JSON number, a numeric string, or the literal "*" for an ephemeral
// port, hence the interface{} — spec.md §6 allows `"port": <u16> | "*"`.
// Address is mutually exclusive with Port and wins if both are set.
type WebConfig struct {
	Port    interface{} `mapstructure:"port"`
	Address string      `mapstructure:"address"`
}

// LoggerConfig controls the ambient logging stack (not in spec.md's wire
// schema — an addition this repo's ambient stack needs regardless).
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the top-level JSON document spec.md §6 describes, plus the
// logger block every teacher-style config carries.
type Config struct {
	Web    *WebConfig   `mapstructure:"web"`
	Rules  []rule.Rule  `mapstructure:"rules"`
	Logger LoggerConfig `mapstructure:"logger"`
}

// Load reads configuration from configString if non-empty (it wins when
// both are given, per spec.md §6), otherwise from the file at
// configFile. Returns the parsed Config and the *viper.Viper instance used
// to load it, so the caller can register a change watcher for hot reload.
func Load(configFile, configString string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("json")

	var readErr error
	if strings.TrimSpace(configString) != "" {
		readErr = v.ReadConfig(strings.NewReader(configString))
	} else {
		v.SetConfigFile(configFile)
		readErr = v.ReadInConfig()
	}
	if readErr != nil {
		return nil, nil, errors.NewConfigError("failed to read configuration", readErr.Error())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, nil, errors.NewConfigError("failed to parse configuration", err.Error())
	}

	for i := range cfg.Rules {
		cfg.Rules[i].Normalize()
		if err := cfg.Rules[i].Validate(); err != nil {
			return nil, nil, errors.NewConfigError(
				fmt.Sprintf("invalid rule at index %d", i), err.Error())
		}
	}

	return &cfg, v, nil
}

// ResolveWebAddress turns the Web block into a bind address, defaulting to
// 127.0.0.1 with a fixed port when cfg.Web is nil, per spec.md §4.6. It
// returns a non-empty warning when both Address and Port are set, in which
// case Address wins (SPEC_FULL.md §6).
func ResolveWebAddress(web *WebConfig) (addr string, ephemeral bool, warning string) {
	const defaultPort = "2357"

	if web == nil {
		return "127.0.0.1:" + defaultPort, false, ""
	}

	if web.Address != "" {
		if web.Port != nil {
			warning = "both web.address and web.port set; web.address takes precedence"
		}
		return web.Address, false, warning
	}

	switch port := web.Port.(type) {
	case string:
		if port == "*" {
			return "127.0.0.1:0", true, ""
		}
		return "127.0.0.1:" + port, false, ""
	case float64:
		return fmt.Sprintf("127.0.0.1:%d", int(port)), false, ""
	default:
		return "127.0.0.1:" + defaultPort, false, ""
	}
}
