package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the given file, layering it over defaults.
// An empty path loads pure defaults. Environment variables prefixed
// REPO_ANALYZER_ override file values (REPO_ANALYZER_LOGGING_LEVEL=debug).
func Load(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("REPO_ANALYZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.console", def.Logging.Console)
	v.SetDefault("logging.pretty", def.Logging.Pretty)

	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.listen", def.Metrics.Listen)

	v.SetDefault("rate_limit.min_interval", def.RateLimit.MinInterval)
	v.SetDefault("rate_limit.refresh_interval", def.RateLimit.RefreshInterval)

	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.path", def.History.Path)

	v.SetDefault("health.schedule", def.Health.Schedule)

	v.SetDefault("calls.timeout", def.Calls.Timeout)
	v.SetDefault("calls.strategy", def.Calls.Strategy)
}
