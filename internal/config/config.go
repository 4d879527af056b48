// Package config loads and validates orchestrator configuration: worker
// declarations, rate limits, analysis stages, logging, and metrics.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Workers   []WorkerConfig  `mapstructure:"workers"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Stages    []StageConfig   `mapstructure:"stages"`
	History   HistoryConfig   `mapstructure:"history"`
	Health    HealthConfig    `mapstructure:"health"`
	Calls     CallConfig      `mapstructure:"calls"`
}

// LoggingConfig mirrors the logger package configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
	Pretty  bool   `mapstructure:"pretty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// OperationConfig declares one remote operation a worker serves. Schema,
// when present, is a JSON Schema for the operation's argument map and is
// compiled and enforced at startup.
type OperationConfig struct {
	Name   string                 `mapstructure:"name"`
	Schema map[string]interface{} `mapstructure:"schema"`
}

// WorkerConfig declares one worker process.
type WorkerConfig struct {
	Name        string            `mapstructure:"name"`
	Command     string            `mapstructure:"command"`
	Args        []string          `mapstructure:"args"`
	Operations  []OperationConfig `mapstructure:"operations"`
	QuotaBound  bool              `mapstructure:"quota_bound"`
	MaxInFlight int               `mapstructure:"max_in_flight"`
}

// RateLimitConfig tunes the per-worker quota guard.
type RateLimitConfig struct {
	MinInterval     time.Duration `mapstructure:"min_interval"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// StageConfig declares one analysis stage and its weight.
type StageConfig struct {
	Name       string `mapstructure:"name"`
	Weight     int    `mapstructure:"weight"`
	TotalTools int    `mapstructure:"total_tools"`
}

// HistoryConfig controls the run-history archive.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HealthConfig schedules the periodic health sweep.
type HealthConfig struct {
	// Schedule is a cron expression, e.g. "@every 30s".
	Schedule string `mapstructure:"schedule"`
}

// CallConfig tunes invocation behavior.
type CallConfig struct {
	// Timeout is the default per-call deadline.
	Timeout time.Duration `mapstructure:"timeout"`

	// Strategy selects the session strategy: "persistent" (default) or
	// "ephemeral" for low-volume callers.
	Strategy string `mapstructure:"strategy"`
}

// Default returns the stock configuration: the four analyzer workers are
// declared by the deployment, so Workers starts empty.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9290",
		},
		RateLimit: RateLimitConfig{
			MinInterval:     100 * time.Millisecond,
			RefreshInterval: 30 * time.Second,
		},
		Stages: DefaultStages(),
		History: HistoryConfig{
			Enabled: true,
			Path:    "repo-analyzer-history.db",
		},
		Health: HealthConfig{
			Schedule: "@every 30s",
		},
		Calls: CallConfig{
			Timeout:  30 * time.Second,
			Strategy: "persistent",
		},
	}
}

// DefaultStages returns the stock analysis pipeline stages. Weights sum to
// 100; cleanup carries zero weight because it does no user-visible work.
func DefaultStages() []StageConfig {
	return []StageConfig{
		{Name: "initialization", Weight: 5},
		{Name: "structure_discovery", Weight: 25, TotalTools: 2},
		{Name: "content_analysis", Weight: 30, TotalTools: 4},
		{Name: "history_analysis", Weight: 15, TotalTools: 3},
		{Name: "code_metrics", Weight: 15, TotalTools: 4},
		{Name: "synthesis", Weight: 5},
		{Name: "report", Weight: 5},
		{Name: "cleanup", Weight: 0},
	}
}
