// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the gateway configuration.
//
// # Description
//
// Configuration is read from an optional meridian.yaml plus the
// environment (MERIDIAN_ prefix, dots become underscores). Every key
// has a shipped default, so a bare environment still yields a runnable
// gateway.
//
// # Assumptions
//
// Provider API keys arrive through the environment in production;
// the yaml file is for local development.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig is the HTTP transport block.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Cors struct {
		Origin string `mapstructure:"origin"`
	} `mapstructure:"cors"`
}

// RoutingConfig tunes strategy selection.
type RoutingConfig struct {
	DefaultStrategy      string  `mapstructure:"defaultStrategy"`
	CascadeMinQuality    float64 `mapstructure:"cascadeMinQuality"`
	ComplexityThresholds struct {
		Medium  float64 `mapstructure:"medium"`
		Complex float64 `mapstructure:"complex"`
	} `mapstructure:"complexityThresholds"`
}

// PeriodLimit is one budget ceiling.
type PeriodLimit struct {
	Limit float64 `mapstructure:"limit"`
}

// BudgetConfig holds the spending ceilings and the emergency latch
// threshold.
type BudgetConfig struct {
	Daily              PeriodLimit `mapstructure:"daily"`
	Weekly             PeriodLimit `mapstructure:"weekly"`
	Monthly            PeriodLimit `mapstructure:"monthly"`
	EmergencyThreshold float64     `mapstructure:"emergencyThreshold"`
}

// CacheConfig selects and tunes the semantic cache. TTLMs and
// RealtimeTTLMs feed the classifier's TTL suggestions for stored
// entries.
type CacheConfig struct {
	Adapter             string  `mapstructure:"adapter"` // "memory" or "redis"
	SimilarityThreshold float64 `mapstructure:"similarityThreshold"`
	MaxEntries          int     `mapstructure:"maxEntries"`
	TTLMs               int64   `mapstructure:"ttlMs"`
	RealtimeTTLMs       int64   `mapstructure:"realtimeTtlMs"`
	Redis               struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
}

// ProviderConfig enables one provider adapter. Model lists come from
// the cost book, not from configuration.
type ProviderConfig struct {
	APIKey string `mapstructure:"apiKey"`
}

// Config is the full gateway configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Routing   RoutingConfig             `mapstructure:"routing"`
	Budget    BudgetConfig              `mapstructure:"budget"`
	Cache     CacheConfig               `mapstructure:"cache"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Log       struct {
		Level string `mapstructure:"level"` // debug, info, warn, error
		Dir   string `mapstructure:"dir"`
	} `mapstructure:"log"`
	Otel struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"otel"`
	WS struct {
		AuthToken string `mapstructure:"authToken"`
	} `mapstructure:"ws"`
}

// setDefaults registers every recognized key; AutomaticEnv only binds
// keys viper already knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.cors.origin", "")

	v.SetDefault("routing.defaultStrategy", "cascade")
	v.SetDefault("routing.cascadeMinQuality", 7.0)
	v.SetDefault("routing.complexityThresholds.medium", 0.30)
	v.SetDefault("routing.complexityThresholds.complex", 0.70)

	v.SetDefault("budget.daily.limit", 10.0)
	v.SetDefault("budget.weekly.limit", 50.0)
	v.SetDefault("budget.monthly.limit", 150.0)
	v.SetDefault("budget.emergencyThreshold", 95.0)

	v.SetDefault("cache.adapter", "memory")
	v.SetDefault("cache.similarityThreshold", 0.82)
	v.SetDefault("cache.maxEntries", 1000)
	v.SetDefault("cache.ttlMs", int64(3600000))
	v.SetDefault("cache.realtimeTtlMs", int64(300000))
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("providers.openai.apiKey", "")
	v.SetDefault("providers.anthropic.apiKey", "")
	v.SetDefault("providers.perplexity.apiKey", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("ws.authToken", "")
}

// Load reads configuration from the given directory (empty means the
// working directory) and the environment.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("meridian")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.SetEnvPrefix("MERIDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.validate()
}

// validate rejects configurations the engine cannot honor.
func (c Config) validate() error {
	switch c.Routing.DefaultStrategy {
	case "priority", "cost-optimized", "cascade", "emergency":
	default:
		return fmt.Errorf("routing.defaultStrategy %q is not a strategy", c.Routing.DefaultStrategy)
	}
	if c.Routing.CascadeMinQuality < 0 || c.Routing.CascadeMinQuality > 10 {
		return fmt.Errorf("routing.cascadeMinQuality %v out of [0,10]", c.Routing.CascadeMinQuality)
	}
	if c.Budget.EmergencyThreshold < 0 || c.Budget.EmergencyThreshold > 100 {
		return fmt.Errorf("budget.emergencyThreshold %v out of [0,100]", c.Budget.EmergencyThreshold)
	}
	if c.Cache.Adapter != "memory" && c.Cache.Adapter != "redis" {
		return fmt.Errorf("cache.adapter %q is not supported", c.Cache.Adapter)
	}
	if c.Cache.Adapter == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.adapter is redis but cache.redis.addr is empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not a level", c.Log.Level)
	}
	return nil
}
