// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

// Package config loads collector configuration via Koanf v2 with layered
// sources (highest priority wins): environment variables, an optional YAML
// config file, built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the collector.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	ClickHouse ClickHouseConfig `koanf:"clickhouse"`
	Snowplow   SnowplowConfig   `koanf:"snowplow"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ClickHouseConfig holds connection, pool, retry and table settings.
type ClickHouseConfig struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	Database       string        `koanf:"database"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	Cluster        string        `koanf:"cluster"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// PoolSize is the number of pooled connections shared by all workers,
	// in addition to the default connection used as overflow fallback.
	PoolSize int `koanf:"pool_size"`

	// MaxRetries and RetryDelay drive the linear-backoff retry discipline:
	// attempt n sleeps RetryDelay * n before re-executing.
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`

	Tables map[string]TableGroupConfig `koanf:"tables"`
}

// TableGroupConfig describes the physical tables of one table group.
type TableGroupConfig struct {
	Enabled     bool        `koanf:"enabled"`
	Local       TableConfig `koanf:"local"`
	Distributed TableConfig `koanf:"distributed"`
}

// TableConfig carries the externally-supplied clauses appended verbatim to
// generated DDL. ShardingKey is only meaningful on distributed tables.
type TableConfig struct {
	Name        string `koanf:"name"`
	Engine      string `koanf:"engine"`
	PartitionBy string `koanf:"partition_by"`
	OrderBy     string `koanf:"order_by"`
	SampleBy    string `koanf:"sample_by"`
	Settings    string `koanf:"settings"`
	ShardingKey string `koanf:"sharding_key"`
}

// SnowplowConfig holds tracker protocol settings.
type SnowplowConfig struct {
	Schemas SchemaIdentifiers `koanf:"schemas"`
}

// SchemaIdentifiers are the configurable vendor/name context identifiers the
// dispatch engine merges into free-form record regions, plus the identifier
// whose unstructured payload unpacks into structured-event fields.
type SchemaIdentifiers struct {
	PageData   string `koanf:"page_data"`
	ScreenData string `koanf:"screen_data"`
	UserData   string `koanf:"user_data"`
	AdData     string `koanf:"ad_data"`
	U2SData    string `koanf:"u2s_data"`
}

// RateLimitConfig holds request rate limiting settings.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

// defaultConfig returns a Config with the built-in defaults. These mirror a
// single-node deployment writing into a "snowplow" database.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		ClickHouse: ClickHouseConfig{
			Host:           "localhost",
			Port:           9000,
			Database:       "snowplow",
			Username:       "default",
			Password:       "",
			Cluster:        "",
			ConnectTimeout: 10 * time.Second,
			PoolSize:       5,
			MaxRetries:     3,
			RetryDelay:     time.Second,
			Tables: map[string]TableGroupConfig{
				"snowplow": {
					Enabled: true,
					Local: TableConfig{
						Name:        "snowplow.local",
						Engine:      "MergeTree()",
						PartitionBy: "(toYYYYMM(time), event_type)",
						OrderBy: "time, app_id, platform, event_type, " +
							"cityHash64(device_id), session_id, event_id",
						SampleBy: "cityHash64(device_id)",
						Settings: "index_granularity = 8192",
					},
					Distributed: TableConfig{
						Name:        "snowplow.clickstream",
						ShardingKey: "cityHash64(device_id)",
					},
				},
				"sendgrid": {
					Enabled: false,
					Local: TableConfig{
						Name:        "snowplow.sendgrid",
						Engine:      "MergeTree()",
						PartitionBy: "toYYYYMM(time)",
						OrderBy:     "time, event, email",
						SampleBy:    "cityHash64(email)",
						Settings:    "index_granularity = 8192",
					},
					Distributed: TableConfig{
						Name:        "snowplow.sendgrid_distributed",
						ShardingKey: "cityHash64(email)",
					},
				},
			},
		},
		Snowplow: SnowplowConfig{
			Schemas: SchemaIdentifiers{
				PageData:   "dev.snowplow.simple/page_data",
				ScreenData: "dev.snowplow.simple/screen_data",
				UserData:   "dev.snowplow.simple/user_data",
				AdData:     "dev.snowplow.simple/ad_data",
				U2SData:    "dev.snowplow.simple/u2s_data",
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:  false,
			Requests: 100,
			Window:   time.Minute,
		},
	}
}

// Validate checks configuration consistency beyond type safety.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required")
	}
	if c.ClickHouse.PoolSize < 0 {
		return fmt.Errorf("clickhouse.pool_size must be >= 0")
	}
	if c.ClickHouse.MaxRetries < 1 {
		return fmt.Errorf("clickhouse.max_retries must be >= 1")
	}
	if c.ClickHouse.RetryDelay < 0 {
		return fmt.Errorf("clickhouse.retry_delay must be >= 0")
	}
	for group, tables := range c.ClickHouse.Tables {
		if tables.Enabled && tables.Local.Name == "" {
			return fmt.Errorf("clickhouse.tables.%s.local.name is required", group)
		}
		if c.ClickHouse.Cluster != "" && tables.Enabled && tables.Distributed.Name == "" {
			return fmt.Errorf("clickhouse.tables.%s.distributed.name is required with a cluster", group)
		}
	}
	return nil
}
