// Package config provides configuration loading, defaults, and validation
// for the ligandscope service.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all service settings.
const envPrefix = "LIGANDSCOPE"

// newViper builds a pre-configured Viper instance with the service's
// standard settings: YAML file type, LIGANDSCOPE_ env prefix, automatic env
// binding, and a key replacer that maps "." to "_" so that nested keys like
// "database.host" resolve to "LIGANDSCOPE_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The water-bridge toggle defaults to enabled.  It has to live here
	// rather than in ApplyDefaults: after unmarshalling, a bool zero value is
	// indistinguishable from an explicit false.
	v.SetDefault("engine.water_bridge_enabled", true)

	// Unmarshal only sees keys viper already knows about, so every settable
	// key is bound explicitly; AutomaticEnv alone does not surface env-only
	// keys to Unmarshal.
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}

	return v
}

// configKeys lists every leaf key of Config in viper dot notation.
var configKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
	"server.max_body_size", "server.shutdown_timeout",

	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.conn_max_lifetime", "database.conn_max_idle_time",

	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
	"redis.write_timeout", "redis.default_ttl", "redis.key_prefix",

	"kafka.brokers", "kafka.group_id", "kafka.auto_offset_reset",
	"kafka.timeout_ms", "kafka.producer_retries", "kafka.batch_size",

	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
	"minio.use_ssl", "minio.presign_expiry",

	"worker.concurrency", "worker.max_retries", "worker.retry_backoff",
	"worker.analysis_budget",

	"log.level", "log.format", "log.output",

	"engine.water_bridge_enabled", "engine.cell_size", "engine.max_structure_bytes",
	"engine.cutoffs.binding_site_dist", "engine.cutoffs.hydrophobic_max_dist",
	"engine.cutoffs.hbond_max_dist", "engine.cutoffs.salt_bridge_max_dist",
	"engine.cutoffs.pi_stacking_max_dist", "engine.cutoffs.pi_cation_max_dist",
	"engine.cutoffs.halogen_bond_max_dist", "engine.cutoffs.water_bridge_max_dist",
}

// Load reads the YAML file at configPath, merges any LIGANDSCOPE_*
// environment variable overrides, applies service defaults for unset fields,
// and validates the result.  It returns a fully-populated *Config or a
// descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from LIGANDSCOPE_* environment
// variables, with no config file required.  This is the preferred loading
// strategy for containerised deployments.
//
// Environment variable naming convention:
//
//	LIGANDSCOPE_<SECTION>_<FIELD>   e.g.  LIGANDSCOPE_DATABASE_HOST
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading settings that are safe to change at runtime, such as log
// level and engine cutoffs for new analyses; callers decide which subset to
// apply.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// A changed file that fails to parse or validate is skipped and onChange is
// not called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors are ignored here, callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// Intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
