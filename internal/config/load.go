package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load loads configuration with priority:
// defaults < file < environment (and .env) < flags.
//
// path is an explicit config file. If it is empty, Load looks in the
// standard locations and uses defaults if there's no file. fl may be
// nil.
func Load(path string, fl *Flags) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if fl != nil {
		if err := fl.apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location.TimeLocation(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{"./shade.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "shade", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv overrides cfg from SHADE_* environment variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	float := func(key string, dst *float64) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = f
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	if err := float("SHADE_LAT", &cfg.Location.Lat); err != nil {
		return err
	}
	if err := float("SHADE_LNG", &cfg.Location.Lng); err != nil {
		return err
	}
	str("SHADE_TIMEZONE", &cfg.Location.Timezone)

	str("SHADE_BUILDINGS_SOURCE", &cfg.Buildings.Source)
	str("SHADE_BUILDINGS_LAYER", &cfg.Buildings.Layer)
	str("SHADE_GEOJSON_PATH", &cfg.Buildings.GeoJSONPath)
	str("DATABASE_URL", &cfg.Buildings.PostgresDSN)
	str("SHADE_POSTGRES_DSN", &cfg.Buildings.PostgresDSN)
	str("SHADE_REDIS_ADDR", &cfg.Buildings.RedisAddr)
	if err := duration("SHADE_RELOAD_INTERVAL", &cfg.Buildings.ReloadInterval); err != nil {
		return err
	}

	str("SHADE_OCCLUSION_MODE", &cfg.Occlusion.Mode)

	if port, ok := lookup("PORT"); ok && port != "" {
		cfg.Server.Listen = ":" + port
	}
	str("SHADE_LISTEN", &cfg.Server.Listen)

	str("SHADE_CACHE_DIR", &cfg.Exposure.CacheDir)

	str("SHADE_LOG_LEVEL", &cfg.Logging.Level)
	str("SHADE_LOG_FILE", &cfg.Logging.LogFile)
	return nil
}
