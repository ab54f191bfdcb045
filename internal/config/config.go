// Package config handles configuration loading for the shade tools.
package config

import "time"

// Config holds all settings.
type Config struct {
	Location  LocationConfig  `yaml:"location"`
	Buildings BuildingsConfig `yaml:"buildings"`
	Occlusion OcclusionConfig `yaml:"occlusion"`
	Ray       RayConfig       `yaml:"ray"`
	Server    ServerConfig    `yaml:"server"`
	Exposure  ExposureConfig  `yaml:"exposure"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LocationConfig is the default test point.
type LocationConfig struct {
	Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `yaml:"lng" validate:"gte=-180,lte=180"`

	// Timezone is an IANA zone name used to interpret local dates and
	// times given on the command line.
	Timezone string `yaml:"timezone" validate:"required"`
}

// BuildingsConfig selects where building footprints come from.
type BuildingsConfig struct {
	Source string `yaml:"source" validate:"oneof=none geojson postgis redis"`

	// Layer is the building layer: a layer property filter for GeoJSON,
	// a table for PostGIS, and a key prefix for Redis.
	Layer string `yaml:"layer" validate:"required"`

	GeoJSONPath string `yaml:"geojson_path" validate:"required_if=Source geojson"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Source postgis"`
	RedisAddr   string `yaml:"redis_addr" validate:"required_if=Source redis"`
	RedisDB     int    `yaml:"redis_db" validate:"gte=0"`

	QueryRadius    float64       `yaml:"query_radius_m" validate:"gt=0"`
	ReloadInterval time.Duration `yaml:"reload_interval" validate:"gte=0"` // 0 disables reloading
	Breaker        BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around remote sources.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRequests uint32        `yaml:"max_requests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxFailures uint32        `yaml:"max_failures" validate:"gte=1"`
}

// OcclusionConfig holds building occlusion settings.
type OcclusionConfig struct {
	RayLength float64 `yaml:"ray_length_m" validate:"gt=0"`
	Mode      string  `yaml:"mode" validate:"oneof=angular prism"`
}

// RayConfig holds sun ray visualization settings.
type RayConfig struct {
	DistanceKm float64 `yaml:"distance_km" validate:"gt=0"`
	Segments   int     `yaml:"segments" validate:"gte=1"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Listen         string        `yaml:"listen" validate:"required"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// ExposureConfig holds settings for sun exposure sweeps.
type ExposureConfig struct {
	Increment time.Duration `yaml:"increment" validate:"gt=0"`
	Workers   int           `yaml:"workers" validate:"gte=1"`
	CacheDir  string        `yaml:"cache_dir"` // empty disables caching

	// Elevation of the test point above sea level in meters.
	Elevation float64 `yaml:"elevation_m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Location: LocationConfig{
			Lat:      51.9244,
			Lng:      4.4626,
			Timezone: "Local",
		},
		Buildings: BuildingsConfig{
			Source:      "none",
			Layer:       "building-extrusion",
			RedisDB:     0,
			QueryRadius: 500,
			Breaker: BreakerConfig{
				Enabled:     true,
				MaxRequests: 5,
				Interval:    time.Minute,
				Timeout:     30 * time.Second,
				MaxFailures: 5,
			},
		},
		Occlusion: OcclusionConfig{
			RayLength: 2000,
			Mode:      "angular",
		},
		Ray: RayConfig{
			DistanceKm: 1,
			Segments:   30,
		},
		Server: ServerConfig{
			Listen:         ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Exposure: ExposureConfig{
			Increment: 10 * time.Minute,
			Workers:   4,
			CacheDir:  ".cache",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// TimeLocation returns the configured time zone.
func (c *LocationConfig) TimeLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
