package config

import (
	"flag"
	"fmt"
	"time"
)

// Flags are the command-line overrides shared by every subcommand.
type Flags struct {
	fs *flag.FlagSet

	ConfigPath *string
	debug      *bool
	lat        *float64
	lng        *float64
	timezone   *string
	source     *string
	layer      *string
	geojson    *string
	mode       *string
	listen     *string
	increment  *time.Duration
	workers    *int
	cacheDir   *string
	logFile    *string
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:         fs,
		ConfigPath: fs.String("config", "", "Path to config file"),
		debug:      fs.Bool("debug", false, "Enable debug logging"),
		lat:        fs.Float64("lat", 0, "Latitude of the test point in degrees"),
		lng:        fs.Float64("lng", 0, "Longitude of the test point in degrees"),
		timezone:   fs.String("tz", "", "Time zone for local dates and times"),
		source:     fs.String("buildings", "", "Building source: none, geojson, postgis, or redis"),
		layer:      fs.String("layer", "", "Building layer name"),
		geojson:    fs.String("geojson", "", "Path to a GeoJSON building file (implies -buildings=geojson)"),
		mode:       fs.String("mode", "", "Occlusion mode: angular or prism"),
		listen:     fs.String("listen", "", "HTTP listen address"),
		increment:  fs.Duration("increment", 0, "Exposure sweep time step"),
		workers:    fs.Int("workers", 0, "Exposure sweep parallelism"),
		cacheDir:   fs.String("cache", "", "Exposure cache directory"),
		logFile:    fs.String("log-file", "", "Also log to this file"),
	}
}

// apply applies the flags that were set on the command line to cfg.
func (f *Flags) apply(cfg *Config) error {
	if !f.fs.Parsed() {
		return fmt.Errorf("flags not parsed")
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if *f.debug {
				cfg.Logging.Level = "debug"
			}
		case "lat":
			cfg.Location.Lat = *f.lat
		case "lng":
			cfg.Location.Lng = *f.lng
		case "tz":
			cfg.Location.Timezone = *f.timezone
		case "buildings":
			cfg.Buildings.Source = *f.source
		case "layer":
			cfg.Buildings.Layer = *f.layer
		case "geojson":
			cfg.Buildings.GeoJSONPath = *f.geojson
			if !f.set("buildings") {
				cfg.Buildings.Source = "geojson"
			}
		case "mode":
			cfg.Occlusion.Mode = *f.mode
		case "listen":
			cfg.Server.Listen = *f.listen
		case "increment":
			cfg.Exposure.Increment = *f.increment
		case "workers":
			cfg.Exposure.Workers = *f.workers
		case "cache":
			cfg.Exposure.CacheDir = *f.cacheDir
		case "log-file":
			cfg.Logging.LogFile = *f.logFile
		}
	})
	return nil
}

func (f *Flags) set(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}
