// shade decides whether a point is in direct sunlight or in the shadow
// of nearby buildings, and charts its sun exposure over a year.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/aclements/shade"
	"github.com/aclements/shade/internal/buildings"
	"github.com/aclements/shade/internal/config"
	"github.com/aclements/shade/internal/exposure"
	"github.com/aclements/shade/internal/logger"
	"github.com/aclements/shade/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "check":
		err = cmdCheck(args)
	case "times":
		err = cmdTimes(args)
	case "ray":
		err = cmdRay(args)
	case "heatmap":
		err = cmdHeatmap(args)
	case "serve":
		err = cmdServe(args)
	case "import":
		err = cmdImport(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`shade - sunlight and building shadow calculator

Usage:
  shade <command> [options] [args]

Commands:
  check [time]      Report whether the test point is in direct sunlight
  times [date]      Print the sun events of a day
  ray [time]        Write the sun ray as GeoJSON
  heatmap           Plot the test point's sun exposure over a year
  serve             Run the HTTP API
  import            Load a GeoJSON building file into Redis

Times are RFC3339, "2006-01-02 15:04", or "2006-01-02" in the configured
time zone, and default to now. Every command accepts -config, -lat, -lng,
-tz, -buildings, -geojson, -layer, -mode, and -debug.

Examples:
  shade check -lat 51.9244 -lng 4.4626 "2024-06-21 13:45"
  shade ray -geojson buildings.geojson -o ray.geojson
  shade heatmap -geojson buildings.geojson -year 2024 -o exposure.png
  shade serve -buildings postgis -listen :8080`)
}

// setup parses args for a subcommand, loads the configuration, and
// starts logging.
func setup(fs *flag.FlagSet, fl *config.Flags, args []string) (*config.Config, error) {
	fs.Parse(args)
	cfg, err := config.Load(*fl.ConfigPath, fl)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

// openResolver opens the configured building source and returns a
// resolver over it.
func openResolver(ctx context.Context, cfg *config.Config) (*shade.Resolver, io.Closer, error) {
	mode, err := shade.ParseOcclusionMode(cfg.Occlusion.Mode)
	if err != nil {
		return nil, nil, err
	}
	src, closer, err := buildings.Open(ctx, cfg.Buildings, logger.Log)
	if err != nil {
		return nil, nil, err
	}
	r := shade.NewResolver(src, logger.Log)
	r.Occlusion.QueryRadius = cfg.Buildings.QueryRadius
	r.Occlusion.RayLength = cfg.Occlusion.RayLength
	r.Occlusion.Mode = mode
	return r, closer, nil
}

// parseTimeArg parses an optional time argument in loc.
func parseTimeArg(args []string, loc *time.Location) (time.Time, error) {
	if len(args) == 0 {
		return time.Now().In(loc), nil
	}
	s := args[0]
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}

func location(cfg *config.Config) (shade.GroundPoint, *time.Location, error) {
	loc, err := cfg.Location.TimeLocation()
	if err != nil {
		return shade.GroundPoint{}, nil, err
	}
	return shade.GroundPoint{Lat: cfg.Location.Lat, Lng: cfg.Location.Lng}, loc, nil
}

func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fl := config.RegisterFlags(fs)
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	cfg, err := setup(fs, fl, args)
	if err != nil {
		return err
	}
	point, loc, err := location(cfg)
	if err != nil {
		return err
	}
	t, err := parseTimeArg(fs.Args(), loc)
	if err != nil {
		return err
	}

	ctx := context.Background()
	r, closer, err := openResolver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	res, err := r.Resolve(ctx, point, t)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	status := "in shadow"
	if res.InSunlight {
		status = "in direct sunlight"
	}
	fmt.Printf("Point:    %.6f, %.6f\n", point.Lat, point.Lng)
	fmt.Printf("Time:     %s\n", t.In(loc).Format("2006-01-02 15:04 MST"))
	fmt.Printf("Sun:      altitude %.1f°, bearing %.1f° (%s)\n",
		res.Sun.AltitudeDegrees, res.Sun.Bearing(), shade.CardinalDirection(res.Sun.Bearing()))
	fmt.Printf("Status:   %s\n", status)
	fmt.Printf("Method:   %s\n", res.Method)
	fmt.Printf("Details:  %s\n", res.Details)
	return nil
}

func cmdTimes(args []string) error {
	fs := flag.NewFlagSet("times", flag.ExitOnError)
	fl := config.RegisterFlags(fs)
	cfg, err := setup(fs, fl, args)
	if err != nil {
		return err
	}
	point, loc, err := location(cfg)
	if err != nil {
		return err
	}
	date, err := parseTimeArg(fs.Args(), loc)
	if err != nil {
		return err
	}
	// Ask about noon so the events land on the requested local day.
	date = time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)
	st, err := shade.ComputeSunTimes(date, point.Lat, point.Lng)
	if err != nil {
		return err
	}

	fmt.Printf("Sun events on %s at %.4f, %.4f\n\n", date.Format(time.DateOnly), point.Lat, point.Lng)
	for _, ev := range []struct {
		name string
		t    time.Time
	}{
		{"Night end", st.NightEnd},
		{"Nautical dawn", st.NauticalDawn},
		{"Dawn", st.Dawn},
		{"Sunrise", st.Sunrise},
		{"Sunrise end", st.SunriseEnd},
		{"Golden hour end", st.GoldenHourEnd},
		{"Solar noon", st.SolarNoon},
		{"Golden hour", st.GoldenHour},
		{"Sunset start", st.SunsetStart},
		{"Sunset", st.Sunset},
		{"Dusk", st.Dusk},
		{"Nautical dusk", st.NauticalDusk},
		{"Night", st.Night},
		{"Nadir", st.Nadir},
	} {
		if !shade.Defined(ev.t) {
			fmt.Printf("  %-16s -\n", ev.name)
			continue
		}
		fmt.Printf("  %-16s %s\n", ev.name, ev.t.In(loc).Format("15:04:05"))
	}
	if from, to, full := st.DaylightRange(); full {
		fmt.Println("\nThe sun does not rise and set on this day.")
	} else {
		fmt.Printf("\nDaylight: %s\n", to.Sub(from).Round(time.Minute))
	}
	return nil
}

func cmdRay(args []string) error {
	fs := flag.NewFlagSet("ray", flag.ExitOnError)
	fl := config.RegisterFlags(fs)
	out := fs.String("o", "", "Output file (default stdout)")
	cfg, err := setup(fs, fl, args)
	if err != nil {
		return err
	}
	point, loc, err := location(cfg)
	if err != nil {
		return err
	}
	t, err := parseTimeArg(fs.Args(), loc)
	if err != nil {
		return err
	}
	sun, err := shade.ComputeSolarPosition(t, point.Lat, point.Lng)
	if err != nil {
		return err
	}

	end := shade.Project3DRay(point, cfg.Ray.DistanceKm, sun.AzimuthDegrees, sun.AltitudeDegrees)
	segs := shade.SubdivideRay(point.Point(), end.Position, 0, end.Elevation, cfg.Ray.Segments)
	data, err := shade.RayFeatures(point, sun, end, segs).MarshalJSON()
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func cmdHeatmap(args []string) error {
	fs := flag.NewFlagSet("heatmap", flag.ExitOnError)
	fl := config.RegisterFlags(fs)
	year := fs.Int("year", time.Now().Year(), "Year to sweep")
	out := fs.String("o", "exposure.png", "Heat map output file")
	hoursOut := fs.String("hours", "", "Also plot daily sunlit hours to this file")
	windowOut := fs.String("window", "", "Also plot the daily first and last sunlight to this file")
	cfg, err := setup(fs, fl, args)
	if err != nil {
		return err
	}
	point, loc, err := location(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	r, closer, err := openResolver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	m := &exposure.Model{
		Point:           point,
		ElevationMeters: cfg.Exposure.Elevation,
		Occlusion:       r.Occlusion,
		Workers:         cfg.Exposure.Workers,
		Cache:           exposure.NewCache(cfg.Exposure.CacheDir, logger.Log),
		CacheTag:        cacheTag(cfg),
		Logger:          logger.Log,
	}
	start := time.Now()
	o, err := m.IntensityOverYear(ctx, *year, loc, cfg.Exposure.Increment)
	if err != nil {
		return err
	}
	logger.Log.Info("swept year",
		zap.Int("year", *year),
		zap.Int("samples", len(o.Samples)),
		zap.Duration("elapsed", time.Since(start)))

	const w, h = 20 * vg.Centimeter, 15 * vg.Centimeter
	if err := o.HeatMap().Save(w, h, *out); err != nil {
		return err
	}
	if *hoursOut != "" {
		p, err := o.SunHoursPlot()
		if err != nil {
			return err
		}
		if err := p.Save(w, h, *hoursOut); err != nil {
			return err
		}
	}
	if *windowOut != "" {
		p, err := o.LitWindowPlot()
		if err != nil {
			return err
		}
		if err := p.Save(w, h, *windowOut); err != nil {
			return err
		}
	}
	return nil
}

// cacheTag identifies the building data for the exposure cache.
func cacheTag(cfg *config.Config) string {
	b := cfg.Buildings
	switch b.Source {
	case "geojson":
		tag := "geojson:" + b.GeoJSONPath + ":" + b.Layer
		if info, err := os.Stat(b.GeoJSONPath); err == nil {
			tag += ":" + info.ModTime().UTC().Format(time.RFC3339Nano)
		}
		return tag
	case "postgis":
		return "postgis:" + b.Layer
	case "redis":
		return "redis:" + b.RedisAddr + ":" + b.Layer
	}
	return b.Source
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fl := config.RegisterFlags(fs)
	cfg, err := setup(fs, fl, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	r, closer, err := openResolver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	return server.New(cfg.Server, cfg.Ray, r, logger.Log).Run(ctx)
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fl := config.RegisterFlags(fs)
	redisAddr := fs.String("redis", "", "Redis address (default from config)")
	cfg, err := setup(fs, fl, args)
	if err != nil {
		return err
	}
	if cfg.Buildings.GeoJSONPath == "" {
		return fmt.Errorf("import needs -geojson")
	}
	bs, err := buildings.ReadGeoJSONFile(cfg.Buildings.GeoJSONPath, cfg.Buildings.Layer)
	if err != nil {
		return err
	}

	target := cfg.Buildings
	target.Source = "redis"
	target.Breaker.Enabled = false
	if *redisAddr != "" {
		target.RedisAddr = *redisAddr
	}
	if target.RedisAddr == "" {
		return fmt.Errorf("import needs a Redis address")
	}
	ctx := context.Background()
	src, closer, err := buildings.Open(ctx, target, logger.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	n, err := src.(*buildings.Redis).Put(ctx, bs)
	if err != nil {
		return err
	}
	if skipped := len(bs) - n; skipped > 0 {
		logger.Log.Warn("skipped buildings without polygon footprints", zap.Int("count", skipped))
	}
	fmt.Printf("Imported %d buildings into %s layer %q\n", n, target.RedisAddr, target.Layer)
	return nil
}
