package buildings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aclements/shade"
	"github.com/aclements/shade/internal/config"
)

// ErrUnknownSource is returned by Open for an unrecognized source name.
var ErrUnknownSource = errors.New("unknown building source")

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// Open returns the building source described by cfg. The returned
// closer releases its connections and background work.
func Open(ctx context.Context, cfg config.BuildingsConfig, logger *zap.Logger) (shade.BuildingSource, io.Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Source {
	case "", "none":
		return shade.NoBuildings, nopCloser, nil

	case "geojson":
		info, err := os.Stat(cfg.GeoJSONPath)
		if err != nil {
			return nil, nil, err
		}
		bs, err := ReadGeoJSONFile(cfg.GeoJSONPath, cfg.Layer)
		if err != nil {
			return nil, nil, err
		}
		static := NewStatic(bs)
		logger.Info("loaded buildings", zap.String("path", cfg.GeoJSONPath), zap.Int("count", len(bs)))
		if cfg.ReloadInterval <= 0 {
			return static, nopCloser, nil
		}
		r := NewReloader(static, cfg.GeoJSONPath, cfg.Layer, info.ModTime(), logger)
		if err := r.Start(cfg.ReloadInterval); err != nil {
			return nil, nil, fmt.Errorf("scheduling reload: %w", err)
		}
		return static, closerFunc(func() error { r.Stop(); return nil }), nil

	case "postgis":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PostGIS: %w", err)
		}
		var src shade.BuildingSource = NewPostGIS(pool, cfg.Layer)
		if cfg.Breaker.Enabled {
			src = NewBreaker("postgis", src, cfg.Breaker, logger)
		}
		return src, closerFunc(func() error { pool.Close(); return nil }), nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		var src shade.BuildingSource = NewRedis(rdb, cfg.Layer)
		if cfg.Breaker.Enabled {
			src = NewBreaker("redis", src, cfg.Breaker, logger)
		}
		return src, rdb, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
}
