package buildings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aclements/shade"
)

// Redis is a building source backed by a Redis GEO set of building
// centers and a hash of msgpack-encoded footprints.
//
// For layer L, the GEO set is "L:geo" and the hash is "L:footprints",
// both keyed by building ID. "L:extent" is a sorted set whose "max"
// member holds the largest distance in meters from any stored building's
// center to its walls. Queries widen their radius by it.
type Redis struct {
	rdb   redis.UniversalClient
	layer string
}

// NewRedis returns a Redis source for the given layer.
func NewRedis(rdb redis.UniversalClient, layer string) *Redis {
	return &Redis{rdb: rdb, layer: layer}
}

func (r *Redis) geoKey() string       { return r.layer + ":geo" }
func (r *Redis) footprintKey() string { return r.layer + ":footprints" }
func (r *Redis) extentKey() string    { return r.layer + ":extent" }

const maxExtentMember = "max"

// footprintExtent returns the largest distance in meters from the center
// of b's bounding box to any corner of it.
func footprintExtent(b shade.BuildingFootprint) float64 {
	return extent(b.Footprint.Bound().Center(), b.Footprint)
}

// footprintRecord is the stored form of a building footprint.
type footprintRecord struct {
	ID     string         `msgpack:"id"`
	Height float64        `msgpack:"h"`
	Rings  [][][2]float64 `msgpack:"r"`
}

func encodeFootprint(b shade.BuildingFootprint) ([]byte, error) {
	poly, ok := b.Polygon()
	if !ok {
		return nil, fmt.Errorf("building %s: footprint is %T, not a polygon", b.ID, b.Footprint)
	}
	rec := footprintRecord{ID: b.ID, Height: b.Height, Rings: make([][][2]float64, len(poly))}
	for i, ring := range poly {
		rec.Rings[i] = make([][2]float64, len(ring))
		for j, p := range ring {
			rec.Rings[i][j] = p
		}
	}
	return msgpack.Marshal(&rec)
}

func decodeFootprint(data []byte) (shade.BuildingFootprint, error) {
	var rec footprintRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return shade.BuildingFootprint{}, err
	}
	poly := make(orb.Polygon, len(rec.Rings))
	for i, ring := range rec.Rings {
		poly[i] = make(orb.Ring, len(ring))
		for j, p := range ring {
			poly[i][j] = p
		}
	}
	return shade.BuildingFootprint{ID: rec.ID, Footprint: poly, Height: rec.Height}, nil
}

// Put stores buildings in Redis and returns how many it stored.
// Buildings whose footprints aren't polygons are skipped.
func (r *Redis) Put(ctx context.Context, bs []shade.BuildingFootprint) (int, error) {
	pipe := r.rdb.Pipeline()
	var stored int
	var far float64
	for _, b := range bs {
		data, err := encodeFootprint(b)
		if err != nil {
			continue
		}
		far = math.Max(far, footprintExtent(b))
		c := b.Footprint.Bound().Center()
		pipe.GeoAdd(ctx, r.geoKey(), &redis.GeoLocation{
			Name:      b.ID,
			Longitude: c.Lon(),
			Latitude:  c.Lat(),
		})
		pipe.HSet(ctx, r.footprintKey(), b.ID, data)
		stored++
	}
	if stored == 0 {
		return 0, nil
	}
	pipe.ZAddGT(ctx, r.extentKey(), redis.Z{Score: far, Member: maxExtentMember})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return stored, nil
}

// QueryBuildings returns the buildings whose centers lie within
// radiusMeters of center plus the largest stored building extent.
func (r *Redis) QueryBuildings(ctx context.Context, center shade.GroundPoint, radiusMeters float64) ([]shade.BuildingFootprint, error) {
	margin, err := r.rdb.ZScore(ctx, r.extentKey(), maxExtentMember).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reading %s: %w", r.extentKey(), err)
	}
	ids, err := r.rdb.GeoSearch(ctx, r.geoKey(), &redis.GeoSearchQuery{
		Longitude:  center.Lng,
		Latitude:   center.Lat,
		Radius:     radiusMeters + margin,
		RadiusUnit: "m",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", r.geoKey(), err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vals, err := r.rdb.HMGet(ctx, r.footprintKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.footprintKey(), err)
	}
	out := make([]shade.BuildingFootprint, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// In the GEO set but missing from the hash. Pass it on
			// without a footprint so the occlusion test skips it.
			out = append(out, shade.BuildingFootprint{ID: ids[i]})
			continue
		}
		b, err := decodeFootprint([]byte(s))
		if err != nil {
			out = append(out, shade.BuildingFootprint{ID: ids[i]})
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
