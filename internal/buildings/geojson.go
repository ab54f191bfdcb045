// Package buildings provides building footprint sources for the
// occlusion tester: static GeoJSON files, PostGIS tables, and Redis GEO
// sets.
package buildings

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/aclements/shade"
)

// metersPerLevel converts a building:levels tag to a height.
const metersPerLevel = 3

// ReadGeoJSON reads building footprints from a GeoJSON feature
// collection.
//
// Only features whose "layer" property is layer, or that have no layer
// property, are read. The height comes from the "height" or
// "render_height" property, or from "building:levels". Multipolygons are
// split into one footprint per polygon. Features without a usable height
// get a NaN height.
func ReadGeoJSON(r io.Reader, layer string) ([]shade.BuildingFootprint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing GeoJSON: %w", err)
	}

	var out []shade.BuildingFootprint
	for i, f := range fc.Features {
		if l, ok := f.Properties["layer"].(string); ok && layer != "" && l != layer {
			continue
		}
		id := featureID(f, i)
		height := featureHeight(f.Properties)
		out = append(out, splitFootprint(id, f.Geometry, height)...)
	}
	return out, nil
}

// ReadGeoJSONFile is like ReadGeoJSON but reads from a file.
func ReadGeoJSONFile(path, layer string) ([]shade.BuildingFootprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bs, err := ReadGeoJSON(f, layer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bs, nil
}

// splitFootprint returns one footprint per polygon in g. Other geometry
// types are passed through unchanged.
func splitFootprint(id string, g orb.Geometry, height float64) []shade.BuildingFootprint {
	mp, ok := g.(orb.MultiPolygon)
	if !ok {
		return []shade.BuildingFootprint{{ID: id, Footprint: g, Height: height}}
	}
	if len(mp) == 1 {
		return []shade.BuildingFootprint{{ID: id, Footprint: mp[0], Height: height}}
	}
	out := make([]shade.BuildingFootprint, len(mp))
	for i, poly := range mp {
		out[i] = shade.BuildingFootprint{ID: fmt.Sprintf("%s#%d", id, i), Footprint: poly, Height: height}
	}
	return out
}

func featureID(f *geojson.Feature, index int) string {
	switch id := f.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	if id, ok := f.Properties["id"]; ok {
		return fmt.Sprint(id)
	}
	return "feature-" + strconv.Itoa(index)
}

// featureHeight returns the height in meters described by props, or NaN.
func featureHeight(props geojson.Properties) float64 {
	for _, key := range []string{"height", "render_height"} {
		if h, ok := number(props[key]); ok {
			return h
		}
	}
	if levels, ok := number(props["building:levels"]); ok {
		return levels * metersPerLevel
	}
	return math.NaN()
}

// number interprets v as a number. OSM-derived data often stores
// heights as strings like "12" or "12 m".
func number(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "m"))
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
