package buildings

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/aclements/shade"
)

// A querier runs SQL queries. *pgxpool.Pool and *pgx.Conn are queriers.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostGIS is a building source backed by a PostGIS table with columns
// id, geom (SRID 4326), and height.
type PostGIS struct {
	db    querier
	query string
}

// NewPostGIS returns a PostGIS source reading from table.
func NewPostGIS(db querier, table string) *PostGIS {
	return &PostGIS{db: db, query: buildingsQuery(table)}
}

func buildingsQuery(table string) string {
	return fmt.Sprintf(`
        SELECT id::text, ST_AsGeoJSON(geom), height
        FROM %s
        WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)`,
		pgx.Identifier{table}.Sanitize())
}

// QueryBuildings returns the buildings whose footprints lie within
// radiusMeters of center.
func (p *PostGIS) QueryBuildings(ctx context.Context, center shade.GroundPoint, radiusMeters float64) ([]shade.BuildingFootprint, error) {
	rows, err := p.db.Query(ctx, p.query, center.Lng, center.Lat, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("querying buildings: %w", err)
	}
	defer rows.Close()

	var out []shade.BuildingFootprint
	for rows.Next() {
		var (
			id     string
			geom   string
			height *float64
		)
		if err := rows.Scan(&id, &geom, &height); err != nil {
			return nil, err
		}
		h := math.NaN()
		if height != nil {
			h = *height
		}
		g, err := geojson.UnmarshalGeometry([]byte(geom))
		if err != nil {
			// Leave the geometry empty; the occlusion test skips it.
			out = append(out, shade.BuildingFootprint{ID: id, Height: h})
			continue
		}
		out = append(out, splitFootprint(id, g.Geometry(), h)...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
