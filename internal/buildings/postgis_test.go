package buildings

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestBuildingsQuery(t *testing.T) {
	q := buildingsQuery(`osm"buildings`)
	if !strings.Contains(q, `FROM "osm""buildings"`) {
		t.Errorf("expected quoted table name in %s", q)
	}
	if !strings.Contains(q, "ST_DWithin") {
		t.Errorf("expected a radius filter in %s", q)
	}
}

// fakeRows is a pgx.Rows over fixed id, geometry, and height values.
type fakeRows struct {
	rows [][3]any
	i    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.rows)
}

func (r *fakeRows) Values() ([]any, error) {
	row := r.rows[r.i-1]
	return row[:], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.i-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*string) = row[1].(string)
	h, _ := row[2].(*float64)
	*dest[2].(**float64) = h
	return nil
}

type fakeQuerier struct {
	rows [][3]any
	err  error
	args []any
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return &fakeRows{rows: q.rows}, nil
}

func TestPostGISQueryBuildings(t *testing.T) {
	h := 25.0
	q := &fakeQuerier{rows: [][3]any{
		{"1", `{"type":"Polygon","coordinates":[[[4.46,51.92],[4.461,51.92],[4.461,51.921],[4.46,51.92]]]}`, &h},
		{"2", `{"type":"MultiPolygon","coordinates":[[[[4.46,51.92],[4.461,51.92],[4.461,51.921],[4.46,51.92]]],[[[4.47,51.92],[4.471,51.92],[4.471,51.921],[4.47,51.92]]]]}`, (*float64)(nil)},
		{"3", `not geometry`, &h},
	}}
	p := NewPostGIS(q, "buildings")
	bs, err := p.QueryBuildings(context.Background(), center, 300)
	if err != nil {
		t.Fatal(err)
	}

	if len(q.args) != 3 || q.args[0] != center.Lng || q.args[1] != center.Lat || q.args[2] != 300.0 {
		t.Errorf("expected args [lng lat radius], got %v", q.args)
	}
	if len(bs) != 4 {
		t.Fatalf("expected 4 buildings, got %d: %v", len(bs), bs)
	}
	if bs[0].ID != "1" || bs[0].Height != 25 || !bs[0].CanOcclude() {
		t.Errorf("expected usable building 1, got %+v", bs[0])
	}
	if bs[1].ID != "2#0" || bs[2].ID != "2#1" || !math.IsNaN(bs[1].Height) {
		t.Errorf("expected split multipolygon with NaN height, got %+v %+v", bs[1], bs[2])
	}
	if bs[3].ID != "3" || bs[3].CanOcclude() {
		t.Errorf("expected unusable building 3, got %+v", bs[3])
	}
}

func TestPostGISQueryError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPostGIS(&fakeQuerier{err: boom}, "buildings")
	if _, err := p.QueryBuildings(context.Background(), center, 300); !errors.Is(err, boom) {
		t.Errorf("expected wrapped query error, got %v", err)
	}
}

func TestPostGISIntegration(t *testing.T) {
	dsn := os.Getenv("SHADE_TEST_DSN")
	if dsn == "" {
		t.Skip("SHADE_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	for _, stmt := range []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`DROP TABLE IF EXISTS shade_test_buildings`,
		`CREATE TABLE shade_test_buildings (id bigint PRIMARY KEY, geom geometry(Polygon, 4326), height double precision)`,
		`INSERT INTO shade_test_buildings VALUES
			(1, ST_GeomFromText('POLYGON((4.4630 51.9244, 4.4632 51.9244, 4.4632 51.9246, 4.4630 51.9246, 4.4630 51.9244))', 4326), 40),
			(2, ST_GeomFromText('POLYGON((4.5630 51.9244, 4.5632 51.9244, 4.5632 51.9246, 4.5630 51.9246, 4.5630 51.9244))', 4326), 40)`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	defer pool.Exec(ctx, `DROP TABLE shade_test_buildings`)

	bs, err := NewPostGIS(pool, "shade_test_buildings").QueryBuildings(ctx, center, 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 1 || bs[0].ID != "1" || bs[0].Height != 40 {
		t.Errorf("expected building 1, got %+v", bs)
	}
}
